// Package trending periodically folds post counters into their stored
// engagement and trending scores.
package trending

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"polls/pkg/common"
	"polls/pkg/logger"
	"polls/pkg/metrics"
	"polls/pkg/post"
	"polls/pkg/ranking"
)

const DefaultInterval = 10 * time.Minute

var ErrNoRuns = common.NewError(common.ErrNotFound, "No trending runs recorded")

type Store interface {
	Walk(ctx context.Context, visit func(p *post.Post, decodeErr error)) error
	SetScores(ctx context.Context, id post.PostId, engagement, trending float64) error
}

// Locker keeps two instances from recomputing in the same cycle.
type Locker interface {
	Acquire(ctx context.Context) (release func(), acquired bool, err error)
}

type Recorder interface {
	Record(ctx context.Context, r Report) error
}

type Report struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Scanned    int       `json:"scanned"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	// Set when another instance held the lock and this cycle did nothing.
	Skipped bool `json:"skipped"`
}

type Option func(*Updater)

func WithLock(l Locker) Option { return func(u *Updater) { u.lock = l } }

func WithRecorder(r Recorder) Option { return func(u *Updater) { u.recorder = r } }

func WithClock(now func() time.Time) Option { return func(u *Updater) { u.now = now } }

func WithInterval(d time.Duration) Option {
	return func(u *Updater) {
		if d > 0 {
			u.interval = d
		}
	}
}

type Updater struct {
	store    Store
	lock     Locker
	recorder Recorder
	now      func() time.Time
	interval time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	last    *Report
	running bool

	// cycle holds runMu so scheduled and triggered cycles never overlap.
	runMu sync.Mutex
	// Triggered cycles; Stop waits for them.
	triggered sync.WaitGroup
}

func NewUpdater(store Store, opts ...Option) *Updater {
	u := &Updater{store: store, now: time.Now, interval: DefaultInterval}
	for _, o := range opts {
		o(u)
	}
	return u
}

// RunOnce recomputes the scores of every post. A post that fails to decode,
// validate or save is counted in Failed and the scan goes on; the returned
// error is reserved for failures that stop the scan itself.
func (u *Updater) RunOnce(ctx context.Context) (Report, error) {
	defer metrics.Since(metrics.TrendingDuration)()
	log := logger.Log(ctx)
	rep := Report{StartedAt: u.now()}

	if u.lock != nil {
		release, ok, err := u.lock.Acquire(ctx)
		if err != nil {
			metrics.TrendingRuns.WithLabelValues("failed").Inc()
			return rep, fmt.Errorf("trending: failed acquiring lock: %w", err)
		}
		if !ok {
			rep.Skipped = true
			rep.FinishedAt = u.now()
			metrics.TrendingRuns.WithLabelValues("skipped").Inc()
			log.Infow("trending cycle skipped, another instance holds the lock")
			return rep, nil
		}
		defer release()
	}

	now := rep.StartedAt
	err := u.store.Walk(ctx, func(p *post.Post, decodeErr error) {
		rep.Scanned++
		if decodeErr != nil {
			rep.Failed++
			log.Warnw("trending: skipping undecodable post", "error", decodeErr)
			return
		}
		if err := ranking.Validate(p); err != nil {
			rep.Failed++
			log.Warnw("trending: skipping invalid post", "post", p.Id, "error", err)
			return
		}
		engagement, trendingScore := ranking.Scores(p, now)
		if err := u.store.SetScores(ctx, p.Id, engagement, trendingScore); err != nil {
			rep.Failed++
			log.Errorw("trending: failed saving scores", "post", p.Id, "error", err)
			return
		}
		rep.Updated++
	})
	rep.FinishedAt = u.now()
	metrics.TrendingPosts.WithLabelValues("updated").Add(float64(rep.Updated))
	metrics.TrendingPosts.WithLabelValues("failed").Add(float64(rep.Failed))

	if err != nil {
		metrics.TrendingRuns.WithLabelValues("failed").Inc()
		return rep, fmt.Errorf("trending: scan aborted after %d posts: %w", rep.Scanned, err)
	}
	if rep.Failed > 0 {
		metrics.TrendingRuns.WithLabelValues("partial").Inc()
	} else {
		metrics.TrendingRuns.WithLabelValues("ok").Inc()
	}

	u.mu.Lock()
	last := rep
	u.last = &last
	u.mu.Unlock()

	if u.recorder != nil {
		if err := u.recorder.Record(ctx, rep); err != nil {
			log.Errorw("trending: failed recording run", "error", err)
		}
	}
	log.Infow("trending cycle done", "scanned", rep.Scanned, "updated", rep.Updated, "failed", rep.Failed)
	return rep, nil
}

// Start schedules RunOnce every interval. Calling it on a running updater is a no-op.
func (u *Updater) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(fmt.Sprintf("@every %s", u.interval), func() { u.cycle(ctx) })
	if err != nil {
		cancel()
		return fmt.Errorf("trending: failed scheduling: %w", err)
	}
	c.Start()

	u.cron, u.ctx, u.cancel, u.running = c, ctx, cancel, true
	return nil
}

// Trigger runs a cycle right away, off schedule, and reports whether one was
// started. A stopped updater starts nothing.
func (u *Updater) Trigger() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.running {
		return false
	}
	ctx := u.ctx
	u.triggered.Add(1)
	go func() {
		defer u.triggered.Done()
		u.cycle(ctx)
	}()
	return true
}

func (u *Updater) cycle(ctx context.Context) {
	if !u.runMu.TryLock() {
		logger.Log(ctx).Infow("trending cycle skipped, previous one still running")
		return
	}
	defer u.runMu.Unlock()
	if _, err := u.RunOnce(ctx); err != nil {
		logger.Log(ctx).Errorw("trending cycle failed", "error", err)
	}
}

// Stop cancels in-flight cycles, scheduled or triggered, and waits for them
// to return. Stopping a stopped updater is a no-op.
func (u *Updater) Stop() {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return
	}
	c, cancel := u.cron, u.cancel
	u.cron, u.ctx, u.cancel, u.running = nil, nil, nil, false
	u.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	u.triggered.Wait()
}

func (u *Updater) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}

// Latest returns the last cycle this process completed.
func (u *Updater) Latest(context.Context) (*Report, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.last == nil {
		return nil, ErrNoRuns
	}
	r := *u.last
	return &r, nil
}
