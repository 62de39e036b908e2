package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"polls/pkg/common"
	"polls/pkg/metrics"
	"polls/pkg/post"
	"polls/pkg/user"
)

type PostSource interface {
	Trending(ctx context.Context, limit, offset int) ([]*post.Post, error)
	Unseen(ctx context.Context, seen []post.PostId) ([]*post.Post, error)
}

type UserSource interface {
	GetByIdentifier(ctx context.Context, identifier string) (*user.User, error)
}

type FeedOptions struct {
	RecencyBonus bool
}

type Feed struct {
	posts PostSource
	users UserSource
	opts  FeedOptions
}

func NewFeed(posts PostSource, users UserSource, opts FeedOptions) *Feed {
	return &Feed{posts: posts, users: users, opts: opts}
}

type scored struct {
	p         *post.Post
	relevance float64
}

// Rank returns the page [offset, offset+limit) of the user's feed. Posts the
// user interacted with are left out. Unknown users get the trending order.
func (f *Feed) Rank(ctx context.Context, userIdentifier string, limit, offset int) ([]*post.Post, error) {
	u, err := f.users.GetByIdentifier(ctx, userIdentifier)
	if errors.Is(err, common.ErrNotFound) {
		metrics.FeedsServed.WithLabelValues("trending").Inc()
		return f.posts.Trending(ctx, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("ranking: failed resolving user %s: %w", userIdentifier, err)
	}

	seenIds := u.SeenPostIds()
	seen := make(map[post.PostId]struct{}, len(seenIds))
	exclude := make([]post.PostId, 0, len(seenIds))
	for _, id := range seenIds {
		seen[post.PostId(id)] = struct{}{}
		exclude = append(exclude, post.PostId(id))
	}

	candidates, err := f.posts.Unseen(ctx, exclude)
	if err != nil {
		return nil, fmt.Errorf("ranking: failed loading candidates: %w", err)
	}

	interests := u.InterestSet()
	ranked := make([]scored, 0, len(candidates))
	for _, p := range candidates {
		// The store filters too, but a stale read must never leak a seen post.
		if _, ok := seen[p.Id]; ok {
			continue
		}
		ranked = append(ranked, scored{p: p, relevance: Relevance(p, interests, f.opts.RecencyBonus)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.relevance != b.relevance {
			return a.relevance > b.relevance
		}
		if !a.p.Created.Equal(b.p.Created) {
			return a.p.Created.After(b.p.Created)
		}
		return a.p.Id < b.p.Id
	})

	metrics.FeedsServed.WithLabelValues("personalized").Inc()
	lo, hi := common.Window(len(ranked), limit, offset)
	page := make([]*post.Post, 0, hi-lo)
	for _, s := range ranked[lo:hi] {
		page = append(page, s.p)
	}
	return page, nil
}
