package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"polls/pkg/common"
	"polls/pkg/post"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func TestScore(t *testing.T) {
	p := &post.Post{TotalVotes: 10, LikesCount: 4, Shares: 3, Views: 50, Created: now.Add(-24 * time.Hour)}

	assert.InDelta(t, 23.0, Raw(p), 1e-9)
	assert.InDelta(t, 13.95, Score(p, now), 0.01)

	t.Run("fresh post is undecayed", func(t *testing.T) {
		fresh := *p
		fresh.Created = now
		assert.InDelta(t, 23.0, Score(&fresh, now), 1e-9)
	})

	t.Run("future createdAt is clamped", func(t *testing.T) {
		skewed := *p
		skewed.Created = now.Add(time.Hour)
		assert.InDelta(t, 23.0, Score(&skewed, now), 1e-9)
	})

	t.Run("zero counters score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Score(&post.Post{Created: now.Add(-time.Hour)}, now))
	})

	t.Run("engagement and trending agree", func(t *testing.T) {
		e, tr := Scores(p, now)
		assert.Equal(t, e, tr)
	})
}

func TestScoreMonotonic(t *testing.T) {
	base := post.Post{TotalVotes: 3, LikesCount: 2, Shares: 1, Views: 7, Created: now.Add(-5 * time.Hour)}
	s := Score(&base, now)

	bumps := map[string]func(p *post.Post){
		"vote":  func(p *post.Post) { p.TotalVotes++ },
		"like":  func(p *post.Post) { p.LikesCount++ },
		"share": func(p *post.Post) { p.Shares++ },
		"view":  func(p *post.Post) { p.Views++ },
	}
	for name, bump := range bumps {
		t.Run(name, func(t *testing.T) {
			p := base
			bump(&p)
			assert.Greater(t, Score(&p, now), s)
		})
	}

	t.Run("older scores lower", func(t *testing.T) {
		older := base
		older.Created = base.Created.Add(-time.Hour)
		assert.Less(t, Score(&older, now), s)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(&post.Post{Created: now}))
	assert.ErrorIs(t, Validate(&post.Post{Id: "x"}), common.ErrValidation)
	assert.ErrorIs(t, Validate(&post.Post{Created: now, Views: -1}), common.ErrValidation)
	assert.ErrorIs(t, Validate(nil), common.ErrValidation)
}

func TestRelevance(t *testing.T) {
	p := &post.Post{Tags: []string{"go", "db"}, TrendingScore: 5, Created: now}
	interests := map[string]struct{}{"go": {}, "music": {}}

	assert.Equal(t, 15.0, Relevance(p, interests, false))
	assert.Equal(t, 5.0, Relevance(p, map[string]struct{}{}, false))

	withBonus := Relevance(p, interests, true)
	assert.InDelta(t, 15.0+float64(now.UnixMilli())/1e9, withBonus, 1e-9)

	newer := *p
	newer.Created = now.Add(time.Hour)
	assert.Greater(t, Relevance(&newer, interests, true), withBonus)
}
