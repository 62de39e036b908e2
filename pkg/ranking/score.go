// Package ranking holds the pure scoring functions and the personalized feed
// pipeline built on them.
package ranking

import (
	"math"
	"time"

	"polls/pkg/common"
	"polls/pkg/post"
)

// Engagement weights and the decay rate, in hours.
const (
	VoteWeight  = 1.0
	LikeWeight  = 0.5
	ShareWeight = 2.0
	ViewWeight  = 0.1

	DecayHours = 48.0
)

// Raw is the undecayed weighted sum of a post's counters.
func Raw(p *post.Post) float64 {
	return float64(p.TotalVotes)*VoteWeight +
		float64(p.LikesCount)*LikeWeight +
		float64(p.Shares)*ShareWeight +
		float64(p.Views)*ViewWeight
}

// Decay is e^(-age/48h). A createdAt in the future counts as age zero.
func Decay(created, now time.Time) float64 {
	age := now.Sub(created).Hours()
	if age < 0 {
		age = 0
	}
	return math.Exp(-age / DecayHours)
}

func Score(p *post.Post, now time.Time) float64 {
	return Raw(p) * Decay(p.Created, now)
}

// Scores returns the engagement and trending scores of p. Both come from the
// same formula today and are stored separately so either can change alone.
func Scores(p *post.Post, now time.Time) (engagement, trending float64) {
	s := Score(p, now)
	return s, s
}

// Validate rejects posts whose counters or timestamp can't produce a meaningful score.
func Validate(p *post.Post) error {
	if p == nil {
		return common.Validation("post is missing")
	}
	if p.Created.IsZero() {
		return common.Validation("post " + string(p.Id) + " has no createdAt")
	}
	if p.TotalVotes < 0 || p.LikesCount < 0 || p.Shares < 0 || p.Views < 0 {
		return common.Validation("post " + string(p.Id) + " has a negative counter")
	}
	return nil
}
