// Package engagement applies votes, likes, shares and views to posts and
// keeps the acting user's interaction log and interests in step.
package engagement

import (
	"context"
	"strings"
	"time"

	"polls/pkg/common"
	"polls/pkg/logger"
	"polls/pkg/metrics"
	"polls/pkg/post"
	"polls/pkg/user"
)

type PostStore interface {
	Vote(ctx context.Context, id post.PostId, index int, voter string) (*post.Post, error)
	ToggleLike(ctx context.Context, id post.PostId, userIdentifier string) (*post.Post, bool, error)
	Share(ctx context.Context, id post.PostId) (*post.Post, error)
	View(ctx context.Context, id post.PostId) (*post.Post, error)
}

type InteractionStore interface {
	AppendInteraction(ctx context.Context, identifier string, in user.Interaction) error
	AddInterests(ctx context.Context, identifier string, tags []string) error
}

type Service struct {
	posts PostStore
	users InteractionStore
	now   func() time.Time
}

func NewService(posts PostStore, users InteractionStore) *Service {
	return &Service{posts: posts, users: users, now: time.Now}
}

var errNoIdentifier = common.Validation("userIdentifier is required")

func requireIdentifier(userIdentifier string) (string, error) {
	userIdentifier = strings.TrimSpace(userIdentifier)
	if userIdentifier == "" {
		return "", errNoIdentifier
	}
	return userIdentifier, nil
}

// Vote casts userIdentifier's single vote on the post. A user who already
// voted on any option gets post.ErrAlreadyVoted. On success the vote is logged
// and the post's tags join the user's interests.
func (s *Service) Vote(ctx context.Context, id post.PostId, optionIndex int, userIdentifier string) (*post.Post, error) {
	uid, err := requireIdentifier(userIdentifier)
	if err != nil {
		return nil, err
	}
	if optionIndex < 0 {
		return nil, post.ErrInvalidOption
	}

	p, err := s.posts.Vote(ctx, id, optionIndex, uid)
	if err != nil {
		return nil, err
	}
	s.record(ctx, uid, p.Id, user.KindVote)
	if err := s.users.AddInterests(ctx, uid, p.Tags); err != nil {
		metrics.InteractionWriteErrors.WithLabelValues("interests").Inc()
		logger.Log(ctx).Errorw("failed adding interests", "user", uid, "post", p.Id, "error", err)
	}
	return p, nil
}

// ToggleLike flips the user's like on the post and reports whether the post
// is now liked. Only a like is logged; an unlike leaves no trace.
func (s *Service) ToggleLike(ctx context.Context, id post.PostId, userIdentifier string) (*post.Post, bool, error) {
	uid, err := requireIdentifier(userIdentifier)
	if err != nil {
		return nil, false, err
	}
	p, liked, err := s.posts.ToggleLike(ctx, id, uid)
	if err != nil {
		return nil, false, err
	}
	if liked {
		s.record(ctx, uid, p.Id, user.KindLike)
	}
	return p, liked, nil
}

func (s *Service) Share(ctx context.Context, id post.PostId, userIdentifier string) (*post.Post, error) {
	uid, err := requireIdentifier(userIdentifier)
	if err != nil {
		return nil, err
	}
	p, err := s.posts.Share(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, uid, p.Id, user.KindShare)
	return p, nil
}

// View counts a read of the post. Anonymous reads count but aren't logged.
func (s *Service) View(ctx context.Context, id post.PostId, userIdentifier string) (*post.Post, error) {
	p, err := s.posts.View(ctx, id)
	if err != nil {
		return nil, err
	}
	if uid := strings.TrimSpace(userIdentifier); uid != "" {
		s.record(ctx, uid, p.Id, user.KindView)
	}
	return p, nil
}

// record runs after the post write has committed, so a failure here is
// logged and counted but doesn't fail the request.
func (s *Service) record(ctx context.Context, uid string, id post.PostId, kind user.InteractionKind) {
	in := user.Interaction{PostId: string(id), Kind: kind, Timestamp: s.now().UTC()}
	if err := s.users.AppendInteraction(ctx, uid, in); err != nil {
		metrics.InteractionWriteErrors.WithLabelValues(string(kind)).Inc()
		logger.Log(ctx).Errorw("failed recording interaction", "user", uid, "post", id, "kind", kind, "error", err)
		return
	}
	metrics.Interactions.WithLabelValues(string(kind)).Inc()
}
