package user

import (
	"strings"
	"time"

	"polls/pkg/common"
)

type InteractionKind string

const (
	KindView  InteractionKind = "view"
	KindVote  InteractionKind = "vote"
	KindLike  InteractionKind = "like"
	KindShare InteractionKind = "share"
)

type Interaction struct {
	PostId    string          `json:"postId" bson:"postId"`
	Kind      InteractionKind `json:"type" bson:"type"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp"`
}

type User struct {
	Identifier string `json:"identifier" bson:"identifier"`
	Name       string `json:"name" bson:"name"`
	Email      string `json:"email,omitempty" bson:"email,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty" bson:"avatarUrl,omitempty"`

	// Grows from the tags of voted posts and is never pruned.
	Interests []string `json:"interests" bson:"interests"`
	// Append-only, one entry per interaction event.
	Interactions []Interaction `json:"interactions" bson:"interactions"`

	Created time.Time `json:"createdAt" bson:"createdAt"`
}

// Profile is the caller-supplied part of a user, the rest is derived.
type Profile struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
}

func (p *Profile) Validate() error {
	p.Identifier = strings.TrimSpace(p.Identifier)
	p.Name = strings.TrimSpace(p.Name)
	if p.Identifier == "" {
		return common.Validation("identifier is required")
	}
	if p.Name == "" {
		p.Name = p.Identifier
	}
	return nil
}

// SeenPostIds returns the distinct post ids the user has interacted with in any way.
func (u *User) SeenPostIds() []string {
	seen := make(map[string]struct{}, len(u.Interactions))
	out := make([]string, 0, len(u.Interactions))
	for _, i := range u.Interactions {
		if _, ok := seen[i.PostId]; ok {
			continue
		}
		seen[i.PostId] = struct{}{}
		out = append(out, i.PostId)
	}
	return out
}

func (u *User) InterestSet() map[string]struct{} {
	set := make(map[string]struct{}, len(u.Interests))
	for _, t := range u.Interests {
		set[t] = struct{}{}
	}
	return set
}

func (u *User) clone() *User {
	c := *u
	c.Interests = append([]string{}, u.Interests...)
	c.Interactions = append([]Interaction{}, u.Interactions...)
	return &c
}
