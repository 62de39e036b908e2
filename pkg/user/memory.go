package user

import (
	"context"
	"sync"
	"time"
)

type MemRepo struct {
	mu    sync.Mutex
	users map[string]*User
	now   func() time.Time
}

func NewMemRepo() *MemRepo {
	return &MemRepo{users: make(map[string]*User), now: time.Now}
}

// getOrCreate must be called with mu held.
func (r *MemRepo) getOrCreate(identifier string) *User {
	u, ok := r.users[identifier]
	if !ok {
		u = &User{
			Identifier:   identifier,
			Name:         identifier,
			Interests:    []string{},
			Interactions: []Interaction{},
			Created:      r.now().UTC(),
		}
		r.users[identifier] = u
	}
	return u
}

func (r *MemRepo) Upsert(_ context.Context, p Profile) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.getOrCreate(p.Identifier)
	u.Name = p.Name
	if p.Email != "" {
		u.Email = p.Email
	}
	if p.AvatarURL != "" {
		u.AvatarURL = p.AvatarURL
	}
	return u.clone(), nil
}

func (r *MemRepo) GetByIdentifier(_ context.Context, identifier string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[identifier]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.clone(), nil
}

func (r *MemRepo) AppendInteraction(_ context.Context, identifier string, in Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.getOrCreate(identifier)
	u.Interactions = append(u.Interactions, in)
	return nil
}

func (r *MemRepo) AddInterests(_ context.Context, identifier string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.getOrCreate(identifier)
	have := u.InterestSet()
	for _, t := range tags {
		if _, ok := have[t]; ok {
			continue
		}
		have[t] = struct{}{}
		u.Interests = append(u.Interests, t)
	}
	return nil
}
