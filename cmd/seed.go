package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jaswdr/faker"

	"polls/pkg/common"
	"polls/pkg/engagement"
	"polls/pkg/post"
	"polls/pkg/user"
)

const (
	seedUsers = 8
	seedPosts = 20
)

var (
	f    = faker.New()
	tags = []string{"programming", "music", "videos", "funny", "news", "fashion", "sports", "food"}
)

type seedPostRepo interface {
	Add(context.Context, *post.Post) (post.PostId, error)
}

type seedUserRepo interface {
	Upsert(context.Context, user.Profile) (*user.User, error)
}

// seed creates fake users and polls and lets the users engage with them, so
// the feed and trending pages have something to rank.
func seed(ctx context.Context, userRepo seedUserRepo, postRepo seedPostRepo, svc *engagement.Service) error {
	users := make([]*user.User, 0, seedUsers+1)
	// User for experiments (not random)
	pike, err := userRepo.Upsert(ctx, user.Profile{Identifier: "pike", Name: "Rob Pike"})
	if err != nil {
		return fmt.Errorf("seed: can't create default user: %w", err)
	}
	users = append(users, pike)
	for i := 1; i <= seedUsers; i++ {
		u, err := userRepo.Upsert(ctx, genProfile(i))
		if err != nil {
			return fmt.Errorf("seed: can't add user: %w", err)
		}
		users = append(users, u)
	}

	for i := 0; i < seedPosts; i++ {
		p, err := genPost(randUser(users))
		if err != nil {
			return err
		}
		if _, err := postRepo.Add(ctx, p); err != nil {
			return fmt.Errorf("seed: can't add post: %w", err)
		}
		if err := engage(ctx, svc, p, users); err != nil {
			return err
		}
	}
	return nil
}

func genProfile(n int) user.Profile {
	first := f.Person().FirstName()
	return user.Profile{
		// Suffix keeps identifiers unique when faker repeats a name.
		Identifier: fmt.Sprintf("%s%d", strings.ToLower(first), n),
		Name:       first + " " + f.Person().LastName(),
		Email:      f.Internet().Email(),
		AvatarURL:  f.Internet().URL(),
	}
}

func genPost(author *user.User) (*post.Post, error) {
	nOpts := rand.Intn(3) + 2
	opts := make([]string, 0, nOpts)
	for i := 0; i < nOpts; i++ {
		opts = append(opts, strings.Join(f.Lorem().Words(rand.Intn(2)+1), " "))
	}
	postTags := []string{tags[rand.Intn(len(tags))], tags[rand.Intn(len(tags))]}
	created := time.Now().Add(-time.Duration(rand.Intn(72*60)) * time.Minute)

	p, err := post.New(author.Identifier, author.Name, genTitle(), "", postTags, opts, created)
	if err != nil {
		return nil, fmt.Errorf("seed: generated an invalid post: %w", err)
	}
	return p, nil
}

func genTitle() string {
	return strings.Join(f.Lorem().Words(rand.Intn(5)+3), " ") + "?"
}

func engage(ctx context.Context, svc *engagement.Service, p *post.Post, users []*user.User) error {
	for _, u := range users {
		if rand.Intn(3) == 0 {
			continue
		}
		if _, err := svc.View(ctx, p.Id, u.Identifier); err != nil {
			return fmt.Errorf("seed: view failed: %w", err)
		}
		if rand.Intn(2) == 0 {
			_, err := svc.Vote(ctx, p.Id, rand.Intn(len(p.Options)), u.Identifier)
			if err != nil && !errors.Is(err, common.ErrConflict) {
				return fmt.Errorf("seed: vote failed: %w", err)
			}
		}
		if rand.Intn(4) == 0 {
			if _, _, err := svc.ToggleLike(ctx, p.Id, u.Identifier); err != nil {
				return fmt.Errorf("seed: like failed: %w", err)
			}
		}
		if rand.Intn(8) == 0 {
			if _, err := svc.Share(ctx, p.Id, u.Identifier); err != nil {
				return fmt.Errorf("seed: share failed: %w", err)
			}
		}
	}
	return nil
}

func randUser(users []*user.User) *user.User {
	return users[rand.Intn(len(users))]
}
