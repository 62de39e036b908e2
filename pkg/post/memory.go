package post

import (
	"context"
	"sync"

	"polls/pkg/common"
)

// MemRepo keeps posts in process memory. Every mutation runs under one mutex,
// which gives the same per-post atomicity the Mongo conditional updates give.
type MemRepo struct {
	mu    sync.Mutex
	posts map[PostId]*Post
}

func NewMemRepo() *MemRepo {
	return &MemRepo{posts: make(map[PostId]*Post)}
}

func (r *MemRepo) Add(_ context.Context, p *Post) (PostId, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.Id] = p.clone()
	return p.Id, nil
}

func (r *MemRepo) GetById(_ context.Context, id PostId) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return p.clone(), nil
}

func (r *MemRepo) Delete(_ context.Context, id PostId, creatorId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return ErrPostNotFound
	}
	if p.CreatorId != creatorId {
		return ErrNotCreator
	}
	delete(r.posts, id)
	return nil
}

func (r *MemRepo) all() []*Post {
	out := make([]*Post, 0, len(r.posts))
	for _, p := range r.posts {
		out = append(out, p.clone())
	}
	return out
}

func (r *MemRepo) Trending(_ context.Context, limit, offset int) ([]*Post, error) {
	r.mu.Lock()
	posts := r.all()
	r.mu.Unlock()

	SortTrending(posts)
	lo, hi := common.Window(len(posts), limit, offset)
	return posts[lo:hi], nil
}

func (r *MemRepo) Unseen(_ context.Context, seen []PostId) ([]*Post, error) {
	skip := make(map[PostId]struct{}, len(seen))
	for _, id := range seen {
		skip[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*Post{}
	for id, p := range r.posts {
		if _, ok := skip[id]; ok {
			continue
		}
		out = append(out, p.clone())
	}
	return out, nil
}

func (r *MemRepo) Vote(_ context.Context, id PostId, index int, voter string) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	if index < 0 || index >= len(p.Options) {
		return nil, ErrInvalidOption
	}
	if p.HasVoted(voter) {
		return nil, ErrAlreadyVoted
	}
	opt := p.Options[index]
	opt.Voters = append(opt.Voters, voter)
	opt.VoteCount++
	p.TotalVotes++
	return p.clone(), nil
}

func (r *MemRepo) ToggleLike(_ context.Context, id PostId, userIdentifier string) (*Post, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, false, ErrPostNotFound
	}
	for i, l := range p.Likes {
		if l == userIdentifier {
			p.Likes = append(p.Likes[:i], p.Likes[i+1:]...)
			p.LikesCount--
			return p.clone(), false, nil
		}
	}
	p.Likes = append(p.Likes, userIdentifier)
	p.LikesCount++
	return p.clone(), true, nil
}

func (r *MemRepo) Share(_ context.Context, id PostId) (*Post, error) {
	return r.mutate(id, func(p *Post) { p.Shares++ })
}

func (r *MemRepo) View(_ context.Context, id PostId) (*Post, error) {
	return r.mutate(id, func(p *Post) { p.Views++ })
}

func (r *MemRepo) SetScores(_ context.Context, id PostId, engagement, trending float64) error {
	_, err := r.mutate(id, func(p *Post) {
		p.EngagementScore = engagement
		p.TrendingScore = trending
	})
	return err
}

func (r *MemRepo) mutate(id PostId, fn func(*Post)) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	fn(p)
	return p.clone(), nil
}

// Walk visits a snapshot of the posts taken when it starts.
func (r *MemRepo) Walk(ctx context.Context, visit func(p *Post, decodeErr error)) error {
	r.mu.Lock()
	posts := r.all()
	r.mu.Unlock()

	for _, p := range posts {
		if err := ctx.Err(); err != nil {
			return err
		}
		visit(p, nil)
	}
	return nil
}
