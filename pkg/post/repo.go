package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"polls/pkg/storage"
)

// Both branches of a like toggle can miss when another request flips the
// state in between; give up after this many rounds.
const maxToggleAttempts = 3

var trendingSort = bson.D{
	{Key: "trendingScore", Value: -1},
	{Key: "createdAt", Value: -1},
	{Key: "id", Value: 1},
}

type Repo struct {
	posts   storage.IMongoCollection
	timeout time.Duration
}

func NewPostRepo(postsCol *mongo.Collection, timeout time.Duration) *Repo {
	return &Repo{
		posts:   storage.NewMongoCollection(postsCol),
		timeout: timeout,
	}
}

func (r *Repo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Repo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.posts.CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: trendingSort},
	})
	if err != nil {
		return fmt.Errorf("post/repo: failed creating indexes: %w", storage.Classify(err))
	}
	return nil
}

func (r *Repo) Add(ctx context.Context, p *Post) (PostId, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.posts.InsertOne(ctx, p)
	if err != nil {
		return PostId(``), fmt.Errorf("post/repo: failed inserting a post: %w", storage.Classify(err))
	}
	return p.Id, nil
}

func (r *Repo) GetById(ctx context.Context, id PostId) (*Post, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	post := new(Post)
	err := r.posts.FindOne(ctx, bson.M{"id": id}).Decode(post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("post/repo: failed finding post %s: %w", id, storage.Classify(err))
	}
	return post, nil
}

// Delete removes the post only when creatorId matches its creator.
func (r *Repo) Delete(ctx context.Context, id PostId, creatorId string) error {
	dctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.posts.DeleteOne(dctx, bson.M{"id": id, "creatorId": creatorId})
	if err != nil {
		return fmt.Errorf("post/repo: failed deleting post: %w", storage.Classify(err))
	}
	if res != nil && res.DeletedCount > 0 {
		return nil
	}
	if _, err := r.GetById(ctx, id); err != nil {
		return err
	}
	return ErrNotCreator
}

// Trending returns a window of posts ordered by trendingScore, createdAt, id.
func (r *Repo) Trending(ctx context.Context, limit, offset int) ([]*Post, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	opts := options.Find().
		SetSort(trendingSort).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return r.find(ctx, bson.D{}, opts)
}

// Unseen returns every post whose id is not in seen.
func (r *Repo) Unseen(ctx context.Context, seen []PostId) ([]*Post, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	filter := bson.D{}
	if len(seen) > 0 {
		filter = bson.D{{Key: "id", Value: bson.D{{Key: "$nin", Value: seen}}}}
	}
	return r.find(ctx, filter)
}

func (r *Repo) find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]*Post, error) {
	cursor, err := r.posts.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("post/repo: failed finding posts: %w", storage.Classify(err))
	}
	defer cursor.Close(ctx)

	posts := []*Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("post/repo: failed geting posts from cursor: %w", storage.Classify(err))
	}
	return posts, nil
}

// Vote records voter on the option at index in a single conditional update:
// the filter refuses the write when the voter is already in any option's
// voters, so totalVotes and the option counters can't drift apart.
func (r *Repo) Vote(ctx context.Context, id PostId, index int, voter string) (*Post, error) {
	current, err := r.GetById(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(current.Options) {
		return nil, ErrInvalidOption
	}
	if current.HasVoted(voter) {
		return nil, ErrAlreadyVoted
	}

	option := fmt.Sprintf("options.%d", index)
	filter := bson.D{
		{Key: "id", Value: id},
		{Key: "options.voters", Value: bson.D{{Key: "$ne", Value: voter}}},
		{Key: option, Value: bson.D{{Key: "$exists", Value: true}}},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{
			{Key: option + ".voteCount", Value: 1},
			{Key: "totalVotes", Value: 1},
		}},
		{Key: "$addToSet", Value: bson.D{{Key: option + ".voters", Value: voter}}},
	}

	updated, err := r.findOneAndUpdate(ctx, filter, update)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Lost a race: either the post is gone or the voter got in first.
		if _, err := r.GetById(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyVoted
	}
	if err != nil {
		return nil, fmt.Errorf("post/repo: failed voting on post %s: %w", id, err)
	}
	return updated, nil
}

// ToggleLike adds userIdentifier to likes when absent and removes it when
// present. The returned bool reports the new state.
func (r *Repo) ToggleLike(ctx context.Context, id PostId, userIdentifier string) (*Post, bool, error) {
	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		liked, err := r.findOneAndUpdate(ctx,
			bson.D{{Key: "id", Value: id}, {Key: "likes", Value: bson.D{{Key: "$ne", Value: userIdentifier}}}},
			bson.D{
				{Key: "$addToSet", Value: bson.D{{Key: "likes", Value: userIdentifier}}},
				{Key: "$inc", Value: bson.D{{Key: "likesCount", Value: 1}}},
			})
		if err == nil {
			return liked, true, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, fmt.Errorf("post/repo: failed liking post %s: %w", id, err)
		}

		unliked, err := r.findOneAndUpdate(ctx,
			bson.D{{Key: "id", Value: id}, {Key: "likes", Value: userIdentifier}},
			bson.D{
				{Key: "$pull", Value: bson.D{{Key: "likes", Value: userIdentifier}}},
				{Key: "$inc", Value: bson.D{{Key: "likesCount", Value: -1}}},
			})
		if err == nil {
			return unliked, false, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, fmt.Errorf("post/repo: failed unliking post %s: %w", id, err)
		}

		if _, err := r.GetById(ctx, id); err != nil {
			return nil, false, err
		}
	}
	return nil, false, ErrLikeContended
}

func (r *Repo) Share(ctx context.Context, id PostId) (*Post, error) {
	return r.increment(ctx, id, "shares")
}

func (r *Repo) View(ctx context.Context, id PostId) (*Post, error) {
	return r.increment(ctx, id, "views")
}

func (r *Repo) increment(ctx context.Context, id PostId, field string) (*Post, error) {
	updated, err := r.findOneAndUpdate(ctx,
		bson.D{{Key: "id", Value: id}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: field, Value: 1}}}})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("post/repo: failed incrementing %s of post %s: %w", field, id, err)
	}
	return updated, nil
}

func (r *Repo) findOneAndUpdate(ctx context.Context, filter, update interface{}) (*Post, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	post := new(Post)
	err := r.posts.FindOneAndUpdate(ctx, filter, update, opts).Decode(post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if err != nil {
		return nil, storage.Classify(err)
	}
	return post, nil
}

// SetScores writes the two derived ranking fields and nothing else, so it
// never clobbers counters written concurrently by request handlers.
func (r *Repo) SetScores(ctx context.Context, id PostId, engagement, trending float64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "engagementScore", Value: engagement},
		{Key: "trendingScore", Value: trending},
	}}}
	res, err := r.posts.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("post/repo: failed updating scores of post %s: %w", id, storage.Classify(err))
	}
	if res != nil && res.MatchedCount == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Walk streams every post to visit. A document that fails to decode is
// reported through decodeErr and the walk moves on; only cursor failures
// stop it. Opening the cursor and every batch fetch get their own operation
// timeout, so a stalled server fails the walk instead of hanging it.
func (r *Repo) Walk(ctx context.Context, visit func(p *Post, decodeErr error)) error {
	fctx, cancel := r.withTimeout(ctx)
	cursor, err := r.posts.Find(fctx, bson.D{})
	cancel()
	if err != nil {
		return fmt.Errorf("post/repo: failed opening posts cursor: %w", storage.Classify(err))
	}
	defer func() {
		cctx, cancel := r.withTimeout(context.Background())
		defer cancel()
		cursor.Close(cctx)
	}()

	for r.next(ctx, cursor) {
		p := new(Post)
		if err := cursor.Decode(p); err != nil {
			visit(nil, fmt.Errorf("post/repo: failed decoding post: %w", err))
			continue
		}
		visit(p, nil)
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("post/repo: posts cursor failed: %w", storage.Classify(err))
	}
	return nil
}

func (r *Repo) next(ctx context.Context, cursor storage.IMongoCursor) bool {
	nctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return cursor.Next(nctx)
}
