package user

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

type Repo struct {
	users   storage.IMongoCollection
	timeout time.Duration
	now     func() time.Time
}

func NewUserRepo(usersCol *mongo.Collection, timeout time.Duration) *Repo {
	return &Repo{
		users:   storage.NewMongoCollection(usersCol),
		timeout: timeout,
		now:     time.Now,
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

	err := r.users.CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "identifier", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("user/repo: failed creating indexes: %w", storage.Classify(err))
	}
	return nil
}

// Upsert creates the user on first contact and refreshes the profile fields
// afterwards. Interests and interactions are never touched here.
func (r *Repo) Upsert(ctx context.Context, p Profile) (*User, error) {
	set := bson.D{{Key: "name", Value: p.Name}}
	if p.Email != "" {
		set = append(set, bson.E{Key: "email", Value: p.Email})
	}
	if p.AvatarURL != "" {
		set = append(set, bson.E{Key: "avatarUrl", Value: p.AvatarURL})
	}
	update := bson.D{
		{Key: "$set", Value: set},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "interests", Value: bson.A{}},
			{Key: "interactions", Value: bson.A{}},
			{Key: "createdAt", Value: r.now().UTC()},
		}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	u := new(User)
	err := r.upsertRetry(ctx, func(ctx context.Context) error {
		return r.users.FindOneAndUpdate(ctx, bson.M{"identifier": p.Identifier}, update, opts).Decode(u)
	})
	if err != nil {
		return nil, fmt.Errorf("user/repo: failed upserting user %s: %w", p.Identifier, err)
	}
	return u, nil
}

func (r *Repo) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	u := new(User)
	err := r.users.FindOne(ctx, bson.M{"identifier": identifier}).Decode(u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user/repo: failed finding user %s: %w", identifier, storage.Classify(err))
	}
	return u, nil
}

// AppendInteraction pushes one record onto the user's log, creating the user
// when this is the first thing we hear about them.
func (r *Repo) AppendInteraction(ctx context.Context, identifier string, in Interaction) error {
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "interactions", Value: in}}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "name", Value: identifier},
			{Key: "interests", Value: bson.A{}},
			{Key: "createdAt", Value: r.now().UTC()},
		}},
	}
	err := r.upsertRetry(ctx, func(ctx context.Context) error {
		_, err := r.users.UpdateOne(ctx, bson.M{"identifier": identifier}, update, options.Update().SetUpsert(true))
		return err
	})
	if err != nil {
		return fmt.Errorf("user/repo: failed appending %s interaction for %s: %w", in.Kind, identifier, err)
	}
	return nil
}

// AddInterests unions tags into the user's interests.
func (r *Repo) AddInterests(ctx context.Context, identifier string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	update := bson.D{
		{Key: "$addToSet", Value: bson.D{{Key: "interests", Value: bson.D{{Key: "$each", Value: tags}}}}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "name", Value: identifier},
			{Key: "interactions", Value: bson.A{}},
			{Key: "createdAt", Value: r.now().UTC()},
		}},
	}
	err := r.upsertRetry(ctx, func(ctx context.Context) error {
		_, err := r.users.UpdateOne(ctx, bson.M{"identifier": identifier}, update, options.Update().SetUpsert(true))
		return err
	})
	if err != nil {
		return fmt.Errorf("user/repo: failed adding interests for %s: %w", identifier, err)
	}
	return nil
}

// Two concurrent upserts for a new identifier can both try the insert; the
// loser gets a duplicate key error and succeeds as an update on retry.
func (r *Repo) upsertRetry(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		octx, cancel := r.withTimeout(ctx)
		err = op(octx)
		cancel()
		if !mongo.IsDuplicateKeyError(err) {
			break
		}
	}
	return storage.Classify(err)
}
