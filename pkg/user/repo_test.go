package user

import (
	"context"
	"errors"
	"testing"
	"time"

	gomock "github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"polls/pkg/common"
	"polls/pkg/storage"
)

var (
	identifier = "pike"
	fixedNow   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTestRepo(coll storage.IMongoCollection) *Repo {
	return &Repo{users: coll, now: func() time.Time { return fixedNow }}
}

func TestGetByIdentifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	mockResult := storage.NewMockIMongoSingleResult(ctrl)
	repo := newTestRepo(mockMongoColl)

	t.Run("should return user", func(t *testing.T) {
		expect := User{Identifier: identifier, Name: "Rob", Interests: []string{"go"}}
		mockMongoColl.EXPECT().FindOne(gomock.Any(), bson.M{"identifier": identifier}).Return(mockResult)
		mockResult.EXPECT().Decode(gomock.Any()).SetArg(0, expect).Return(nil)

		got, err := repo.GetByIdentifier(context.TODO(), identifier)
		require.NoError(t, err)
		assert.Equal(t, &expect, got)
	})

	t.Run("should return not found", func(t *testing.T) {
		mockMongoColl.EXPECT().FindOne(gomock.Any(), gomock.Any()).Return(mockResult)
		mockResult.EXPECT().Decode(gomock.Any()).Return(mongo.ErrNoDocuments)

		_, err := repo.GetByIdentifier(context.TODO(), "ghost")
		assert.Equal(t, ErrUserNotFound, err)
		assert.Equal(t, "User not found", err.Error())
	})

	t.Run("should return DB error", func(t *testing.T) {
		expectedErr := errors.New("mock_db_error")
		mockMongoColl.EXPECT().FindOne(gomock.Any(), gomock.Any()).Return(mockResult)
		mockResult.EXPECT().Decode(gomock.Any()).Return(expectedErr)

		_, err := repo.GetByIdentifier(context.TODO(), identifier)
		assert.ErrorIs(t, err, expectedErr)
	})
}

func TestUpsert(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	mockResult := storage.NewMockIMongoSingleResult(ctrl)
	repo := newTestRepo(mockMongoColl)

	t.Run("profile fields are set, derived fields only on insert", func(t *testing.T) {
		stored := User{Identifier: identifier, Name: "Rob", Interests: []string{}, Interactions: []Interaction{}, Created: fixedNow}
		mockMongoColl.EXPECT().
			FindOneAndUpdate(gomock.Any(), bson.M{"identifier": identifier}, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _, update interface{}, _ ...interface{}) storage.IMongoSingleResult {
				u := update.(bson.D).Map()
				assert.Equal(t, bson.D{{Key: "name", Value: "Rob"}}, u["$set"])
				assert.Equal(t, bson.D{
					{Key: "interests", Value: bson.A{}},
					{Key: "interactions", Value: bson.A{}},
					{Key: "createdAt", Value: fixedNow},
				}, u["$setOnInsert"])
				return mockResult
			})
		mockResult.EXPECT().Decode(gomock.Any()).SetArg(0, stored).Return(nil)

		got, err := repo.Upsert(context.TODO(), Profile{Identifier: identifier, Name: "Rob"})
		require.NoError(t, err)
		assert.Equal(t, "Rob", got.Name)
	})

	t.Run("duplicate key on a racing insert is retried", func(t *testing.T) {
		dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
		gomock.InOrder(
			mockMongoColl.EXPECT().
				FindOneAndUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(mockResult),
			mockResult.EXPECT().Decode(gomock.Any()).Return(dup),
			mockMongoColl.EXPECT().
				FindOneAndUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(mockResult),
			mockResult.EXPECT().Decode(gomock.Any()).SetArg(0, User{Identifier: identifier}).Return(nil),
		)

		got, err := repo.Upsert(context.TODO(), Profile{Identifier: identifier, Name: "Rob"})
		require.NoError(t, err)
		assert.Equal(t, identifier, got.Identifier)
	})
}

func TestAppendInteraction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	repo := newTestRepo(mockMongoColl)
	in := Interaction{PostId: "p1", Kind: KindVote, Timestamp: fixedNow}

	t.Run("pushes and upserts", func(t *testing.T) {
		mockMongoColl.EXPECT().
			UpdateOne(gomock.Any(), bson.M{"identifier": identifier}, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _, update interface{}, _ ...interface{}) (*mongo.UpdateResult, error) {
				u := update.(bson.D).Map()
				assert.Equal(t, bson.D{{Key: "interactions", Value: in}}, u["$push"])
				return &mongo.UpdateResult{UpsertedCount: 1}, nil
			})

		assert.NoError(t, repo.AppendInteraction(context.TODO(), identifier, in))
	})

	t.Run("timeout is transient", func(t *testing.T) {
		mockMongoColl.EXPECT().
			UpdateOne(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, context.DeadlineExceeded)

		err := repo.AppendInteraction(context.TODO(), identifier, in)
		assert.ErrorIs(t, err, common.ErrUnavailable)
	})
}

func TestAddInterests(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	repo := newTestRepo(mockMongoColl)

	t.Run("no tags is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.AddInterests(context.TODO(), identifier, nil))
	})

	t.Run("tags are added as a set", func(t *testing.T) {
		mockMongoColl.EXPECT().
			UpdateOne(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _, update interface{}, _ ...interface{}) (*mongo.UpdateResult, error) {
				u := update.(bson.D).Map()
				assert.Equal(t,
					bson.D{{Key: "interests", Value: bson.D{{Key: "$each", Value: []string{"go", "db"}}}}},
					u["$addToSet"])
				return &mongo.UpdateResult{MatchedCount: 1}, nil
			})

		assert.NoError(t, repo.AddInterests(context.TODO(), identifier, []string{"go", "db"}))
	})
}
