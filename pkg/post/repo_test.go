package post

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	gomock "github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"polls/pkg/common"
	"polls/pkg/storage"
)

func testPost() Post {
	return Post{
		Id:        PostId("1"),
		CreatorId: "pike",
		Title:     "tabs or spaces",
		Tags:      []string{"code"},
		Options: []*Option{
			{Text: "tabs", Voters: []string{}},
			{Text: "spaces", Voters: []string{}},
		},
		Likes:   []string{},
		Created: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPostAdd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	repo := &Repo{posts: mockMongoColl}

	testPost := &Post{Id: PostId("1")}

	t.Run("success", func(t *testing.T) {
		mockMongoColl.EXPECT().
			InsertOne(gomock.Any(), testPost).
			Return(&mongo.InsertOneResult{}, nil)

		insertedPostId, err := repo.Add(context.Background(), testPost)
		assert.Nil(t, err)
		assert.Equal(t, testPost.Id, insertedPostId)
	})

	t.Run("insert error", func(t *testing.T) {
		expectedErr := fmt.Errorf("insert_failed")
		mockMongoColl.EXPECT().
			InsertOne(gomock.Any(), gomock.Any()).
			Return(nil, expectedErr)

		insertedPostId, err := repo.Add(context.Background(), &Post{})
		assert.Equal(t, insertedPostId, PostId(``))
		assert.ErrorIs(t, err, expectedErr)
	})

	t.Run("timeout is transient", func(t *testing.T) {
		mockMongoColl.EXPECT().
			InsertOne(gomock.Any(), gomock.Any()).
			Return(nil, context.DeadlineExceeded)

		_, err := repo.Add(context.Background(), &Post{})
		assert.ErrorIs(t, err, common.ErrUnavailable)
	})
}

func TestGetById(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	mockResult := storage.NewMockIMongoSingleResult(ctrl)
	repo := &Repo{posts: mockMongoColl}

	t.Run("found", func(t *testing.T) {
		stored := testPost()
		mockMongoColl.EXPECT().FindOne(gomock.Any(), bson.M{"id": PostId("1")}).Return(mockResult)
		mockResult.EXPECT().Decode(gomock.Any()).SetArg(0, stored).Return(nil)

		got, err := repo.GetById(context.Background(), "1")
		require.NoError(t, err)
		assert.Equal(t, "tabs or spaces", got.Title)
	})

	t.Run("not found", func(t *testing.T) {
		mockMongoColl.EXPECT().FindOne(gomock.Any(), gomock.Any()).Return(mockResult)
		mockResult.EXPECT().Decode(gomock.Any()).Return(mongo.ErrNoDocuments)

		_, err := repo.GetById(context.Background(), "nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.Equal(t, ErrPostNotFound, err)
	})
}

func TestVote(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	readResult := storage.NewMockIMongoSingleResult(ctrl)
	writeResult := storage.NewMockIMongoSingleResult(ctrl)
	repo := &Repo{posts: mockMongoColl}

	t.Run("success", func(t *testing.T) {
		voted := testPost()
		voted.Options[1].VoteCount = 1
		voted.Options[1].Voters = []string{"rob"}
		voted.TotalVotes = 1

		mockMongoColl.EXPECT().FindOne(gomock.Any(), gomock.Any()).Return(readResult)
		readResult.EXPECT().Decode(gomock.Any()).SetArg(0, testPost()).Return(nil)

		mockMongoColl.EXPECT().
			FindOneAndUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, filter, update interface{}, _ ...interface{}) storage.IMongoSingleResult {
				f := filter.(bson.D).Map()
				assert.Equal(t, bson.D{{Key: "$ne", Value: "rob"}}, f["options.voters"])
				u := update.(bson.D).Map()
				assert.Equal(t, bson.D{
					{Key: "options.1.voteCount", Value: 1},
					{Key: "totalVotes", Value: 1},
				}, u["$inc"])
				return writeResult
			})
		writeResult.EXPECT().Decode(gomock.Any()).SetArg(0, voted).Return(nil)

		got, err := repo.Vote(context.Background(), "1", 1, "rob")
		require.NoError(t, err)
		assert.Equal(t, 1, got.TotalVotes)
		assert.Equal(t, []string{"rob"}, got.Options[1].Voters)
	})

	t.Run("already voted on another option", func(t *testing.T) {
		stored := testPost()
		stored.Options[0].Voters = []string{"rob"}
		stored.Options[0].VoteCount = 1
		stored.TotalVotes = 1

		mockMongoColl.EXPECT().FindOne(gomock.Any(), gomock.Any()).Return(readResult)
		readResult.EXPECT().Decode(gomock.Any()).SetArg(0, stored).Return(nil)

		_, err := repo.Vote(context.Background(), "1", 1, "rob")
		assert.ErrorIs(t, err, common.ErrConflict)
	})

	t.Run("lost race to a concurrent vote", func(t *testing.T) {
		gomock.InOrder(
			mockMongoColl.EXPECT().FindOne(gomock.Any(), gomock.Any()).Return(readResult),
			readResult.EXPECT().Decode(gomock.Any()).SetArg(0, testPost()).Return(nil),
			mockMongoColl.EXPECT().
				FindOneAndUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(writeResult),
			writeResult.EXPECT().Decode(gomock.Any()).Return(mongo.ErrNoDocuments),
			mockMongoColl.EXPECT().FindOne(gomock.Any(), gomock.Any()).Return(readResult),
			readResult.EXPECT().Decode(gomock.Any()).SetArg(0, testPost()).Return(nil),
		)

		_, err := repo.Vote(context.Background(), "1", 0, "rob")
		assert.Equal(t, ErrAlreadyVoted, err)
	})

	t.Run("option out of range", func(t *testing.T) {
		mockMongoColl.EXPECT().FindOne(gomock.Any(), gomock.Any()).Return(readResult)
		readResult.EXPECT().Decode(gomock.Any()).SetArg(0, testPost()).Return(nil)

		_, err := repo.Vote(context.Background(), "1", 2, "rob")
		assert.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestToggleLike(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	likeResult := storage.NewMockIMongoSingleResult(ctrl)
	unlikeResult := storage.NewMockIMongoSingleResult(ctrl)
	repo := &Repo{posts: mockMongoColl}

	t.Run("like", func(t *testing.T) {
		liked := testPost()
		liked.Likes = []string{"rob"}
		liked.LikesCount = 1

		mockMongoColl.EXPECT().
			FindOneAndUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(likeResult)
		likeResult.EXPECT().Decode(gomock.Any()).SetArg(0, liked).Return(nil)

		got, isLiked, err := repo.ToggleLike(context.Background(), "1", "rob")
		require.NoError(t, err)
		assert.True(t, isLiked)
		assert.Equal(t, 1, got.LikesCount)
	})

	t.Run("unlike", func(t *testing.T) {
		gomock.InOrder(
			mockMongoColl.EXPECT().
				FindOneAndUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(likeResult),
			likeResult.EXPECT().Decode(gomock.Any()).Return(mongo.ErrNoDocuments),
			mockMongoColl.EXPECT().
				FindOneAndUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, _, update interface{}, _ ...interface{}) storage.IMongoSingleResult {
					u := update.(bson.D).Map()
					assert.Equal(t, bson.D{{Key: "likesCount", Value: -1}}, u["$inc"])
					return unlikeResult
				}),
			unlikeResult.EXPECT().Decode(gomock.Any()).SetArg(0, testPost()).Return(nil),
		)

		got, isLiked, err := repo.ToggleLike(context.Background(), "1", "rob")
		require.NoError(t, err)
		assert.False(t, isLiked)
		assert.Equal(t, 0, got.LikesCount)
	})
}

func TestSetScores(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	repo := &Repo{posts: mockMongoColl}

	t.Run("only derived fields are written", func(t *testing.T) {
		mockMongoColl.EXPECT().
			UpdateOne(gomock.Any(), bson.M{"id": PostId("1")}, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, update interface{}, _ ...interface{}) (*mongo.UpdateResult, error) {
				u := update.(bson.D)
				require.Len(t, u, 1)
				assert.Equal(t, "$set", u[0].Key)
				assert.Equal(t, bson.D{
					{Key: "engagementScore", Value: 13.95},
					{Key: "trendingScore", Value: 13.95},
				}, u[0].Value)
				return &mongo.UpdateResult{MatchedCount: 1}, nil
			})

		assert.NoError(t, repo.SetScores(context.Background(), "1", 13.95, 13.95))
	})

	t.Run("post vanished", func(t *testing.T) {
		mockMongoColl.EXPECT().
			UpdateOne(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

		assert.Equal(t, ErrPostNotFound, repo.SetScores(context.Background(), "gone", 1, 1))
	})
}

func TestTrending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	mockCursor := storage.NewMockIMongoCursor(ctrl)
	repo := &Repo{posts: mockMongoColl}

	expectedPosts := []*Post{
		{Id: PostId("1"), TrendingScore: 9},
		{Id: PostId("2"), TrendingScore: 3},
	}

	mockMongoColl.EXPECT().
		Find(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(mockCursor, nil)
	mockCursor.EXPECT().
		All(gomock.Any(), gomock.AssignableToTypeOf(&expectedPosts)).
		SetArg(1, expectedPosts).
		Return(nil)
	mockCursor.EXPECT().Close(gomock.Any()).Return(nil)

	posts, err := repo.Trending(context.Background(), 20, 0)
	require.NoError(t, err)
	assert.Equal(t, expectedPosts, posts)
}

func TestWalk(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	mockCursor := storage.NewMockIMongoCursor(ctrl)
	repo := &Repo{posts: mockMongoColl}

	mockMongoColl.EXPECT().Find(gomock.Any(), gomock.Any()).Return(mockCursor, nil)
	gomock.InOrder(
		mockCursor.EXPECT().Next(gomock.Any()).Return(true),
		mockCursor.EXPECT().Decode(gomock.Any()).Return(errors.New("missing createdAt")),
		mockCursor.EXPECT().Next(gomock.Any()).Return(true),
		mockCursor.EXPECT().Decode(gomock.Any()).SetArg(0, testPost()).Return(nil),
		mockCursor.EXPECT().Next(gomock.Any()).Return(false),
		mockCursor.EXPECT().Err().Return(nil),
		mockCursor.EXPECT().Close(gomock.Any()).Return(nil),
	)

	var visited []PostId
	var decodeErrs int
	err := repo.Walk(context.Background(), func(p *Post, decodeErr error) {
		if decodeErr != nil {
			decodeErrs++
			return
		}
		visited = append(visited, p.Id)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, decodeErrs)
	assert.Equal(t, []PostId{"1"}, visited)
}

func TestWalkBoundsCursorCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMongoColl := storage.NewMockIMongoCollection(ctrl)
	mockCursor := storage.NewMockIMongoCursor(ctrl)
	repo := &Repo{posts: mockMongoColl, timeout: 50 * time.Millisecond}

	hasDeadline := func(ctx context.Context) {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "cursor call without deadline")
	}

	mockMongoColl.EXPECT().Find(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ interface{}, _ ...*options.FindOptions) (storage.IMongoCursor, error) {
			hasDeadline(ctx)
			return mockCursor, nil
		})
	gomock.InOrder(
		mockCursor.EXPECT().Next(gomock.Any()).DoAndReturn(func(ctx context.Context) bool {
			hasDeadline(ctx)
			<-ctx.Done()
			return false
		}),
		mockCursor.EXPECT().Err().Return(context.DeadlineExceeded),
		mockCursor.EXPECT().Close(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
			hasDeadline(ctx)
			return nil
		}),
	)

	err := repo.Walk(context.Background(), func(*Post, error) {
		t.Fatal("nothing to visit")
	})
	assert.ErrorIs(t, err, common.ErrUnavailable)
}
