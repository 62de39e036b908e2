package storage

//go:generate mockgen -source=mongo.go -destination=mock_mongo.go -package=storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"polls/pkg/common"
)

type ( // Interfaces
	IMongoCollection interface {
		InsertOne(context.Context, interface{}, ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
		UpdateOne(context.Context, interface{}, interface{}, ...*options.UpdateOptions) (*mongo.UpdateResult, error)
		DeleteOne(context.Context, interface{}, ...*options.DeleteOptions) (*mongo.DeleteResult, error)
		FindOne(context.Context, interface{}, ...*options.FindOneOptions) IMongoSingleResult
		FindOneAndUpdate(context.Context, interface{}, interface{}, ...*options.FindOneAndUpdateOptions) IMongoSingleResult
		Find(context.Context, interface{}, ...*options.FindOptions) (IMongoCursor, error)
		CreateIndexes(context.Context, []mongo.IndexModel) error
	}

	IMongoCursor interface {
		Next(context.Context) bool
		Decode(interface{}) error
		Err() error
		Close(context.Context) error
		All(context.Context, interface{}) error
	}

	IMongoSingleResult interface{ Decode(interface{}) error }
)

type ( // Structs
	MongoCursor struct{ cur *mongo.Cursor }

	MongoCollection struct {
		Coll *mongo.Collection
	}

	MongoSingleResult struct{ res *mongo.SingleResult }
)

func NewMongoCollection(coll *mongo.Collection) *MongoCollection {
	return &MongoCollection{Coll: coll}
}

// MongoSingleResult

func (sr *MongoSingleResult) Decode(v interface{}) error {
	return sr.res.Decode(v)
}

// MongoCursor

func (cur *MongoCursor) Next(ctx context.Context) bool {
	return cur.cur.Next(ctx)
}
func (cur *MongoCursor) Decode(v interface{}) error {
	return cur.cur.Decode(v)
}
func (cur *MongoCursor) Err() error {
	return cur.cur.Err()
}
func (cur *MongoCursor) Close(ctx context.Context) error {
	return cur.cur.Close(ctx)
}
func (cur *MongoCursor) All(ctx context.Context, results interface{}) error {
	return cur.cur.All(ctx, results)
}

// MongoCollection

func (col *MongoCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return col.Coll.InsertOne(ctx, document, opts...)
}

func (col *MongoCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return col.Coll.UpdateOne(ctx, filter, update, opts...)
}

func (col *MongoCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return col.Coll.DeleteOne(ctx, filter, opts...)
}

func (col *MongoCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) IMongoSingleResult {
	return &MongoSingleResult{res: col.Coll.FindOne(ctx, filter, opts...)}
}

func (col *MongoCollection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) IMongoSingleResult {
	return &MongoSingleResult{res: col.Coll.FindOneAndUpdate(ctx, filter, update, opts...)}
}

func (col *MongoCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (IMongoCursor, error) {
	cursorResult, err := col.Coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &MongoCursor{cur: cursorResult}, nil
}

func (col *MongoCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) error {
	_, err := col.Coll.Indexes().CreateMany(ctx, models)
	return err
}

// Classify marks driver timeouts, network failures and expired contexts as
// common.ErrUnavailable so callers can tell a retryable failure from a
// missing document or a rejected write.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrUnavailable) {
		return err
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	return err
}
