package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/highspring-tester/hat/internal/repositories"
)

const (
	candidatesCollection    = "candidates"
	questionsCollection     = "questions"
	usersCollection         = "users"
	notificationsCollection = "notification_failures"
	bankSequenceCollection  = "bank_sequences"
	countersCollection      = "counters"

	defaultListLimit = 100
	maxListLimit     = 1000
)

func translateError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, repositories.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, repositories.ErrDuplicateKey)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

type counter struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// nextID returns the next numeric document id for a collection.
func nextID(ctx context.Context, db *mongo.Database, name string) (uint, error) {
	var c counter
	err := db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, translateError(err, "allocate "+name+" id")
	}
	return uint(c.Value), nil
}

func pagination(limit, offset int) *options.FindOptions {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return options.Find().SetLimit(int64(limit)).SetSkip(int64(offset))
}

// EnsureIndexes creates the unique keys the service relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func(keys ...string) mongo.IndexModel {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return mongo.IndexModel{Keys: d, Options: options.Index().SetUnique(true)}
	}
	plain := func(keys ...string) mongo.IndexModel {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return mongo.IndexModel{Keys: d}
	}

	indexes := map[string][]mongo.IndexModel{
		candidatesCollection:    {unique("email"), unique("username"), plain("program", "project")},
		questionsCollection:     {unique("question_id"), plain("bank", "question_id")},
		usersCollection:         {unique("email"), unique("username")},
		notificationsCollection: {plain("delivered", "attempts")},
	}
	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
