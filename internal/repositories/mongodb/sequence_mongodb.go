package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

type SequenceMongo struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewSequenceMongo(db *mongo.Database) repositories.SequenceRepository {
	return &SequenceMongo{db: db, coll: db.Collection(bankSequenceCollection)}
}

// Next increments the bank counter with $inc. A missing counter is first seeded
// from the bank's existing question ids; losing the seeding race is harmless because the
// increment that follows still runs against the single winning document.
func (r *SequenceMongo) Next(ctx context.Context, bank string) (int64, error) {
	value, err := r.increment(ctx, bank)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, translateError(err, "advance bank sequence")
	}

	start, err := r.seed(ctx, bank)
	if err != nil {
		return 0, err
	}
	seed := models.BankSequence{Bank: bank, Value: start, UpdatedAt: time.Now()}
	if _, err := r.coll.InsertOne(ctx, seed); err != nil && !mongo.IsDuplicateKeyError(err) {
		return 0, translateError(err, "seed bank sequence")
	}

	value, err = r.increment(ctx, bank)
	if err != nil {
		return 0, translateError(err, "advance bank sequence")
	}
	return value, nil
}

func (r *SequenceMongo) increment(ctx context.Context, bank string) (int64, error) {
	var seq models.BankSequence
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": bank},
		bson.M{"$inc": bson.M{"value": 1}, "$set": bson.M{"updated_at": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&seq)
	return seq.Value, err
}

func (r *SequenceMongo) Current(ctx context.Context, bank string) (int64, error) {
	var seq models.BankSequence
	err := r.coll.FindOne(ctx, bson.M{"_id": bank}).Decode(&seq)
	if err == nil {
		return seq.Value, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, translateError(err, "read bank sequence")
	}
	return r.seed(ctx, bank)
}

func (r *SequenceMongo) seed(ctx context.Context, bank string) (int64, error) {
	opts := options.Find().SetProjection(bson.M{"question_id": 1, "_id": 0})
	cursor, err := r.db.Collection(questionsCollection).Find(ctx, bson.M{"bank": bank}, opts)
	if err != nil {
		return 0, translateError(err, "list bank question ids")
	}
	var docs []struct {
		QuestionID string `bson:"question_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return 0, translateError(err, "decode bank question ids")
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.QuestionID
	}
	return repositories.SequenceSeed(ids), nil
}
