package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

type QuestionMongo struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewQuestionMongo(db *mongo.Database) repositories.QuestionRepository {
	return &QuestionMongo{db: db, coll: db.Collection(questionsCollection)}
}

func (r *QuestionMongo) Create(ctx context.Context, question *models.Question) error {
	id, err := nextID(ctx, r.db, questionsCollection)
	if err != nil {
		return err
	}
	question.ID = id
	if _, err := r.coll.InsertOne(ctx, question); err != nil {
		return translateError(err, "create question")
	}
	return nil
}

func (r *QuestionMongo) GetByQuestionID(ctx context.Context, questionID string) (*models.Question, error) {
	var question models.Question
	if err := r.coll.FindOne(ctx, bson.M{"question_id": questionID}).Decode(&question); err != nil {
		return nil, translateError(err, fmt.Sprintf("get question %s", questionID))
	}
	return &question, nil
}

func (r *QuestionMongo) Update(ctx context.Context, question *models.Question) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"question_id": question.QuestionID},
		bson.M{"$set": bson.M{
			"question":   question.Question,
			"difficulty": question.Difficulty,
			"options":    question.Options,
			"answer":     question.Answer,
			"links":      question.Links,
			"updated_by": question.UpdatedBy,
			"updated_at": question.UpdatedAt,
		}},
	)
	if err != nil {
		return translateError(err, "update question")
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update question %s: %w", question.QuestionID, repositories.ErrNotFound)
	}
	return nil
}

func (r *QuestionMongo) Delete(ctx context.Context, questionID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"question_id": questionID})
	if err != nil {
		return translateError(err, "delete question")
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete question %s: %w", questionID, repositories.ErrNotFound)
	}
	return nil
}

func (r *QuestionMongo) ListByBank(ctx context.Context, bank string) ([]*models.Question, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"bank": bank},
		options.Find().SetSort(bson.D{{Key: "question_id", Value: 1}}))
	if err != nil {
		return nil, translateError(err, "list bank questions")
	}
	var questions []*models.Question
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, translateError(err, "decode bank questions")
	}
	return questions, nil
}

func (r *QuestionMongo) CountByBank(ctx context.Context, bank string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"bank": bank})
	if err != nil {
		return 0, translateError(err, "count bank questions")
	}
	return n, nil
}

func (r *QuestionMongo) CountByDifficulty(ctx context.Context, bank string) (map[models.DifficultyTier]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"bank": bank}}},
		{{Key: "$group", Value: bson.M{"_id": "$difficulty", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translateError(err, "count questions by difficulty")
	}
	var rows []struct {
		Difficulty models.DifficultyTier `bson:"_id"`
		Count      int                   `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, translateError(err, "decode difficulty counts")
	}

	counts := make(map[models.DifficultyTier]int, len(models.DifficultyTiers))
	for _, tier := range models.DifficultyTiers {
		counts[tier] = 0
	}
	for _, row := range rows {
		counts[row.Difficulty] = row.Count
	}
	return counts, nil
}
