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

type CandidateMongo struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewCandidateMongo(db *mongo.Database) repositories.CandidateRepository {
	return &CandidateMongo{db: db, coll: db.Collection(candidatesCollection)}
}

func (r *CandidateMongo) Create(ctx context.Context, candidate *models.Candidate) error {
	id, err := nextID(ctx, r.db, candidatesCollection)
	if err != nil {
		return err
	}
	candidate.ID = id
	if _, err := r.coll.InsertOne(ctx, candidate); err != nil {
		return translateError(err, "create candidate")
	}
	return nil
}

func (r *CandidateMongo) GetByID(ctx context.Context, id uint) (*models.Candidate, error) {
	return r.findOne(ctx, bson.M{"_id": id}, fmt.Sprintf("get candidate %d", id))
}

func (r *CandidateMongo) GetByUsername(ctx context.Context, username string) (*models.Candidate, error) {
	return r.findOne(ctx, bson.M{"username": username}, "get candidate by username")
}

func (r *CandidateMongo) findOne(ctx context.Context, filter bson.M, op string) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := r.coll.FindOne(ctx, filter).Decode(&candidate); err != nil {
		return nil, translateError(err, op)
	}
	return &candidate, nil
}

func (r *CandidateMongo) List(ctx context.Context, filters repositories.CandidateFilters) ([]*models.Candidate, int64, error) {
	filter := candidateFilter(filters)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, translateError(err, "count candidates")
	}

	opts := pagination(filters.Limit, filters.Offset).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, translateError(err, "list candidates")
	}
	var candidates []*models.Candidate
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, 0, translateError(err, "decode candidates")
	}
	return candidates, total, nil
}

// CloseAttempt matches on the empty result so the update is a single atomic
// compare-and-swap on the document.
func (r *CandidateMongo) CloseAttempt(ctx context.Context, id uint, verdict models.Verdict) error {
	if verdict.Result == "" {
		return fmt.Errorf("close candidate %d: %w", id, repositories.ErrEmptyVerdict)
	}
	filter, update := closeAttemptUpdate(id, verdict)
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return translateError(err, "close candidate attempt")
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return translateError(err, "check candidate")
	}
	if n == 0 {
		return fmt.Errorf("close candidate %d: %w", id, repositories.ErrNotFound)
	}
	return fmt.Errorf("close candidate %d: %w", id, repositories.ErrAttemptClosed)
}

// closeAttemptUpdate returns the filter and $set of the compare-and-swap.
func closeAttemptUpdate(id uint, verdict models.Verdict) (bson.M, bson.M) {
	filter := bson.M{"_id": id, "result": ""}
	update := bson.M{"$set": bson.M{
		"status":       verdict.Status,
		"result":       verdict.Result,
		"score":        verdict.Score,
		"video_link":   verdict.VideoLink,
		"completed_at": verdict.CompletedAt,
		"updated_at":   verdict.CompletedAt,
	}}
	return filter, update
}

func candidateFilter(filters repositories.CandidateFilters) bson.M {
	filter := bson.M{}
	if filters.Program != "" {
		filter["program"] = filters.Program
	}
	if filters.Project != "" {
		filter["project"] = filters.Project
	}
	if filters.Status != "" {
		filter["status"] = filters.Status
	}
	if filters.Finished != nil {
		if *filters.Finished {
			filter["result"] = bson.M{"$ne": ""}
		} else {
			filter["result"] = ""
		}
	}
	return filter
}
