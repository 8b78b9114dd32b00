package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

type NotificationMongo struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewNotificationMongo(db *mongo.Database) repositories.NotificationRepository {
	return &NotificationMongo{db: db, coll: db.Collection(notificationsCollection)}
}

func (r *NotificationMongo) RecordFailure(ctx context.Context, failure *models.NotificationFailure) error {
	id, err := nextID(ctx, r.db, notificationsCollection)
	if err != nil {
		return err
	}
	failure.ID = id
	if _, err := r.coll.InsertOne(ctx, failure); err != nil {
		return translateError(err, "record notification failure")
	}
	return nil
}

func (r *NotificationMongo) ListPending(ctx context.Context, maxAttempts, limit int) ([]*models.NotificationFailure, error) {
	opts := pagination(limit, 0).SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"delivered": false, "attempts": bson.M{"$lt": maxAttempts}}, opts)
	if err != nil {
		return nil, translateError(err, "list pending notifications")
	}
	var pending []*models.NotificationFailure
	if err := cursor.All(ctx, &pending); err != nil {
		return nil, translateError(err, "decode pending notifications")
	}
	return pending, nil
}

func (r *NotificationMongo) MarkDelivered(ctx context.Context, id uint) error {
	now := time.Now()
	return r.update(ctx, id, bson.M{"$set": bson.M{"delivered": true, "delivered_at": now, "updated_at": now}})
}

func (r *NotificationMongo) MarkAttempt(ctx context.Context, id uint, lastErr string) error {
	return r.update(ctx, id, bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"last_error": lastErr, "updated_at": time.Now()},
	})
}

func (r *NotificationMongo) update(ctx context.Context, id uint, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translateError(err, "update notification")
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update notification %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}
