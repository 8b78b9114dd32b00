package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
)

type NotificationPostgreSQL struct {
	db *gorm.DB
}

func NewNotificationPostgreSQL(db *gorm.DB) repositories.NotificationRepository {
	return &NotificationPostgreSQL{db: db}
}

func (r *NotificationPostgreSQL) RecordFailure(ctx context.Context, failure *models.NotificationFailure) error {
	if err := r.db.WithContext(ctx).Create(failure).Error; err != nil {
		return translateError(err, "record notification failure")
	}
	return nil
}

func (r *NotificationPostgreSQL) ListPending(ctx context.Context, maxAttempts, limit int) ([]*models.NotificationFailure, error) {
	var pending []*models.NotificationFailure
	if err := ApplyPagination(r.db.WithContext(ctx).
		Where("delivered = ? AND attempts < ?", false, maxAttempts).
		Order("created_at ASC"), limit, 0).
		Find(&pending).Error; err != nil {
		return nil, translateError(err, "list pending notifications")
	}
	return pending, nil
}

func (r *NotificationPostgreSQL) MarkDelivered(ctx context.Context, id uint) error {
	now := time.Now()
	return r.update(ctx, id, map[string]interface{}{
		"delivered":    true,
		"delivered_at": now,
		"updated_at":   now,
	})
}

func (r *NotificationPostgreSQL) MarkAttempt(ctx context.Context, id uint, lastErr string) error {
	return r.update(ctx, id, map[string]interface{}{
		"attempts":   gorm.Expr("attempts + 1"),
		"last_error": lastErr,
		"updated_at": time.Now(),
	})
}

func (r *NotificationPostgreSQL) update(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.NotificationFailure{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translateError(res.Error, "update notification")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update notification %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}
