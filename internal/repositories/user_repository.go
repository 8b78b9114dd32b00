package repositories

import (
	"context"

	"github.com/highspring-tester/hat/internal/models"
)

// UserRepository stores admin accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
