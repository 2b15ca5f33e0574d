package repositories

import (
	"context"

	"bookreview/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// UsernameTaken reports whether another user (not excludeID) already uses username.
	UsernameTaken(ctx context.Context, username string, excludeID uint) (bool, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]models.User, error)
}
