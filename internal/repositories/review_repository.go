package repositories

import (
	"context"

	"bookreview/internal/models"
)

// ReviewRepository defines the interface for review data access.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	// GetByID returns the review with its book and owner loaded.
	GetByID(ctx context.Context, id uint) (*models.Review, error)
	// ListByBook returns the reviews of a book, newest first.
	ListByBook(ctx context.Context, bookID uint) ([]models.Review, error)
	// Update writes title, text and rate only.
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uint) error
	// Recent returns the newest reviews across all books.
	Recent(ctx context.Context, limit int) ([]models.Review, error)
}
