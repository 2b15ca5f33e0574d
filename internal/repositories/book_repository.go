package repositories

import (
	"context"

	"bookreview/internal/models"
)

// BookRepository defines the interface for book data access.
type BookRepository interface {
	// Search returns books matching filter, newest first.
	Search(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	Count(ctx context.Context, filter models.BookFilter) (int64, error)
	GetByID(ctx context.Context, id uint) (*models.Book, error)
	Create(ctx context.Context, book *models.Book) error
	// Update writes the editable columns only; the owner is never rewritten.
	Update(ctx context.Context, book *models.Book) error
	// Delete removes the book together with its reviews.
	Delete(ctx context.Context, id uint) error
	// Categories lists distinct non-empty categories in use, at most limit (0 = no limit).
	Categories(ctx context.Context, limit int) ([]string, error)
	// Ranking returns reviewed books matching filter, best average rating first.
	Ranking(ctx context.Context, filter models.BookFilter, limit, offset int) ([]models.RankedBook, error)
	RankingCount(ctx context.Context, filter models.BookFilter) (int64, error)
}
