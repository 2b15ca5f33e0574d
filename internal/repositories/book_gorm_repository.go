package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookreview/internal/apperrors"
	"bookreview/internal/models"
)

// GORMBookRepository is a GORM implementation of BookRepository.
type GORMBookRepository struct {
	db *gorm.DB
}

// NewGORMBookRepository creates a new instance of GORMBookRepository.
func NewGORMBookRepository(db *gorm.DB) *GORMBookRepository {
	return &GORMBookRepository{
		db: db,
	}
}

// likeEscape is the LIKE escape character. It must not be '\', which MySQL
// reads as a string literal escape.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

var searchClause = "LOWER(books.title) LIKE ? ESCAPE '" + likeEscape + "'" +
	" OR LOWER(books.text) LIKE ? ESCAPE '" + likeEscape + "'" +
	" OR LOWER(books.category) LIKE ? ESCAPE '" + likeEscape + "'"

// applyFilter narrows tx to books matching filter.
func applyFilter(tx *gorm.DB, filter models.BookFilter) *gorm.DB {
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		tx = tx.Where(searchClause, pattern, pattern, pattern)
	}
	if cat := strings.TrimSpace(filter.Category); cat != "" {
		tx = tx.Where("books.category = ?", cat)
	}
	return tx
}

// Search retrieves books matching filter, newest first.
func (r *GORMBookRepository) Search(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	var books []models.Book
	tx := applyFilter(r.db.WithContext(ctx).Model(&models.Book{}), filter)
	if err := tx.Preload("User").Order("books.id DESC").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	return books, nil
}

// Count returns the number of books matching filter.
func (r *GORMBookRepository) Count(ctx context.Context, filter models.BookFilter) (int64, error) {
	var count int64
	tx := applyFilter(r.db.WithContext(ctx).Model(&models.Book{}), filter)
	if err := tx.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return count, nil
}

// GetByID retrieves a single book with its owner.
func (r *GORMBookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).Preload("User").First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("book with ID %d not found", id)
		}
		return nil, fmt.Errorf("failed to get book by ID %d: %w", id, err)
	}
	return &book, nil
}

// Create inserts a new book. Associations are never upserted.
func (r *GORMBookRepository) Create(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(book).Error; err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}
	return nil
}

// Update writes title, text, category and thumbnail columns. Callers load
// the book first; MySQL reports unchanged rows as not affected.
func (r *GORMBookRepository) Update(ctx context.Context, book *models.Book) error {
	err := r.db.WithContext(ctx).Model(&models.Book{ID: book.ID}).
		Select("title", "text", "category", "thumbnail", "thumbnail_blur_hash").
		Updates(book).Error
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}
	return nil
}

// Delete removes a book and its reviews in one transaction.
func (r *GORMBookRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete reviews of book %d: %w", id, err)
		}
		res := tx.Delete(&models.Book{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete book: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFoundf("book with ID %d not found for deletion", id)
		}
		return nil
	})
}

// Categories returns the distinct categories currently in use.
func (r *GORMBookRepository) Categories(ctx context.Context, limit int) ([]string, error) {
	var values []string
	tx := r.db.WithContext(ctx).Model(&models.Book{}).
		Where("category <> ''").
		Distinct("category").
		Order("category")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Pluck("category", &values).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return values, nil
}

// Ranking returns books with at least one review, ordered by average rating.
func (r *GORMBookRepository) Ranking(ctx context.Context, filter models.BookFilter, limit, offset int) ([]models.RankedBook, error) {
	var ranked []models.RankedBook
	tx := applyFilter(r.db.WithContext(ctx).Model(&models.Book{}), filter).
		Select("books.*, AVG(reviews.rate) AS avg_rating, COUNT(reviews.id) AS review_count").
		Joins("JOIN reviews ON reviews.book_id = books.id").
		Group("books.id").
		Having("COUNT(reviews.id) > 0").
		Order("avg_rating DESC").
		Order("books.id DESC").
		Limit(limit).
		Offset(offset)
	if err := tx.Scan(&ranked).Error; err != nil {
		return nil, fmt.Errorf("failed to rank books: %w", err)
	}
	return ranked, nil
}

// RankingCount returns the number of reviewed books matching filter.
func (r *GORMBookRepository) RankingCount(ctx context.Context, filter models.BookFilter) (int64, error) {
	var count int64
	tx := applyFilter(r.db.WithContext(ctx).Model(&models.Book{}), filter).
		Where("EXISTS (SELECT 1 FROM reviews WHERE reviews.book_id = books.id)")
	if err := tx.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count ranked books: %w", err)
	}
	return count, nil
}
