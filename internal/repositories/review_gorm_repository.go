package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookreview/internal/apperrors"
	"bookreview/internal/models"
)

// GORMReviewRepository is a GORM implementation of ReviewRepository.
type GORMReviewRepository struct {
	db *gorm.DB
}

// NewGORMReviewRepository creates a new instance of GORMReviewRepository.
func NewGORMReviewRepository(db *gorm.DB) *GORMReviewRepository {
	return &GORMReviewRepository{
		db: db,
	}
}

// Create inserts a review for an existing book.
func (r *GORMReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error; err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// GetByID retrieves a review with its book and owner.
func (r *GORMReviewRepository) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("User").
		First(&review, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFoundf("review with ID %d not found", id)
		}
		return nil, fmt.Errorf("failed to get review by ID %d: %w", id, err)
	}
	return &review, nil
}

// ListByBook retrieves the reviews of a book, newest first.
func (r *GORMReviewRepository) ListByBook(ctx context.Context, bookID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("book_id = ?", bookID).
		Order("id DESC").
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews of book %d: %w", bookID, err)
	}
	return reviews, nil
}

// Update writes the editable review columns.
func (r *GORMReviewRepository) Update(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).Model(&models.Review{ID: review.ID}).
		Select("title", "text", "rate").
		Updates(review).Error
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return nil
}

// Delete removes a review by its ID.
func (r *GORMReviewRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Review{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete review: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFoundf("review with ID %d not found for deletion", id)
	}
	return nil
}

// Recent retrieves the newest reviews with book and owner.
func (r *GORMReviewRepository) Recent(ctx context.Context, limit int) ([]models.Review, error) {
	var reviews []models.Review
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("User").
		Order("id DESC").
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent reviews: %w", err)
	}
	return reviews, nil
}
