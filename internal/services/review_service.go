package services

import (
	"context"
	"strings"

	"bookreview/internal/apperrors"
	"bookreview/internal/models"
	"bookreview/internal/repositories"
	"bookreview/internal/validation"
)

// ReviewService handles business logic for reviews.
type ReviewService struct {
	reviewRepo repositories.ReviewRepository
	bookRepo   repositories.BookRepository
	validator  *validation.Validator
	events     EventPublisher
}

// NewReviewService creates a new ReviewService. events may be nil.
func NewReviewService(reviewRepo repositories.ReviewRepository, bookRepo repositories.BookRepository, v *validation.Validator, events EventPublisher) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		bookRepo:   bookRepo,
		validator:  v,
		events:     events,
	}
}

// GetReview retrieves a review with its book and owner.
func (s *ReviewService) GetReview(ctx context.Context, id uint) (*models.Review, error) {
	return s.reviewRepo.GetByID(ctx, id)
}

// GetReviewForEdit retrieves a review that actor is allowed to change.
func (s *ReviewService) GetReviewForEdit(ctx context.Context, actor *models.User, id uint) (*models.Review, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !review.OwnedBy(actor) {
		return nil, apperrors.Forbiddenf("you do not own review %d", id)
	}
	return review, nil
}

// CreateReview adds actor's review to an existing book.
func (s *ReviewService) CreateReview(ctx context.Context, actor *models.User, bookID uint, input models.ReviewInput) (*models.Review, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("login required")
	}
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	input = trimReviewInput(input)
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	review := &models.Review{
		BookID: book.ID,
		Title:  input.Title,
		Text:   input.Text,
		Rate:   *input.Rate,
		UserID: actor.ID,
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, err
	}
	review.Book = *book
	review.User = *actor

	publish(s.events, EventReviewCreated, map[string]interface{}{
		"review_id": review.ID,
		"book_id":   book.ID,
		"rate":      review.Rate,
		"user_id":   actor.ID,
	})
	return review, nil
}

// UpdateReview changes a review owned by actor. The book never changes.
func (s *ReviewService) UpdateReview(ctx context.Context, actor *models.User, id uint, input models.ReviewInput) (*models.Review, error) {
	review, err := s.GetReviewForEdit(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	input = trimReviewInput(input)
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	review.Title = input.Title
	review.Text = input.Text
	review.Rate = *input.Rate
	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, err
	}

	publish(s.events, EventReviewUpdated, map[string]interface{}{
		"review_id": review.ID,
		"book_id":   review.BookID,
		"rate":      review.Rate,
		"user_id":   actor.ID,
	})
	return review, nil
}

// DeleteReview removes a review and returns the ID of the book it belonged
// to. Owners and staff may delete.
func (s *ReviewService) DeleteReview(ctx context.Context, actor *models.User, id uint) (uint, error) {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if !review.OwnedBy(actor) && (actor == nil || !actor.IsStaff) {
		return 0, apperrors.Forbiddenf("you do not own review %d", id)
	}
	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		return 0, err
	}

	publish(s.events, EventReviewDeleted, map[string]interface{}{
		"review_id": id,
		"book_id":   review.BookID,
		"user_id":   actor.ID,
	})
	return review.BookID, nil
}

// RecentReviews lists the newest reviews for the admin dashboard.
func (s *ReviewService) RecentReviews(ctx context.Context, actor *models.User, limit int) ([]models.Review, error) {
	if actor == nil || !actor.IsStaff {
		return nil, apperrors.Forbiddenf("staff only")
	}
	return s.reviewRepo.Recent(ctx, limit)
}

func trimReviewInput(in models.ReviewInput) models.ReviewInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Text = strings.TrimSpace(in.Text)
	return in
}
