package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"bookreview/internal/apperrors"
	"bookreview/internal/models"
	"bookreview/internal/services"
	"bookreview/internal/validation"
)

func newReviewService() (*services.ReviewService, *MockReviewRepository, *MockBookRepository) {
	reviews := new(MockReviewRepository)
	books := new(MockBookRepository)
	// Without a publisher, events are skipped.
	return services.NewReviewService(reviews, books, validation.New(), nil), reviews, books
}

func TestReviewService_CreateReview(t *testing.T) {
	ctx := context.Background()
	service, reviews, books := newReviewService()

	book := &models.Book{ID: 5, UserID: owner.ID, Title: "Dune"}
	books.On("GetByID", mock.Anything, uint(5)).Return(book, nil).Once()
	reviews.On("Create", mock.Anything, mock.MatchedBy(func(r *models.Review) bool {
		return r.BookID == 5 && r.UserID == stranger.ID && r.Rate == 0
	})).Return(nil).Once()

	review, err := service.CreateReview(ctx, stranger, 5, models.ReviewInput{Title: "Meh", Text: "Not for me.", Rate: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, "Dune", review.Book.Title)
	assert.Equal(t, "stranger", review.User.Username)

	// Owners may review their own books.
	books.On("GetByID", mock.Anything, uint(5)).Return(book, nil).Once()
	reviews.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	_, err = service.CreateReview(ctx, owner, 5, models.ReviewInput{Title: "Mine", Text: "Great.", Rate: intPtr(5)})
	require.NoError(t, err)

	reviews.AssertExpectations(t)
	books.AssertExpectations(t)
}

func TestReviewService_CreateReview_Errors(t *testing.T) {
	ctx := context.Background()
	service, reviews, books := newReviewService()

	books.On("GetByID", mock.Anything, uint(9)).Return(nil, apperrors.NotFoundf("book with ID 9 not found")).Once()
	_, err := service.CreateReview(ctx, stranger, 9, models.ReviewInput{Title: "t", Text: "x", Rate: intPtr(3)})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	books.On("GetByID", mock.Anything, uint(5)).Return(&models.Book{ID: 5}, nil).Once()
	_, err = service.CreateReview(ctx, stranger, 5, models.ReviewInput{Title: "t", Text: "x", Rate: intPtr(6)})
	require.Error(t, err)
	assert.Contains(t, apperrors.FieldsOf(err), "rate")

	_, err = service.CreateReview(ctx, nil, 5, models.ReviewInput{})
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestReviewService_UpdateReview(t *testing.T) {
	ctx := context.Background()
	service, reviews, _ := newReviewService()

	existing := func() *models.Review {
		return &models.Review{ID: 8, BookID: 5, UserID: stranger.ID, Title: "Old", Text: "Old", Rate: 1}
	}

	reviews.On("GetByID", mock.Anything, uint(8)).Return(existing(), nil).Once()
	_, err := service.UpdateReview(ctx, owner, 8, models.ReviewInput{Title: "t", Text: "x", Rate: intPtr(3)})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	reviews.On("GetByID", mock.Anything, uint(8)).Return(existing(), nil).Once()
	reviews.On("Update", mock.Anything, mock.MatchedBy(func(r *models.Review) bool {
		return r.Rate == 4 && r.BookID == 5 && r.Title == "Better"
	})).Return(nil).Once()
	review, err := service.UpdateReview(ctx, stranger, 8, models.ReviewInput{Title: "Better", Text: "On reflection.", Rate: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rate)

	reviews.AssertExpectations(t)
}

func TestReviewService_DeleteReview(t *testing.T) {
	ctx := context.Background()
	service, reviews, _ := newReviewService()
	review := &models.Review{ID: 8, BookID: 5, UserID: stranger.ID}

	reviews.On("GetByID", mock.Anything, uint(8)).Return(review, nil).Once()
	_, err := service.DeleteReview(ctx, owner, 8)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	reviews.On("GetByID", mock.Anything, uint(8)).Return(review, nil).Once()
	reviews.On("Delete", mock.Anything, uint(8)).Return(nil).Once()
	bookID, err := service.DeleteReview(ctx, stranger, 8)
	require.NoError(t, err)
	assert.Equal(t, uint(5), bookID)

	reviews.On("GetByID", mock.Anything, uint(8)).Return(review, nil).Once()
	reviews.On("Delete", mock.Anything, uint(8)).Return(nil).Once()
	_, err = service.DeleteReview(ctx, staff, 8)
	require.NoError(t, err)

	reviews.On("GetByID", mock.Anything, uint(99)).Return(nil, apperrors.NotFoundf("review with ID 99 not found")).Once()
	_, err = service.DeleteReview(ctx, stranger, 99)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	reviews.AssertExpectations(t)
}
