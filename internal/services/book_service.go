package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookreview/internal/apperrors"
	"bookreview/internal/logger"
	"bookreview/internal/models"
	"bookreview/internal/repositories"
	"bookreview/internal/validation"
)

// ListCategoryLimit caps the category tags shown next to the book list.
const ListCategoryLimit = 20

// ThumbnailStore persists processed cover images.
type ThumbnailStore interface {
	// Save processes an uploaded image and returns its stored path and blurhash.
	Save(ctx context.Context, data []byte) (path string, blurHash string, err error)
	Delete(path string) error
}

// ThumbnailChange describes what an update does to the cover image.
// Data replaces the image; Clear removes it. Neither leaves it as is.
type ThumbnailChange struct {
	Data  []byte
	Clear bool
}

// BookList is a filtered listing of books.
type BookList struct {
	Books         []models.Book
	Total         int64
	Categories    []models.CategoryTag
	Query         string
	Category      string
	CategoryLabel string
}

// BookDetail is a book with its reviews.
type BookDetail struct {
	Book    *models.Book
	Reviews []models.Review
	IsOwner bool
}

// RankingPage is one page of reviewed books ordered by average rating.
type RankingPage struct {
	Books []models.RankedBook
	Page  models.Page
}

// IndexView is the landing page content.
type IndexView struct {
	Books      []models.Book
	Ranking    RankingPage
	Categories []models.CategoryTag
	Query      string
	Category   string
}

// BookService handles business logic for books.
type BookService struct {
	bookRepo   repositories.BookRepository
	reviewRepo repositories.ReviewRepository
	thumbnails ThumbnailStore
	validator  *validation.Validator
	events     EventPublisher
}

// NewBookService creates a new BookService. thumbnails and events may be nil.
func NewBookService(bookRepo repositories.BookRepository, reviewRepo repositories.ReviewRepository, thumbnails ThumbnailStore, v *validation.Validator, events EventPublisher) *BookService {
	return &BookService{
		bookRepo:   bookRepo,
		reviewRepo: reviewRepo,
		thumbnails: thumbnails,
		validator:  v,
		events:     events,
	}
}

func normalizeFilter(filter models.BookFilter) models.BookFilter {
	return models.BookFilter{
		Query:    strings.TrimSpace(filter.Query),
		Category: strings.TrimSpace(filter.Category),
	}
}

// ListBooks returns books matching filter, newest first, with the category tags in use.
func (s *BookService) ListBooks(ctx context.Context, filter models.BookFilter) (*BookList, error) {
	filter = normalizeFilter(filter)

	books, err := s.bookRepo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.bookRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	tags, err := s.Categories(ctx, ListCategoryLimit)
	if err != nil {
		return nil, err
	}

	list := &BookList{
		Books:      books,
		Total:      total,
		Categories: tags,
		Query:      filter.Query,
		Category:   filter.Category,
	}
	if filter.Category != "" {
		list.CategoryLabel = models.CategoryLabel(filter.Category)
	}
	return list, nil
}

// Categories returns labelled tags for the categories in use, at most limit (0 = all).
func (s *BookService) Categories(ctx context.Context, limit int) ([]models.CategoryTag, error) {
	values, err := s.bookRepo.Categories(ctx, limit)
	if err != nil {
		return nil, err
	}
	return models.TagsFor(values), nil
}

// Ranking returns the requested page of reviewed books matching filter.
func (s *BookService) Ranking(ctx context.Context, filter models.BookFilter, page string) (*RankingPage, error) {
	filter = normalizeFilter(filter)

	total, err := s.bookRepo.RankingCount(ctx, filter)
	if err != nil {
		return nil, err
	}
	p := models.NewPage(page, total, models.ItemsPerPage)

	ranked, err := s.bookRepo.Ranking(ctx, filter, p.PerPage, p.Offset())
	if err != nil {
		return nil, err
	}
	return &RankingPage{Books: ranked, Page: p}, nil
}

// Index assembles the landing page: newest books, a ranking page and category tags.
func (s *BookService) Index(ctx context.Context, filter models.BookFilter, page string) (*IndexView, error) {
	filter = normalizeFilter(filter)

	books, err := s.bookRepo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}
	ranking, err := s.Ranking(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	tags, err := s.Categories(ctx, 0)
	if err != nil {
		return nil, err
	}

	return &IndexView{
		Books:      books,
		Ranking:    *ranking,
		Categories: tags,
		Query:      filter.Query,
		Category:   filter.Category,
	}, nil
}

// GetBook retrieves a book by its ID.
func (s *BookService) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	return s.bookRepo.GetByID(ctx, id)
}

// GetBookDetail retrieves a book, its reviews and whether viewer owns it.
func (s *BookService) GetBookDetail(ctx context.Context, id uint, viewer *models.User) (*BookDetail, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviewRepo.ListByBook(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BookDetail{Book: book, Reviews: reviews, IsOwner: book.OwnedBy(viewer)}, nil
}

// GetBookForEdit retrieves a book that actor is allowed to change.
func (s *BookService) GetBookForEdit(ctx context.Context, actor *models.User, id uint) (*models.Book, error) {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !book.OwnedBy(actor) {
		return nil, apperrors.Forbiddenf("you do not own book %d", id)
	}
	return book, nil
}

// CreateBook creates a book owned by actor.
func (s *BookService) CreateBook(ctx context.Context, actor *models.User, input models.BookInput, thumbnail []byte) (*models.Book, error) {
	if actor == nil {
		return nil, apperrors.Unauthorized("login required")
	}
	input = trimBookInput(input)
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	book := &models.Book{
		Title:    input.Title,
		Text:     input.Text,
		Category: input.Category,
		UserID:   actor.ID,
	}
	if len(thumbnail) > 0 {
		path, hash, err := s.saveThumbnail(ctx, thumbnail)
		if err != nil {
			return nil, err
		}
		book.Thumbnail, book.ThumbnailBlurHash = path, hash
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		s.removeThumbnail(book.Thumbnail)
		return nil, err
	}
	book.User = *actor

	publish(s.events, EventBookCreated, map[string]interface{}{
		"book_id":  book.ID,
		"title":    book.Title,
		"category": book.Category,
		"user_id":  actor.ID,
	})
	return book, nil
}

// UpdateBook changes a book owned by actor.
func (s *BookService) UpdateBook(ctx context.Context, actor *models.User, id uint, input models.BookInput, thumb ThumbnailChange) (*models.Book, error) {
	book, err := s.GetBookForEdit(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	input = trimBookInput(input)
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	oldThumbnail := book.Thumbnail
	book.Title = input.Title
	book.Text = input.Text
	book.Category = input.Category

	switch {
	case len(thumb.Data) > 0:
		path, hash, err := s.saveThumbnail(ctx, thumb.Data)
		if err != nil {
			return nil, err
		}
		book.Thumbnail, book.ThumbnailBlurHash = path, hash
	case thumb.Clear:
		book.Thumbnail, book.ThumbnailBlurHash = "", ""
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		if book.Thumbnail != oldThumbnail {
			s.removeThumbnail(book.Thumbnail)
		}
		return nil, err
	}
	if book.Thumbnail != oldThumbnail {
		s.removeThumbnail(oldThumbnail)
	}

	publish(s.events, EventBookUpdated, map[string]interface{}{
		"book_id": book.ID,
		"title":   book.Title,
		"user_id": actor.ID,
	})
	return book, nil
}

// DeleteBook removes a book and its reviews. Owners and staff may delete.
func (s *BookService) DeleteBook(ctx context.Context, actor *models.User, id uint) error {
	book, err := s.bookRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !book.OwnedBy(actor) && (actor == nil || !actor.IsStaff) {
		return apperrors.Forbiddenf("you do not own book %d", id)
	}

	if err := s.bookRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeThumbnail(book.Thumbnail)

	publish(s.events, EventBookDeleted, map[string]interface{}{
		"book_id": id,
		"user_id": actor.ID,
	})
	return nil
}

func (s *BookService) saveThumbnail(ctx context.Context, data []byte) (string, string, error) {
	if s.thumbnails == nil {
		return "", "", errors.New("thumbnail storage is not configured")
	}
	path, hash, err := s.thumbnails.Save(ctx, data)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			return "", "", err
		}
		return "", "", fmt.Errorf("failed to store thumbnail: %w", err)
	}
	return path, hash, nil
}

func (s *BookService) removeThumbnail(path string) {
	if path == "" || s.thumbnails == nil {
		return
	}
	if err := s.thumbnails.Delete(path); err != nil {
		logger.Log.WithError(err).WithField("path", path).Warn("Failed to remove thumbnail")
	}
}

func trimBookInput(in models.BookInput) models.BookInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Text = strings.TrimSpace(in.Text)
	in.Category = strings.TrimSpace(in.Category)
	return in
}
