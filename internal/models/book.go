package models

import (
	"sort"
	"time"
)

// Book is a catalog entry owned by exactly one user.
type Book struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	Title             string    `json:"title" gorm:"type:varchar(100);not null"`
	Text              string    `json:"text" gorm:"type:text;not null"`
	Thumbnail         string    `json:"thumbnail,omitempty" gorm:"type:varchar(255)"` // path relative to the media root
	ThumbnailBlurHash string    `json:"thumbnail_blurhash,omitempty" gorm:"type:varchar(64)"`
	Category          string    `json:"category" gorm:"type:varchar(100);not null;index"`
	UserID            uint      `json:"user_id" gorm:"not null;index"`
	User              User      `json:"user" gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CategoryLabel returns the display label for the book's category.
func (b Book) CategoryLabel() string {
	return CategoryLabel(b.Category)
}

// OwnedBy reports whether u owns the book.
func (b Book) OwnedBy(u *User) bool {
	return u != nil && b.UserID == u.ID
}

// RankedBook is a book annotated with its review aggregate.
type RankedBook struct {
	Book        `gorm:"embedded"`
	AvgRating   float64 `json:"avg_rating"`
	ReviewCount int64   `json:"review_count"`
}

// BookFilter narrows book listings. Query is a case-insensitive substring
// matched against title, text and category; Category is an exact match.
type BookFilter struct {
	Query    string
	Category string
}

// Categories, in display order.
var categories = []CategoryTag{
	{Value: "technical", Label: "Technical"},
	{Value: "novel", Label: "Novel"},
	{Value: "magazine", Label: "Magazine"},
	{Value: "law", Label: "Law"},
	{Value: "comics", Label: "Comics"},
	{Value: "business", Label: "Business"},
	{Value: "qualification", Label: "Qualification"},
	{Value: "other", Label: "Other"},
}

var categoryLabels = func() map[string]string {
	m := make(map[string]string, len(categories))
	for _, c := range categories {
		m[c.Value] = c.Label
	}
	return m
}()

// CategoryTag is a category value with its display label.
type CategoryTag struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Categories returns every selectable category.
func Categories() []CategoryTag {
	out := make([]CategoryTag, len(categories))
	copy(out, categories)
	return out
}

// CategoryLabel returns the label for value, or value itself when it is
// not one of the known categories.
func CategoryLabel(value string) string {
	if label, ok := categoryLabels[value]; ok {
		return label
	}
	return value
}

// ValidCategory reports whether value is a selectable category.
func ValidCategory(value string) bool {
	_, ok := categoryLabels[value]
	return ok
}

// TagsFor labels a list of raw category values, sorted by value.
func TagsFor(values []string) []CategoryTag {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	tags := make([]CategoryTag, 0, len(sorted))
	for _, v := range sorted {
		tags = append(tags, CategoryTag{Value: v, Label: CategoryLabel(v)})
	}
	return tags
}
