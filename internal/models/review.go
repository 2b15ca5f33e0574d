package models

import "time"

// MaxRate is the highest star rating; ratings range over 0..MaxRate.
const MaxRate = 5

// Review is a user's rating of a book.
type Review struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BookID    uint      `json:"book_id" gorm:"not null;index"`
	Book      Book      `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	Title     string    `json:"title" gorm:"type:varchar(100);not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	Rate      int       `json:"rate" gorm:"not null;check:rate >= 0 AND rate <= 5"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	User      User      `json:"user" gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether u owns the review.
func (r Review) OwnedBy(u *User) bool {
	return u != nil && r.UserID == u.ID
}

// RateChoices lists the allowed ratings in ascending order.
func RateChoices() []int {
	out := make([]int, 0, MaxRate+1)
	for i := 0; i <= MaxRate; i++ {
		out = append(out, i)
	}
	return out
}
