package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID           string    `bson:"_id" json:"_id"`
	User         string    `bson:"user,omitempty" json:"user,omitempty"`
	UserName     string    `bson:"userName,omitempty" json:"userName,omitempty"`
	Rating       int       `bson:"rating" json:"rating"`
	Title        string    `bson:"title,omitempty" json:"title,omitempty"`
	Comment      string    `bson:"comment" json:"comment"`
	HelpfulCount int       `bson:"helpfulCount" json:"helpfulCount"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return validationError("rating must be an integer between %d and %d, got %d", MinRating, MaxRating, rating)
	}
	return nil
}

// NewReview builds an authored review. An empty user makes it anonymous.
func NewReview(user, userName string, rating int, title, comment string, now time.Time) Review {
	return Review{
		ID:        uuid.NewString(),
		User:      user,
		UserName:  userName,
		Rating:    rating,
		Title:     strings.TrimSpace(title),
		Comment:   strings.TrimSpace(comment),
		CreatedAt: now,
	}
}

// HasReviewBy reports whether user already left an authored review.
func (p *Property) HasReviewBy(user string) bool {
	if user == "" {
		return false
	}
	for i := range p.Reviews {
		if p.Reviews[i].User == user {
			return true
		}
	}
	return false
}

// AddReview validates r, enforces one review per author and recomputes the
// aggregate. On error p is left unchanged.
func (p *Property) AddReview(r Review) error {
	if err := ValidateRating(r.Rating); err != nil {
		return err
	}
	if r.Comment == "" {
		return validationError("review comment is required")
	}
	if p.HasReviewBy(r.User) {
		return ErrDuplicateReview
	}
	p.Reviews = append(p.Reviews, r)
	p.RecomputeRating()
	return nil
}

// Rate appends an anonymous rating. No deduplication applies to this channel.
func (p *Property) Rate(rating int, now time.Time) (Review, error) {
	r := NewReview("", "", rating, "", AnonymousRatingComment, now)
	if err := p.AddReview(r); err != nil {
		return Review{}, err
	}
	return r, nil
}

// MarkHelpful bumps the helpful counter of a review and returns the new value.
func (p *Property) MarkHelpful(reviewID string) (int, error) {
	for i := range p.Reviews {
		if p.Reviews[i].ID == reviewID {
			p.Reviews[i].HelpfulCount++
			return p.Reviews[i].HelpfulCount, nil
		}
	}
	return 0, ErrReviewNotFound
}

// RecomputeRating derives AverageRating and TotalReviews from Reviews. Every
// mutation of the review collection must call it before the document is saved.
func (p *Property) RecomputeRating() {
	p.TotalReviews = len(p.Reviews)
	if p.TotalReviews == 0 {
		p.AverageRating = 0
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.AverageRating = float64(sum) / float64(p.TotalReviews)
}
