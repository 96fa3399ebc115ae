package models

import "time"

type Booking struct {
	ID         string    `bson:"_id" json:"_id"`
	PropertyID string    `bson:"property" json:"property"`
	UserID     string    `bson:"user" json:"user"`
	CheckIn    time.Time `bson:"checkIn" json:"checkIn"`
	CheckOut   time.Time `bson:"checkOut" json:"checkOut"`
	Message    string    `bson:"message,omitempty" json:"message,omitempty"`
	Status     string    `bson:"status" json:"status"` // pending, confirmed, rejected
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ValidateStay checks the date ordering of a requested stay.
func ValidateStay(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return validationError("check-in and check-out dates are required")
	}
	if !checkOut.After(checkIn) {
		return validationError("check-out must be after check-in")
	}
	return nil
}

// IsActive reports whether the booking still holds its dates.
func (b *Booking) IsActive() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// Overlaps reports whether the half-open stays [CheckIn, CheckOut) intersect.
func (b *Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return b.CheckIn.Before(checkOut) && checkIn.Before(b.CheckOut)
}

// CanTransition reports whether a booking may move from one status to another.
// Confirmed and rejected are terminal.
func CanTransition(from, to string) bool {
	return from == StatusPending && (to == StatusConfirmed || to == StatusRejected)
}

type UserRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type PropertyRef struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// BookingView is a booking with its property and user resolved for display.
type BookingView struct {
	ID        string      `json:"_id"`
	Property  PropertyRef `json:"property"`
	User      UserRef     `json:"user"`
	CheckIn   time.Time   `json:"checkIn"`
	CheckOut  time.Time   `json:"checkOut"`
	Message   string      `json:"message,omitempty"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}
