package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func juneProperty() *Property {
	start := date(2024, 6, 1)
	end := date(2024, 6, 30)
	return &Property{
		Name:        "Loft",
		Type:        "Apartment",
		Price:       100,
		Location:    "Lisbon, Alfama",
		Description: "Sunny loft",
		Email:       "owner@example.com",
		Status:      PropertyAvailable,
		Availability: Availability{
			StartDate:   &start,
			EndDate:     &end,
			MinimumStay: 5,
		},
	}
}

func TestCheckAvailability(t *testing.T) {
	p := juneProperty()

	t.Run("ShorterThanMinimumStay", func(t *testing.T) {
		assert.False(t, p.CheckAvailability(date(2024, 6, 10), date(2024, 6, 12)))
	})

	t.Run("WithinWindow", func(t *testing.T) {
		assert.True(t, p.CheckAvailability(date(2024, 6, 10), date(2024, 6, 20)))
	})

	t.Run("ExactWindowBounds", func(t *testing.T) {
		assert.True(t, p.CheckAvailability(date(2024, 6, 1), date(2024, 6, 30)))
	})

	t.Run("BeforeStart", func(t *testing.T) {
		assert.False(t, p.CheckAvailability(date(2024, 5, 30), date(2024, 6, 10)))
	})

	t.Run("AfterEnd", func(t *testing.T) {
		assert.False(t, p.CheckAvailability(date(2024, 6, 20), date(2024, 7, 2)))
	})

	t.Run("ReversedDates", func(t *testing.T) {
		assert.False(t, p.CheckAvailability(date(2024, 6, 20), date(2024, 6, 10)))
	})

	t.Run("NotAvailableStatus", func(t *testing.T) {
		for _, status := range []string{PropertyBooked, PropertyMaintenance, PropertyInactive} {
			q := juneProperty()
			q.Status = status
			assert.False(t, q.CheckAvailability(date(2024, 6, 10), date(2024, 6, 20)), status)
		}
	})

	t.Run("OpenWindow", func(t *testing.T) {
		q := juneProperty()
		q.Availability.StartDate = nil
		q.Availability.EndDate = nil
		assert.True(t, q.CheckAvailability(date(2030, 1, 1), date(2030, 1, 6)))
	})

	t.Run("PartialDayDoesNotCount", func(t *testing.T) {
		in := date(2024, 6, 10)
		out := in.Add(5*Day - time.Hour)
		assert.False(t, p.CheckAvailability(in, out))
	})

	t.Run("Deterministic", func(t *testing.T) {
		in, out := date(2024, 6, 10), date(2024, 6, 20)
		first := p.CheckAvailability(in, out)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, p.CheckAvailability(in, out))
		}
	})
}

func TestCalculateTotalPrice(t *testing.T) {
	p := &Property{Price: 100, Discount: 20}
	assert.Equal(t, 240.0, p.CalculateTotalPrice(3))

	p.Discount = 0
	assert.Equal(t, 300.0, p.CalculateTotalPrice(3))

	p.Discount = 100
	assert.Equal(t, 0.0, p.CalculateTotalPrice(3))
}

func TestPropertyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Property)
		wantErr bool
	}{
		{name: "valid", mutate: func(p *Property) {}},
		{name: "negative price", mutate: func(p *Property) { p.Price = -1 }, wantErr: true},
		{name: "discount above 100", mutate: func(p *Property) { p.Discount = 101 }, wantErr: true},
		{name: "negative discount", mutate: func(p *Property) { p.Discount = -5 }, wantErr: true},
		{name: "unknown amenity", mutate: func(p *Property) { p.Amenities = []string{"WiFi", "Sauna"} }, wantErr: true},
		{name: "known amenities", mutate: func(p *Property) { p.Amenities = []string{"WiFi", "Swimming Pool"} }},
		{name: "bad email", mutate: func(p *Property) { p.Email = "nope" }, wantErr: true},
		{name: "missing name", mutate: func(p *Property) { p.Name = "" }, wantErr: true},
		{name: "unknown status", mutate: func(p *Property) { p.Status = "sold" }, wantErr: true},
		{name: "too many images", mutate: func(p *Property) {
			p.Images = make([]Image, MaxImages+1)
			for i := range p.Images {
				p.Images[i].ContentType = "image/png"
			}
		}, wantErr: true},
		{name: "bad image type", mutate: func(p *Property) { p.Images = []Image{{ContentType: "image/gif"}} }, wantErr: true},
		{name: "reversed window", mutate: func(p *Property) {
			p.Availability.StartDate, p.Availability.EndDate = p.Availability.EndDate, p.Availability.StartDate
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := juneProperty()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	p := &Property{Name: "  Cabin  "}
	p.ApplyDefaults()

	assert.Equal(t, PropertyAvailable, p.Status)
	assert.Zero(t, p.Availability.MinimumStay, "zero minimum stay is kept")
	assert.Equal(t, DefaultBedrooms, p.Bedrooms)
	assert.Equal(t, DefaultMaxGuests, p.MaxGuests)
	assert.Equal(t, "Cabin", p.Name)
	assert.NotNil(t, p.Reviews)
}

func TestMinimumStayOrDefault(t *testing.T) {
	zero := 0
	seven := 7
	assert.Equal(t, DefaultMinimumStay, MinimumStayOrDefault(nil))
	assert.Equal(t, 0, MinimumStayOrDefault(&zero))
	assert.Equal(t, 7, MinimumStayOrDefault(&seven))

	p := juneProperty()
	p.Availability.MinimumStay = 0
	assert.True(t, p.CheckAvailability(date(2024, 6, 10), date(2024, 6, 12)))
}

func TestPropertyPatchAvailability(t *testing.T) {
	p := juneProperty()
	julyStart := date(2024, 7, 1)
	julyEnd := date(2024, 7, 31)
	zero := 0

	PropertyPatch{Availability: &AvailabilityPatch{StartDate: &julyStart, EndDate: &julyEnd}}.Apply(p)
	assert.Equal(t, julyStart, *p.Availability.StartDate)
	assert.Equal(t, julyEnd, *p.Availability.EndDate)
	assert.Equal(t, 5, p.Availability.MinimumStay, "unset minimum stay is left alone")

	PropertyPatch{Availability: &AvailabilityPatch{MinimumStay: &zero}}.Apply(p)
	assert.Zero(t, p.Availability.MinimumStay)
	assert.Equal(t, julyStart, *p.Availability.StartDate)

	// патч не держит ссылку на свои даты
	julyStart = date(2025, 1, 1)
	assert.Equal(t, date(2024, 7, 1), *p.Availability.StartDate)
}

func TestPropertyFilter(t *testing.T) {
	p := &Property{Location: "Lisbon, Alfama", Type: "Apartment"}

	assert.True(t, PropertyFilter{}.Matches(p))
	assert.True(t, PropertyFilter{Location: "  "}.Matches(p))
	assert.True(t, PropertyFilter{Location: "alfama"}.Matches(p))
	assert.True(t, PropertyFilter{Type: "apartment"}.Matches(p))
	assert.False(t, PropertyFilter{Type: "apart"}.Matches(p))
	assert.False(t, PropertyFilter{Location: "porto"}.Matches(p))
}

func TestReviews(t *testing.T) {
	now := time.Now()

	t.Run("EmptyAggregate", func(t *testing.T) {
		p := &Property{}
		p.RecomputeRating()
		assert.Equal(t, 0.0, p.AverageRating)
		assert.Equal(t, 0, p.TotalReviews)
	})

	t.Run("AddReviewRecomputes", func(t *testing.T) {
		p := &Property{}
		require.NoError(t, p.AddReview(NewReview("u1", "Ann", 5, "", "great", now)))
		require.NoError(t, p.AddReview(NewReview("u2", "Bob", 2, "", "meh", now)))

		assert.Equal(t, 3.5, p.AverageRating)
		assert.Equal(t, 2, p.TotalReviews)
	})

	t.Run("DuplicateReview", func(t *testing.T) {
		p := &Property{}
		require.NoError(t, p.AddReview(NewReview("u1", "Ann", 4, "", "nice", now)))

		err := p.AddReview(NewReview("u1", "Ann", 1, "", "changed my mind", now))
		assert.ErrorIs(t, err, ErrDuplicateReview)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, 4.0, p.AverageRating)
		assert.Len(t, p.Reviews, 1)
	})

	t.Run("RatingOutOfRange", func(t *testing.T) {
		p := &Property{}
		for _, r := range []int{0, 6, -1} {
			err := p.AddReview(NewReview("u1", "", r, "", "x", now))
			assert.ErrorIs(t, err, ErrValidation)
		}
		assert.Empty(t, p.Reviews)
		assert.Equal(t, 0.0, p.AverageRating)
	})

	t.Run("AnonymousRatingsAreNotDeduplicated", func(t *testing.T) {
		p := &Property{}
		_, err := p.Rate(5, now)
		require.NoError(t, err)
		r, err := p.Rate(4, now)
		require.NoError(t, err)

		assert.Equal(t, AnonymousRatingComment, r.Comment)
		assert.Empty(t, r.User)
		assert.Equal(t, 2, p.TotalReviews)
		assert.Equal(t, 4.5, p.AverageRating)
	})

	t.Run("MarkHelpful", func(t *testing.T) {
		p := &Property{}
		r := NewReview("u1", "", 3, "", "ok", now)
		require.NoError(t, p.AddReview(r))

		count, err := p.MarkHelpful(r.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		_, err = p.MarkHelpful("missing")
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.Equal(t, 1, p.Reviews[0].HelpfulCount)
	})
}

func TestBookingRules(t *testing.T) {
	t.Run("Transitions", func(t *testing.T) {
		assert.True(t, CanTransition(StatusPending, StatusConfirmed))
		assert.True(t, CanTransition(StatusPending, StatusRejected))
		assert.False(t, CanTransition(StatusConfirmed, StatusPending))
		assert.False(t, CanTransition(StatusRejected, StatusConfirmed))
		assert.False(t, CanTransition(StatusPending, StatusPending))
	})

	t.Run("ValidateStay", func(t *testing.T) {
		assert.NoError(t, ValidateStay(date(2024, 6, 1), date(2024, 6, 2)))
		assert.ErrorIs(t, ValidateStay(date(2024, 6, 2), date(2024, 6, 2)), ErrValidation)
		assert.ErrorIs(t, ValidateStay(time.Time{}, date(2024, 6, 2)), ErrValidation)
	})

	t.Run("Overlaps", func(t *testing.T) {
		b := &Booking{CheckIn: date(2024, 6, 10), CheckOut: date(2024, 6, 20)}
		assert.True(t, b.Overlaps(date(2024, 6, 15), date(2024, 6, 25)))
		assert.False(t, b.Overlaps(date(2024, 6, 20), date(2024, 6, 25)))
		assert.False(t, b.Overlaps(date(2024, 6, 1), date(2024, 6, 10)))
	})
}
