package models

import (
	"net/mail"
	"strings"
	"time"
)

type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

type Image struct {
	Data        []byte `bson:"data" json:"-"`
	ContentType string `bson:"contentType" json:"contentType"`
}

type Rules struct {
	Smoking bool `bson:"smoking" json:"smoking"`
	Pets    bool `bson:"pets" json:"pets"`
	Events  bool `bson:"events" json:"events"`
	Cooking bool `bson:"cooking" json:"cooking"`
}

// DefaultRules mirrors the house rules a new listing starts with.
func DefaultRules() Rules {
	return Rules{Cooking: true}
}

// Availability is the bookable window of a property. Nil bounds are open.
type Availability struct {
	StartDate   *time.Time `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate     *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"`
	MinimumStay int        `bson:"minimumStay" json:"minimumStay"`
}

type Property struct {
	ID            string       `bson:"_id" json:"_id"`
	Name          string       `bson:"name" json:"name"`
	Type          string       `bson:"type" json:"type"`
	Price         float64      `bson:"price" json:"price"`
	Location      string       `bson:"location" json:"location"`
	Coordinates   *Coordinates `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	Description   string       `bson:"description" json:"description"`
	Bedrooms      int          `bson:"bedrooms" json:"bedrooms"`
	Bathrooms     int          `bson:"bathrooms" json:"bathrooms"`
	MaxGuests     int          `bson:"maxGuests" json:"maxGuests"`
	Area          float64      `bson:"area,omitempty" json:"area,omitempty"`
	Amenities     []string     `bson:"amenities" json:"amenities"`
	Images        []Image      `bson:"images" json:"images"`
	Rules         Rules        `bson:"rules" json:"rules"`
	Availability  Availability `bson:"availability" json:"availability"`
	Owner         string       `bson:"owner,omitempty" json:"owner,omitempty"`
	Email         string       `bson:"email" json:"email"`
	Phone         string       `bson:"phone,omitempty" json:"phone,omitempty"`
	Discount      float64      `bson:"discount" json:"discount"`
	Status        string       `bson:"status" json:"status"`
	Reviews       []Review     `bson:"reviews" json:"reviews"`
	AverageRating float64      `bson:"averageRating" json:"averageRating"`
	TotalReviews  int          `bson:"totalReviews" json:"totalReviews"`
	CreatedAt     time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time    `bson:"updatedAt" json:"updatedAt"`
	Version       int64        `bson:"version" json:"-"`
}

// PropertyFilter narrows a catalog search. Blank fields match everything.
type PropertyFilter struct {
	Location string
	Type     string
}

// Normalize trims both filter values.
func (f PropertyFilter) Normalize() PropertyFilter {
	return PropertyFilter{
		Location: strings.TrimSpace(f.Location),
		Type:     strings.TrimSpace(f.Type),
	}
}

// Matches applies the search semantics to a single property: case-insensitive
// substring on location, case-insensitive equality on type.
func (f PropertyFilter) Matches(p *Property) bool {
	f = f.Normalize()
	if f.Location != "" && !strings.Contains(strings.ToLower(p.Location), strings.ToLower(f.Location)) {
		return false
	}
	if f.Type != "" && !strings.EqualFold(p.Type, f.Type) {
		return false
	}
	return true
}

// PropertySummary is the slice of a property shown next to bookings.
type PropertySummary struct {
	ID       string `bson:"_id" json:"_id"`
	Name     string `bson:"name" json:"name"`
	Location string `bson:"location" json:"location"`
	Email    string `bson:"email" json:"-"`
	Owner    string `bson:"owner,omitempty" json:"-"`
}

func (p *Property) Summary() PropertySummary {
	return PropertySummary{ID: p.ID, Name: p.Name, Location: p.Location, Email: p.Email, Owner: p.Owner}
}

// ApplyDefaults fills zero values the way a fresh listing is created.
// A zero minimum stay is a valid value and is kept; callers that accept an
// absent field use MinimumStayOrDefault.
func (p *Property) ApplyDefaults() {
	if p.Status == "" {
		p.Status = PropertyAvailable
	}
	if p.Bedrooms == 0 {
		p.Bedrooms = DefaultBedrooms
	}
	if p.Bathrooms == 0 {
		p.Bathrooms = DefaultBathrooms
	}
	if p.MaxGuests == 0 {
		p.MaxGuests = DefaultMaxGuests
	}
	if p.Amenities == nil {
		p.Amenities = []string{}
	}
	if p.Images == nil {
		p.Images = []Image{}
	}
	if p.Reviews == nil {
		p.Reviews = []Review{}
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.TrimSpace(p.Type)
	p.Location = strings.TrimSpace(p.Location)
	p.Description = strings.TrimSpace(p.Description)
}

// Validate checks every write-time constraint of a property document.
func (p *Property) Validate() error {
	switch {
	case p.Name == "":
		return validationError("property name is required")
	case p.Type == "":
		return validationError("property type is required")
	case p.Location == "":
		return validationError("location is required")
	case p.Description == "":
		return validationError("description is required")
	case p.Email == "":
		return validationError("contact email is required")
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return validationError("invalid email address %q", p.Email)
	}
	if p.Price < 0 {
		return validationError("price must be a positive number")
	}
	if p.Discount < 0 || p.Discount > 100 {
		return validationError("discount must be within [0, 100], got %v", p.Discount)
	}
	if !IsPropertyStatus(p.Status) {
		return validationError("unknown property status %q", p.Status)
	}
	if err := ValidateAmenities(p.Amenities); err != nil {
		return err
	}
	if err := ValidateImages(p.Images); err != nil {
		return err
	}
	if p.Availability.MinimumStay < 0 {
		return validationError("minimum stay cannot be negative")
	}
	if s, e := p.Availability.StartDate, p.Availability.EndDate; s != nil && e != nil && e.Before(*s) {
		return validationError("availability end date is before start date")
	}
	return nil
}

func ValidateAmenities(amenities []string) error {
	for _, a := range amenities {
		if !IsAmenity(a) {
			return validationError("unknown amenity %q", a)
		}
	}
	return nil
}

func ValidateImages(images []Image) error {
	if len(images) > MaxImages {
		return validationError("maximum %d images allowed", MaxImages)
	}
	for i, img := range images {
		if !IsImageContentType(img.ContentType) {
			return validationError("image %d has unsupported media type %q", i, img.ContentType)
		}
	}
	return nil
}

// StayDays returns the whole number of days between check-in and check-out.
func StayDays(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn) / Day)
}

// CheckAvailability reports whether the property can be booked for the given
// stay. It fails closed and reads nothing but the property itself.
func (p *Property) CheckAvailability(checkIn, checkOut time.Time) bool {
	if p.Status != PropertyAvailable {
		return false
	}
	if start := p.Availability.StartDate; start != nil && checkIn.Before(*start) {
		return false
	}
	if end := p.Availability.EndDate; end != nil && checkOut.After(*end) {
		return false
	}
	if !checkOut.After(checkIn) {
		return false
	}
	return StayDays(checkIn, checkOut) >= p.Availability.MinimumStay
}

// CalculateTotalPrice returns the price of a stay of the given length with the
// discount applied. Discount bounds are enforced on write.
func (p *Property) CalculateTotalPrice(days int) float64 {
	base := p.Price * float64(days)
	return base - base*p.Discount/100
}

// Image returns the image at index.
func (p *Property) Image(index int) (*Image, error) {
	if index < 0 || index >= len(p.Images) {
		return nil, ErrImageNotFound
	}
	return &p.Images[index], nil
}

// MinimumStayOrDefault returns the requested minimum stay, or the default one
// when the field was absent.
func MinimumStayOrDefault(days *int) int {
	if days == nil {
		return DefaultMinimumStay
	}
	return *days
}

// AvailabilityPatch changes the bookable window field by field.
type AvailabilityPatch struct {
	StartDate   *time.Time
	EndDate     *time.Time
	MinimumStay *int
}

// PropertyPatch carries a partial update. Nil fields are left untouched.
type PropertyPatch struct {
	Name         *string            `json:"name"`
	Type         *string            `json:"type"`
	Price        *float64           `json:"price"`
	Location     *string            `json:"location"`
	Coordinates  *Coordinates       `json:"coordinates"`
	Description  *string            `json:"description"`
	Bedrooms     *int               `json:"bedrooms"`
	Bathrooms    *int               `json:"bathrooms"`
	MaxGuests    *int               `json:"maxGuests"`
	Area         *float64           `json:"area"`
	Amenities    *[]string          `json:"amenities"`
	Rules        *Rules             `json:"rules"`
	Availability *AvailabilityPatch `json:"-"`
	Email        *string            `json:"email"`
	Phone        *string            `json:"phone"`
	Discount     *float64           `json:"discount"`
	Status       *string            `json:"status"`
	Images       *[]Image           `json:"-"`
}

// Apply copies the set fields onto p. Reviews and rating aggregates are never
// touched by a patch.
func (patch PropertyPatch) Apply(p *Property) {
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Type != nil {
		p.Type = strings.TrimSpace(*patch.Type)
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Location != nil {
		p.Location = strings.TrimSpace(*patch.Location)
	}
	if patch.Coordinates != nil {
		c := *patch.Coordinates
		p.Coordinates = &c
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Bedrooms != nil {
		p.Bedrooms = *patch.Bedrooms
	}
	if patch.Bathrooms != nil {
		p.Bathrooms = *patch.Bathrooms
	}
	if patch.MaxGuests != nil {
		p.MaxGuests = *patch.MaxGuests
	}
	if patch.Area != nil {
		p.Area = *patch.Area
	}
	if patch.Amenities != nil {
		p.Amenities = append([]string{}, (*patch.Amenities)...)
	}
	if patch.Rules != nil {
		p.Rules = *patch.Rules
	}
	if a := patch.Availability; a != nil {
		if a.StartDate != nil {
			start := *a.StartDate
			p.Availability.StartDate = &start
		}
		if a.EndDate != nil {
			end := *a.EndDate
			p.Availability.EndDate = &end
		}
		if a.MinimumStay != nil {
			p.Availability.MinimumStay = *a.MinimumStay
		}
	}
	if patch.Email != nil {
		p.Email = strings.TrimSpace(*patch.Email)
	}
	if patch.Phone != nil {
		p.Phone = *patch.Phone
	}
	if patch.Discount != nil {
		p.Discount = *patch.Discount
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Images != nil {
		p.Images = append([]Image{}, (*patch.Images)...)
	}
}
