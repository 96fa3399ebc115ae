package models

import "time"

// Property statuses.
const (
	PropertyAvailable   = "available"
	PropertyBooked      = "booked"
	PropertyMaintenance = "maintenance"
	PropertyInactive    = "inactive"
)

// Booking statuses.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusRejected  = "rejected"
)

const (
	// DefaultMinimumStay минимальный срок аренды в днях, если владелец не указал свой
	DefaultMinimumStay = 30

	// MaxImages максимальное количество фотографий у объекта
	MaxImages = 5

	// MinRating и MaxRating границы оценки
	MinRating = 1
	MaxRating = 5

	// AnonymousRatingComment комментарий для оценок без автора
	AnonymousRatingComment = "User rating"

	// DefaultBedrooms, DefaultBathrooms, DefaultMaxGuests значения по умолчанию для новых объектов
	DefaultBedrooms  = 1
	DefaultBathrooms = 1
	DefaultMaxGuests = 2

	// Day длительность суток для расчета срока проживания
	Day = 24 * time.Hour
)

// Amenities is the closed set of amenity values a property may list.
var Amenities = []string{
	"WiFi",
	"TV",
	"Air Conditioning",
	"Heating",
	"Kitchen",
	"Washing Machine",
	"Parking",
	"Elevator",
	"Swimming Pool",
	"Gym",
	"Security",
	"Balcony",
	"Garden",
	"Furniture",
}

// ImageContentTypes lists the accepted image media types.
var ImageContentTypes = []string{
	"image/png",
	"image/jpeg",
	"image/jpg",
	"image/webp",
}

var (
	amenitySet     = toSet(Amenities)
	contentTypeSet = toSet(ImageContentTypes)
	propertyStatus = toSet([]string{PropertyAvailable, PropertyBooked, PropertyMaintenance, PropertyInactive})
	bookingStatus  = toSet([]string{StatusPending, StatusConfirmed, StatusRejected})
)

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// IsAmenity reports whether value is one of the known amenities.
func IsAmenity(value string) bool {
	_, ok := amenitySet[value]
	return ok
}

// IsImageContentType reports whether contentType is an accepted image type.
func IsImageContentType(contentType string) bool {
	_, ok := contentTypeSet[contentType]
	return ok
}

func IsPropertyStatus(status string) bool {
	_, ok := propertyStatus[status]
	return ok
}

func IsBookingStatus(status string) bool {
	_, ok := bookingStatus[status]
	return ok
}
