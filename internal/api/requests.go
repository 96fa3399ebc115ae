package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rentals/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const dateLayout = "2006-01-02"

// Date accepts both RFC 3339 timestamps and plain YYYY-MM-DD dates.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := parseDate(raw)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; expected YYYY-MM-DD or RFC 3339", raw)
	}
	return t, nil
}

type rateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Title   string `json:"title" validate:"max=200"`
	Comment string `json:"comment" validate:"required,max=5000"`
}

type bookingRequest struct {
	CheckIn  Date   `json:"checkIn"`
	CheckOut Date   `json:"checkOut"`
	Message  string `json:"message" validate:"max=2000"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// propertyRequest is the body of a JSON property create. The multipart form
// uses the same field names.
type propertyRequest struct {
	Name         string              `json:"name" validate:"required,max=200"`
	Type         string              `json:"type" validate:"required,max=100"`
	Price        float64             `json:"price" validate:"gte=0"`
	Location     string              `json:"location" validate:"required,max=300"`
	Coordinates  *models.Coordinates `json:"coordinates"`
	Description  string              `json:"description" validate:"required"`
	Bedrooms     int                 `json:"bedrooms" validate:"gte=0"`
	Bathrooms    int                 `json:"bathrooms" validate:"gte=0"`
	MaxGuests    int                 `json:"maxGuests" validate:"gte=0"`
	Area         float64             `json:"area" validate:"gte=0"`
	Amenities    []string            `json:"amenities"`
	Rules        *models.Rules       `json:"rules"`
	StartDate    *Date               `json:"startDate"`
	EndDate      *Date               `json:"endDate"`
	MinimumStay  *int                `json:"minimumStay" validate:"omitempty,gte=0"`
	Email        string              `json:"email" validate:"omitempty,email"`
	Phone        string              `json:"phone" validate:"max=50"`
	Discount     float64             `json:"discount" validate:"gte=0,lte=100"`
	Status       string              `json:"status" validate:"omitempty,oneof=available booked maintenance inactive"`
	images       []models.Image
}

func (req propertyRequest) toProperty() *models.Property {
	rules := models.DefaultRules()
	if req.Rules != nil {
		rules = *req.Rules
	}
	p := &models.Property{
		Name:        req.Name,
		Type:        req.Type,
		Price:       req.Price,
		Location:    req.Location,
		Coordinates: req.Coordinates,
		Description: req.Description,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		MaxGuests:   req.MaxGuests,
		Area:        req.Area,
		Amenities:   req.Amenities,
		Images:      req.images,
		Rules:       rules,
		Email:       req.Email,
		Phone:       req.Phone,
		Discount:    req.Discount,
		Status:      req.Status,
		Availability: models.Availability{
			MinimumStay: models.MinimumStayOrDefault(req.MinimumStay),
		},
	}
	if req.StartDate != nil && !req.StartDate.IsZero() {
		start := req.StartDate.Time
		p.Availability.StartDate = &start
	}
	if req.EndDate != nil && !req.EndDate.IsZero() {
		end := req.EndDate.Time
		p.Availability.EndDate = &end
	}
	return p
}

type availabilityRequest struct {
	StartDate   *Date `json:"startDate"`
	EndDate     *Date `json:"endDate"`
	MinimumStay *int  `json:"minimumStay"`
}

// patchRequest is the JSON body of a property update. The window dates take
// the same formats as on create.
type patchRequest struct {
	models.PropertyPatch
	Availability *availabilityRequest `json:"availability"`
}

func (req patchRequest) toPatch() models.PropertyPatch {
	patch := req.PropertyPatch
	if a := req.Availability; a != nil {
		patch.Availability = availabilityPatch(a.StartDate, a.EndDate, a.MinimumStay)
	}
	return patch
}

// availabilityPatch returns nil when none of the window fields is set.
func availabilityPatch(start, end *Date, minimumStay *int) *models.AvailabilityPatch {
	var patch models.AvailabilityPatch
	if start != nil && !start.IsZero() {
		t := start.Time
		patch.StartDate = &t
	}
	if end != nil && !end.IsZero() {
		t := end.Time
		patch.EndDate = &t
	}
	patch.MinimumStay = minimumStay
	if patch.StartDate == nil && patch.EndDate == nil && patch.MinimumStay == nil {
		return nil
	}
	return &patch
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrValidation, fmt.Sprintf(format, args...))
}

// decodeJSON reads the body into dst and runs the struct validator on it.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return validationErr("request body is required")
		}
		return validationErr("invalid JSON body: %v", err)
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return validationErr("%v", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return validationErr("%s", strings.Join(fields, "; "))
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// formValue returns the trimmed value of a multipart field.
func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

func formFloat(form *multipart.Form, key string) (*float64, error) {
	raw, ok := formValue(form, key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, validationErr("%s must be a number", key)
	}
	return &v, nil
}

func formInt(form *multipart.Form, key string) (*int, error) {
	raw, ok := formValue(form, key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, validationErr("%s must be an integer", key)
	}
	return &v, nil
}

func formString(form *multipart.Form, key string) *string {
	raw, ok := formValue(form, key)
	if !ok {
		return nil
	}
	return &raw
}

// formAmenities parses the amenities field, a JSON array encoded as a string.
func formAmenities(form *multipart.Form) (*[]string, error) {
	raw, ok := formValue(form, "amenities")
	if !ok || raw == "" {
		return nil, nil
	}
	var amenities []string
	if err := json.Unmarshal([]byte(raw), &amenities); err != nil {
		return nil, validationErr("invalid amenities format")
	}
	return &amenities, nil
}

// formJSON decodes a field holding a JSON document into dst. It reports
// whether the field was present.
func formJSON(form *multipart.Form, key string, dst any) (bool, error) {
	raw, ok := formValue(form, key)
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, validationErr("invalid %s format", key)
	}
	return true, nil
}

func formDate(form *multipart.Form, key string) (*Date, error) {
	raw, _ := formValue(form, key)
	if raw == "" {
		return nil, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return nil, validationErr("%v", err)
	}
	return &Date{Time: t}, nil
}

// readImages loads the uploaded files of a form field.
func readImages(form *multipart.Form, field string) ([]models.Image, error) {
	headers := form.File[field]
	if len(headers) > models.MaxImages {
		return nil, validationErr("maximum %d images allowed", models.MaxImages)
	}

	images := make([]models.Image, 0, len(headers))
	for _, fh := range headers {
		contentType := fh.Header.Get("Content-Type")
		if !models.IsImageContentType(contentType) {
			return nil, validationErr("unsupported media type %q for %s", contentType, fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
		}
		images = append(images, models.Image{Data: data, ContentType: contentType})
	}
	return images, nil
}

// patchFromForm builds a partial update out of multipart fields. A single
// uploaded "image" replaces the gallery.
func patchFromForm(form *multipart.Form) (models.PropertyPatch, error) {
	var (
		patch models.PropertyPatch
		err   error
	)
	patch.Name = formString(form, "name")
	patch.Type = formString(form, "type")
	patch.Location = formString(form, "location")
	patch.Description = formString(form, "description")
	patch.Email = formString(form, "email")
	patch.Phone = formString(form, "phone")
	patch.Status = formString(form, "status")

	if patch.Price, err = formFloat(form, "price"); err != nil {
		return patch, err
	}
	if patch.Discount, err = formFloat(form, "discount"); err != nil {
		return patch, err
	}
	if patch.Area, err = formFloat(form, "area"); err != nil {
		return patch, err
	}
	if patch.Bedrooms, err = formInt(form, "bedrooms"); err != nil {
		return patch, err
	}
	if patch.Bathrooms, err = formInt(form, "bathrooms"); err != nil {
		return patch, err
	}
	if patch.MaxGuests, err = formInt(form, "maxGuests"); err != nil {
		return patch, err
	}
	if patch.Amenities, err = formAmenities(form); err != nil {
		return patch, err
	}

	var rules models.Rules
	if ok, err := formJSON(form, "rules", &rules); err != nil {
		return patch, err
	} else if ok {
		patch.Rules = &rules
	}
	var coordinates models.Coordinates
	if ok, err := formJSON(form, "coordinates", &coordinates); err != nil {
		return patch, err
	} else if ok {
		patch.Coordinates = &coordinates
	}

	start, err := formDate(form, "startDate")
	if err != nil {
		return patch, err
	}
	end, err := formDate(form, "endDate")
	if err != nil {
		return patch, err
	}
	minimumStay, err := formInt(form, "minimumStay")
	if err != nil {
		return patch, err
	}
	patch.Availability = availabilityPatch(start, end, minimumStay)

	if len(form.File["image"]) > 0 {
		images, err := readImages(form, "image")
		if err != nil {
			return patch, err
		}
		patch.Images = &images
	}
	return patch, nil
}

// propertyFromForm fills a create request out of multipart fields.
func propertyFromForm(form *multipart.Form) (propertyRequest, error) {
	req := propertyRequest{}
	req.Name, _ = formValue(form, "name")
	req.Type, _ = formValue(form, "type")
	req.Location, _ = formValue(form, "location")
	req.Description, _ = formValue(form, "description")
	req.Email, _ = formValue(form, "email")
	req.Phone, _ = formValue(form, "phone")
	req.Status, _ = formValue(form, "status")

	floats := map[string]*float64{"price": &req.Price, "discount": &req.Discount, "area": &req.Area}
	for key, dst := range floats {
		v, err := formFloat(form, key)
		if err != nil {
			return req, err
		}
		if v != nil {
			*dst = *v
		}
	}
	ints := map[string]*int{"bedrooms": &req.Bedrooms, "bathrooms": &req.Bathrooms, "maxGuests": &req.MaxGuests}
	for key, dst := range ints {
		v, err := formInt(form, key)
		if err != nil {
			return req, err
		}
		if v != nil {
			*dst = *v
		}
	}

	amenities, err := formAmenities(form)
	if err != nil {
		return req, err
	}
	if amenities != nil {
		req.Amenities = *amenities
	}

	if req.MinimumStay, err = formInt(form, "minimumStay"); err != nil {
		return req, err
	}
	if req.StartDate, err = formDate(form, "startDate"); err != nil {
		return req, err
	}
	if req.EndDate, err = formDate(form, "endDate"); err != nil {
		return req, err
	}

	var rules models.Rules
	if ok, err := formJSON(form, "rules", &rules); err != nil {
		return req, err
	} else if ok {
		req.Rules = &rules
	}
	if _, err := formJSON(form, "coordinates", &req.Coordinates); err != nil {
		return req, err
	}

	if req.images, err = readImages(form, "images"); err != nil {
		return req, err
	}
	return req, nil
}
