package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"rentals/internal/models"

	"github.com/google/uuid"
)

const propertyColumns = `doc, version`

func (db *DB) CreateProperty(ctx context.Context, property *models.Property) error {
	if property.ID == "" {
		property.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if property.CreatedAt.IsZero() {
		property.CreatedAt = now
	}
	property.UpdatedAt = now
	property.Version = 1

	doc, err := json.Marshal(property)
	if err != nil {
		return fmt.Errorf("failed to encode property: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO properties (id, doc, email_lc, location_lc, type_lc, version, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		property.ID,
		string(doc),
		strings.ToLower(property.Email),
		strings.ToLower(property.Location),
		strings.ToLower(property.Type),
		property.Version,
		property.CreatedAt.UTC(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: property %s already exists", models.ErrConflict, property.ID)
		}
		return fmt.Errorf("failed to create property: %w", err)
	}

	if err := writeChildren(ctx, tx, property); err != nil {
		return err
	}

	return tx.Commit()
}

// GetProperty returns the full document including image bytes.
func (db *DB) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	row := db.QueryRowContext(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
	property, err := scanProperty(row)
	if err != nil {
		return nil, notFound(err, models.ErrPropertyNotFound)
	}

	if err := db.loadImages(ctx, property); err != nil {
		return nil, err
	}
	return property, nil
}

func (db *DB) GetPropertyByReviewID(ctx context.Context, reviewID string) (*models.Property, error) {
	var propertyID string
	err := db.QueryRowContext(ctx, `SELECT property_id FROM property_reviews WHERE review_id = ?`, reviewID).Scan(&propertyID)
	if err != nil {
		return nil, notFound(err, models.ErrReviewNotFound)
	}
	return db.GetProperty(ctx, propertyID)
}

// ReplaceProperty overwrites the document when the stored version matches
// property.Version. Images are rewritten from property.Images, so callers must
// pass a document obtained from GetProperty.
func (db *DB) ReplaceProperty(ctx context.Context, property *models.Property) error {
	property.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(property)
	if err != nil {
		return fmt.Errorf("failed to encode property: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `UPDATE properties
              SET doc = ?, email_lc = ?, location_lc = ?, type_lc = ?, version = version + 1
              WHERE id = ? AND version = ?`
	result, err := tx.ExecContext(ctx, query,
		string(doc),
		strings.ToLower(property.Email),
		strings.ToLower(property.Location),
		strings.ToLower(property.Type),
		property.ID,
		property.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to replace property: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM properties WHERE id = ?`, property.ID).Scan(&exists)
		if err != nil {
			return notFound(err, models.ErrPropertyNotFound)
		}
		return models.ErrVersionConflict
	}

	if err := deleteChildren(ctx, tx, property.ID); err != nil {
		return err
	}
	if err := writeChildren(ctx, tx, property); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit property: %w", err)
	}
	property.Version++
	return nil
}

// DeleteProperty removes the property with its images, review index and
// favorites. Bookings are kept as history.
func (db *DB) DeleteProperty(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM properties WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return models.ErrPropertyNotFound
	}

	if err := deleteChildren(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE property_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete favorites: %w", err)
	}

	return tx.Commit()
}

// SearchProperties matches location as a case-insensitive substring and type
// case-insensitively. Image bytes are not loaded.
func (db *DB) SearchProperties(ctx context.Context, filter models.PropertyFilter) ([]*models.Property, error) {
	filter = filter.Normalize()

	var (
		conditions []string
		args       []interface{}
	)
	if filter.Location != "" {
		conditions = append(conditions, `instr(location_lc, ?) > 0`)
		args = append(args, strings.ToLower(filter.Location))
	}
	if filter.Type != "" {
		conditions = append(conditions, `type_lc = ?`)
		args = append(args, strings.ToLower(filter.Type))
	}

	query := `SELECT ` + propertyColumns + ` FROM properties`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY created_at DESC`

	return db.queryProperties(ctx, query, args...)
}

func (db *DB) GetPropertiesByIDs(ctx context.Context, ids []string) ([]*models.Property, error) {
	if len(ids) == 0 {
		return []*models.Property{}, nil
	}
	placeholders, args := inClause(ids)
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id IN (` + placeholders + `)`

	properties, err := db.queryProperties(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	// Сохраняем порядок входных идентификаторов
	byID := make(map[string]*models.Property, len(properties))
	for _, p := range properties {
		byID[p.ID] = p
	}
	ordered := make([]*models.Property, 0, len(properties))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
			delete(byID, id)
		}
	}
	return ordered, nil
}

func (db *DB) GetPropertiesByEmail(ctx context.Context, email string) ([]*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE email_lc = ? ORDER BY created_at DESC`
	return db.queryProperties(ctx, query, strings.ToLower(strings.TrimSpace(email)))
}

func (db *DB) GetPropertySummaries(ctx context.Context, ids []string) (map[string]models.PropertySummary, error) {
	summaries := make(map[string]models.PropertySummary, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	placeholders, args := inClause(ids)
	query := `SELECT id,
                     json_extract(doc, '$.name'),
                     json_extract(doc, '$.location'),
                     json_extract(doc, '$.email'),
                     COALESCE(json_extract(doc, '$.owner'), '')
              FROM properties WHERE id IN (` + placeholders + `)`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query property summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.PropertySummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Location, &s.Email, &s.Owner); err != nil {
			return nil, err
		}
		summaries[s.ID] = s
	}
	return summaries, rows.Err()
}

func (db *DB) CountProperties(ctx context.Context) (int64, error) {
	var count int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count properties: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProperty(row rowScanner) (*models.Property, error) {
	var (
		doc     string
		version int64
	)
	if err := row.Scan(&doc, &version); err != nil {
		return nil, err
	}

	var property models.Property
	if err := json.Unmarshal([]byte(doc), &property); err != nil {
		return nil, fmt.Errorf("failed to decode property: %w", err)
	}
	property.Version = version
	if property.Reviews == nil {
		property.Reviews = []models.Review{}
	}
	return &property, nil
}

func (db *DB) queryProperties(ctx context.Context, query string, args ...interface{}) ([]*models.Property, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	properties := []*models.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

func (db *DB) loadImages(ctx context.Context, property *models.Property) error {
	rows, err := db.QueryContext(ctx,
		`SELECT content_type, data FROM property_images WHERE property_id = ? ORDER BY idx`, property.ID)
	if err != nil {
		return fmt.Errorf("failed to load images: %w", err)
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.ContentType, &img.Data); err != nil {
			return err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	property.Images = images
	return nil
}

func writeChildren(ctx context.Context, tx *sql.Tx, property *models.Property) error {
	for i, img := range property.Images {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO property_images (property_id, idx, content_type, data) VALUES (?, ?, ?, ?)`,
			property.ID, i, img.ContentType, img.Data)
		if err != nil {
			return fmt.Errorf("failed to store image %d: %w", i, err)
		}
	}
	for _, r := range property.Reviews {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO property_reviews (review_id, property_id) VALUES (?, ?)`, r.ID, property.ID)
		if err != nil {
			return fmt.Errorf("failed to index review %s: %w", r.ID, err)
		}
	}
	return nil
}

func deleteChildren(ctx context.Context, tx *sql.Tx, propertyID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM property_images WHERE property_id = ?`, propertyID); err != nil {
		return fmt.Errorf("failed to delete images: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM property_reviews WHERE property_id = ?`, propertyID); err != nil {
		return fmt.Errorf("failed to delete review index: %w", err)
	}
	return nil
}
