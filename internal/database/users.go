package database

import (
	"context"
	"fmt"
	"time"

	"rentals/internal/models"
)

// UpsertUser создает или обновляет отображаемые данные пользователя
func (db *DB) UpsertUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	query := `
        INSERT INTO users (id, name, email, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = CASE WHEN excluded.name != '' THEN excluded.name ELSE name END,
            email = CASE WHEN excluded.email != '' THEN excluded.email ELSE email END,
            updated_at = excluded.updated_at
    `
	if _, err := db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (db *DB) GetUsersByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	users := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	placeholders, args := inClause(ids)
	rows, err := db.QueryContext(ctx, `SELECT id, name, email, updated_at FROM users WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}

// Favorites

func (db *DB) AddFavorite(ctx context.Context, favorite *models.Favorite) error {
	if favorite.CreatedAt.IsZero() {
		favorite.CreatedAt = time.Now().UTC()
	}
	query := `INSERT OR IGNORE INTO favorites (user_id, property_id, created_at) VALUES (?, ?, ?)`
	if _, err := db.ExecContext(ctx, query, favorite.UserID, favorite.PropertyID, favorite.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite reports whether a favorite existed and was removed.
func (db *DB) RemoveFavorite(ctx context.Context, userID, propertyID string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND property_id = ?`, userID, propertyID)
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (db *DB) GetFavoritePropertyIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT property_id FROM favorites WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
