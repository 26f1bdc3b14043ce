package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"harborbook/internal/models"
)

func (db *DB) SaveSession(ctx context.Context, session *models.UserSession) error {
	query := `INSERT INTO sessions (telegram_id, token, role, username, email, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(telegram_id) DO UPDATE SET
                token = excluded.token,
                role = excluded.role,
                username = excluded.username,
                email = excluded.email,
                updated_at = excluded.updated_at`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		session.TelegramID,
		session.Token,
		session.Role,
		session.Username,
		session.Email,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	session.UpdatedAt = now
	return nil
}

func (db *DB) GetSession(ctx context.Context, telegramID int64) (*models.UserSession, error) {
	query := `SELECT telegram_id, token, role, username, email, updated_at
              FROM sessions WHERE telegram_id = ?`
	var s models.UserSession
	err := db.QueryRowContext(ctx, query, telegramID).Scan(
		&s.TelegramID, &s.Token, &s.Role, &s.Username, &s.Email, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

func (db *DB) ClearSession(ctx context.Context, telegramID int64) error {
	query := `DELETE FROM sessions WHERE telegram_id = ?`
	if _, err := db.ExecContext(ctx, query, telegramID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
