package database

import (
	"context"
	"fmt"
	"time"

	"harborbook/internal/models"
)

func (db *DB) AppendOutcome(ctx context.Context, record *models.OutcomeRecord) error {
	query := `INSERT INTO outcomes (booking_id, result, amount, message, created_at)
              VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		record.BookingID,
		record.Result,
		record.Amount,
		record.Message,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to append outcome: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	record.CreatedAt = now

	return nil
}

func (db *DB) ListOutcomes(ctx context.Context, since time.Time) ([]models.OutcomeRecord, error) {
	query := `SELECT id, booking_id, result, amount, message, created_at
              FROM outcomes WHERE created_at >= ? ORDER BY created_at ASC`
	rows, err := db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var records []models.OutcomeRecord
	for rows.Next() {
		var r models.OutcomeRecord
		err := rows.Scan(&r.ID, &r.BookingID, &r.Result, &r.Amount, &r.Message, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

func (db *DB) GetOutcome(ctx context.Context, id int64) (*models.OutcomeRecord, error) {
	query := `SELECT id, booking_id, result, amount, message, created_at
              FROM outcomes WHERE id = ?`
	var r models.OutcomeRecord
	err := db.QueryRowContext(ctx, query, id).Scan(
		&r.ID, &r.BookingID, &r.Result, &r.Amount, &r.Message, &r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}
	return &r, nil
}
