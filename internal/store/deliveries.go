package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// Delivery statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// AttemptRecord is one entry in a delivery's attempt log.
type AttemptRecord struct {
	Attempt int       `json:"attempt"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// RecordDeliveryParams is the final outcome of one dispatch.
type RecordDeliveryParams struct {
	Destination   string
	SenderName    string
	RecipientName string
	DeliveryID    string // provider message sid; empty on failure
	Status        string // StatusSent | StatusFailed
	ErrorMessage  string
	Attempts      []AttemptRecord
}

// Delivery is a row of sms_deliveries.
type Delivery struct {
	ID            uuid.UUID
	Destination   string
	SenderName    sql.NullString
	RecipientName sql.NullString
	DeliveryID    sql.NullString
	Status        string
	ErrorMessage  sql.NullString
	Attempts      int
	AttemptLog    pqtype.NullRawMessage
	CreatedAt     time.Time
}

// ─── METHODS ─────────────────────────────────────────────────────────────────

const insertDelivery = `INSERT INTO sms_deliveries
    (id, destination, sender_name, recipient_name, delivery_id, status, error_message, attempts, attempt_log)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at`

// RecordDelivery writes the outcome of a dispatch. Called by the worker once
// per notification, after the last attempt.
func (s *Store) RecordDelivery(ctx context.Context, p RecordDeliveryParams) (Delivery, error) {
	var attemptLog pqtype.NullRawMessage
	if len(p.Attempts) > 0 {
		raw, err := json.Marshal(p.Attempts)
		if err != nil {
			return Delivery{}, fmt.Errorf("RecordDelivery: marshal attempt log: %w", err)
		}
		attemptLog = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	d := Delivery{
		ID:            uuid.New(),
		Destination:   p.Destination,
		SenderName:    nullString(p.SenderName),
		RecipientName: nullString(p.RecipientName),
		DeliveryID:    nullString(p.DeliveryID),
		Status:        p.Status,
		ErrorMessage:  nullString(p.ErrorMessage),
		Attempts:      max(len(p.Attempts), 1),
		AttemptLog:    attemptLog,
	}

	err := s.pool.QueryRowContext(ctx, insertDelivery,
		d.ID, d.Destination, d.SenderName, d.RecipientName, d.DeliveryID,
		d.Status, d.ErrorMessage, d.Attempts, d.AttemptLog,
	).Scan(&d.CreatedAt)
	if err != nil {
		return Delivery{}, fmt.Errorf("RecordDelivery: %w", err)
	}
	return d, nil
}

const selectDeliveries = `SELECT id, destination, sender_name, recipient_name, delivery_id,
    status, error_message, attempts, attempt_log, created_at
FROM sms_deliveries
WHERE destination = $1
ORDER BY created_at DESC
LIMIT $2`

// ListDeliveries returns the most recent deliveries to destination.
func (s *Store) ListDeliveries(ctx context.Context, destination string, limit int) ([]Delivery, error) {
	rows, err := s.pool.QueryContext(ctx, selectDeliveries, destination, limit)
	if err != nil {
		return nil, fmt.Errorf("ListDeliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(
			&d.ID, &d.Destination, &d.SenderName, &d.RecipientName, &d.DeliveryID,
			&d.Status, &d.ErrorMessage, &d.Attempts, &d.AttemptLog, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ListDeliveries: scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListDeliveries: %w", err)
	}
	return out, nil
}

// nullString converts a Go string to sql.NullString. Empty string → NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
