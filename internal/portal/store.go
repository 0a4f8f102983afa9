package portal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/booking-portal/internal/booking"
)

// ConfirmStatus is the state of one confirm attempt.
type ConfirmStatus string

const (
	StatusPending   ConfirmStatus = "pending"
	StatusSucceeded ConfirmStatus = "succeeded"
	StatusFailed    ConfirmStatus = "failed"
)

// Confirmation is one recorded confirm attempt.
type Confirmation struct {
	ID         string        `json:"id"`
	Kind       booking.Kind  `json:"kind"`
	BookingID  int64         `json:"booking_id"`
	Status     ConfirmStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
	WorkflowID string        `json:"workflow_id,omitempty"`
	RunID      string        `json:"run_id,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Ledger is the append-mostly audit trail of confirm attempts. Booking data
// itself is never stored here.
type Ledger struct {
	db *sql.DB
}

// NewLedger wires a ledger backed by SQLite.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Init applies the ledger schema.
func (l *Ledger) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS confirmations (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			booking_id INTEGER NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending', 'succeeded', 'failed')),
			error TEXT NOT NULL DEFAULT '',
			workflow_id TEXT NOT NULL DEFAULT '',
			run_id TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_confirmations_started ON confirmations(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_confirmations_booking ON confirmations(kind, booking_id);`,
	}
	for _, stmt := range stmts {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply ledger schema: %w", err)
		}
	}
	return nil
}

// Begin records a pending attempt.
func (l *Ledger) Begin(ctx context.Context, kind booking.Kind, bookingID int64, at time.Time) (Confirmation, error) {
	c := Confirmation{
		ID:        uuid.NewString(),
		Kind:      kind,
		BookingID: bookingID,
		Status:    StatusPending,
		StartedAt: at.UTC(),
	}
	if _, err := l.db.ExecContext(ctx,
		`INSERT INTO confirmations(id, kind, booking_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, string(c.Kind), c.BookingID, string(c.Status), c.StartedAt,
	); err != nil {
		return Confirmation{}, fmt.Errorf("insert confirmation: %w", err)
	}
	return c, nil
}

// Finish moves a pending attempt to its final status.
func (l *Ledger) Finish(ctx context.Context, c Confirmation, at time.Time) (Confirmation, error) {
	if c.Status == StatusPending {
		return Confirmation{}, errors.New("finish confirmation: final status required")
	}
	finished := at.UTC()
	res, err := l.db.ExecContext(ctx,
		`UPDATE confirmations SET status = ?, error = ?, workflow_id = ?, run_id = ?, finished_at = ?
		 WHERE id = ? AND status = ?`,
		string(c.Status), c.Error, c.WorkflowID, c.RunID, finished, c.ID, string(StatusPending),
	)
	if err != nil {
		return Confirmation{}, fmt.Errorf("update confirmation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Confirmation{}, fmt.Errorf("finish confirmation %s: %w", c.ID, sql.ErrNoRows)
	}
	c.FinishedAt = &finished
	return c, nil
}

// List returns the most recent attempts first.
func (l *Ledger) List(ctx context.Context, limit int) ([]Confirmation, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, kind, booking_id, status, error, workflow_id, run_id, started_at, finished_at
		 FROM confirmations ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list confirmations: %w", err)
	}
	defer rows.Close()

	out := []Confirmation{}
	for rows.Next() {
		var (
			c        Confirmation
			kind     string
			status   string
			finished sql.NullTime
		)
		if err := rows.Scan(&c.ID, &kind, &c.BookingID, &status, &c.Error, &c.WorkflowID, &c.RunID, &c.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan confirmation: %w", err)
		}
		c.Kind = booking.Kind(kind)
		c.Status = ConfirmStatus(status)
		if finished.Valid {
			t := finished.Time
			c.FinishedAt = &t
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter confirmations: %w", err)
	}
	return out, nil
}
