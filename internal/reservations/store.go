package reservations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/booking-portal/internal/booking"
)

// ErrAlreadyConfirmed is returned when a package or tour booking is confirmed twice.
var ErrAlreadyConfirmed = errors.New("booking is already confirmed")

// Store contains all reservation-side persistence logic.
type Store struct {
	db *sql.DB
}

// NewStore wires a reservation store backed by SQLite.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init applies schema migrations for the reservation database.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL CHECK (kind IN ('activity', 'package', 'tour')),
			title TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			unit TEXT NOT NULL DEFAULT '',
			price TEXT NOT NULL DEFAULT '0',
			day TEXT NOT NULL DEFAULT '',
			time_from TEXT NOT NULL DEFAULT '',
			time_to TEXT NOT NULL DEFAULT '',
			start_date TEXT NOT NULL DEFAULT '',
			end_date TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			paid INTEGER NOT NULL DEFAULT 0,
			confirmed INTEGER NOT NULL DEFAULT 0,
			customer_username TEXT,
			customer_email TEXT,
			customer_phone TEXT,
			qr_code TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_kind ON bookings(kind, id);`,
		`CREATE TABLE IF NOT EXISTS favorites (
			resource_id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply reservations schema: %w", err)
		}
	}
	return nil
}

// CreateBooking inserts a booking and returns it with its assigned id.
func (s *Store) CreateBooking(ctx context.Context, rec Record) (Record, error) {
	if _, err := booking.ParseKind(string(rec.Kind)); err != nil {
		return Record{}, err
	}
	if rec.Quantity < 1 {
		return Record{}, errors.New("quantity must be positive")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bookings(kind, title, image, unit, price, day, time_from, time_to, start_date, end_date,
			quantity, paid, confirmed, customer_username, customer_email, customer_phone, qr_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.Kind), rec.Title, rec.Image, rec.Unit, rec.Price.String(),
		rec.Day, rec.TimeFrom, rec.TimeTo, rec.StartDate, rec.EndDate,
		rec.Quantity, rec.Paid, rec.Confirmed,
		nullString(rec.Customer.Username), nullString(rec.Customer.Email), nullString(rec.Customer.Phone),
		rec.QRCode, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, fmt.Errorf("insert booking id: %w", err)
	}
	rec.ID = id
	return rec, nil
}

const recordColumns = `id, kind, title, image, unit, price, day, time_from, time_to, start_date, end_date,
	quantity, paid, confirmed, customer_username, customer_email, customer_phone, qr_code, created_at`

// ListBookings returns every booking of kind in insertion order.
func (s *Store) ListBookings(ctx context.Context, kind booking.Kind) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM bookings WHERE kind = ? ORDER BY id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter bookings: %w", err)
	}
	return records, nil
}

// GetBooking fetches one booking of kind. Returns sql.ErrNoRows when absent.
func (s *Store) GetBooking(ctx context.Context, kind booking.Kind, id int64) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM bookings WHERE kind = ? AND id = ?`, string(kind), id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, sql.ErrNoRows
		}
		return Record{}, err
	}
	return rec, nil
}

// Confirm marks a booking confirmed and issues its QR code. Activity
// bookings may be confirmed again; package and tour bookings answer
// ErrAlreadyConfirmed.
func (s *Store) Confirm(ctx context.Context, kind booking.Kind, id int64) (Record, error) {
	rec, err := s.GetBooking(ctx, kind, id)
	if err != nil {
		return Record{}, err
	}
	if rec.Confirmed && kind != booking.KindActivity {
		return Record{}, ErrAlreadyConfirmed
	}
	qr := fmt.Sprintf("/media/qr_codes/%s-%d-%s.png", kind, id, uuid.NewString()[:8])
	if _, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET confirmed = 1, qr_code = ? WHERE kind = ? AND id = ?`, qr, string(kind), id); err != nil {
		return Record{}, fmt.Errorf("confirm booking: %w", err)
	}
	rec.Confirmed = true
	rec.QRCode = qr
	return rec, nil
}

// IsFavorite reports whether resourceID is in the favorites set.
func (s *Store) IsFavorite(ctx context.Context, resourceID string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites WHERE resource_id = ?`, resourceID).Scan(&n); err != nil {
		return false, fmt.Errorf("favorite status: %w", err)
	}
	return n > 0, nil
}

// AddFavorite is idempotent.
func (s *Store) AddFavorite(ctx context.Context, resourceID string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites(resource_id, created_at) VALUES (?, ?) ON CONFLICT(resource_id) DO NOTHING`,
		resourceID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite is idempotent.
func (s *Store) RemoveFavorite(ctx context.Context, resourceID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE resource_id = ?`, resourceID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec                    Record
		kind, price            string
		username, email, phone sql.NullString
	)
	if err := row.Scan(
		&rec.ID, &kind, &rec.Title, &rec.Image, &rec.Unit, &price,
		&rec.Day, &rec.TimeFrom, &rec.TimeTo, &rec.StartDate, &rec.EndDate,
		&rec.Quantity, &rec.Paid, &rec.Confirmed,
		&username, &email, &phone, &rec.QRCode, &rec.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan booking: %w", err)
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Record{}, fmt.Errorf("decode price of booking %d: %w", rec.ID, err)
	}
	rec.Kind = booking.Kind(kind)
	rec.Price = p
	rec.Customer = booking.Contact{
		Username: stringOrNil(username),
		Email:    stringOrNil(email),
		Phone:    stringOrNil(phone),
	}
	return rec, nil
}

func nullString(v *string) any {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return *v
}

func stringOrNil(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
