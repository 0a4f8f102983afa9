package portal

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"example.com/booking-portal/internal/booking"
	"example.com/booking-portal/internal/sqliteutil"
)

var testNow = time.Date(2026, 10, 16, 14, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func tourBooking(id int64, day string, paid, confirmed bool) booking.RawBooking {
	return booking.RawBooking{
		ID: id, Quantity: 2, Paid: paid, Confirmed: confirmed,
		TourDay: &booking.TourDay{Day: day, TimeFrom: "09:00:00", TimeTo: "11:00:00",
			TourOffer: &booking.TourOffer{Price: price("15.00"), Tour: &booking.Product{Title: "Walk", Unit: "person"}}},
	}
}

func activityBooking(id int64, day string, paid, confirmed bool) booking.RawBooking {
	return booking.RawBooking{
		ID: id, Quantity: 1, Paid: paid, Confirmed: confirmed,
		Period: &booking.Period{Day: day, TimeFrom: "10:00:00", TimeTo: "12:00:00",
			ActivityOffer: &booking.ActivityOffer{Price: price("20.00"), Activity: &booking.Product{Title: "Kayak", Unit: "seat"}}},
	}
}

func packageBooking(id int64, start, end string, paid, confirmed bool) booking.RawBooking {
	return booking.RawBooking{
		ID: id, Quantity: 1, Paid: paid, Confirmed: confirmed, StartDate: start, EndDate: end,
		PackageOffer: &booking.PackageOffer{Price: price("300.00"), Package: &booking.Product{Title: "Coast", Unit: "room"}},
	}
}

// memBackend is an in-memory reservation backend.
type memBackend struct {
	mu           sync.Mutex
	bookings     map[booking.Kind][]booking.RawBooking
	summary      booking.SummaryStats
	fetchErr     error
	confirmErr   error
	confirmGate  chan struct{}
	confirmed    chan struct{}
	confirmCalls map[booking.Kind]int
	favorites    map[string]bool
}

func newMemBackend() *memBackend {
	return &memBackend{
		bookings:     make(map[booking.Kind][]booking.RawBooking),
		summary:      booking.SummaryStats{TotalSales: decimal.Zero, TodaysCustomers: []booking.CustomerVisit{}},
		confirmCalls: make(map[booking.Kind]int),
		favorites:    make(map[string]bool),
	}
}

func (m *memBackend) add(kind booking.Kind, raws ...booking.RawBooking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[kind] = append(m.bookings[kind], raws...)
}

func (m *memBackend) FetchBookings(_ context.Context, kind booking.Kind, _ booking.Role) ([]booking.RawBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make([]booking.RawBooking, len(m.bookings[kind]))
	copy(out, m.bookings[kind])
	return out, nil
}

func (m *memBackend) FetchSupplierSummary(context.Context) (booking.SummaryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return booking.SummaryStats{}, m.fetchErr
	}
	return m.summary, nil
}

func (m *memBackend) ConfirmActivity(ctx context.Context, id int64) error {
	return m.confirm(ctx, booking.KindActivity, id)
}

func (m *memBackend) ConfirmPackage(ctx context.Context, id int64) error {
	return m.confirm(ctx, booking.KindPackage, id)
}

func (m *memBackend) ConfirmTour(ctx context.Context, id int64) error {
	return m.confirm(ctx, booking.KindTour, id)
}

func (m *memBackend) confirm(ctx context.Context, kind booking.Kind, id int64) error {
	m.mu.Lock()
	m.confirmCalls[kind]++
	gate, started := m.confirmGate, m.confirmed
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.confirmErr != nil {
		return m.confirmErr
	}
	for i := range m.bookings[kind] {
		if m.bookings[kind][i].ID == id {
			m.bookings[kind][i].Confirmed = true
			return nil
		}
	}
	return &RemoteError{Op: "confirm", Status: http.StatusNotFound, Message: "not found"}
}

func (m *memBackend) calls(kind booking.Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmCalls[kind]
}

func (m *memBackend) FavoriteStatus(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.favorites[id], nil
}

func (m *memBackend) AddFavorite(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites[id] = true
	return true, nil
}

func (m *memBackend) RemoveFavorite(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.favorites, id)
	return false, nil
}

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	ctx := context.Background()
	db, err := sqliteutil.Open(ctx, filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ledger := NewLedger(db)
	require.NoError(t, ledger.Init(ctx))
	return ledger
}

// newTestService wires a service over backend with the in-process orchestrator.
func newTestService(t *testing.T, backend *memBackend) (*Service, *Loader) {
	t.Helper()
	logger := discardLogger()
	loader := NewLoader(backend, nil, logger, fixedNow)
	activities := NewConfirmActivities(backend, loader, logger)
	svc := NewService(ServiceConfig{
		Loader:       loader,
		Orchestrator: NewLocalOrchestrator(activities),
		Ledger:       newTestLedger(t),
		Favorites:    backend,
		Logger:       logger,
		Now:          fixedNow,
	})
	return svc, loader
}
