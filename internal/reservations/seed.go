package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"example.com/booking-portal/internal/booking"
)

// Seed inserts a small catalogue of bookings spread around now so every
// lifecycle bucket has something in it. It does nothing when bookings exist.
func (s *Store) Seed(ctx context.Context, now time.Time) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	day := func(offset int) string {
		return now.AddDate(0, 0, offset).Format("2006-01-02")
	}
	name := func(v string) *string { return &v }

	records := []Record{
		{
			Kind: booking.KindActivity, Title: "Sunset kayak", Image: "activities/kayak.jpg", Unit: "seat",
			Price: decimal.RequireFromString("35.00"), Day: day(2), TimeFrom: "17:00:00", TimeTo: "19:00:00",
			Quantity: 2, Customer: booking.Contact{Username: name("mira"), Email: name("mira@example.com")},
		},
		{
			Kind: booking.KindActivity, Title: "Pottery class", Image: "activities/pottery.jpg", Unit: "person",
			Price: decimal.RequireFromString("20.00"), Day: day(0), TimeFrom: "10:00:00", TimeTo: "12:00:00",
			Quantity: 1, Paid: true, Customer: booking.Contact{Username: name("jon"), Phone: name("+15550100")},
		},
		{
			Kind: booking.KindPackage, Title: "Desert week", Image: "packages/desert.png", Unit: "group",
			Price: decimal.RequireFromString("480.00"), StartDate: day(-400), EndDate: day(-394),
			Quantity: 1, Paid: true, Confirmed: true, Customer: booking.Contact{Username: name("ana")},
		},
		{
			Kind: booking.KindPackage, Title: "Coast weekend", Image: "packages/coast.png", Unit: "room",
			Price: decimal.RequireFromString("210.00"), StartDate: day(5), EndDate: day(7),
			Quantity: 2, Customer: booking.Contact{Username: name("lee")},
		},
		{
			Kind: booking.KindTour, Title: "Old town walk", Image: "tours/oldtown.jpg", Unit: "person",
			Price: decimal.RequireFromString("15.00"), Day: day(-300), TimeFrom: "09:00:00", TimeTo: "12:00:00",
			Quantity: 3, Customer: booking.Contact{Username: name("bo")},
		},
		{
			Kind: booking.KindTour, Title: "Harbour cruise", Image: "tours/harbour.jpg", Unit: "person",
			Price: decimal.RequireFromString("42.00"), Day: day(0), TimeFrom: "15:00:00", TimeTo: "17:00:00",
			Quantity: 2, Paid: true, Customer: booking.Contact{Username: name("cy")},
		},
	}
	for _, rec := range records {
		rec.CreatedAt = now.Add(-48 * time.Hour).UTC()
		if _, err := s.CreateBooking(ctx, rec); err != nil {
			return 0, fmt.Errorf("seed %s booking: %w", rec.Kind, err)
		}
	}
	return len(records), nil
}
