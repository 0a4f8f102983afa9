package reservations

import (
	"time"

	"github.com/shopspring/decimal"

	"example.com/booking-portal/internal/booking"
)

// Record is one stored booking. The flat row is turned back into the
// kind-specific nested shape when served.
type Record struct {
	ID        int64           `json:"id"`
	Kind      booking.Kind    `json:"kind"`
	Title     string          `json:"title"`
	Image     string          `json:"image,omitempty"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	Day       string          `json:"day,omitempty"`
	TimeFrom  string          `json:"time_from,omitempty"`
	TimeTo    string          `json:"time_to,omitempty"`
	StartDate string          `json:"start_date,omitempty"`
	EndDate   string          `json:"end_date,omitempty"`
	Quantity  int64           `json:"quantity"`
	Paid      bool            `json:"paid"`
	Confirmed bool            `json:"confirmed"`
	Customer  booking.Contact `json:"customer"`
	QRCode    string          `json:"qr_code,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Raw renders the record in the backend's wire shape for its kind.
func (r Record) Raw() booking.RawBooking {
	price := r.Price
	product := &booking.Product{Title: r.Title, Image: r.Image, Unit: r.Unit}
	created := r.CreatedAt
	customer := r.Customer
	raw := booking.RawBooking{
		ID:        r.ID,
		Quantity:  r.Quantity,
		Paid:      r.Paid,
		Confirmed: r.Confirmed,
		Customer:  &booking.Customer{User: &customer},
		QRCode:    r.QRCode,
		CreatedAt: &created,
	}
	switch r.Kind {
	case booking.KindActivity:
		raw.Period = &booking.Period{
			Day:           r.Day,
			TimeFrom:      r.TimeFrom,
			TimeTo:        r.TimeTo,
			ActivityOffer: &booking.ActivityOffer{Price: &price, Activity: product},
		}
	case booking.KindTour:
		raw.TourDay = &booking.TourDay{
			Day:       r.Day,
			TimeFrom:  r.TimeFrom,
			TimeTo:    r.TimeTo,
			TourOffer: &booking.TourOffer{Price: &price, Tour: product},
		}
	case booking.KindPackage:
		raw.StartDate = r.StartDate
		raw.EndDate = r.EndDate
		raw.PackageOffer = &booking.PackageOffer{Price: &price, Package: product}
	}
	return raw
}
