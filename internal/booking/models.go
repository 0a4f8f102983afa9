package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the product type a booking was made against.
type Kind string

const (
	KindActivity Kind = "activity"
	KindPackage  Kind = "package"
	KindTour     Kind = "tour"
)

// Kinds lists every kind in merge order.
var Kinds = []Kind{KindActivity, KindPackage, KindTour}

// Role selects which side of the backend a collection is fetched for.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupplier Role = "supplier"
)

var (
	ErrUnknownKind      = errors.New("unknown booking kind")
	ErrUnknownRole      = errors.New("unknown role")
	ErrUnknownCriterion = errors.New("unknown filter criterion")
)

// ParseKind validates a kind coming from outside the process.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(raw); k {
	case KindActivity, KindPackage, KindTour:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// ParseRole validates a role coming from outside the process.
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleCustomer, RoleSupplier:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// Product is the titled, priced thing an offer belongs to.
type Product struct {
	Title string `json:"title,omitempty"`
	Image string `json:"image,omitempty"`
	Unit  string `json:"unit,omitempty"`
}

type ActivityOffer struct {
	Price    *decimal.Decimal `json:"price,omitempty"`
	Activity *Product         `json:"activity,omitempty"`
}

// Period is the activity time slot a booking holds.
type Period struct {
	Day           string         `json:"day,omitempty"`
	TimeFrom      string         `json:"time_from,omitempty"`
	TimeTo        string         `json:"time_to,omitempty"`
	ActivityOffer *ActivityOffer `json:"activity_offer,omitempty"`
}

type TourOffer struct {
	Price *decimal.Decimal `json:"price,omitempty"`
	Tour  *Product         `json:"tour,omitempty"`
}

// TourDay is the tour departure a booking holds.
type TourDay struct {
	Day       string     `json:"day,omitempty"`
	TimeFrom  string     `json:"time_from,omitempty"`
	TimeTo    string     `json:"time_to,omitempty"`
	TourOffer *TourOffer `json:"tour_offer,omitempty"`
}

type PackageOffer struct {
	Price   *decimal.Decimal `json:"price,omitempty"`
	Package *Product         `json:"package,omitempty"`
}

// Contact is the customer's user record as exposed to suppliers.
type Contact struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
}

type Customer struct {
	User *Contact `json:"user,omitempty"`
}

// RawBooking is a booking exactly as the backend serializes it. Activity
// bookings carry a period, tour bookings a tourday, package bookings a
// package_offer with start/end dates.
type RawBooking struct {
	ID           int64         `json:"id"`
	Quantity     int64         `json:"quantity"`
	Paid         bool          `json:"paid"`
	Confirmed    bool          `json:"confirmed"`
	Period       *Period       `json:"period,omitempty"`
	TourDay      *TourDay      `json:"tourday,omitempty"`
	StartDate    string        `json:"start_date,omitempty"`
	EndDate      string        `json:"end_date,omitempty"`
	PackageOffer *PackageOffer `json:"package_offer,omitempty"`
	Customer     *Customer     `json:"customer,omitempty"`
	QRCode       string        `json:"qr_code,omitempty"`
	CreatedAt    *time.Time    `json:"created_at,omitempty"`
}

// View is the canonical, read-only shape every booking is normalized into.
type View struct {
	ID           int64           `json:"id"`
	Kind         Kind            `json:"kind"`
	Title        string          `json:"title"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int64           `json:"quantity"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Day          string          `json:"day,omitempty"`
	StartTime    string          `json:"start_time,omitempty"`
	EndTime      string          `json:"end_time,omitempty"`
	ReferenceDay string          `json:"reference_day,omitempty"`
	Paid         bool            `json:"paid"`
	Confirmed    bool            `json:"confirmed"`
	ImageRef     string          `json:"image_ref,omitempty"`
	QRCode       string          `json:"qr_code,omitempty"`
	Customer     *Contact        `json:"customer,omitempty"`
	CreatedAt    *time.Time      `json:"created_at,omitempty"`
}

// CustomerName returns the username shown for the booking, or "" when the
// backend did not expose one.
func (v View) CustomerName() string {
	if v.Customer == nil || v.Customer.Username == nil {
		return ""
	}
	return *v.Customer.Username
}

// Collections holds one fetched collection per kind.
type Collections struct {
	Activity []View `json:"activity"`
	Package  []View `json:"package"`
	Tour     []View `json:"tour"`
}

// Of returns the collection for kind.
func (c Collections) Of(kind Kind) []View {
	switch kind {
	case KindActivity:
		return c.Activity
	case KindPackage:
		return c.Package
	case KindTour:
		return c.Tour
	}
	return nil
}

// All concatenates the collections in merge order.
func (c Collections) All() []View {
	out := make([]View, 0, len(c.Activity)+len(c.Package)+len(c.Tour))
	out = append(out, c.Activity...)
	out = append(out, c.Package...)
	out = append(out, c.Tour...)
	return out
}

// Find locates a booking by kind and id.
func (c Collections) Find(kind Kind, id int64) (View, bool) {
	for _, v := range c.Of(kind) {
		if v.ID == id {
			return v, true
		}
	}
	return View{}, false
}
