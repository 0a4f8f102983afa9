package booking

import "github.com/shopspring/decimal"

const (
	fallbackTitle = "Booking"
	fallbackUnit  = "unit"
)

// Kind reports which shape the record carries. A record with neither a period
// nor a tourday is treated as a package booking.
func (r RawBooking) Kind() Kind {
	switch {
	case r.Period != nil:
		return KindActivity
	case r.TourDay != nil:
		return KindTour
	default:
		return KindPackage
	}
}

// Adapt normalizes a raw record into a View. Every field is resolved through
// the same chain: activity path, tour path, package path, then a scalar
// fallback. Absent or empty links fall through to the next step, so a
// malformed record degrades to the "Booking"/"unit"/0 defaults instead of
// failing.
func Adapt(r RawBooking) View {
	return adapt(r.Kind(), r)
}

// AdaptCollection normalizes a collection fetched for a known kind. The kind
// of the collection wins over whatever shape an individual record has.
func AdaptCollection(kind Kind, raws []RawBooking) []View {
	views := make([]View, 0, len(raws))
	for _, r := range raws {
		views = append(views, adapt(kind, r))
	}
	return views
}

func adapt(kind Kind, r RawBooking) View {
	activity, tour, pkg := r.products()
	price := firstPrice(r.activityPrice(), r.tourPrice(), r.packagePrice())

	v := View{
		ID:        r.ID,
		Kind:      kind,
		Title:     firstNonEmpty(activity.Title, tour.Title, pkg.Title, fallbackTitle),
		Unit:      firstNonEmpty(activity.Unit, tour.Unit, pkg.Unit, fallbackUnit),
		UnitPrice: price,
		Quantity:  r.Quantity,
		// The image chain is resolved on its own; it may come from a
		// different branch than the title on inconsistent records.
		ImageRef:     firstNonEmpty(activity.Image, tour.Image, pkg.Image),
		Day:          firstNonEmpty(r.periodField(func(p *Period) string { return p.Day }), r.tourDayField(func(t *TourDay) string { return t.Day }), r.StartDate),
		StartTime:    firstNonEmpty(r.periodField(func(p *Period) string { return p.TimeFrom }), r.tourDayField(func(t *TourDay) string { return t.TimeFrom }), r.StartDate),
		EndTime:      firstNonEmpty(r.periodField(func(p *Period) string { return p.TimeTo }), r.tourDayField(func(t *TourDay) string { return t.TimeTo }), r.EndDate),
		ReferenceDay: r.referenceDay(kind),
		Paid:         r.Paid,
		Confirmed:    r.Confirmed,
		QRCode:       r.QRCode,
		CreatedAt:    r.CreatedAt,
	}
	v.TotalPrice = v.UnitPrice.Mul(decimal.NewFromInt(v.Quantity))
	if r.Customer != nil && r.Customer.User != nil {
		contact := *r.Customer.User
		v.Customer = &contact
	}
	return v
}

// referenceDay is the date the lifecycle rules compare against now. Packages
// are still valid until their last day.
func (r RawBooking) referenceDay(kind Kind) string {
	switch kind {
	case KindActivity:
		return r.periodField(func(p *Period) string { return p.Day })
	case KindTour:
		return r.tourDayField(func(t *TourDay) string { return t.Day })
	case KindPackage:
		return r.EndDate
	}
	return ""
}

func (r RawBooking) products() (activity, tour, pkg Product) {
	if r.Period != nil && r.Period.ActivityOffer != nil && r.Period.ActivityOffer.Activity != nil {
		activity = *r.Period.ActivityOffer.Activity
	}
	if r.TourDay != nil && r.TourDay.TourOffer != nil && r.TourDay.TourOffer.Tour != nil {
		tour = *r.TourDay.TourOffer.Tour
	}
	if r.PackageOffer != nil && r.PackageOffer.Package != nil {
		pkg = *r.PackageOffer.Package
	}
	return activity, tour, pkg
}

func (r RawBooking) activityPrice() *decimal.Decimal {
	if r.Period == nil || r.Period.ActivityOffer == nil {
		return nil
	}
	return r.Period.ActivityOffer.Price
}

func (r RawBooking) tourPrice() *decimal.Decimal {
	if r.TourDay == nil || r.TourDay.TourOffer == nil {
		return nil
	}
	return r.TourDay.TourOffer.Price
}

func (r RawBooking) packagePrice() *decimal.Decimal {
	if r.PackageOffer == nil {
		return nil
	}
	return r.PackageOffer.Price
}

func (r RawBooking) periodField(get func(*Period) string) string {
	if r.Period == nil {
		return ""
	}
	return get(r.Period)
}

func (r RawBooking) tourDayField(get func(*TourDay) string) string {
	if r.TourDay == nil {
		return ""
	}
	return get(r.TourDay)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPrice(prices ...*decimal.Decimal) decimal.Decimal {
	for _, p := range prices {
		if p != nil {
			return *p
		}
	}
	return decimal.Zero
}
