package booking

import "fmt"

// Criterion selects bookings on the supplier surface.
type Criterion string

const (
	CriterionAll         Criterion = "all"
	CriterionPaid        Criterion = "paid"
	CriterionUnpaid      Criterion = "unpaid"
	CriterionConfirmed   Criterion = "confirmed"
	CriterionUnconfirmed Criterion = "unconfirmed"
)

// ParseCriterion validates a filter value. An empty value means all.
func ParseCriterion(raw string) (Criterion, error) {
	if raw == "" {
		return CriterionAll, nil
	}
	switch c := Criterion(raw); c {
	case CriterionAll, CriterionPaid, CriterionUnpaid, CriterionConfirmed, CriterionUnconfirmed:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCriterion, raw)
}

// Match reports whether v satisfies the criterion. Unrecognized criteria
// match everything.
func (c Criterion) Match(v View) bool {
	switch c {
	case CriterionPaid:
		return v.Paid
	case CriterionUnpaid:
		return !v.Paid
	case CriterionConfirmed:
		return v.Confirmed
	case CriterionUnconfirmed:
		return !v.Confirmed
	}
	return true
}

// Filter keeps the views matching c. CriterionAll returns views unchanged.
func Filter(views []View, c Criterion) []View {
	if c == CriterionAll {
		return views
	}
	out := []View{}
	for _, v := range views {
		if c.Match(v) {
			out = append(out, v)
		}
	}
	return out
}

// FilterCollections applies c to every kind separately. The supplier surface
// never merges kinds into a single list.
func FilterCollections(c Collections, criterion Criterion) Collections {
	return Collections{
		Activity: Filter(c.Activity, criterion),
		Package:  Filter(c.Package, criterion),
		Tour:     Filter(c.Tour, criterion),
	}
}
