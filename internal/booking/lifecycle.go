package booking

import "time"

// Bucket is a read-time lifecycle label. It is never stored.
type Bucket string

const (
	BucketActive  Bucket = "active"
	BucketHistory Bucket = "history"
	BucketExpired Bucket = "expired"
)

const dayLayout = "2006-01-02"

// ParseDay reads a backend date. Date-only values are midnight UTC; full
// timestamps are accepted as RFC 3339.
func ParseDay(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(dayLayout, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// StillValid reports whether day is on or after now. A missing or unreadable
// day is never valid.
func StillValid(day string, now time.Time) bool {
	t, ok := ParseDay(day)
	if !ok {
		return false
	}
	return !t.Before(now)
}

// Buckets is the result of a classification pass.
//
// The three rules are evaluated independently and do not cover every
// combination: a paid, unconfirmed booking whose day has passed lands in no
// bucket at all.
type Buckets struct {
	Active  []View `json:"active"`
	History []View `json:"history"`
	Expired []View `json:"expired"`
}

// IsActive: unpaid and not yet past.
func IsActive(v View, now time.Time) bool {
	return !v.Paid && StillValid(v.ReferenceDay, now)
}

// IsHistory: paid and confirmed, whatever the date.
func IsHistory(v View) bool {
	return v.Confirmed && v.Paid
}

// IsExpired: neither paid nor confirmed, and past.
func IsExpired(v View, now time.Time) bool {
	return !v.Confirmed && !v.Paid && !StillValid(v.ReferenceDay, now)
}

// Classify partitions views into lifecycle buckets. Each bucket lists
// activity bookings first, then package, then tour, keeping input order
// within a kind.
func Classify(views []View, now time.Time) Buckets {
	out := Buckets{
		Active:  []View{},
		History: []View{},
		Expired: []View{},
	}
	for _, kind := range Kinds {
		for _, v := range views {
			if v.Kind != kind {
				continue
			}
			if IsActive(v, now) {
				out.Active = append(out.Active, v)
			}
			if IsHistory(v) {
				out.History = append(out.History, v)
			}
			if IsExpired(v, now) {
				out.Expired = append(out.Expired, v)
			}
		}
	}
	return out
}

// ClassifyCollections classifies each kind's collection and merges the
// buckets in activity, package, tour order.
func ClassifyCollections(c Collections, now time.Time) Buckets {
	return Classify(c.All(), now)
}
