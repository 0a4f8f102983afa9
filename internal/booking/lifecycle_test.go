package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, time.October, 16, 14, 30, 0, 0, time.UTC)

func view(id int64, kind Kind, day string, paid, confirmed bool) View {
	return View{ID: id, Kind: kind, Day: day, ReferenceDay: day, Paid: paid, Confirmed: confirmed, Quantity: 1}
}

func ids(views []View) []int64 {
	out := make([]int64, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestStillValid(t *testing.T) {
	tests := []struct {
		name string
		day  string
		want bool
	}{
		{"tomorrow", "2026-10-17", true},
		{"today at midnight is already past", "2026-10-16", false},
		{"yesterday", "2026-10-15", false},
		{"later today timestamp", "2026-10-16T18:00:00Z", true},
		{"exactly now", "2026-10-16T14:30:00Z", true},
		{"empty", "", false},
		{"garbage", "next tuesday", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StillValid(tt.day, now))
		})
	}
}

func TestClassifyUnpaidFutureActivityIsActive(t *testing.T) {
	b := Classify([]View{view(1, KindActivity, "2026-10-17", false, false)}, now)

	assert.Equal(t, []int64{1}, ids(b.Active))
	assert.Empty(t, b.History)
	assert.Empty(t, b.Expired)
}

func TestClassifyPaidConfirmedPastPackageIsHistory(t *testing.T) {
	b := Classify([]View{view(2, KindPackage, "2025-06-01", true, true)}, now)

	assert.Empty(t, b.Active)
	assert.Equal(t, []int64{2}, ids(b.History))
	assert.Empty(t, b.Expired)
}

func TestClassifyUnpaidUnconfirmedPastTourIsExpired(t *testing.T) {
	b := Classify([]View{view(3, KindTour, "2025-03-10", false, false)}, now)

	assert.Empty(t, b.Active)
	assert.Empty(t, b.History)
	assert.Equal(t, []int64{3}, ids(b.Expired))
}

func TestClassifyPaidUnconfirmedPastFallsThroughEveryBucket(t *testing.T) {
	b := Classify([]View{view(4, KindActivity, "2025-01-01", true, false)}, now)

	assert.Empty(t, b.Active)
	assert.Empty(t, b.History)
	assert.Empty(t, b.Expired)
}

func TestClassifyUnpaidConfirmedFutureIsActiveOnly(t *testing.T) {
	b := Classify([]View{view(5, KindTour, "2027-01-01", false, true)}, now)

	assert.Equal(t, []int64{5}, ids(b.Active))
	assert.Empty(t, b.History)
	assert.Empty(t, b.Expired)
}

func TestClassifyMissingDateIsExpired(t *testing.T) {
	b := Classify([]View{view(6, KindPackage, "", false, false)}, now)

	assert.Empty(t, b.Active)
	assert.Equal(t, []int64{6}, ids(b.Expired))
}

func TestClassifyOrdersBucketsByKind(t *testing.T) {
	input := []View{
		view(30, KindTour, "2027-01-01", false, false),
		view(20, KindPackage, "2027-01-01", false, false),
		view(10, KindActivity, "2027-01-01", false, false),
		view(31, KindTour, "2027-01-01", false, false),
		view(11, KindActivity, "2027-01-01", false, false),
		view(21, KindPackage, "2020-01-01", true, true),
		view(12, KindActivity, "2020-01-01", true, true),
	}

	b := Classify(input, now)
	assert.Equal(t, []int64{10, 11, 20, 30, 31}, ids(b.Active))
	assert.Equal(t, []int64{12, 21}, ids(b.History))
	assert.Empty(t, b.Expired)
}

func TestClassifyNeverDoubleCounts(t *testing.T) {
	var input []View
	days := []string{"2020-01-01", "2027-01-01", ""}
	var id int64
	for _, kind := range Kinds {
		for _, day := range days {
			for _, paid := range []bool{false, true} {
				for _, confirmed := range []bool{false, true} {
					id++
					input = append(input, view(id, kind, day, paid, confirmed))
				}
			}
		}
	}

	b := Classify(input, now)
	seen := map[int64]int{}
	for _, bucket := range [][]View{b.Active, b.History, b.Expired} {
		for _, v := range bucket {
			seen[v.ID]++
		}
	}
	for _, v := range input {
		require.LessOrEqual(t, seen[v.ID], 1, "booking %d", v.ID)
		want := 0
		if IsActive(v, now) || IsHistory(v) || IsExpired(v, now) {
			want = 1
		}
		assert.Equal(t, want, seen[v.ID], "booking %d", v.ID)
	}
}

func TestClassifyCollectionsUsesPackageEndDate(t *testing.T) {
	raw := RawBooking{ID: 8, Quantity: 1, StartDate: "2026-10-10", EndDate: "2026-10-20"}
	c := Collections{Package: AdaptCollection(KindPackage, []RawBooking{raw})}

	b := ClassifyCollections(c, now)
	assert.Equal(t, []int64{8}, ids(b.Active))
	assert.Empty(t, b.Expired)
}

func TestClassifyEmptyReturnsEmptyBuckets(t *testing.T) {
	b := Classify(nil, now)

	assert.NotNil(t, b.Active)
	assert.NotNil(t, b.History)
	assert.NotNil(t, b.Expired)
}
