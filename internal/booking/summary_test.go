package booking

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeEmpty(t *testing.T) {
	stats := Summarize(nil, nil, nil, now)

	assert.True(t, stats.TotalSales.IsZero())
	assert.Zero(t, stats.ConfirmedCount)
	assert.Zero(t, stats.ConfirmedThisMonth)
	assert.Zero(t, stats.UnconfirmedCount)
	assert.Zero(t, stats.UnconfirmedThisMonth)
	assert.NotNil(t, stats.TodaysCustomers)
	assert.Empty(t, stats.TodaysCustomers)
}

func TestSummarize(t *testing.T) {
	placed := time.Date(2026, time.October, 2, 9, 0, 0, 0, time.UTC)
	withPrice := func(v View, unit string, name string) View {
		v.UnitPrice = decimal.RequireFromString(unit)
		v.TotalPrice = v.UnitPrice.Mul(decimal.NewFromInt(v.Quantity))
		if name != "" {
			v.Customer = &Contact{Username: strPtr(name)}
		}
		v.CreatedAt = &placed
		return v
	}

	activity := []View{
		withPrice(view(1, KindActivity, "2026-10-16", true, true), "10.00", "ana"),
		withPrice(view(2, KindActivity, "2026-09-30", true, false), "5.50", ""),
	}
	pkg := []View{
		withPrice(view(3, KindPackage, "2026-10-28", false, false), "100", "bo"),
	}
	tour := []View{
		withPrice(view(4, KindTour, "2026-10-16", false, true), "40", "cy"),
		withPrice(view(5, KindTour, "2025-10-16", true, true), "1", "dee"),
	}

	stats := Summarize(activity, pkg, tour, now)
	assert.True(t, stats.TotalSales.Equal(decimal.RequireFromString("16.50")), stats.TotalSales.String())
	assert.Equal(t, 3, stats.ConfirmedCount)
	assert.Equal(t, 2, stats.ConfirmedThisMonth)
	assert.Equal(t, 2, stats.UnconfirmedCount)
	assert.Equal(t, 1, stats.UnconfirmedThisMonth)
	require.Len(t, stats.TodaysCustomers, 2)
	assert.Equal(t, "ana", stats.TodaysCustomers[0].Name)
	assert.Equal(t, "cy", stats.TodaysCustomers[1].Name)
	assert.Equal(t, placed, *stats.TodaysCustomers[0].At)
}

func TestSummarizeUsesNowLocation(t *testing.T) {
	// 01:00 on Oct 17 in UTC+3 is still Oct 16 in UTC; the booking is for
	// the 17th, so only the local calendar makes it today's.
	loc := time.FixedZone("UTC+3", 3*60*60)
	local := time.Date(2026, time.October, 17, 1, 0, 0, 0, loc)

	stats := Summarize([]View{view(1, KindActivity, "2026-10-17", false, false)}, nil, nil, local)
	assert.Len(t, stats.TodaysCustomers, 1)
}

func TestSummaryStatsJSONMatchesDashboardShape(t *testing.T) {
	payload := `{
		"total_sales": 120,
		"confirmed_bookings": 3,
		"confirmed_bookings_this_month": 1,
		"unconfirmed_bookings": 2,
		"unconfirmed_bookings_this_month": 2,
		"todays_customers": [["ana", "2026-10-16T08:00:00Z"], [null, null]]
	}`

	var stats SummaryStats
	require.NoError(t, json.Unmarshal([]byte(payload), &stats))
	assert.True(t, stats.TotalSales.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, 3, stats.ConfirmedCount)
	require.Len(t, stats.TodaysCustomers, 2)
	assert.Equal(t, "ana", stats.TodaysCustomers[0].Name)
	assert.Empty(t, stats.TodaysCustomers[1].Name)
	assert.Nil(t, stats.TodaysCustomers[1].At)

	out, err := json.Marshal(stats.TodaysCustomers[0])
	require.NoError(t, err)
	assert.JSONEq(t, `["ana", "2026-10-16T08:00:00Z"]`, string(out))
}

func TestCustomerVisitRejectsWrongArity(t *testing.T) {
	var c CustomerVisit
	assert.Error(t, json.Unmarshal([]byte(`["only"]`), &c))
}
