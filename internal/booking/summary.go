package booking

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerVisit is one (name, timestamp) pair of today's customers. On the
// wire it is a two element array, the shape the backend dashboard uses.
type CustomerVisit struct {
	Name string
	At   *time.Time
}

func (c CustomerVisit) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Name, c.At})
}

func (c *CustomerVisit) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("customer visit: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("customer visit: want 2 elements, got %d", len(pair))
	}
	var name *string
	if err := json.Unmarshal(pair[0], &name); err != nil {
		return fmt.Errorf("customer visit name: %w", err)
	}
	var at *time.Time
	if err := json.Unmarshal(pair[1], &at); err != nil {
		return fmt.Errorf("customer visit time: %w", err)
	}
	c.Name = ""
	if name != nil {
		c.Name = *name
	}
	c.At = at
	return nil
}

// SummaryStats is the supplier dashboard summary.
type SummaryStats struct {
	TotalSales           decimal.Decimal `json:"total_sales"`
	ConfirmedCount       int             `json:"confirmed_bookings"`
	ConfirmedThisMonth   int             `json:"confirmed_bookings_this_month"`
	UnconfirmedCount     int             `json:"unconfirmed_bookings"`
	UnconfirmedThisMonth int             `json:"unconfirmed_bookings_this_month"`
	TodaysCustomers      []CustomerVisit `json:"todays_customers"`
}

// Summarize aggregates the supplier's three collections. Month and today
// checks use the booking's display day against now's calendar in now's
// location.
func Summarize(activity, pkg, tour []View, now time.Time) SummaryStats {
	stats := SummaryStats{
		TotalSales:      decimal.Zero,
		TodaysCustomers: []CustomerVisit{},
	}
	ny, nm, nd := now.Date()
	for _, views := range [][]View{activity, pkg, tour} {
		for _, v := range views {
			if v.Paid {
				stats.TotalSales = stats.TotalSales.Add(v.TotalPrice)
			}
			day, hasDay := ParseDay(v.Day)
			var dy int
			var dm time.Month
			var dd int
			if hasDay {
				dy, dm, dd = day.Date()
			}
			thisMonth := hasDay && dy == ny && dm == nm
			if v.Confirmed {
				stats.ConfirmedCount++
				if thisMonth {
					stats.ConfirmedThisMonth++
				}
			} else {
				stats.UnconfirmedCount++
				if thisMonth {
					stats.UnconfirmedThisMonth++
				}
			}
			if thisMonth && dd == nd {
				stats.TodaysCustomers = append(stats.TodaysCustomers, CustomerVisit{
					Name: v.CustomerName(),
					At:   v.CreatedAt,
				})
			}
		}
	}
	return stats
}

// SummarizeCollections is Summarize over a fetched set.
func SummarizeCollections(c Collections, now time.Time) SummaryStats {
	return Summarize(c.Activity, c.Package, c.Tour, now)
}
