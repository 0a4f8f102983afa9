package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/booking-portal/internal/booking"
	"example.com/booking-portal/internal/metrics"
	"example.com/booking-portal/internal/reservations"
)

type portalFixture struct {
	handler http.Handler
	store   *reservations.Store
}

func newPortalFixture(t *testing.T) portalFixture {
	t.Helper()
	backendSrv, store := newReservationsBackend(t)
	logger := discardLogger()
	m := metrics.New("portal")
	client := NewBackendClient(backendSrv.URL, time.Second)
	loader := NewLoader(client, m, logger, fixedNow)
	svc := NewService(ServiceConfig{
		Loader:       loader,
		Orchestrator: NewLocalOrchestrator(NewConfirmActivities(client, loader, logger)),
		Ledger:       newTestLedger(t),
		Favorites:    client,
		Metrics:      m,
		Logger:       logger,
		Now:          fixedNow,
	})
	return portalFixture{handler: NewServer(svc, m.Handler(), logger).Router(), store: store}
}

func (f portalFixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestCustomerBookingsEndpoint(t *testing.T) {
	f := newPortalFixture(t)

	rec := f.do(t, http.MethodGet, "/customer/bookings")
	require.Equal(t, http.StatusOK, rec.Code)

	var buckets booking.Buckets
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &buckets))
	// Seed: kayak and coast weekend are upcoming and unpaid, desert week is
	// paid and confirmed, old town walk is unpaid and a year old.
	require.Len(t, buckets.Active, 2)
	assert.Equal(t, booking.KindActivity, buckets.Active[0].Kind)
	assert.Equal(t, booking.KindPackage, buckets.Active[1].Kind)
	require.Len(t, buckets.History, 1)
	assert.Equal(t, "Desert week", buckets.History[0].Title)
	require.Len(t, buckets.Expired, 1)
	assert.Equal(t, "Old town walk", buckets.Expired[0].Title)
}

func TestSupplierBookingsEndpoint(t *testing.T) {
	f := newPortalFixture(t)

	rec := f.do(t, http.MethodGet, "/supplier/bookings?filter=paid")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Filter      string              `json:"filter"`
		Collections booking.Collections `json:"collections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "paid", body.Filter)
	assert.Len(t, body.Collections.Activity, 1)
	assert.Len(t, body.Collections.Package, 1)
	assert.Len(t, body.Collections.Tour, 1)

	rec = f.do(t, http.MethodGet, "/supplier/bookings")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "all", body.Filter)
	assert.Len(t, body.Collections.Tour, 2)

	rec = f.do(t, http.MethodGet, "/supplier/bookings?filter=refunded")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSupplierSummaryEndpoint(t *testing.T) {
	f := newPortalFixture(t)

	rec := f.do(t, http.MethodGet, "/supplier/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	var summary SupplierSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.NotNil(t, summary.Remote)
	assert.Equal(t, summary.Remote.UnconfirmedCount, summary.Local.UnconfirmedCount)
	assert.True(t, summary.Remote.TotalSales.Equal(summary.Local.TotalSales))
	assert.Len(t, summary.Local.TodaysCustomers, 2)
}

func TestConfirmEndpoint(t *testing.T) {
	f := newPortalFixture(t)
	tours, err := f.store.ListBookings(context.Background(), booking.KindTour)
	require.NoError(t, err)
	id := strconv.FormatInt(tours[0].ID, 10)

	rec := f.do(t, http.MethodGet, "/supplier/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	var before SupplierSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))

	rec = f.do(t, http.MethodPost, "/supplier/bookings/tour/"+id+"/confirm")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var outcome ConfirmOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, StatusSucceeded, outcome.Confirmation.Status)
	assert.True(t, outcome.Result.Refetched)

	rec = f.do(t, http.MethodGet, "/supplier/summary")
	var after SupplierSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Equal(t, before.Local.UnconfirmedCount-1, after.Local.UnconfirmedCount)

	rec = f.do(t, http.MethodPost, "/supplier/bookings/tour/"+id+"/confirm")
	require.Equal(t, http.StatusOK, rec.Code, "a second confirm of the same tour is a no-op")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, StatusSucceeded, outcome.Confirmation.Status)

	rec = f.do(t, http.MethodPost, "/supplier/bookings/package/9999/confirm")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/supplier/bookings/cruise/1/confirm")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/supplier/bookings/tour/zero/confirm")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/supplier/confirmations?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Confirmations []Confirmation `json:"confirmations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Confirmations, 3)
	statuses := map[ConfirmStatus]int{}
	for _, c := range list.Confirmations {
		statuses[c.Status]++
	}
	assert.Equal(t, map[ConfirmStatus]int{StatusSucceeded: 2, StatusFailed: 1}, statuses)

	rec = f.do(t, http.MethodGet, "/supplier/confirmations?limit=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavoriteEndpoint(t *testing.T) {
	f := newPortalFixture(t)

	rec := f.do(t, http.MethodPost, "/favorites/5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"favorite": true}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/favorites/5")
	assert.JSONEq(t, `{"favorite": true}`, rec.Body.String())

	rec = f.do(t, http.MethodDelete, "/favorites/5")
	assert.JSONEq(t, `{"favorite": false}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newPortalFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/customer/bookings").Code)

	rec := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portal_fetch_cycles_total{outcome="ok",role="customer"} 1`)
	assert.Contains(t, rec.Body.String(), `portal_customer_bucket_size{bucket="active"} 2`)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrConfirmInFlight, http.StatusConflict},
		{ErrNotReady, http.StatusServiceUnavailable},
		{booking.ErrUnknownKind, http.StatusInternalServerError},
		{&RemoteError{Status: http.StatusNotFound}, http.StatusNotFound},
		{&RemoteError{Status: http.StatusBadRequest}, http.StatusBadGateway},
		{&RemoteError{}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRemoteErrorAlreadyConfirmed(t *testing.T) {
	assert.True(t, (&RemoteError{Status: http.StatusBadRequest, Message: "Booking is already confirmed."}).AlreadyConfirmed())
	assert.True(t, (&RemoteError{Status: http.StatusBadRequest, Message: "tour booking 3 is already confirmed"}).AlreadyConfirmed())
	assert.False(t, (&RemoteError{Status: http.StatusBadRequest, Message: "invalid id"}).AlreadyConfirmed())
	assert.False(t, (&RemoteError{Status: http.StatusBadGateway, Message: "already confirmed"}).AlreadyConfirmed())
}
