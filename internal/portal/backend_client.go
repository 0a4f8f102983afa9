package portal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"example.com/booking-portal/internal/booking"
)

// collectionPath is the backend's list endpoint segment for each kind.
var collectionPath = map[booking.Kind]string{
	booking.KindActivity: "bookings",
	booking.KindPackage:  "packagesb",
	booking.KindTour:     "toursb",
}

// confirmPath is the backend's confirm endpoint segment for each kind.
var confirmPath = map[booking.Kind]string{
	booking.KindActivity: "bookings",
	booking.KindPackage:  "package",
	booking.KindTour:     "tour",
}

// BackendClient captures the HTTP calls the portal issues toward the
// reservation backend.
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBackendClient configures a client for baseURL. A zero timeout falls back
// to ten seconds.
func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type authorizationKey struct{}

// WithAuthorization attaches the caller's Authorization header value so
// backend calls made with ctx carry it along.
func WithAuthorization(ctx context.Context, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, authorizationKey{}, value)
}

func authorizationFrom(ctx context.Context) string {
	v, _ := ctx.Value(authorizationKey{}).(string)
	return v
}

// withoutAuthorization strips a forwarded credential so calls made with the
// returned context run as the service itself.
func withoutAuthorization(ctx context.Context) context.Context {
	if authorizationFrom(ctx) == "" {
		return ctx
	}
	return context.WithValue(ctx, authorizationKey{}, "")
}

// principalOf names the caller whose credential ctx carries, or "" for the
// service identity. The credential itself is never kept.
func principalOf(ctx context.Context) string {
	auth := authorizationFrom(ctx)
	if auth == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(auth))
	return hex.EncodeToString(sum[:16])
}

// FetchBookings retrieves the raw collection of kind as seen by role.
func (c *BackendClient) FetchBookings(ctx context.Context, kind booking.Kind, role booking.Role) ([]booking.RawBooking, error) {
	segment, ok := collectionPath[kind]
	if !ok {
		return nil, fmt.Errorf("fetch bookings: %w: %q", booking.ErrUnknownKind, kind)
	}
	var raws []booking.RawBooking
	op := fmt.Sprintf("fetch %s %s bookings", role, kind)
	if err := c.do(ctx, op, http.MethodGet, fmt.Sprintf("/api/%s/%s/", url.PathEscape(string(role)), segment), &raws); err != nil {
		return nil, err
	}
	if raws == nil {
		raws = []booking.RawBooking{}
	}
	return raws, nil
}

// FetchSupplierSummary retrieves the backend's own dashboard figures.
func (c *BackendClient) FetchSupplierSummary(ctx context.Context) (booking.SummaryStats, error) {
	var stats booking.SummaryStats
	if err := c.do(ctx, "fetch supplier summary", http.MethodGet, "/api/supplier-dashboard", &stats); err != nil {
		return booking.SummaryStats{}, err
	}
	if stats.TodaysCustomers == nil {
		stats.TodaysCustomers = []booking.CustomerVisit{}
	}
	return stats, nil
}

// ConfirmActivity confirms an activity booking.
func (c *BackendClient) ConfirmActivity(ctx context.Context, id int64) error {
	return c.confirm(ctx, booking.KindActivity, id)
}

// ConfirmPackage confirms a package booking.
func (c *BackendClient) ConfirmPackage(ctx context.Context, id int64) error {
	return c.confirm(ctx, booking.KindPackage, id)
}

// ConfirmTour confirms a tour booking.
func (c *BackendClient) ConfirmTour(ctx context.Context, id int64) error {
	return c.confirm(ctx, booking.KindTour, id)
}

func (c *BackendClient) confirm(ctx context.Context, kind booking.Kind, id int64) error {
	path := fmt.Sprintf("/api/supplier/%s/%d/confirm/", confirmPath[kind], id)
	return c.do(ctx, fmt.Sprintf("confirm %s booking %d", kind, id), http.MethodPost, path, nil)
}

// FavoriteStatus reports whether resourceID is a favorite.
func (c *BackendClient) FavoriteStatus(ctx context.Context, resourceID string) (bool, error) {
	return c.favorite(ctx, http.MethodGet, resourceID)
}

// AddFavorite marks resourceID as a favorite.
func (c *BackendClient) AddFavorite(ctx context.Context, resourceID string) (bool, error) {
	return c.favorite(ctx, http.MethodPost, resourceID)
}

// RemoveFavorite clears the favorite mark of resourceID.
func (c *BackendClient) RemoveFavorite(ctx context.Context, resourceID string) (bool, error) {
	return c.favorite(ctx, http.MethodDelete, resourceID)
}

func (c *BackendClient) favorite(ctx context.Context, method, resourceID string) (bool, error) {
	var payload struct {
		Favorite bool `json:"favorite"`
	}
	path := fmt.Sprintf("/api/favorites/%s/", url.PathEscape(resourceID))
	op := fmt.Sprintf("%s favorite %s", strings.ToLower(method), resourceID)
	if err := c.do(ctx, op, method, path, &payload); err != nil {
		return false, err
	}
	return payload.Favorite, nil
}

// do issues the request and decodes a 2xx body into out when out is non-nil.
// Every failure is reported as a *RemoteError.
func (c *BackendClient) do(ctx context.Context, op, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return &RemoteError{Op: op, Message: err.Error(), Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if auth := authorizationFrom(ctx); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Op: op, Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err), Err: err}
	}
	return nil
}

// errorMessage extracts a readable message from an error body. The
// {"error":{"message":...}} envelope, a plain {"detail":...} body and a bare
// {"error":"..."} are understood; anything else is returned trimmed.
func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4<<10))
	if err != nil || len(raw) == 0 {
		return ""
	}
	if gjson.ValidBytes(raw) {
		for _, path := range []string{"error.message", "detail", "error"} {
			if r := gjson.GetBytes(raw, path); r.Type == gjson.String && r.String() != "" {
				return r.String()
			}
		}
	}
	return strings.TrimSpace(string(raw))
}
