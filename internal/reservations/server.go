package reservations

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"example.com/booking-portal/internal/booking"
)

// collectionPaths maps the backend's per-kind collection segment to its kind.
var collectionPaths = map[string]booking.Kind{
	"bookings":  booking.KindActivity,
	"packagesb": booking.KindPackage,
	"toursb":    booking.KindTour,
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// createBookingRequest is the admin payload for a new booking.
type createBookingRequest struct {
	Kind      booking.Kind    `json:"kind" validate:"required,oneof=activity package tour"`
	Title     string          `json:"title" validate:"required,max=200"`
	Image     string          `json:"image" validate:"omitempty,max=500"`
	Unit      string          `json:"unit" validate:"max=50"`
	Price     decimal.Decimal `json:"price"`
	Day       string          `json:"day" validate:"omitempty,datetime=2006-01-02"`
	TimeFrom  string          `json:"time_from" validate:"omitempty,datetime=15:04:05"`
	TimeTo    string          `json:"time_to" validate:"omitempty,datetime=15:04:05"`
	StartDate string          `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string          `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Quantity  int64           `json:"quantity" validate:"gte=1"`
	Paid      bool            `json:"paid"`
	Confirmed bool            `json:"confirmed"`
	Username  string          `json:"username" validate:"omitempty,max=150"`
	Email     string          `json:"email" validate:"omitempty,email"`
	Phone     string          `json:"phone" validate:"omitempty,max=32"`
}

func (req createBookingRequest) record() Record {
	return Record{
		Kind:      req.Kind,
		Title:     req.Title,
		Image:     req.Image,
		Unit:      req.Unit,
		Price:     req.Price,
		Day:       req.Day,
		TimeFrom:  req.TimeFrom,
		TimeTo:    req.TimeTo,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Quantity:  req.Quantity,
		Paid:      req.Paid,
		Confirmed: req.Confirmed,
		Customer: booking.Contact{
			Username: optional(req.Username),
			Email:    optional(req.Email),
			Phone:    optional(req.Phone),
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Server exposes HTTP APIs that mimic the reservation backend the portal talks to.
type Server struct {
	store *Store
	now   func() time.Time
}

// Option customises a Server.
type Option func(*Server)

// WithClock overrides the clock used for the supplier dashboard.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer builds a server backed by the provided store.
func NewServer(store *Store, opts ...Option) *Server {
	s := &Server{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router wires all reservation routes under a single chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/supplier-dashboard", s.handleDashboard)
		r.Get("/{role}/{collection}/", s.handleListBookings)

		r.Post("/supplier/bookings/{id}/confirm/", s.handleConfirm(booking.KindActivity))
		r.Post("/supplier/package/{id}/confirm/", s.handleConfirm(booking.KindPackage))
		r.Post("/supplier/tour/{id}/confirm/", s.handleConfirm(booking.KindTour))

		r.Route("/favorites/{resourceID}", func(r chi.Router) {
			r.Get("/", s.handleFavoriteStatus)
			r.Post("/", s.handleAddFavorite)
			r.Delete("/", s.handleRemoveFavorite)
		})
	})

	r.Post("/admin/bookings", s.handleCreateBooking)
	return r
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	if _, err := booking.ParseRole(chi.URLParam(r, "role")); err != nil {
		writeError(w, http.StatusNotFound, "%v", err)
		return
	}
	kind, ok := collectionPaths[chi.URLParam(r, "collection")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown collection %q", chi.URLParam(r, "collection"))
		return
	}
	records, err := s.store.ListBookings(r.Context(), kind)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list %s bookings: %v", kind, err)
		return
	}
	resp := make([]booking.RawBooking, 0, len(records))
	for _, rec := range records {
		resp = append(resp, rec.Raw())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var c booking.Collections
	for _, kind := range booking.Kinds {
		records, err := s.store.ListBookings(r.Context(), kind)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list %s bookings: %v", kind, err)
			return
		}
		raws := make([]booking.RawBooking, 0, len(records))
		for _, rec := range records {
			raws = append(raws, rec.Raw())
		}
		views := booking.AdaptCollection(kind, raws)
		switch kind {
		case booking.KindActivity:
			c.Activity = views
		case booking.KindPackage:
			c.Package = views
		case booking.KindTour:
			c.Tour = views
		}
	}
	writeJSON(w, http.StatusOK, booking.SummarizeCollections(c, s.now()))
}

func (s *Server) handleConfirm(kind booking.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid booking id")
			return
		}
		rec, err := s.store.Confirm(r.Context(), kind, id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "%s booking %d not found", kind, id)
		case errors.Is(err, ErrAlreadyConfirmed):
			writeError(w, http.StatusBadRequest, "%s booking %d is already confirmed", kind, id)
		case err != nil:
			writeError(w, http.StatusInternalServerError, "%v", err)
		default:
			writeJSON(w, http.StatusOK, map[string]any{
				"id":        rec.ID,
				"confirmed": rec.Confirmed,
				"qr_code":   rec.QRCode,
			})
		}
	}
}

func (s *Server) handleFavoriteStatus(w http.ResponseWriter, r *http.Request) {
	fav, err := s.store.IsFavorite(r.Context(), chi.URLParam(r, "resourceID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": fav})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.store.AddFavorite(r.Context(), chi.URLParam(r, "resourceID")); err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"favorite": true})
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveFavorite(r.Context(), chi.URLParam(r, "resourceID")); err != nil {
		writeError(w, http.StatusInternalServerError, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": false})
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: %v", err)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	created, err := s.store.CreateBooking(r.Context(), req.record())
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": strings.TrimSpace(fmt.Sprintf(format, args...)),
			"status":  status,
		},
	})
}
