package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"example.com/booking-portal/internal/booking"
)

// Server exposes the customer and supplier surfaces over HTTP.
type Server struct {
	service *Service
	metrics http.Handler
	logger  *slog.Logger
}

// NewServer builds the portal API. metricsHandler may be nil.
func NewServer(service *Service, metricsHandler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		service: service,
		metrics: metricsHandler,
		logger:  logger.With("component", "portal.http"),
	}
}

// Router configures all portal routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(forwardAuthorization)

		r.Get("/customer/bookings", s.handleCustomerBookings)

		r.Route("/supplier", func(r chi.Router) {
			r.Get("/bookings", s.handleSupplierBookings)
			r.Get("/summary", s.handleSupplierSummary)
			r.Post("/bookings/{kind}/{id}/confirm", s.handleConfirm)
			r.Get("/confirmations", s.handleListConfirmations)
		})

		r.Route("/favorites/{resourceID}", func(r chi.Router) {
			r.Get("/", s.handleFavorite(nil))
			r.Post("/", s.handleFavorite(boolPtr(true)))
			r.Delete("/", s.handleFavorite(boolPtr(false)))
		})
	})
	return r
}

func (s *Server) handleCustomerBookings(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.service.CustomerBuckets(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleSupplierBookings(w http.ResponseWriter, r *http.Request) {
	criterion, err := booking.ParseCriterion(strings.TrimSpace(r.URL.Query().Get("filter")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	collections, err := s.service.SupplierBookings(r.Context(), criterion)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filter":      criterion,
		"collections": collections,
	})
}

func (s *Server) handleSupplierSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.SupplierSummary(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	kind, err := booking.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id %q", chi.URLParam(r, "id"))
		return
	}
	outcome, err := s.service.Confirm(r.Context(), kind, id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleListConfirmations(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit %q", raw)
			return
		}
		limit = n
	}
	items, err := s.service.Confirmations(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"confirmations": items})
}

func (s *Server) handleFavorite(set *bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID := strings.TrimSpace(chi.URLParam(r, "resourceID"))
		if resourceID == "" {
			writeError(w, http.StatusBadRequest, "resource id required")
			return
		}
		fav, err := s.service.Favorite(r.Context(), resourceID, set)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"favorite": fav})
	}
}

// writeServiceError maps service errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	writeError(w, status, "%v", err)
}

func statusFor(err error) int {
	var remote *RemoteError
	switch {
	case errors.Is(err, ErrConfirmInFlight):
		return http.StatusConflict
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrSuperseded):
		return http.StatusServiceUnavailable
	case errors.Is(err, booking.ErrUnknownKind):
		return http.StatusInternalServerError
	case errors.As(err, &remote):
		if remote.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// forwardAuthorization passes the caller's Authorization header on to
// backend calls.
func forwardAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			r = r.WithContext(WithAuthorization(r.Context(), auth))
		}
		next.ServeHTTP(w, r)
	})
}

func boolPtr(v bool) *bool { return &v }

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
