package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"example.com/booking-portal/internal/booking"
	"example.com/booking-portal/internal/metrics"
)

// FavoriteToggler is the backend's favorite capability.
type FavoriteToggler interface {
	FavoriteStatus(ctx context.Context, resourceID string) (bool, error)
	AddFavorite(ctx context.Context, resourceID string) (bool, error)
	RemoveFavorite(ctx context.Context, resourceID string) (bool, error)
}

// SupplierSummary pairs the locally aggregated dashboard with the backend's
// own figures from the same fetch cycle.
type SupplierSummary struct {
	Local      booking.SummaryStats  `json:"local"`
	Remote     *booking.SummaryStats `json:"remote,omitempty"`
	Generation uint64                `json:"generation"`
	FetchedAt  time.Time             `json:"fetched_at"`
}

// ConfirmOutcome is what a confirm command reports back to the operator.
type ConfirmOutcome struct {
	Confirmation Confirmation  `json:"confirmation"`
	Result       ConfirmResult `json:"result"`
}

type confirmKey struct {
	kind booking.Kind
	id   int64
}

// Service owns both surfaces: it serves classified customer bookings,
// filtered supplier bookings and summaries, and coordinates confirms.
type Service struct {
	loader       *Loader
	orchestrator ConfirmOrchestrator
	ledger       *Ledger
	favorites    FavoriteToggler
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time

	// cachedReads serves the latest snapshot instead of fetching on every
	// read; set when a background refresher keeps snapshots warm. Requests
	// carrying a forwarded credential always fetch.
	cachedReads bool

	mu       sync.Mutex
	inFlight map[confirmKey]struct{}
}

// ServiceConfig collects the collaborators of a Service.
type ServiceConfig struct {
	Loader       *Loader
	Orchestrator ConfirmOrchestrator
	Ledger       *Ledger
	Favorites    FavoriteToggler
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
	Now          func() time.Time
	CachedReads  bool
}

func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		loader:       cfg.Loader,
		orchestrator: cfg.Orchestrator,
		ledger:       cfg.Ledger,
		favorites:    cfg.Favorites,
		metrics:      cfg.Metrics,
		logger:       logger.With("component", "portal.service"),
		now:          now,
		cachedReads:  cfg.CachedReads,
		inFlight:     make(map[confirmKey]struct{}),
	}
}

func (s *Service) snapshot(ctx context.Context, role booking.Role) (*Snapshot, error) {
	if s.cachedReads && principalOf(ctx) == "" {
		if snap, err := s.loader.Snapshot(ctx, role); err == nil {
			return snap, nil
		}
	}
	return s.loader.Load(ctx, role)
}

// CustomerBuckets classifies the customer's bookings at the current instant.
func (s *Service) CustomerBuckets(ctx context.Context) (booking.Buckets, error) {
	snap, err := s.snapshot(ctx, booking.RoleCustomer)
	if err != nil {
		return booking.Buckets{}, err
	}
	return booking.ClassifyCollections(snap.Collections, s.now()), nil
}

// SupplierBookings returns the supplier's three collections, each filtered
// on its own.
func (s *Service) SupplierBookings(ctx context.Context, criterion booking.Criterion) (booking.Collections, error) {
	snap, err := s.snapshot(ctx, booking.RoleSupplier)
	if err != nil {
		return booking.Collections{}, err
	}
	return booking.FilterCollections(snap.Collections, criterion), nil
}

// SupplierSummary aggregates the supplier snapshot.
func (s *Service) SupplierSummary(ctx context.Context) (SupplierSummary, error) {
	snap, err := s.snapshot(ctx, booking.RoleSupplier)
	if err != nil {
		return SupplierSummary{}, err
	}
	return SupplierSummary{
		Local:      booking.SummarizeCollections(snap.Collections, s.now()),
		Remote:     snap.RemoteSummary,
		Generation: snap.Generation,
		FetchedAt:  snap.FetchedAt,
	}, nil
}

// Confirm runs the confirm-then-refetch command for one booking. A second
// confirm for the same booking while the first is running is rejected with
// ErrConfirmInFlight. Every attempt is written to the ledger.
func (s *Service) Confirm(ctx context.Context, kind booking.Kind, id int64) (ConfirmOutcome, error) {
	key := confirmKey{kind: kind, id: id}
	s.mu.Lock()
	if _, busy := s.inFlight[key]; busy {
		s.mu.Unlock()
		s.countConfirm(kind, "rejected")
		return ConfirmOutcome{}, fmt.Errorf("confirm %s booking %d: %w", kind, id, ErrConfirmInFlight)
	}
	s.inFlight[key] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
	}()

	attempt, err := s.ledger.Begin(ctx, kind, id, s.now())
	if err != nil {
		return ConfirmOutcome{}, err
	}

	result, runErr := s.orchestrator.RunConfirm(ctx, ConfirmInput{AttemptID: attempt.ID, Kind: kind, BookingID: id})
	attempt.WorkflowID = result.WorkflowID
	attempt.RunID = result.RunID
	attempt.Status = StatusSucceeded
	if runErr != nil {
		attempt.Status = StatusFailed
		attempt.Error = runErr.Error()
	}

	// The ledger update must land even when the caller has gone away.
	finished, err := s.ledger.Finish(context.WithoutCancel(ctx), attempt, s.now())
	if err != nil {
		s.logger.Error("record confirm outcome", "attempt_id", attempt.ID, "error", err)
		finished = attempt
	}

	if runErr != nil {
		s.countConfirm(kind, "failed")
		return ConfirmOutcome{Confirmation: finished, Result: result}, runErr
	}
	s.countConfirm(kind, "succeeded")
	s.logger.Info("confirm finished", "attempt_id", attempt.ID, "kind", kind, "booking_id", id, "refetched", result.Refetched)
	return ConfirmOutcome{Confirmation: finished, Result: result}, nil
}

// Confirming reports whether a confirm for the booking is running.
func (s *Service) Confirming(kind booking.Kind, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inFlight[confirmKey{kind: kind, id: id}]
	return busy
}

// Confirmations lists recent confirm attempts.
func (s *Service) Confirmations(ctx context.Context, limit int) ([]Confirmation, error) {
	return s.ledger.List(ctx, limit)
}

// Favorite reads or toggles the favorite mark of resourceID. set is nil for
// a read.
func (s *Service) Favorite(ctx context.Context, resourceID string, set *bool) (bool, error) {
	switch {
	case set == nil:
		return s.favorites.FavoriteStatus(ctx, resourceID)
	case *set:
		return s.favorites.AddFavorite(ctx, resourceID)
	default:
		return s.favorites.RemoveFavorite(ctx, resourceID)
	}
}

// RunRefresher refreshes both surfaces every interval until ctx ends. Runs
// never overlap; a slow cycle pushes the next one back.
func (s *Service) RunRefresher(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create refresh scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.refreshAll(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule refresh: %w", err)
	}
	sched.Start()
	s.logger.Info("background refresh started", "interval", interval)

	<-ctx.Done()
	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("stop refresh scheduler: %w", err)
	}
	return nil
}

func (s *Service) refreshAll(ctx context.Context) {
	for _, role := range []booking.Role{booking.RoleCustomer, booking.RoleSupplier} {
		if _, err := s.loader.Refresh(ctx, role); err != nil && ctx.Err() == nil && !errors.Is(err, ErrSuperseded) {
			s.logger.Warn("background refresh failed", "role", role, "error", err)
		}
	}
}

func (s *Service) countConfirm(kind booking.Kind, outcome string) {
	if s.metrics != nil {
		s.metrics.Confirmations.WithLabelValues(string(kind), outcome).Inc()
	}
}
