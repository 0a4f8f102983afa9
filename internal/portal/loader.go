package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"example.com/booking-portal/internal/booking"
	"example.com/booking-portal/internal/metrics"
)

// BookingSource is the read side of the reservation backend.
type BookingSource interface {
	FetchBookings(ctx context.Context, kind booking.Kind, role booking.Role) ([]booking.RawBooking, error)
	FetchSupplierSummary(ctx context.Context) (booking.SummaryStats, error)
}

// surfaceKey identifies whose view a fetch cycle belongs to. principal is
// empty for the service's own identity.
type surfaceKey struct {
	role      booking.Role
	principal string
}

// Snapshot is the result of one complete fetch cycle for a role. Snapshots
// are immutable once published.
type Snapshot struct {
	Role        booking.Role
	Generation  uint64
	FetchedAt   time.Time
	Collections booking.Collections
	// RemoteSummary is the backend's own dashboard, supplier role only.
	RemoteSummary *booking.SummaryStats
}

// Loader runs fetch cycles and keeps the latest snapshot per role and
// caller. Cycles of different callers never supersede or serve each other.
type Loader struct {
	source  BookingSource
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	mu          sync.Mutex
	generations map[surfaceKey]uint64
	snapshots   map[surfaceKey]*Snapshot
	// loads counts Load calls in progress per caller; caller snapshots are
	// dropped once none remain.
	loads map[surfaceKey]int
}

// NewLoader wires a loader over source. metrics may be nil.
func NewLoader(source BookingSource, m *metrics.Metrics, logger *slog.Logger, now func() time.Time) *Loader {
	if now == nil {
		now = time.Now
	}
	return &Loader{
		source:      source,
		metrics:     m,
		logger:      logger.With("component", "portal.loader"),
		now:         now,
		generations: make(map[surfaceKey]uint64),
		snapshots:   make(map[surfaceKey]*Snapshot),
		loads:       make(map[surfaceKey]int),
	}
}

// Refresh fetches every collection of role concurrently (plus the backend
// summary for suppliers) and publishes the result as the new snapshot of the
// caller carried by ctx. Any failed fetch fails the whole cycle and leaves the
// previous snapshot in place. A cycle overtaken by a newer one of the same
// caller returns ErrSuperseded and is dropped.
func (l *Loader) Refresh(ctx context.Context, role booking.Role) (*Snapshot, error) {
	if _, err := booking.ParseRole(string(role)); err != nil {
		return nil, err
	}
	key := surfaceKey{role: role, principal: principalOf(ctx)}
	l.mu.Lock()
	l.generations[key]++
	gen := l.generations[key]
	l.mu.Unlock()

	started := time.Now()
	raws := make([][]booking.RawBooking, len(booking.Kinds))
	var remote *booking.SummaryStats

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range booking.Kinds {
		g.Go(func() error {
			items, err := l.source.FetchBookings(gctx, kind, role)
			if err != nil {
				return err
			}
			raws[i] = items
			return nil
		})
	}
	if role == booking.RoleSupplier {
		g.Go(func() error {
			stats, err := l.source.FetchSupplierSummary(gctx)
			if err != nil {
				return err
			}
			remote = &stats
			return nil
		})
	}
	err := g.Wait()
	l.observe(role, started)
	if err != nil {
		l.count(role, "failed")
		l.logger.Warn("fetch cycle failed", "role", role, "generation", gen, "error", err)
		return nil, fmt.Errorf("fetch %s bookings: %w", role, err)
	}

	snap := &Snapshot{
		Role:          role,
		Generation:    gen,
		FetchedAt:     l.now(),
		RemoteSummary: remote,
	}
	for i, kind := range booking.Kinds {
		views := booking.AdaptCollection(kind, raws[i])
		switch kind {
		case booking.KindActivity:
			snap.Collections.Activity = views
		case booking.KindPackage:
			snap.Collections.Package = views
		case booking.KindTour:
			snap.Collections.Tour = views
		}
	}

	l.mu.Lock()
	if l.generations[key] != gen {
		l.mu.Unlock()
		l.count(role, "superseded")
		l.logger.Debug("fetch cycle discarded", "role", role, "generation", gen)
		return nil, ErrSuperseded
	}
	l.snapshots[key] = snap
	l.mu.Unlock()

	l.count(role, "ok")
	if role == booking.RoleCustomer && key.principal == "" {
		l.recordBuckets(snap)
	}
	l.logger.Debug("fetch cycle published", "role", role, "generation", gen,
		"activity", len(snap.Collections.Activity), "package", len(snap.Collections.Package), "tour", len(snap.Collections.Tour))
	return snap, nil
}

// Snapshot returns the latest snapshot published for role and the caller
// carried by ctx.
func (l *Loader) Snapshot(ctx context.Context, role booking.Role) (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap, ok := l.snapshots[surfaceKey{role: role, principal: principalOf(ctx)}]
	if !ok {
		return nil, ErrNotReady
	}
	return snap, nil
}

// Load runs a fresh cycle. When the cycle is overtaken, the snapshot the
// newer cycle of the same caller published (or ErrNotReady) is returned
// instead.
func (l *Loader) Load(ctx context.Context, role booking.Role) (*Snapshot, error) {
	key := surfaceKey{role: role, principal: principalOf(ctx)}
	l.mu.Lock()
	l.loads[key]++
	l.mu.Unlock()
	defer l.release(key)

	snap, err := l.Refresh(ctx, role)
	if errors.Is(err, ErrSuperseded) {
		return l.Snapshot(ctx, role)
	}
	return snap, err
}

// release forgets a caller's surface once its last Load returns. The
// service identity keeps its snapshots for cached reads.
func (l *Loader) release(key surfaceKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[key]--
	if l.loads[key] > 0 {
		return
	}
	delete(l.loads, key)
	if key.principal != "" {
		delete(l.snapshots, key)
		delete(l.generations, key)
	}
}

func (l *Loader) recordBuckets(snap *Snapshot) {
	if l.metrics == nil {
		return
	}
	b := booking.ClassifyCollections(snap.Collections, l.now())
	l.metrics.BucketSize.WithLabelValues(string(booking.BucketActive)).Set(float64(len(b.Active)))
	l.metrics.BucketSize.WithLabelValues(string(booking.BucketHistory)).Set(float64(len(b.History)))
	l.metrics.BucketSize.WithLabelValues(string(booking.BucketExpired)).Set(float64(len(b.Expired)))
}

func (l *Loader) count(role booking.Role, outcome string) {
	if l.metrics != nil {
		l.metrics.FetchCycles.WithLabelValues(string(role), outcome).Inc()
	}
}

func (l *Loader) observe(role booking.Role, started time.Time) {
	if l.metrics != nil {
		l.metrics.FetchDuration.WithLabelValues(string(role)).Observe(time.Since(started).Seconds())
	}
}
