package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/airport-weather-fusion/internal/observability"
)

// ErrUnknownAirport is returned for an ICAO code with no configured feed.
var ErrUnknownAirport = errors.New("unknown airport")

// Feed binds an airport to its sources and aggregation policy.
type Feed struct {
	Airport    Airport
	Providers  []Provider
	Aggregator *Aggregator
}

// Service orchestrates fetching from every source of an airport, fusing the
// snapshots and persisting the result.
type Service struct {
	store     Store
	feeds     map[string]Feed
	order     []string
	metrics   *observability.Metrics
	clock     clockwork.Clock
	publisher Publisher
}

// Option customises a Service.
type Option func(*Service)

// WithClock sets the time source used as the aggregation reference time.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithPublisher forwards every stored snapshot to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// NewService creates a new Service.
func NewService(store Store, feeds []Feed, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		store:   store,
		feeds:   make(map[string]Feed, len(feeds)),
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
	for _, f := range feeds {
		key := f.Airport.Key()
		if _, dup := s.feeds[key]; !dup {
			s.order = append(s.order, key)
		}
		s.feeds[key] = f
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Airports returns the configured airports in configuration order.
func (s *Service) Airports() []Airport {
	out := make([]Airport, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.feeds[key].Airport)
	}
	return out
}

// Airport looks up a configured airport by ICAO code.
func (s *Service) Airport(icao string) (Airport, error) {
	f, ok := s.feeds[NormalizeICAO(icao)]
	if !ok {
		return Airport{}, fmt.Errorf("%w: %s", ErrUnknownAirport, icao)
	}
	return f.Airport, nil
}

// Refresh fetches every source of the airport concurrently, fuses the
// snapshots and stores the result. A cycle in which every source failed is
// stored too, so readers see unavailable fields rather than the last cycle.
func (s *Service) Refresh(ctx context.Context, icao string) error {
	feed, ok := s.feeds[NormalizeICAO(icao)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAirport, icao)
	}

	start := s.clock.Now()
	fused, err := s.fuse(ctx, feed, nil)
	if err != nil {
		return err
	}

	key := feed.Airport.Key()
	s.store.SaveSnapshot(feed.Airport, fused)
	s.observe(key, fused, s.clock.Since(start))

	if missing := fused.Unavailable(); len(missing) > 0 {
		log.Printf("INFO: %s cycle %s: sources=%v unavailable=%v", key, fused.CycleID, fused.Sources(), missing)
	} else {
		log.Printf("DEBUG: %s cycle %s: sources=%v", key, fused.CycleID, fused.Sources())
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, fused); err != nil {
			// A failed publish does not fail the cycle; the snapshot is stored.
			s.metrics.PublishErrors.Inc()
			log.Printf("ERROR: publish %s cycle %s: %v", key, fused.CycleID, err)
		} else {
			s.metrics.SnapshotsPublished.Inc()
		}
	}
	return nil
}

// RefreshAll refreshes every configured airport concurrently.
func (s *Service) RefreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, key := range s.order {
		key := key
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Refresh(ctx, key); err != nil {
				log.Printf("ERROR: refresh failed for %s: %v", key, err)
			}
		}()
	}
	wg.Wait()
}

// Preview fetches and fuses like Refresh but with per-source max age
// overrides and without storing or publishing the result.
func (s *Service) Preview(ctx context.Context, icao string, maxAges map[string]time.Duration) (FusedSnapshot, error) {
	feed, ok := s.feeds[NormalizeICAO(icao)]
	if !ok {
		return FusedSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownAirport, icao)
	}
	return s.fuse(ctx, feed, maxAges)
}

func (s *Service) fuse(ctx context.Context, feed Feed, maxAges map[string]time.Duration) (FusedSnapshot, error) {
	snapshots := s.collect(ctx, feed)

	fused, err := feed.Aggregator.Aggregate(snapshots, s.clock.Now(), AggregateOptions{
		MaxAges:          maxAges,
		LocalAirportICAO: feed.Airport.ICAO,
	})
	if err != nil {
		return FusedSnapshot{}, fmt.Errorf("aggregate %s: %w", feed.Airport.Key(), err)
	}
	fused.Airport = feed.Airport.Key()
	fused.CycleID = uuid.NewString()
	return fused, nil
}

// collect fetches from all providers concurrently. Failed sources are left
// out; snapshot order follows provider order so results stay deterministic.
func (s *Service) collect(ctx context.Context, feed Feed) []Snapshot {
	if len(feed.Providers) == 0 {
		log.Printf("ERROR: no sources configured for %s", feed.Airport.Key())
		return nil
	}

	var (
		wg      sync.WaitGroup
		results = make([]*Snapshot, len(feed.Providers))
	)

	for i, p := range feed.Providers {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()

			snap, err := p.Fetch(ctx)
			if err != nil {
				// Log and continue; we want partial success when possible.
				s.metrics.ProviderFetches.WithLabelValues(p.SourceID(), "error").Inc()
				log.Printf("provider %s fetch failed for %s: %v", p.SourceID(), feed.Airport.Key(), err)
				return
			}
			outcome := "success"
			if !snap.Valid {
				outcome = "invalid"
			}
			s.metrics.ProviderFetches.WithLabelValues(p.SourceID(), outcome).Inc()
			results[i] = &snap
		}()
	}
	wg.Wait()

	snapshots := make([]Snapshot, 0, len(results))
	for _, r := range results {
		if r != nil {
			snapshots = append(snapshots, *r)
		}
	}
	return snapshots
}

func (s *Service) observe(key string, fused FusedSnapshot, took time.Duration) {
	s.metrics.RefreshCycles.WithLabelValues(key).Inc()
	s.metrics.RefreshDuration.WithLabelValues(key).Observe(took.Seconds())
	s.metrics.SourcesUsed.WithLabelValues(key).Set(float64(len(fused.Sources())))
	for _, field := range fused.Unavailable() {
		s.metrics.FieldsUnavailable.WithLabelValues(key, string(field)).Inc()
	}
}

// GetLatest returns the most recent fused snapshot for an airport.
func (s *Service) GetLatest(icao string) (FusedSnapshot, error) {
	airport, err := s.Airport(icao)
	if err != nil {
		return FusedSnapshot{}, err
	}
	return s.store.GetLatest(airport)
}

// GetRange returns fused snapshots aggregated between from and to.
func (s *Service) GetRange(icao string, from, to time.Time) ([]FusedSnapshot, error) {
	airport, err := s.Airport(icao)
	if err != nil {
		return nil, err
	}
	return s.store.GetRange(airport, from, to)
}
