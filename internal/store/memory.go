package store

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

var (
	// ErrNotFound is returned when no data is available for a given airport.
	ErrNotFound = errors.New("no weather data for airport")
)

// SnapshotHistory holds a time-ordered list of fused snapshots for an airport.
type SnapshotHistory struct {
	Snapshots []weather.FusedSnapshot
}

// MemoryStore is a concurrency-safe in-memory implementation of a weather store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: airport key, value: history
	data map[string]*SnapshotHistory

	// retention configuration
	maxHistory int           // max number of snapshots per airport
	maxAge     time.Duration // optional max age for snapshots
	clock      clockwork.Clock
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration, clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		data:       make(map[string]*SnapshotHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		clock:      clock,
	}
}

// SaveSnapshot appends a new snapshot for an airport and enforces retention.
func (s *MemoryStore) SaveSnapshot(airport weather.Airport, snapshot weather.FusedSnapshot) {
	key := airport.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[key]
	if !ok {
		history = &SnapshotHistory{}
		s.data[key] = history
	}

	history.Snapshots = append(history.Snapshots, snapshot)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Snapshots) > s.maxHistory {
		over := len(history.Snapshots) - s.maxHistory
		history.Snapshots = history.Snapshots[over:]
	}

	// Enforce retention by age. The newest snapshot is always kept.
	if s.maxAge > 0 {
		cutoff := s.clock.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Snapshots)-1; i++ {
			if !history.Snapshots[i].AggregatedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			history.Snapshots = history.Snapshots[i:]
		}
	}
}

// GetLatest returns the most recent snapshot for an airport.
func (s *MemoryStore) GetLatest(airport weather.Airport) (weather.FusedSnapshot, error) {
	key := airport.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Snapshots) == 0 {
		return weather.FusedSnapshot{}, ErrNotFound
	}
	return history.Snapshots[len(history.Snapshots)-1], nil
}

// GetRange returns all snapshots for an airport aggregated between from and to (inclusive).
func (s *MemoryStore) GetRange(airport weather.Airport, from, to time.Time) ([]weather.FusedSnapshot, error) {
	key := airport.Key()

	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[key]
	if !ok || len(history.Snapshots) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.FusedSnapshot
	for _, snap := range history.Snapshots {
		if !snap.AggregatedAt.Before(from) && !snap.AggregatedAt.After(to) {
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
