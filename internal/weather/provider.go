package weather

import (
	"context"
	"time"
)

// Provider abstracts one configured observation source for one airport
// (e.g. an on-site Tempest station, the airport's METAR, a neighbor's METAR).
type Provider interface {
	SourceID() string
	Fetch(ctx context.Context) (Snapshot, error)
}

// Store is the contract the in-memory store (and any future persistent store) must satisfy.
type Store interface {
	SaveSnapshot(airport Airport, snapshot FusedSnapshot)
	GetLatest(airport Airport) (FusedSnapshot, error)
	GetRange(airport Airport, from, to time.Time) ([]FusedSnapshot, error)
}

// Publisher forwards fused snapshots to downstream consumers such as
// extremes trackers.
type Publisher interface {
	Publish(ctx context.Context, snapshot FusedSnapshot) error
}
