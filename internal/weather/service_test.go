package weather

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/airport-weather-fusion/internal/observability"
)

type fakeProvider struct {
	id   string
	snap Snapshot
	err  error
}

func (f *fakeProvider) SourceID() string { return f.id }

func (f *fakeProvider) Fetch(context.Context) (Snapshot, error) {
	return f.snap, f.err
}

type memStore struct {
	mu    sync.Mutex
	saved map[string][]FusedSnapshot
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string][]FusedSnapshot)}
}

func (m *memStore) SaveSnapshot(a Airport, f FusedSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[a.Key()] = append(m.saved[a.Key()], f)
}

func (m *memStore) GetLatest(a Airport) (FusedSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.saved[a.Key()]
	if len(s) == 0 {
		return FusedSnapshot{}, errors.New("not found")
	}
	return s[len(s)-1], nil
}

func (m *memStore) GetRange(a Airport, from, to time.Time) ([]FusedSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[a.Key()], nil
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []FusedSnapshot
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, f FusedSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, f)
	return nil
}

func kspbFeed(t *testing.T, providers ...Provider) Feed {
	t.Helper()
	return Feed{
		Airport:    Airport{ICAO: "KSPB", Name: "Scappoose Industrial Airpark", ElevationFt: 58},
		Providers:  providers,
		Aggregator: newTestAggregator(t, Policy{MaxAges: map[string]time.Duration{"tempest": 5 * time.Minute}}),
	}
}

func TestService_Refresh(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	tempest := &fakeProvider{id: "tempest", snap: snapshotWith("tempest", func(s *Snapshot) {
		s.Temperature = NewReading("tempest", 11.0, ago(time.Minute))
		s.Wind = NewWindGroup("tempest", ptr(6), ptr(300), ptr(14), ago(time.Minute))
	})}
	metar := &fakeProvider{id: "metar-kspb", snap: snapshotWith("metar-kspb", func(s *Snapshot) {
		s.StationICAO = "KSPB"
		s.Ceiling = NewReading("metar-kspb", 1800.0, ago(20*time.Minute))
		s.RawMETAR = "KSPB 011135Z AUTO 30006G14KT 10SM BKN018 11/07 A3001"
	})}
	down := &fakeProvider{id: "mesonet", err: errors.New("connection refused")}

	store := newMemStore()
	pub := &fakePublisher{}
	svc := NewService(store, []Feed{kspbFeed(t, tempest, metar, down)}, observability.NewMetricsForTesting(),
		WithClock(clock), WithPublisher(pub))

	require.NoError(t, svc.Refresh(context.Background(), "kspb"))

	latest, err := svc.GetLatest("KSPB")
	require.NoError(t, err)
	assert.Equal(t, "KSPB", latest.Airport)
	assert.NotEmpty(t, latest.CycleID)
	assert.Equal(t, testNow, latest.AggregatedAt)
	assert.Equal(t, 11.0, *latest.Temperature)
	assert.Equal(t, 8.0, *latest.GustFactor)
	assert.Equal(t, 1800.0, *latest.Ceiling)
	require.NotNil(t, latest.RawMETAR)
	assert.Equal(t, []string{"tempest", "metar-kspb"}, latest.Sources())

	require.Len(t, pub.sent, 1)
	assert.Equal(t, latest.CycleID, pub.sent[0].CycleID)
}

func TestService_RefreshStoresUnavailableWhenAllSourcesFail(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	good := &fakeProvider{id: "tempest", snap: snapshotWith("tempest", func(s *Snapshot) {
		s.Temperature = NewReading("tempest", 11.0, ago(time.Minute))
	})}
	store := newMemStore()
	feed := kspbFeed(t, good)
	svc := NewService(store, []Feed{feed}, observability.NewMetricsForTesting(), WithClock(clock))

	require.NoError(t, svc.Refresh(context.Background(), "KSPB"))

	good.snap = Snapshot{}
	good.err = errors.New("timeout")
	clock.Advance(time.Minute)
	require.NoError(t, svc.Refresh(context.Background(), "KSPB"))

	latest, err := svc.GetLatest("KSPB")
	require.NoError(t, err)
	assert.Nil(t, latest.Temperature)
	assert.Empty(t, latest.FieldSource)
	assert.Len(t, store.saved["KSPB"], 2)
}

func TestService_PublishFailureDoesNotFailRefresh(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	svc := NewService(newMemStore(), []Feed{kspbFeed(t)}, observability.NewMetricsForTesting(),
		WithClock(clockwork.NewFakeClockAt(testNow)), WithPublisher(pub))

	assert.NoError(t, svc.Refresh(context.Background(), "KSPB"))

	_, err := svc.GetLatest("KSPB")
	assert.NoError(t, err)
}

func TestService_UnknownAirport(t *testing.T) {
	svc := NewService(newMemStore(), []Feed{kspbFeed(t)}, observability.NewMetricsForTesting())

	assert.ErrorIs(t, svc.Refresh(context.Background(), "KPDX"), ErrUnknownAirport)
	_, err := svc.Preview(context.Background(), "KPDX", nil)
	assert.ErrorIs(t, err, ErrUnknownAirport)
	_, err = svc.GetLatest("KPDX")
	assert.ErrorIs(t, err, ErrUnknownAirport)
	_, err = svc.Airport("KPDX")
	assert.ErrorIs(t, err, ErrUnknownAirport)
}

func TestService_PreviewAppliesOverridesWithoutStoring(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	tempest := &fakeProvider{id: "tempest", snap: snapshotWith("tempest", func(s *Snapshot) {
		s.Temperature = NewReading("tempest", 11.0, ago(2*time.Minute))
	})}
	store := newMemStore()
	svc := NewService(store, []Feed{kspbFeed(t, tempest)}, observability.NewMetricsForTesting(), WithClock(clock))

	preview, err := svc.Preview(context.Background(), "KSPB", map[string]time.Duration{"tempest": time.Minute})
	require.NoError(t, err)
	assert.Nil(t, preview.Temperature)

	preview, err = svc.Preview(context.Background(), "KSPB", nil)
	require.NoError(t, err)
	assert.NotNil(t, preview.Temperature)

	_, err = svc.Preview(context.Background(), "KSPB", map[string]time.Duration{"tempest": -time.Minute})
	assert.ErrorIs(t, err, ErrInvalidPolicy)

	assert.Empty(t, store.saved)
}

func TestService_RefreshAll(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	kpdx := Feed{
		Airport:    Airport{ICAO: "KPDX"},
		Aggregator: newTestAggregator(t, Policy{}),
	}
	store := newMemStore()
	svc := NewService(store, []Feed{kspbFeed(t), kpdx}, observability.NewMetricsForTesting(), WithClock(clock))

	svc.RefreshAll(context.Background())

	assert.Len(t, store.saved["KSPB"], 1)
	assert.Len(t, store.saved["KPDX"], 1)
	assert.Equal(t, []Airport{kspbFeed(t).Airport, kpdx.Airport}, svc.Airports())
}

func TestService_InvalidSnapshotIsCountedButIgnored(t *testing.T) {
	bad := &fakeProvider{id: "tempest", snap: snapshotWith("tempest", func(s *Snapshot) {
		s.Valid = false
		s.Temperature = NewReading("tempest", 40.0, ago(time.Second))
	})}
	svc := NewService(newMemStore(), []Feed{kspbFeed(t, bad)}, observability.NewMetricsForTesting(),
		WithClock(clockwork.NewFakeClockAt(testNow)))

	require.NoError(t, svc.Refresh(context.Background(), "KSPB"))

	latest, err := svc.GetLatest("KSPB")
	require.NoError(t, err)
	assert.Nil(t, latest.Temperature)
}
