package weather

import "time"

// AggregateOptions carries per-call inputs that are not part of the policy.
type AggregateOptions struct {
	// MaxAges overrides the policy's max age for the listed sources on this
	// call only.
	MaxAges map[string]time.Duration

	// LocalAirportICAO enables local-over-neighbor precedence. When empty,
	// every eligible source competes on freshness alone.
	LocalAirportICAO string
}

// Aggregator fuses one cycle's snapshots field by field. It holds no state
// between calls and is safe for concurrent use.
type Aggregator struct {
	policy Policy
}

// NewAggregator validates the policy and returns an Aggregator using it.
func NewAggregator(policy Policy) (*Aggregator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{policy: policy}, nil
}

// Policy returns the policy the aggregator was built with.
func (a *Aggregator) Policy() Policy {
	return a.policy
}

// Aggregate picks, for every field independently, the freshest eligible
// value. A field without a fresh, valid, local-enough candidate is left nil
// and gets no attribution. Only malformed overrides produce an error.
func (a *Aggregator) Aggregate(snapshots []Snapshot, now time.Time, opts AggregateOptions) (FusedSnapshot, error) {
	if err := validateMaxAges(opts.MaxAges); err != nil {
		return FusedSnapshot{}, err
	}

	sel := selector{
		policy:    a.policy.WithMaxAges(opts.MaxAges),
		now:       now,
		local:     NormalizeICAO(opts.LocalAirportICAO),
		snapshots: snapshots,
	}

	out := FusedSnapshot{
		Airport:      sel.local,
		AggregatedAt: now.UTC(),
		FieldSource:  make(map[Field]string),
		FieldObsTime: make(map[Field]time.Time),
		FieldStation: make(map[Field]string),
	}

	scalars := []struct {
		field Field
		dst   **float64
		get   func(*Snapshot) Reading[float64]
	}{
		{FieldTemperature, &out.Temperature, func(s *Snapshot) Reading[float64] { return s.Temperature }},
		{FieldDewpoint, &out.Dewpoint, func(s *Snapshot) Reading[float64] { return s.Dewpoint }},
		{FieldHumidity, &out.Humidity, func(s *Snapshot) Reading[float64] { return s.Humidity }},
		{FieldPressure, &out.Pressure, func(s *Snapshot) Reading[float64] { return s.Pressure }},
		{FieldPrecipAccum, &out.PrecipAccum, func(s *Snapshot) Reading[float64] { return s.PrecipAccum }},
		{FieldVisibility, &out.Visibility, func(s *Snapshot) Reading[float64] { return s.Visibility }},
		{FieldCeiling, &out.Ceiling, func(s *Snapshot) Reading[float64] { return s.Ceiling }},
	}

	winners := make(map[Field]origin)
	for _, sc := range scalars {
		w, ok := selectField(sel, sc.field, readingAccessor(sc.get))
		if !ok {
			continue
		}
		v := w.value
		*sc.dst = &v
		out.attribute(sc.field, w.origin)
		winners[sc.field] = w.origin
	}

	if w, ok := selectField(sel, FieldCloudCover, readingAccessor(func(s *Snapshot) Reading[string] { return s.CloudCover })); ok {
		v := w.value
		out.CloudCover = &v
		out.attribute(FieldCloudCover, w.origin)
	}

	if w, ok := selectField[WindGroup](sel, FieldWind, windAccessor); ok {
		speed, direction := w.value.Speed(), w.value.Direction()
		out.WindSpeed = &speed
		out.WindDirection = &direction
		out.attribute(FieldWindSpeed, w.origin)
		out.attribute(FieldWindDirection, w.origin)

		if gust, ok := w.value.Gust(); ok {
			factor := gust - speed
			out.GustSpeed = &gust
			out.GustFactor = &factor
			out.attribute(FieldGustSpeed, w.origin)
			out.attribute(FieldGustFactor, w.origin)
		}
	}

	out.RawMETAR = rawMETAR(snapshots, winners)

	return out, nil
}

func (f *FusedSnapshot) attribute(field Field, o origin) {
	f.FieldSource[field] = o.source
	f.FieldObsTime[field] = o.observedAt
	f.FieldStation[field] = o.station
}

// rawMETAR returns the raw report of whichever source won ceiling, falling
// back to visibility. Those are the fields a pilot reads the raw text for.
func rawMETAR(snapshots []Snapshot, winners map[Field]origin) *string {
	for _, field := range []Field{FieldCeiling, FieldVisibility} {
		o, ok := winners[field]
		if !ok {
			continue
		}
		if raw := snapshots[o.index].RawMETAR; raw != "" {
			return &raw
		}
	}
	return nil
}

// origin identifies where a candidate value came from.
type origin struct {
	source     string
	station    string
	observedAt time.Time
	index      int
}

type candidate[T any] struct {
	value T
	origin
}

// accessor extracts a field's value and observation time from a snapshot.
// ok is false when the snapshot has nothing usable for the field.
type accessor[T any] func(*Snapshot) (value T, observedAt time.Time, ok bool)

func readingAccessor[T any](get func(*Snapshot) Reading[T]) accessor[T] {
	return func(s *Snapshot) (T, time.Time, bool) {
		r := get(s)
		v, ok := r.Value()
		at, _ := r.ObservedAt()
		return v, at, ok
	}
}

func windAccessor(s *Snapshot) (WindGroup, time.Time, bool) {
	return s.Wind, s.Wind.ObservedAt(), s.Wind.Complete()
}

type selector struct {
	policy    Policy
	now       time.Time
	local     string
	snapshots []Snapshot
}

// selectField runs filter, demotion and freshness selection for one field.
func selectField[T any](s selector, field Field, get accessor[T]) (candidate[T], bool) {
	var cands []candidate[T]
	for i := range s.snapshots {
		snap := &s.snapshots[i]
		if !snap.Valid {
			continue
		}
		value, observedAt, ok := get(snap)
		if !ok || s.stale(snap.SourceID, observedAt) {
			continue
		}
		cands = append(cands, candidate[T]{
			value: value,
			origin: origin{
				source:     snap.SourceID,
				station:    NormalizeICAO(snap.StationICAO),
				observedAt: observedAt,
				index:      i,
			},
		})
	}

	cands = demoteNeighbors(s.local, cands)
	if len(cands) == 0 {
		return candidate[T]{}, false
	}

	best := cands[0]
	for _, c := range cands[1:] {
		if s.beats(field, c.origin, best.origin) {
			best = c
		}
	}
	return best, true
}

// MaxClockSkew is how far ahead of the reference time an observation may be
// stamped. Later observations come from a source with a wrong clock.
const MaxClockSkew = 5 * time.Minute

// stale reports whether an observation is unusable by age: older than the
// source's max age, or stamped further in the future than MaxClockSkew.
func (s selector) stale(source string, observedAt time.Time) bool {
	if observedAt.Sub(s.now) > MaxClockSkew {
		return true
	}
	limit, ok := s.policy.maxAge(source)
	if !ok {
		return false
	}
	return s.now.Sub(observedAt) > limit
}

// isLocal reports whether a candidate speaks for the airport: either it has
// no station identity (an on-site sensor) or its station matches.
func isLocal(local string, o origin) bool {
	return o.station == "" || o.station == local
}

// demoteNeighbors drops neighboring stations when at least one local
// candidate exists. Without a local airport nothing is demoted.
func demoteNeighbors[T any](local string, cands []candidate[T]) []candidate[T] {
	if local == "" {
		return cands
	}
	var locals []candidate[T]
	for _, c := range cands {
		if isLocal(local, c.origin) {
			locals = append(locals, c)
		}
	}
	if len(locals) == 0 {
		return cands
	}
	return locals
}

// beats orders candidates: newer observation first, then policy rank (ranked
// before unranked), then source id, then input order.
func (s selector) beats(field Field, c, best origin) bool {
	if !c.observedAt.Equal(best.observedAt) {
		return c.observedAt.After(best.observedAt)
	}

	rc, rb := s.policy.rank(field, c.source), s.policy.rank(field, best.source)
	if rc != rb {
		switch {
		case rc < 0:
			return false
		case rb < 0:
			return true
		default:
			return rc < rb
		}
	}

	if c.source != best.source {
		return c.source < best.source
	}
	return c.index < best.index
}
