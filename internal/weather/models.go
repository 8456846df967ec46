package weather

import (
	"strings"
	"time"
)

// Field names a fused observation field. The names double as keys of the
// attribution maps exposed to API consumers.
type Field string

const (
	FieldTemperature   Field = "temperature"
	FieldDewpoint      Field = "dewpoint"
	FieldHumidity      Field = "humidity"
	FieldPressure      Field = "pressure"
	FieldPrecipAccum   Field = "precip_accum"
	FieldVisibility    Field = "visibility"
	FieldCeiling       Field = "ceiling"
	FieldCloudCover    Field = "cloud_cover"
	FieldWindSpeed     Field = "wind_speed"
	FieldWindDirection Field = "wind_direction"
	FieldGustSpeed     Field = "gust_speed"
	FieldGustFactor    Field = "gust_factor"

	// FieldWind is the policy key for the wind group as a whole. It never
	// appears in attribution maps.
	FieldWind Field = "wind"
)

// ScalarFields lists the independently fused fields in output order.
var ScalarFields = []Field{
	FieldTemperature,
	FieldDewpoint,
	FieldHumidity,
	FieldPressure,
	FieldPrecipAccum,
	FieldVisibility,
	FieldCeiling,
	FieldCloudCover,
}

// WindFields are the output fields produced by the wind group.
var WindFields = []Field{
	FieldWindSpeed,
	FieldWindDirection,
	FieldGustSpeed,
	FieldGustFactor,
}

// UnlimitedCeilingFt is reported when a source observed the sky and found no
// broken, overcast or obscured layer. It is an observation, not a missing value.
const UnlimitedCeilingFt = 99999

// Airport identifies the place a fused snapshot is produced for.
type Airport struct {
	ICAO        string   `json:"icao"`
	Name        string   `json:"name"`
	ElevationFt float64  `json:"elevationFt"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for indexing this airport in stores.
func (a Airport) Key() string {
	return NormalizeICAO(a.ICAO)
}

// NormalizeICAO upper-cases and trims a station identifier so comparisons
// between configuration and feeds are stable.
func NormalizeICAO(icao string) string {
	return strings.ToUpper(strings.TrimSpace(icao))
}

// Reading is one optional measurement. A present reading always carries both
// a value and an observation time; an absent one only remembers its source.
type Reading[T any] struct {
	source     string
	value      T
	observedAt time.Time
	present    bool
}

// NewReading builds a present reading.
func NewReading[T any](source string, value T, observedAt time.Time) Reading[T] {
	return Reading[T]{
		source:     source,
		value:      value,
		observedAt: observedAt,
		present:    true,
	}
}

// AbsentReading builds a reading the source did not report.
func AbsentReading[T any](source string) Reading[T] {
	return Reading[T]{source: source}
}

// ReadingFromPtr is a convenience for fetchers decoding optional JSON values.
func ReadingFromPtr[T any](source string, value *T, observedAt time.Time) Reading[T] {
	if value == nil || observedAt.IsZero() {
		return AbsentReading[T](source)
	}
	return NewReading(source, *value, observedAt)
}

func (r Reading[T]) Present() bool  { return r.present }
func (r Reading[T]) Source() string { return r.source }

func (r Reading[T]) Value() (T, bool) {
	return r.value, r.present
}

func (r Reading[T]) ObservedAt() (time.Time, bool) {
	return r.observedAt, r.present
}

// WindGroup is speed, direction and optional gust reported together. It is
// either complete or absent; a group missing speed or direction is absent.
type WindGroup struct {
	complete   bool
	speed      float64
	direction  float64
	gust       *float64
	source     string
	observedAt time.Time
}

// NewWindGroup returns a complete group when both speed and direction are
// given, and an absent group otherwise. Gust alone never completes a group.
func NewWindGroup(source string, speed, direction, gust *float64, observedAt time.Time) WindGroup {
	if speed == nil || direction == nil || observedAt.IsZero() {
		return AbsentWind(source)
	}
	w := WindGroup{
		complete:   true,
		speed:      *speed,
		direction:  *direction,
		source:     source,
		observedAt: observedAt,
	}
	if gust != nil {
		g := *gust
		w.gust = &g
	}
	return w
}

// AbsentWind returns a group that contributes nothing.
func AbsentWind(source string) WindGroup {
	return WindGroup{source: source}
}

func (w WindGroup) Complete() bool        { return w.complete }
func (w WindGroup) Source() string        { return w.source }
func (w WindGroup) ObservedAt() time.Time { return w.observedAt }
func (w WindGroup) Speed() float64        { return w.speed }
func (w WindGroup) Direction() float64    { return w.direction }

// Gust returns the gust speed when the group carries one.
func (w WindGroup) Gust() (float64, bool) {
	if w.gust == nil {
		return 0, false
	}
	return *w.gust, true
}

// Snapshot is one source's report for one refresh cycle.
type Snapshot struct {
	SourceID  string
	FetchedAt time.Time

	Temperature Reading[float64] // °C
	Dewpoint    Reading[float64] // °C
	Humidity    Reading[float64] // %
	Pressure    Reading[float64] // altimeter, inHg
	PrecipAccum Reading[float64] // inches since local midnight
	Visibility  Reading[float64] // statute miles
	Ceiling     Reading[float64] // ft AGL
	CloudCover  Reading[string]  // SKC, CLR, FEW, SCT, BKN, OVC, VV

	Wind WindGroup // kt, degrees true

	RawMETAR string
	Valid    bool

	// StationICAO is set for METAR-class sources keyed by a station
	// identifier and left empty for proprietary on-site station APIs.
	StationICAO string
}

// NewSnapshot returns a valid snapshot with every field absent.
func NewSnapshot(sourceID string, fetchedAt time.Time) Snapshot {
	return Snapshot{
		SourceID:    sourceID,
		FetchedAt:   fetchedAt,
		Temperature: AbsentReading[float64](sourceID),
		Dewpoint:    AbsentReading[float64](sourceID),
		Humidity:    AbsentReading[float64](sourceID),
		Pressure:    AbsentReading[float64](sourceID),
		PrecipAccum: AbsentReading[float64](sourceID),
		Visibility:  AbsentReading[float64](sourceID),
		Ceiling:     AbsentReading[float64](sourceID),
		CloudCover:  AbsentReading[string](sourceID),
		Wind:        AbsentWind(sourceID),
		Valid:       true,
	}
}

// FusedSnapshot is the per-field fused view of one refresh cycle. A nil field
// means no qualifying source existed and must be shown as unavailable.
type FusedSnapshot struct {
	Airport      string    `json:"airport"`
	CycleID      string    `json:"cycleId,omitempty"`
	AggregatedAt time.Time `json:"aggregatedAt"` // always UTC

	Temperature   *float64 `json:"temperature"`
	Dewpoint      *float64 `json:"dewpoint"`
	Humidity      *float64 `json:"humidity"`
	Pressure      *float64 `json:"pressure"`
	PrecipAccum   *float64 `json:"precip_accum"`
	Visibility    *float64 `json:"visibility"`
	Ceiling       *float64 `json:"ceiling"`
	CloudCover    *string  `json:"cloud_cover"`
	WindSpeed     *float64 `json:"wind_speed"`
	WindDirection *float64 `json:"wind_direction"`
	GustSpeed     *float64 `json:"gust_speed"`
	GustFactor    *float64 `json:"gust_factor"`

	// RawMETAR is the raw text of the source that won ceiling, or visibility
	// when ceiling is unavailable, if that source supplied one.
	RawMETAR *string `json:"raw_metar,omitempty"`

	FieldSource  map[Field]string    `json:"_field_source_map"`
	FieldObsTime map[Field]time.Time `json:"_field_obs_time_map"`
	FieldStation map[Field]string    `json:"_field_station_map"`
}

// Float returns the fused value of a numeric field.
func (f FusedSnapshot) Float(field Field) *float64 {
	switch field {
	case FieldTemperature:
		return f.Temperature
	case FieldDewpoint:
		return f.Dewpoint
	case FieldHumidity:
		return f.Humidity
	case FieldPressure:
		return f.Pressure
	case FieldPrecipAccum:
		return f.PrecipAccum
	case FieldVisibility:
		return f.Visibility
	case FieldCeiling:
		return f.Ceiling
	case FieldWindSpeed:
		return f.WindSpeed
	case FieldWindDirection:
		return f.WindDirection
	case FieldGustSpeed:
		return f.GustSpeed
	case FieldGustFactor:
		return f.GustFactor
	default:
		return nil
	}
}

// Available reports whether a field resolved to a value this cycle.
func (f FusedSnapshot) Available(field Field) bool {
	if field == FieldCloudCover {
		return f.CloudCover != nil
	}
	return f.Float(field) != nil
}

// Unavailable lists the fields that resolved to nil, in output order.
func (f FusedSnapshot) Unavailable() []Field {
	var missing []Field
	for _, field := range append(append([]Field{}, ScalarFields...), WindFields...) {
		if !f.Available(field) {
			missing = append(missing, field)
		}
	}
	return missing
}

// Sources returns the distinct winning source ids in order of first
// appearance across the output fields.
func (f FusedSnapshot) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, field := range append(append([]Field{}, ScalarFields...), WindFields...) {
		src, ok := f.FieldSource[field]
		if !ok || seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, src)
	}
	return out
}
