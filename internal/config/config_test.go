package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

const validAirports = `
airports:
  - icao: kspb
    name: Scappoose Industrial Airpark
    elevation_ft: 58
    lat: 45.7710
    lon: -122.8618
    sources:
      - id: tempest-kspb
        type: tempest
        station: "123456"
        max_age_seconds: 300
      - id: metar-kspb
        type: metar
        station: KSPB
        max_age_seconds: 5400
      - id: metar-kpdx
        type: metar
        station: KPDX
    preferences:
      wind: [tempest-kspb, metar-kspb]
      ceiling: [metar-kspb, metar-kpdx]
`

func TestParseAirports(t *testing.T) {
	airports, err := ParseAirports([]byte(validAirports))
	require.NoError(t, err)
	require.Len(t, airports, 1)

	a := airports[0]
	assert.Equal(t, weather.Airport{
		ICAO:        "KSPB",
		Name:        "Scappoose Industrial Airpark",
		ElevationFt: 58,
		Lat:         a.Lat,
		Lon:         a.Lon,
	}, a.Airport())

	p := a.Policy()
	assert.Equal(t, map[string]time.Duration{
		"tempest-kspb": 5 * time.Minute,
		"metar-kspb":   90 * time.Minute,
	}, p.MaxAges)
	assert.Equal(t, []string{"tempest-kspb", "metar-kspb"}, p.Preferences[weather.FieldWind])
}

func TestParseAirports_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no airports", `airports: []`},
		{"bad icao", `
airports:
  - icao: SP
    sources: [{id: a, type: metar, station: KSPB}]`},
		{"icao too long", `
airports:
  - icao: KSPBX
    sources: [{id: a, type: metar, station: KSPB}]`},
		{"no sources", `
airports:
  - icao: KSPB
    sources: []`},
		{"unknown type", `
airports:
  - icao: KSPB
    sources: [{id: a, type: openweather, station: KSPB}]`},
		{"negative max age", `
airports:
  - icao: KSPB
    sources: [{id: a, type: metar, station: KSPB, max_age_seconds: -1}]`},
		{"duplicate source", `
airports:
  - icao: KSPB
    sources: [{id: a, type: metar, station: KSPB}, {id: a, type: metar, station: KPDX}]`},
		{"duplicate airport", `
airports:
  - icao: KSPB
    sources: [{id: a, type: metar, station: KSPB}]
  - icao: kspb
    sources: [{id: b, type: metar, station: KSPB}]`},
		{"unknown preference field", `
airports:
  - icao: KSPB
    sources: [{id: a, type: metar, station: KSPB}]
    preferences:
      gust_factor: [a]`},
		{"malformed yaml", `airports: [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAirports([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParseAirports_FAAIdentifier(t *testing.T) {
	airports, err := ParseAirports([]byte(`
airports:
  - icao: s39
    name: Prineville
    sources: [{id: tempest-s39, type: tempest, station: "98765"}, {id: metar-krdm, type: metar, station: KRDM}]`))
	require.NoError(t, err)
	require.Len(t, airports, 1)
	assert.Equal(t, "S39", airports[0].Airport().ICAO)
}

func writeAirports(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "airports.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validAirports), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AIRPORTS_FILE", writeAirports(t))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Minute, cfg.FetchInterval)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 1440, cfg.StoreMaxHistory)
	assert.Equal(t, 24*time.Hour, cfg.StoreMaxAge)
	assert.Equal(t, "fused-weather", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Len(t, cfg.Airports, 1)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AIRPORTS_FILE", writeAirports(t))
	t.Setenv("PORT", "9090")
	t.Setenv("FETCH_INTERVAL", "5m")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.FetchInterval)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("AIRPORTS_FILE", writeAirports(t))
		t.Setenv("HTTP_TIMEOUT", "soon")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("negative duration", func(t *testing.T) {
		t.Setenv("AIRPORTS_FILE", writeAirports(t))
		t.Setenv("STORE_MAX_AGE", "-1h")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("missing airports file", func(t *testing.T) {
		t.Setenv("AIRPORTS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestBuildFeeds(t *testing.T) {
	airports, err := ParseAirports([]byte(validAirports))
	require.NoError(t, err)
	cfg := &AppConfig{Airports: airports, TempestToken: "t"}

	feeds, err := cfg.BuildFeeds(http.DefaultClient)
	require.NoError(t, err)
	require.Len(t, feeds, 1)

	f := feeds[0]
	assert.Equal(t, "KSPB", f.Airport.ICAO)
	require.Len(t, f.Providers, 3)
	assert.Equal(t, "tempest-kspb", f.Providers[0].SourceID())
	assert.Equal(t, "metar-kpdx", f.Providers[2].SourceID())
	assert.Equal(t, 5*time.Minute, f.Aggregator.Policy().MaxAges["tempest-kspb"])
}
