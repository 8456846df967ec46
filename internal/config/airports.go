package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/airport-weather-fusion/internal/weather"
	"github.com/i474232898/airport-weather-fusion/internal/weather/providers"
)

var validate = validator.New()

// AirportConfig describes one airport, its sources and its tie-break order.
type AirportConfig struct {
	ICAO        string         `yaml:"icao" validate:"required,min=3,max=4,alphanum"`
	Name        string         `yaml:"name"`
	ElevationFt float64        `yaml:"elevation_ft"`
	Lat         *float64       `yaml:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lon         *float64       `yaml:"lon" validate:"omitempty,gte=-180,lte=180"`
	Sources     []SourceConfig `yaml:"sources" validate:"required,min=1,dive"`

	// Preferences maps a field name (or "wind" for the wind group) to
	// source ids, most preferred first.
	Preferences map[string][]string `yaml:"preferences"`
}

// SourceConfig is one observation source feeding an airport.
type SourceConfig struct {
	ID      string `yaml:"id" validate:"required"`
	Type    string `yaml:"type" validate:"required,oneof=metar tempest mesonet"`
	Station string `yaml:"station" validate:"required"`

	// MaxAgeSeconds rejects observations older than this. Unset means no limit.
	MaxAgeSeconds *int `yaml:"max_age_seconds" validate:"omitempty,min=0"`
}

type airportsFile struct {
	Airports []AirportConfig `yaml:"airports" validate:"required,min=1,dive"`
}

// LoadAirports reads and validates the airports YAML file.
func LoadAirports(path string) ([]AirportConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read airports file: %w", err)
	}
	return ParseAirports(data)
}

// ParseAirports decodes and validates airport configuration.
func ParseAirports(data []byte) ([]AirportConfig, error) {
	var f airportsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse airports file: %w", err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid airports file: %w", err)
	}

	seenAirports := make(map[string]bool)
	for _, a := range f.Airports {
		key := weather.NormalizeICAO(a.ICAO)
		if seenAirports[key] {
			return nil, fmt.Errorf("invalid airports file: airport %s listed twice", key)
		}
		seenAirports[key] = true

		ids := make(map[string]bool)
		for _, s := range a.Sources {
			if ids[s.ID] {
				return nil, fmt.Errorf("invalid airports file: %s: source id %q listed twice", key, s.ID)
			}
			ids[s.ID] = true
		}
		if err := a.Policy().Validate(); err != nil {
			return nil, fmt.Errorf("invalid airports file: %s: %w", key, err)
		}
	}
	return f.Airports, nil
}

// Airport returns the weather.Airport this configuration describes.
func (a AirportConfig) Airport() weather.Airport {
	return weather.Airport{
		ICAO:        weather.NormalizeICAO(a.ICAO),
		Name:        a.Name,
		ElevationFt: a.ElevationFt,
		Lat:         a.Lat,
		Lon:         a.Lon,
	}
}

// Policy returns the aggregation policy for the airport.
func (a AirportConfig) Policy() weather.Policy {
	p := weather.Policy{
		Preferences: make(map[weather.Field][]string, len(a.Preferences)),
		MaxAges:     make(map[string]time.Duration),
	}
	for field, sources := range a.Preferences {
		p.Preferences[weather.Field(field)] = sources
	}
	for _, s := range a.Sources {
		if s.MaxAgeSeconds != nil {
			p.MaxAges[s.ID] = time.Duration(*s.MaxAgeSeconds) * time.Second
		}
	}
	return p
}

// BuildFeeds instantiates providers and aggregators for every airport.
func (c *AppConfig) BuildFeeds(client *http.Client) ([]weather.Feed, error) {
	tokens := providers.Tokens{Tempest: c.TempestToken, Synoptic: c.SynopticToken}

	feeds := make([]weather.Feed, 0, len(c.Airports))
	for _, a := range c.Airports {
		agg, err := weather.NewAggregator(a.Policy())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.ICAO, err)
		}

		provs := make([]weather.Provider, 0, len(a.Sources))
		for _, s := range a.Sources {
			p, err := providers.New(client, s.Type, s.ID, s.Station, tokens)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a.ICAO, err)
			}
			provs = append(provs, p)
		}

		feeds = append(feeds, weather.Feed{
			Airport:    a.Airport(),
			Providers:  provs,
			Aggregator: agg,
		})
	}
	return feeds, nil
}
