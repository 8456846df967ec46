package providers

import (
	"fmt"
	"net/http"

	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

// Source types accepted in airport configuration.
const (
	TypeMETAR   = "metar"
	TypeTempest = "tempest"
	TypeMesonet = "mesonet"
)

// Tokens carries API credentials for sources that need them.
type Tokens struct {
	Tempest  string
	Synoptic string
}

// New builds the provider for one configured source.
func New(client *http.Client, kind, sourceID, station string, tokens Tokens) (weather.Provider, error) {
	switch kind {
	case TypeMETAR:
		return NewMETARProvider(client, sourceID, station), nil
	case TypeTempest:
		return NewTempestProvider(client, sourceID, station, tokens.Tempest), nil
	case TypeMesonet:
		return NewMesonetProvider(client, sourceID, station, tokens.Synoptic), nil
	default:
		return nil, fmt.Errorf("unknown source type %q for %s", kind, sourceID)
	}
}
