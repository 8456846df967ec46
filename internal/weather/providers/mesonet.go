package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

// MesonetProvider implements weather.Provider for the Synoptic Data latest
// observations API. Each variable carries its own observation time.
type MesonetProvider struct {
	sourceID string
	stid     string
	token    string
	baseURL  string
	client   resilientClient
	now      func() time.Time
}

func NewMesonetProvider(client *http.Client, sourceID, stid, token string) *MesonetProvider {
	return &MesonetProvider{
		sourceID: sourceID,
		stid:     weather.NormalizeICAO(stid),
		token:    token,
		baseURL:  "https://api.synopticdata.com/v2/stations/latest",
		client:   newResilientClient("mesonet:"+sourceID, client, DefaultBackoff),
		now:      time.Now,
	}
}

func (p *MesonetProvider) SourceID() string {
	return p.sourceID
}

type mesonetResponse struct {
	Station []mesonetStation `json:"STATION"`
	Summary struct {
		ResponseCode    int    `json:"RESPONSE_CODE"`
		ResponseMessage string `json:"RESPONSE_MESSAGE"`
	} `json:"SUMMARY"`
}

type mesonetStation struct {
	STID         string                     `json:"STID"`
	Status       string                     `json:"STATUS"`
	Observations map[string]mesonetVariable `json:"OBSERVATIONS"`
}

type mesonetVariable struct {
	Value    *float64 `json:"value"`
	DateTime string   `json:"date_time"`
}

func (p *MesonetProvider) Fetch(ctx context.Context) (weather.Snapshot, error) {
	if p.token == "" {
		return weather.Snapshot{}, fmt.Errorf("mesonet %s: %w", p.sourceID, errNoToken)
	}

	values := url.Values{}
	values.Set("stid", p.stid)
	values.Set("token", p.token)
	values.Set("units", "english")
	values.Set("obtimezone", "UTC")

	var payload mesonetResponse
	if err := p.client.getJSON(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), &payload); err != nil {
		return weather.Snapshot{}, err
	}
	if payload.Summary.ResponseCode != 1 {
		return weather.Snapshot{}, fmt.Errorf("mesonet %s: %s", p.stid, payload.Summary.ResponseMessage)
	}
	if len(payload.Station) == 0 {
		return weather.Snapshot{}, fmt.Errorf("mesonet %s: %w", p.stid, errEmptyPayload)
	}

	return p.toSnapshot(payload.Station[0]), nil
}

// toSnapshot converts english units (°F, mph, inHg, in, miles, ft) to the
// snapshot's canonical units.
func (p *MesonetProvider) toSnapshot(st mesonetStation) weather.Snapshot {
	snap := weather.NewSnapshot(p.sourceID, p.now().UTC())
	snap.StationICAO = weather.NormalizeICAO(st.STID)
	if snap.StationICAO == "" {
		snap.StationICAO = p.stid
	}
	if strings.EqualFold(st.Status, "INACTIVE") {
		snap.Valid = false
		return snap
	}

	obs := st.Observations
	src := p.sourceID

	reading := func(fn func(float64) float64, names ...string) weather.Reading[float64] {
		for _, name := range names {
			v, at, ok := mesonetValue(obs, name)
			if !ok {
				continue
			}
			if fn != nil {
				v = fn(v)
			}
			return weather.NewReading(src, v, at)
		}
		return weather.AbsentReading[float64](src)
	}

	snap.Temperature = reading(fToC, "air_temp_value_1")
	snap.Dewpoint = reading(fToC, "dew_point_temperature_value_1", "dew_point_temperature_value_1d")
	snap.Humidity = reading(nil, "relative_humidity_value_1")
	snap.Pressure = reading(nil, "altimeter_value_1", "altimeter_value_1d")
	snap.PrecipAccum = reading(nil, "precip_accum_since_local_midnight_value_1")
	snap.Visibility = reading(nil, "visibility_value_1")
	snap.Ceiling = reading(nil, "ceiling_value_1")
	snap.Wind = mesonetWind(src, obs)

	return snap
}

// mesonetGustTolerance is how far a gust's time may lag the speed and
// direction it is reported with.
const mesonetGustTolerance = 10 * time.Minute

// mesonetWind builds the wind group from separately timed variables. The
// group is as old as the older of speed and direction.
func mesonetWind(src string, obs map[string]mesonetVariable) weather.WindGroup {
	speed, speedAt, okSpeed := mesonetValue(obs, "wind_speed_value_1")
	dir, dirAt, okDir := mesonetValue(obs, "wind_direction_value_1")
	if !okSpeed || !okDir {
		return weather.AbsentWind(src)
	}

	at := speedAt
	if dirAt.Before(at) {
		at = dirAt
	}
	kt := mphToKt(speed)

	// The latest endpoint repeats the last gust ever reported, so a gust
	// is only carried when it belongs to the same report as the pair.
	var gust *float64
	if g, gustAt, ok := mesonetValue(obs, "wind_gust_value_1"); ok && at.Sub(gustAt) <= mesonetGustTolerance {
		gkt := mphToKt(g)
		gust = &gkt
	}
	return weather.NewWindGroup(src, &kt, &dir, gust, at)
}

func mesonetValue(obs map[string]mesonetVariable, name string) (float64, time.Time, bool) {
	v, ok := obs[name]
	if !ok || v.Value == nil {
		return 0, time.Time{}, false
	}
	at, err := time.Parse(time.RFC3339, v.DateTime)
	if err != nil {
		return 0, time.Time{}, false
	}
	return *v.Value, at.UTC(), true
}
