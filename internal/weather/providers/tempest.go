package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

// TempestProvider implements weather.Provider for a WeatherFlow Tempest
// station installed on the field. It is a proprietary sensor API, so its
// snapshots carry no station identity and always count as local.
type TempestProvider struct {
	sourceID  string
	stationID string
	token     string
	baseURL   string
	client    resilientClient
	now       func() time.Time
}

func NewTempestProvider(client *http.Client, sourceID, stationID, token string) *TempestProvider {
	return &TempestProvider{
		sourceID:  sourceID,
		stationID: stationID,
		token:     token,
		baseURL:   "https://swd.weatherflow.com/swd/rest/observations/station",
		client:    newResilientClient("tempest:"+sourceID, client, DefaultBackoff),
		now:       time.Now,
	}
}

func (p *TempestProvider) SourceID() string {
	return p.sourceID
}

type tempestResponse struct {
	Elevation *float64     `json:"elevation"` // m above sea level
	Obs       []tempestObs `json:"obs"`
	Status    struct {
		Code    int    `json:"status_code"`
		Message string `json:"status_message"`
	} `json:"status"`
}

// tempestObs holds metric values: °C, %, mb, mm, m/s.
type tempestObs struct {
	Timestamp           int64    `json:"timestamp"`
	AirTemperature      *float64 `json:"air_temperature"`
	DewPoint            *float64 `json:"dew_point"`
	RelativeHumidity    *float64 `json:"relative_humidity"`
	StationPressure     *float64 `json:"station_pressure"`
	SeaLevelPressure    *float64 `json:"sea_level_pressure"`
	PrecipAccumLocalDay *float64 `json:"precip_accum_local_day"`
	WindAvg             *float64 `json:"wind_avg"`
	WindDirection       *float64 `json:"wind_direction"`
	WindGust            *float64 `json:"wind_gust"`
}

func (p *TempestProvider) Fetch(ctx context.Context) (weather.Snapshot, error) {
	if p.token == "" {
		return weather.Snapshot{}, fmt.Errorf("tempest %s: %w", p.sourceID, errNoToken)
	}

	values := url.Values{}
	values.Set("token", p.token)
	u := fmt.Sprintf("%s/%s?%s", p.baseURL, url.PathEscape(p.stationID), values.Encode())

	var payload tempestResponse
	if err := p.client.getJSON(ctx, u, &payload); err != nil {
		return weather.Snapshot{}, err
	}

	return p.toSnapshot(payload), nil
}

func (p *TempestProvider) toSnapshot(r tempestResponse) weather.Snapshot {
	snap := weather.NewSnapshot(p.sourceID, p.now().UTC())

	// A non-zero status means the station itself reported a fault; whatever
	// values came back alongside it are not trusted.
	if r.Status.Code != 0 || len(r.Obs) == 0 || r.Obs[0].Timestamp <= 0 {
		snap.Valid = false
		return snap
	}

	o := r.Obs[0]
	obs := time.Unix(o.Timestamp, 0).UTC()
	src := p.sourceID

	snap.Temperature = weather.ReadingFromPtr(src, o.AirTemperature, obs)
	snap.Dewpoint = weather.ReadingFromPtr(src, o.DewPoint, obs)
	snap.Humidity = weather.ReadingFromPtr(src, o.RelativeHumidity, obs)
	snap.Pressure = weather.ReadingFromPtr(src, tempestAltimeter(o, r.Elevation), obs)
	snap.PrecipAccum = weather.ReadingFromPtr(src, convert(o.PrecipAccumLocalDay, mmToIn), obs)
	snap.Wind = weather.NewWindGroup(src,
		convert(o.WindAvg, msToKt),
		o.WindDirection,
		convert(o.WindGust, msToKt),
		obs,
	)
	return snap
}

// tempestAltimeter reduces station pressure to an altimeter setting (inHg)
// using the station elevation. Sea level pressure is a different reduction
// (it uses temperature) and is only an approximation of the altimeter
// setting, used when station pressure or elevation is missing.
func tempestAltimeter(o tempestObs, elevationM *float64) *float64 {
	if o.StationPressure != nil && elevationM != nil {
		v := hPaToInHg(altimeterSetting(*o.StationPressure, *elevationM))
		return &v
	}
	return convert(o.SeaLevelPressure, hPaToInHg)
}
