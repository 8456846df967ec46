package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/airport-weather-fusion/internal/common"
	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

// cavokVisibilitySM is 10 km, the visibility CAVOK guarantees.
const cavokVisibilitySM = 6.21

// METARProvider implements weather.Provider for aviationweather.gov METARs.
// Snapshots carry the reporting station's ICAO code.
type METARProvider struct {
	sourceID string
	station  string
	baseURL  string
	client   resilientClient
	now      func() time.Time
}

func NewMETARProvider(client *http.Client, sourceID, station string) *METARProvider {
	return &METARProvider{
		sourceID: sourceID,
		station:  weather.NormalizeICAO(station),
		baseURL:  "https://aviationweather.gov/api/data/metar",
		client:   newResilientClient("metar:"+sourceID, client, DefaultBackoff),
		now:      time.Now,
	}
}

func (p *METARProvider) SourceID() string {
	return p.sourceID
}

// metarResponse is one element of the aviationweather.gov JSON array.
type metarResponse struct {
	ICAOID  string       `json:"icaoId"`
	ObsTime int64        `json:"obsTime"`
	Temp    *float64     `json:"temp"`
	Dewp    *float64     `json:"dewp"`
	Wdir    any          `json:"wdir"` // degrees, or "VRB"
	Wspd    *float64     `json:"wspd"`
	Wgst    *float64     `json:"wgst"`
	Visib   any          `json:"visib"` // number, or "10+"
	Altim   *float64     `json:"altim"` // hPa
	RawOb   string       `json:"rawOb"`
	Clouds  []metarCloud `json:"clouds"`
}

type metarCloud struct {
	Cover string `json:"cover"`
	Base  *int   `json:"base"`
}

func (p *METARProvider) Fetch(ctx context.Context) (weather.Snapshot, error) {
	values := url.Values{}
	values.Set("ids", p.station)
	values.Set("format", "json")

	var payload []metarResponse
	if err := p.client.getJSON(ctx, fmt.Sprintf("%s?%s", p.baseURL, values.Encode()), &payload); err != nil {
		return weather.Snapshot{}, err
	}
	if len(payload) == 0 {
		return weather.Snapshot{}, fmt.Errorf("metar %s: %w", p.station, errEmptyPayload)
	}

	return p.toSnapshot(payload[0]), nil
}

func (p *METARProvider) toSnapshot(m metarResponse) weather.Snapshot {
	snap := weather.NewSnapshot(p.sourceID, p.now().UTC())
	snap.StationICAO = weather.NormalizeICAO(m.ICAOID)
	if snap.StationICAO == "" {
		snap.StationICAO = p.station
	}
	snap.RawMETAR = strings.TrimSpace(m.RawOb)

	if m.ObsTime <= 0 || snap.RawMETAR == "" {
		// Without an observation time nothing in the report can be aged.
		snap.Valid = false
		return snap
	}
	obs := time.Unix(m.ObsTime, 0).UTC()
	src := p.sourceID

	snap.Temperature = weather.ReadingFromPtr(src, m.Temp, obs)
	snap.Dewpoint = weather.ReadingFromPtr(src, m.Dewp, obs)
	snap.Pressure = weather.ReadingFromPtr(src, convert(m.Altim, hPaToInHg), obs)
	snap.Wind = weather.NewWindGroup(src, m.Wspd, metarDirection(m.Wdir), m.Wgst, obs)

	cavok := common.HasToken(snap.RawMETAR, "CAVOK")

	vis := metarVisibility(m.Visib)
	if vis == nil && cavok {
		v := cavokVisibilitySM
		vis = &v
	}
	snap.Visibility = weather.ReadingFromPtr(src, vis, obs)

	cover, ceiling := metarSky(m.Clouds)
	if cavok && cover == nil {
		c, unlimited := "CLR", float64(weather.UnlimitedCeilingFt)
		cover, ceiling = &c, &unlimited
	}
	snap.CloudCover = weather.ReadingFromPtr(src, cover, obs)
	snap.Ceiling = weather.ReadingFromPtr(src, ceiling, obs)

	return snap
}

// metarDirection returns nil for variable or missing direction, which makes
// the whole wind group absent.
func metarDirection(v any) *float64 {
	switch d := v.(type) {
	case float64:
		return &d
	case string:
		if f, err := strconv.ParseFloat(d, 64); err == nil {
			return &f
		}
	}
	return nil
}

func metarVisibility(v any) *float64 {
	switch vis := v.(type) {
	case float64:
		return &vis
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(vis), "+")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

var coverRank = map[string]int{
	"SKC": 0, "CLR": 0, "NSC": 0, "NCD": 0, "CAVOK": 0,
	"FEW": 1,
	"SCT": 2,
	"BKN": 3,
	"OVC": 4,
	"OVX": 5,
	"VV":  5,
}

// metarSky returns the most significant cover and the ceiling: the base of
// the lowest broken, overcast or obscured layer. A sky report without such a
// layer has an unlimited ceiling; no sky report at all yields nil for both.
func metarSky(layers []metarCloud) (cover *string, ceiling *float64) {
	best := -1
	for _, l := range layers {
		code := strings.ToUpper(strings.TrimSpace(l.Cover))
		rank, ok := coverRank[code]
		if !ok {
			continue
		}
		if rank > best {
			best = rank
			c := code
			cover = &c
		}
		if common.HasAny(code, "BKN", "OVC", "OVX", "VV") {
			if l.Base == nil {
				continue
			}
			base := float64(*l.Base)
			if ceiling == nil || base < *ceiling {
				ceiling = &base
			}
		}
	}
	if cover != nil && ceiling == nil && best < coverRank["BKN"] {
		unlimited := float64(weather.UnlimitedCeilingFt)
		ceiling = &unlimited
	}
	return cover, ceiling
}
