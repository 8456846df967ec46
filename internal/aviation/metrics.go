// Package aviation derives pilot-facing metrics from a fused snapshot. Every
// calculation treats a nil input as "cannot compute" and returns nil.
package aviation

import (
	"math"

	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

// Category is a FAA flight category.
type Category string

const (
	VFR  Category = "VFR"
	MVFR Category = "MVFR"
	IFR  Category = "IFR"
	LIFR Category = "LIFR"
)

const (
	standardAltimeterInHg = 29.92
	isaSeaLevelTempC      = 15.0
	isaLapseRateCPer1000  = 2.0
	daFtPerDegreeC        = 120.0
)

// Derived holds the metrics computed for one fused snapshot.
type Derived struct {
	FlightCategory    *Category `json:"flightCategory"`
	DensityAltitudeFt *float64  `json:"densityAltitudeFt"`
	PressureAltFt     *float64  `json:"pressureAltitudeFt"`
}

// Derive computes all metrics for an airport's fused snapshot.
func Derive(airport weather.Airport, fused weather.FusedSnapshot) Derived {
	return Derived{
		FlightCategory:    FlightCategory(fused.Visibility, fused.Ceiling),
		DensityAltitudeFt: DensityAltitude(airport.ElevationFt, fused.Temperature, fused.Pressure),
		PressureAltFt:     PressureAltitude(airport.ElevationFt, fused.Pressure),
	}
}

// FlightCategory classifies visibility (statute miles) and ceiling (ft AGL).
// Both are required: a single known input cannot rule out a worse category.
func FlightCategory(visibilitySM, ceilingFt *float64) *Category {
	if visibilitySM == nil || ceilingFt == nil {
		return nil
	}
	vis, ceil := *visibilitySM, *ceilingFt

	var c Category
	switch {
	case ceil < 500 || vis < 1:
		c = LIFR
	case ceil < 1000 || vis < 3:
		c = IFR
	case ceil <= 3000 || vis <= 5:
		c = MVFR
	default:
		c = VFR
	}
	return &c
}

// PressureAltitude returns field elevation corrected for the altimeter setting.
func PressureAltitude(elevationFt float64, altimeterInHg *float64) *float64 {
	if altimeterInHg == nil {
		return nil
	}
	pa := math.Round(elevationFt + (standardAltimeterInHg-*altimeterInHg)*1000)
	return &pa
}

// DensityAltitude uses the standard 120 ft per °C of ISA deviation rule.
func DensityAltitude(elevationFt float64, temperatureC, altimeterInHg *float64) *float64 {
	if temperatureC == nil {
		return nil
	}
	pa := PressureAltitude(elevationFt, altimeterInHg)
	if pa == nil {
		return nil
	}
	isa := isaSeaLevelTempC - isaLapseRateCPer1000*(*pa/1000)
	da := math.Round(*pa + daFtPerDegreeC*(*temperatureC-isa))
	return &da
}
