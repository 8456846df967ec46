package aviation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

func ptr(v float64) *float64 { return &v }

func TestFlightCategory(t *testing.T) {
	tests := []struct {
		name string
		vis  float64
		ceil float64
		want Category
	}{
		{"clear", 10, weather.UnlimitedCeilingFt, VFR},
		{"low broken layer", 10, 2500, MVFR},
		{"marginal visibility", 5, 5000, MVFR},
		{"ifr ceiling", 10, 800, IFR},
		{"ifr visibility", 2, 5000, IFR},
		{"lifr fog", 0.25, 200, LIFR},
		{"worse of the two wins", 0.5, 5000, LIFR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlightCategory(ptr(tt.vis), ptr(tt.ceil))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestFlightCategory_MissingInputIsNotComputable(t *testing.T) {
	assert.Nil(t, FlightCategory(nil, ptr(5000)))
	assert.Nil(t, FlightCategory(ptr(10), nil))
}

func TestDensityAltitude(t *testing.T) {
	// Standard day at sea level: density altitude equals field elevation.
	da := DensityAltitude(0, ptr(15), ptr(29.92))
	require.NotNil(t, da)
	assert.Equal(t, 0.0, *da)

	// Hot day at 5000 ft: ISA is 5 °C, so 30 °C is 25 °C above standard.
	da = DensityAltitude(5000, ptr(30), ptr(29.92))
	require.NotNil(t, da)
	assert.Equal(t, 8000.0, *da)
}

func TestDensityAltitude_NilInputs(t *testing.T) {
	assert.Nil(t, DensityAltitude(1000, nil, ptr(29.92)))
	assert.Nil(t, DensityAltitude(1000, ptr(20), nil))
	assert.Nil(t, PressureAltitude(1000, nil))
}

func TestDerive_AllNilSnapshot(t *testing.T) {
	d := Derive(weather.Airport{ICAO: "KSPB", ElevationFt: 58}, weather.FusedSnapshot{})
	assert.Nil(t, d.FlightCategory)
	assert.Nil(t, d.DensityAltitudeFt)
	assert.Nil(t, d.PressureAltFt)
}
