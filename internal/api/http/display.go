package httpapi

import (
	"fmt"

	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

// Unavailable is shown for every field that did not resolve this cycle.
const Unavailable = "unavailable"

var displayFormats = map[weather.Field]string{
	weather.FieldTemperature:   "%.1f °C",
	weather.FieldDewpoint:      "%.1f °C",
	weather.FieldHumidity:      "%.0f%%",
	weather.FieldPressure:      "%.2f inHg",
	weather.FieldPrecipAccum:   "%.2f in",
	weather.FieldVisibility:    "%.2f SM",
	weather.FieldCeiling:       "%.0f ft",
	weather.FieldWindSpeed:     "%.0f kt",
	weather.FieldWindDirection: "%03.0f°",
	weather.FieldGustSpeed:     "%.0f kt",
	weather.FieldGustFactor:    "%.0f kt",
}

// Display renders each fused field for people. Nil values become
// "unavailable", never zero or a previous value.
func Display(f weather.FusedSnapshot) map[weather.Field]string {
	out := make(map[weather.Field]string, len(displayFormats)+1)
	for field, format := range displayFormats {
		v := f.Float(field)
		switch {
		case v == nil:
			out[field] = Unavailable
		case field == weather.FieldCeiling && *v >= weather.UnlimitedCeilingFt:
			out[field] = "unlimited"
		default:
			out[field] = fmt.Sprintf(format, *v)
		}
	}
	if f.CloudCover == nil {
		out[weather.FieldCloudCover] = Unavailable
	} else {
		out[weather.FieldCloudCover] = *f.CloudCover
	}
	return out
}
