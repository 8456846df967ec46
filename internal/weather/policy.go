package weather

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPolicy is returned for structurally invalid policy data. It marks
// a caller bug, never a data-quality condition.
var ErrInvalidPolicy = errors.New("invalid aggregation policy")

// Policy configures aggregation. Preferences only break freshness ties; a
// more recent observation always beats a preferred one.
type Policy struct {
	// Preferences lists source ids per field, most preferred first. The wind
	// group is ranked under FieldWind.
	Preferences map[Field][]string

	// MaxAges bounds how old a source's observation may be. Sources without
	// an entry are accepted at any age.
	MaxAges map[string]time.Duration
}

var policyFields = map[Field]bool{
	FieldTemperature: true,
	FieldDewpoint:    true,
	FieldHumidity:    true,
	FieldPressure:    true,
	FieldPrecipAccum: true,
	FieldVisibility:  true,
	FieldCeiling:     true,
	FieldCloudCover:  true,
	FieldWind:        true,
}

// Validate checks the policy for caller mistakes.
func (p Policy) Validate() error {
	for field, sources := range p.Preferences {
		if !policyFields[field] {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidPolicy, field)
		}
		seen := make(map[string]bool, len(sources))
		for _, src := range sources {
			if src == "" {
				return fmt.Errorf("%w: empty source id in %s preferences", ErrInvalidPolicy, field)
			}
			if seen[src] {
				return fmt.Errorf("%w: source %q listed twice for %s", ErrInvalidPolicy, src, field)
			}
			seen[src] = true
		}
	}
	return validateMaxAges(p.MaxAges)
}

func validateMaxAges(ages map[string]time.Duration) error {
	for src, age := range ages {
		if src == "" {
			return fmt.Errorf("%w: max age for empty source id", ErrInvalidPolicy)
		}
		if age < 0 {
			return fmt.Errorf("%w: negative max age %s for %q", ErrInvalidPolicy, age, src)
		}
	}
	return nil
}

// WithMaxAges returns a copy whose max ages are overridden per source by the
// given entries. The receiver is left untouched.
func (p Policy) WithMaxAges(overrides map[string]time.Duration) Policy {
	if len(overrides) == 0 {
		return p
	}
	merged := make(map[string]time.Duration, len(p.MaxAges)+len(overrides))
	for src, age := range p.MaxAges {
		merged[src] = age
	}
	for src, age := range overrides {
		merged[src] = age
	}
	return Policy{Preferences: p.Preferences, MaxAges: merged}
}

// maxAge reports the limit for a source, if any.
func (p Policy) maxAge(source string) (time.Duration, bool) {
	age, ok := p.MaxAges[source]
	return age, ok
}

// rank returns the position of source in the field's preference list, or -1.
func (p Policy) rank(field Field, source string) int {
	for i, src := range p.Preferences[field] {
		if src == source {
			return i
		}
	}
	return -1
}
