package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"empty", Policy{}, false},
		{"valid", Policy{
			Preferences: map[Field][]string{FieldWind: {"tempest", "metar"}, FieldCeiling: {"metar"}},
			MaxAges:     map[string]time.Duration{"tempest": 5 * time.Minute, "metar": 0},
		}, false},
		{"unknown field", Policy{Preferences: map[Field][]string{FieldGustFactor: {"metar"}}}, true},
		{"empty source", Policy{Preferences: map[Field][]string{FieldTemperature: {""}}}, true},
		{"duplicate source", Policy{Preferences: map[Field][]string{FieldTemperature: {"a", "b", "a"}}}, true},
		{"negative age", Policy{MaxAges: map[string]time.Duration{"a": -time.Second}}, true},
		{"age for empty source", Policy{MaxAges: map[string]time.Duration{"": time.Second}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestPolicy_WithMaxAges(t *testing.T) {
	base := Policy{MaxAges: map[string]time.Duration{"a": time.Minute, "b": time.Hour}}

	merged := base.WithMaxAges(map[string]time.Duration{"a": time.Second, "c": 0})

	assert.Equal(t, map[string]time.Duration{"a": time.Second, "b": time.Hour, "c": 0}, merged.MaxAges)
	assert.Equal(t, map[string]time.Duration{"a": time.Minute, "b": time.Hour}, base.MaxAges)

	same := base.WithMaxAges(nil)
	assert.Equal(t, base.MaxAges, same.MaxAges)
}

func TestPolicy_Rank(t *testing.T) {
	p := Policy{Preferences: map[Field][]string{FieldWind: {"tempest", "metar"}}}

	assert.Equal(t, 0, p.rank(FieldWind, "tempest"))
	assert.Equal(t, 1, p.rank(FieldWind, "metar"))
	assert.Equal(t, -1, p.rank(FieldWind, "mesonet"))
	assert.Equal(t, -1, p.rank(FieldTemperature, "tempest"))
}

func TestPolicy_ZeroMaxAgeOnlyAcceptsCurrentObservations(t *testing.T) {
	p := Policy{MaxAges: map[string]time.Duration{"a": 0}}
	sel := selector{policy: p, now: testNow}

	require.False(t, sel.stale("a", testNow))
	assert.True(t, sel.stale("a", testNow.Add(-time.Second)))
	assert.False(t, sel.stale("unlimited", testNow.Add(-240*time.Hour)))
	assert.False(t, sel.stale("unlimited", testNow.Add(MaxClockSkew)))
	assert.True(t, sel.stale("unlimited", testNow.Add(MaxClockSkew+time.Second)))
}
