package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-events/bookingbot/config"
)

func TestParse_DefaultOfferings(t *testing.T) {
	c, err := Parse(config.DefaultOfferings)
	require.NoError(t, err)

	assert.Equal(t, []string{"21 Jan — Location A", "22 Jan — Location B"}, c.DateLabels())
	assert.Equal(t, []string{"10:00", "12:00", "14:00"}, c.TimesFor("21 Jan — Location A"))
	assert.True(t, c.HasDate("22 Jan — Location B"))
	assert.True(t, c.HasTime("22 Jan — Location B", "13:00"))
	assert.False(t, c.HasTime("22 Jan — Location B", "10:00"))
	assert.False(t, c.HasDate("23 Jan — Location C"))
	assert.Nil(t, c.TimesFor("23 Jan — Location C"))
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"missing times", "21 Jan — Location A"},
		{"empty times", "21 Jan — Location A="},
		{"duplicate label", "21 Jan=10:00;21 Jan=12:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.raw)
			assert.Error(t, err)
		})
	}
}
