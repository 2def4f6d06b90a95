package negotiator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPrice(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		want  float64
		found bool
	}{
		{"currency with comma", "We can do $3,200 all-in", 3200, true},
		{"currency plain", "best I have is $1850 on this one", 1850, true},
		{"currency with cents", "$2,450.50 works for us", 2450, true},
		{"k shorthand", "offering 3.2k", 3200, true},
		{"hundred phrasing", "32 hundred works", 3200, true},
		{"offer verb", "we could do 2100 if you move today", 2100, true},
		{"rate verb", "rate 1900 all in", 1900, true},
		{"highest candidate wins", "was at $1,800 earlier but can go $2,100 now", 2100, true},
		{"below plausible range", "can you do $250?", 0, false},
		{"above plausible range", "$25,000 equipment value", 0, false},
		{"no price", "is this load still available?", 0, false},
		{"empty", "", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, found := ExtractPrice(tc.text, nil)
			require.Equal(t, tc.found, found)
			if found {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestExtractPriceIgnoresLoadReference(t *testing.T) {
	// 4120 is the load's own reference; the real offer is 3900.
	ignored := map[float64]bool{4120: true}
	got, found := ExtractPrice("load 4120 - we can offer $3,900", ignored)
	require.True(t, found)
	assert.Equal(t, 3900.0, got)

	// When the reference is the only candidate, nothing is detected.
	_, found = ExtractPrice("checking on load at 4120", ignored)
	assert.False(t, found)
}
