package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBestSubstringMatch(t *testing.T) {
	labels := []string{
		"Bailey Cove Branch",
		"Main Library",
		"Madison Public Library",
		"Main Library Drive-Up Window",
	}

	testCases := []struct {
		query  string
		expect int
	}{
		{query: "main", expect: 1},
		{query: "MADISON", expect: 2},
		{query: "drive-up", expect: 3},
		{query: "bailey cove", expect: 0},
		{query: "triana", expect: -1},
		{query: "  ", expect: -1},
	}

	for _, test := range testCases {
		require.Equal(t, test.expect, BestSubstringMatch(test.query, labels), test.query)
	}
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("  Ready For\tPickup ", []string{"readyfor"}))
	require.False(t, MatchName("In Transit", []string{"ready"}))
}
