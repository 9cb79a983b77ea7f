package extract

import (
	"testing"
	"time"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	expected := library.NewDate(2026, time.February, 15)

	for _, text := range []string{
		"02/15/2026",
		"2/15/2026",
		"2026-02-15",
		"February 15, 2026",
		"Feb 15, 2026",
		"  Feb 15,   2026 ",
		"2026-02-15T12:00:00Z",
	} {
		require.Equal(t, expected, ParseDate(text), text)
	}

	for _, text := range []string{"", "tomorrow", "15/02/2026", "2026/02/15"} {
		require.Nil(t, ParseDate(text), text)
	}
}

func TestFindDate(t *testing.T) {
	testCases := []struct {
		text   string
		expect *library.Date
	}{
		{text: "Due 02/15/2026", expect: library.NewDate(2026, time.February, 15)},
		{text: "Expires Mar 3, 2026 at noon", expect: library.NewDate(2026, time.March, 3)},
		{text: "renewed, now due 2026-04-01.", expect: library.NewDate(2026, time.April, 1)},
		{text: "Summary 5, 2026", expect: nil},
		{text: "no date here", expect: nil},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, FindDate(test.text), test.text)
	}
}

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		text   string
		expect float64
	}{
		{text: "$5.00", expect: 5},
		{text: "5.00", expect: 5},
		{text: "$1,234.50", expect: 1234.5},
		{text: " $ 0.25 ", expect: 0.25},
		{text: "", expect: 0},
		{text: "none", expect: 0},
		{text: "-3.00", expect: 0},
		{text: "NaN", expect: 0},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, ParseAmount(test.text), test.text)
	}
}

func TestParseHoldStatus(t *testing.T) {
	testCases := []struct {
		text   string
		expect library.HoldStatus
	}{
		{text: "Ready for pickup", expect: library.HoldAvailable},
		{text: "Available", expect: library.HoldAvailable},
		{text: "In Transit", expect: library.HoldInTransit},
		{text: "Suspended - Frozen", expect: library.HoldSuspended},
		{text: "Frozen - Ready", expect: library.HoldAvailable},
		{text: "Hold expired", expect: library.HoldExpired},
		{text: "Pending", expect: library.HoldPending},
		{text: "something new", expect: library.HoldPending},
		{text: "", expect: library.HoldPending},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, ParseHoldStatus(test.text), test.text)
	}
}

func TestFindYear(t *testing.T) {
	year := FindYear("c1965.")
	require.NotNil(t, year)
	require.Equal(t, 1965, *year)

	year = FindYear("[2019], ©2018")
	require.NotNil(t, year)
	require.Equal(t, 2019, *year)

	require.Nil(t, FindYear("ISBN 9780441013593"))
	require.Nil(t, FindYear(""))
}

func TestUnixDate(t *testing.T) {
	// 2026-02-15 23:30 in Huntsville is already the 16th in UTC
	instant := time.Date(2026, time.February, 15, 23, 30, 0, 0, Location)
	require.Equal(t, library.NewDate(2026, time.February, 15), UnixDate(instant.Unix()))
	require.Nil(t, UnixDate(0))
}
