package library

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDateJSON(t *testing.T) {
	checkout := Checkout{
		ID:       "1",
		Title:    "Dune",
		DueDate:  NewDate(2026, time.February, 15),
		CanRenew: true,
		Source:   DefaultSource,
	}
	buff, err := json.Marshal(checkout)
	require.NoError(t, err)
	require.Contains(t, string(buff), `"due_date":"2026-02-15"`)

	var decoded Checkout
	require.NoError(t, json.Unmarshal(buff, &decoded))
	require.Empty(t, cmp.Diff(checkout, decoded))

	buff, err = json.Marshal(Checkout{ID: "2"})
	require.NoError(t, err)
	require.Contains(t, string(buff), `"due_date":null`)
}

func TestDateArithmetic(t *testing.T) {
	d := Date{Year: 2026, Month: time.February, Day: 27}
	require.Equal(t, Date{Year: 2026, Month: time.March, Day: 2}, d.AddDays(3))
	require.True(t, d.Before(d.AddDays(1)))
	require.True(t, d.After(d.AddDays(-1)))
	require.False(t, d.Before(d))
	require.Equal(t, "2026-02-27", d.String())
}

func TestFilters(t *testing.T) {
	today := Date{Year: 2026, Month: time.February, Day: 10}
	checkouts := []Checkout{
		{ID: "overdue", DueDate: NewDate(2026, time.February, 9)},
		{ID: "today", DueDate: NewDate(2026, time.February, 10)},
		{ID: "soon", DueDate: NewDate(2026, time.February, 13)},
		{ID: "later", DueDate: NewDate(2026, time.March, 1)},
		{ID: "undated"},
	}

	ids := func(cs []Checkout) []string {
		out := []string{}
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}

	require.Equal(t, []string{"overdue", "today", "soon"}, ids(DueWithin(checkouts, today, 3)))
	require.Equal(t, []string{"overdue"}, ids(Overdue(checkouts, today)))

	holds := []Hold{
		{ID: "a", Status: HoldAvailable},
		{ID: "b", Status: HoldPending},
		{ID: "c", Status: HoldAvailable},
	}
	ready := HoldsWithStatus(holds, HoldAvailable)
	require.Len(t, ready, 2)
	require.Equal(t, "a", ready[0].ID)
	require.Equal(t, "c", ready[1].ID)
	require.Empty(t, HoldsWithStatus(holds, HoldExpired))
}

func TestHoldStatusValid(t *testing.T) {
	for _, s := range []HoldStatus{HoldPending, HoldAvailable, HoldInTransit, HoldSuspended, HoldExpired} {
		require.True(t, s.Valid(), s)
	}
	require.False(t, HoldStatus("ready").Valid())
}
