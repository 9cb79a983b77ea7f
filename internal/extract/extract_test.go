package extract

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/stretchr/testify/require"

	_ "embed"
)

//go:embed testdata/checkouts_page.html
var checkoutsPage []byte

//go:embed testdata/checkouts_fragment.html
var checkoutsFragment []byte

//go:embed testdata/checkouts.json
var checkoutsJSON []byte

//go:embed testdata/holds_page.html
var holdsPage []byte

//go:embed testdata/holds.json
var holdsJSON []byte

//go:embed testdata/menu_data.json
var menuData []byte

//go:embed testdata/account_home.html
var accountHome []byte

//go:embed testdata/search_results.html
var searchResults []byte

//go:embed testdata/hold_form.html
var holdForm []byte

//go:embed testdata/challenge.html
var challengePage []byte

func intPtr(n int) *int {
	return &n
}

func TestCheckoutsPage(t *testing.T) {
	batch := Checkouts(checkoutsPage)
	require.Equal(t, ".result", batch.Selector)
	require.Len(t, batch.Rows, 4)

	expected := []library.Checkout{
		{
			ID:           "ils:1001",
			Title:        "Project Hail Mary",
			Author:       "Weir, Andy",
			DueDate:      library.NewDate(2026, time.February, 15),
			Format:       "Book",
			CanRenew:     true,
			TimesRenewed: 2,
			Source:       "ils",
			CoverURL:     "/bookcover.php?id=1001&size=medium",
		},
		{
			ID:       "checkout-1",
			Title:    "The Midnight Library",
			Author:   "Haig, Matt",
			DueDate:  library.NewDate(2026, time.February, 1),
			CanRenew: false,
			Source:   "overdrive",
		},
		{
			ID:       "checkout-2",
			Title:    library.DefaultTitle,
			CanRenew: false,
			Source:   library.DefaultSource,
		},
	}
	require.Empty(t, cmp.Diff(expected, batch.Values()))

	skipped := batch.Skipped()
	require.Len(t, skipped, 1)
	require.Equal(t, 2, skipped[0].Index)
	require.ErrorIs(t, skipped[0].Err, ErrEmptyRow)
}

func TestCheckoutsFragment(t *testing.T) {
	batch := Checkouts(checkoutsFragment)
	require.Equal(t, ".checkoutEntry", batch.Selector)

	expected := []library.Checkout{
		{
			ID:       "2002",
			Title:    "Dune",
			Author:   "Frank Herbert",
			DueDate:  library.NewDate(2026, time.February, 15),
			Format:   "Book",
			CanRenew: true,
			Source:   "ils",
			CoverURL: "https://covers.example/dune.jpg",
		},
		{
			ID:       "3003",
			Title:    "Dune Messiah",
			DueDate:  library.NewDate(2026, time.March, 1),
			CanRenew: true,
			Source:   "ils",
		},
	}
	require.Empty(t, cmp.Diff(expected, batch.Values()))
}

func TestCheckoutsJSON(t *testing.T) {
	batch := Checkouts(checkoutsJSON)
	require.Empty(t, batch.Selector)
	require.Len(t, batch.Rows, 4)

	expected := []library.Checkout{
		{
			ID:           "4004",
			Title:        "Piranesi",
			Author:       "Susanna Clarke",
			DueDate:      library.NewDate(2026, time.February, 15),
			Format:       "eBook",
			CanRenew:     false,
			TimesRenewed: 1,
			Source:       "overdrive",
			CoverURL:     "https://covers.example/piranesi.jpg",
		},
		{
			ID:       "5005",
			Title:    "Circe",
			CanRenew: true,
			Source:   "ils",
		},
		{
			ID:       "checkout-2",
			Title:    library.DefaultTitle,
			Author:   "Anonymous",
			CanRenew: true,
			Source:   "ils",
		},
	}
	require.Empty(t, cmp.Diff(expected, batch.Values()))
	require.ErrorIs(t, batch.Skipped()[0].Err, ErrNotObject)
}

func TestCheckoutsJSONWrappingHTML(t *testing.T) {
	payload := []byte(`{"success": true, "checkouts": [], "html": "<div class=\"checkoutEntry\" data-id=\"9\"><span class=\"title\">Emma</span></div>"}`)
	values := Checkouts(payload).Values()
	require.Len(t, values, 1)
	require.Equal(t, "9", values[0].ID)
	require.Equal(t, "Emma", values[0].Title)
	require.Nil(t, values[0].DueDate)
	require.True(t, values[0].CanRenew)
}

func TestEmptyAndUnknownPayloads(t *testing.T) {
	for _, payload := range []string{
		"",
		"<html><body><p>You have no items checked out.</p></body></html>",
		`{"success": true, "checkouts": []}`,
		`{"success": false, "message": "nope"}`,
		`{"broken json`,
		`[]`,
	} {
		require.Empty(t, Checkouts([]byte(payload)).Values(), payload)
		require.Empty(t, Holds([]byte(payload)).Values(), payload)
		require.Empty(t, SearchResults(payload).Values(), payload)
	}
}

func TestExtractionIsIdempotent(t *testing.T) {
	require.Empty(t, cmp.Diff(Checkouts(checkoutsPage), Checkouts(checkoutsPage), cmp.Comparer(errorsEqual)))
	require.Empty(t, cmp.Diff(Holds(holdsPage).Values(), Holds(holdsPage).Values()))
	require.Empty(t, cmp.Diff(SearchResults(string(searchResults)).Values(), SearchResults(string(searchResults)).Values()))
	require.Equal(t, AccountSummary(accountHome), AccountSummary(accountHome))
}

func errorsEqual(a, b error) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Error() == b.Error()
}

func TestHoldsPage(t *testing.T) {
	batch := Holds(holdsPage)
	require.Equal(t, ".result", batch.Selector)

	expected := []library.Hold{
		{
			ID:             "h-1",
			Title:          "Tomorrow, and Tomorrow, and Tomorrow",
			Author:         "Zevin, Gabrielle",
			Status:         library.HoldAvailable,
			PickupLocation: "Main Library",
			ExpirationDate: library.NewDate(2026, time.February, 20),
		},
		{
			ID:       "h-2",
			Title:    "Fourth Wing",
			Status:   library.HoldPending,
			Position: intPtr(12),
		},
		{
			ID:     "h-3",
			Title:  "Iron Flame",
			Status: library.HoldInTransit,
		},
		{
			ID:             "h-4",
			Title:          "Lessons in Chemistry",
			Status:         library.HoldSuspended,
			ExpirationDate: library.NewDate(2026, time.March, 3),
			IsFrozen:       true,
		},
		{
			ID:       "h-5",
			Title:    "The Covenant of Water",
			Status:   library.HoldPending,
			IsFrozen: true,
		},
	}
	require.Empty(t, cmp.Diff(expected, batch.Values()))
}

func TestHoldsJSON(t *testing.T) {
	expected := []library.Hold{
		{
			ID:             "77",
			Title:          "Demon Copperhead",
			Status:         library.HoldAvailable,
			PickupLocation: "Bailey Cove Branch",
			ExpirationDate: library.NewDate(2026, time.February, 20),
		},
		{
			ID:       "78",
			Title:    "The Heaven & Earth Grocery Store",
			Status:   library.HoldSuspended,
			Position: intPtr(3),
			IsFrozen: true,
		},
		{
			ID:     "79",
			Title:  library.DefaultTitle,
			Status: library.HoldAvailable,
		},
	}
	require.Empty(t, cmp.Diff(expected, Holds(holdsJSON).Values()))
}

func TestAccountSummary(t *testing.T) {
	require.Equal(t, library.AccountSummary{
		NumCheckedOut:     3,
		NumOverdue:        1,
		NumHolds:          5,
		NumAvailableHolds: 2,
		TotalFines:        1234.5,
		Expires:           library.NewDate(2027, time.November, 1),
		Name:              "Pat Reader",
	}, AccountSummary(menuData))

	require.Equal(t, library.AccountSummary{
		NumCheckedOut:     4,
		NumOverdue:        1,
		NumHolds:          6,
		NumAvailableHolds: 2,
		TotalFines:        5,
		Expires:           library.NewDate(2027, time.November, 1),
		Name:              "Pat Reader",
	}, AccountSummary(accountHome))

	flat := AccountSummary([]byte(`{"numCheckedOut": -2, "numHolds": "7", "fines": "abc"}`))
	require.Equal(t, library.AccountSummary{NumHolds: 7}, flat)

	require.Equal(t, library.AccountSummary{}, AccountSummary([]byte("<html></html>")))
}

func TestSearchResults(t *testing.T) {
	batch := SearchResults(string(searchResults))
	require.Equal(t, ".resultsList", batch.Selector)
	require.Len(t, batch.Rows, 4)

	expected := []library.SearchResult{
		{
			ID:              "3a9f1c2e-0001",
			Title:           "Dune",
			Author:          "Herbert, Frank",
			Format:          "Book",
			PublicationYear: intPtr(1965),
			Availability:    "Available to Check Out",
			CoverURL:        "/bookcover.php?id=3a9f1c2e-0001&size=medium",
			Description:     "A desert planet. A spice.",
		},
		{
			ID:          "a1b2c3",
			Title:       "Dune Messiah",
			Format:      "eBook",
			Description: "The sequel Paul & Alia",
		},
		{
			ID:    "result-2",
			Title: "Untitled Thing",
		},
	}
	require.Empty(t, cmp.Diff(expected, batch.Values()))
	require.ErrorIs(t, batch.Skipped()[0].Err, ErrEmptyRow)
}

func TestRowPanicIsSkipped(t *testing.T) {
	rows := extractItems([]any{map[string]any{}, map[string]any{"boom": true}, map[string]any{}},
		func(item Object, emitted int) (int, error) {
			if _, ok := item["boom"]; ok {
				panic("unexpected shape")
			}
			return emitted, nil
		},
	)
	batch := Batch[int]{Rows: rows}
	require.Equal(t, []int{0, 1}, batch.Values())
	require.ErrorIs(t, batch.Skipped()[0].Err, ErrRowPanicked)
}
