package extract

import (
	"fmt"
	"testing"
	"time"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/stretchr/testify/require"
)

func TestPickupLocations(t *testing.T) {
	require.Equal(t, []library.PickupLocation{
		{Value: "bc", Label: "Bailey Cove Branch"},
		{Value: "main", Label: "Main Library"},
		{Value: "mad", Label: "Madison Public Library"},
	}, PickupLocations(string(holdForm)))

	require.Empty(t, PickupLocations("<html><body>Please log in</body></html>"))
	require.NotNil(t, PickupLocations(""))
}

func TestFormSelectors(t *testing.T) {
	form := string(holdForm)
	require.Equal(t, "select#pickupBranch", Match(form, PickupSelect))
	require.Equal(t, "input[type='submit'][value*='Hold']", Match(form, HoldSubmit))
	require.Empty(t, Match("<p>nothing</p>", HoldSubmit))

	require.Equal(t, "/Record/12345/Hold", FirstHoldLink(`<div><a href="/Record/12345/Home">Dune</a><a href="/Record/12345/Hold" class="btn">Place Hold</a><a href="/Record/999/Hold">Other</a></div>`))
	require.Empty(t, FirstHoldLink(string(searchResults)))
}

func TestHoldOutcome(t *testing.T) {
	require.Equal(t, library.HoldResult{
		Success: true,
		Message: "Your hold was placed successfully.",
		HoldID:  "h-9",
	}, HoldOutcome(`<div class="alert alert-success" data-holdid="h-9">Your hold was placed successfully.</div>`))

	require.Equal(t, library.HoldResult{
		Success: false,
		Message: "You already have a hold on this title.",
	}, HoldOutcome(`<div class="alert alert-danger">You already have a hold on this title.</div>`))

	require.Equal(t, library.HoldResult{
		Success: false,
		Message: UnknownHoldResult,
	}, HoldOutcome(`<div class="error"></div><p>Thanks</p>`))
}

func TestRenewOutcome(t *testing.T) {
	result := RenewOutcome(`<div class="alert alert-success">Renewed. New due date 03/01/2026</div>`, "42")
	require.True(t, result.Success)
	require.Equal(t, "42", result.ItemID)
	require.Equal(t, library.NewDate(2026, time.March, 1), result.NewDueDate)

	result = RenewOutcome(`<div class="alert alert-danger">Too many renewals</div>`, "42")
	require.False(t, result.Success)
	require.Equal(t, "Too many renewals", result.Message)

	require.Equal(t, UnknownRenewResult, RenewOutcome("<p>ok?</p>", "42").Message)
}

func TestOutcomeSinceIgnoresEarlierBanners(t *testing.T) {
	renewed := `<div class="alert alert-success">Your item was successfully renewed.</div>`
	page := `<html><body>%s<table class="checkouts"></table></body></html>`

	before := fmt.Sprintf(page, renewed)
	result := RenewOutcomeSince(before, before, "a2")
	require.False(t, result.Success)
	require.Equal(t, UnknownRenewResult, result.Message)

	result = RenewOutcomeSince(before, fmt.Sprintf(page, renewed+renewed), "a2")
	require.True(t, result.Success)
	require.Equal(t, "Your item was successfully renewed.", result.Message)

	result = RenewOutcomeSince(before, fmt.Sprintf(page, renewed+`<div class="alert alert-danger">Renewal limit reached</div>`), "a2")
	require.False(t, result.Success)
	require.Equal(t, "Renewal limit reached", result.Message)

	held := `<div class="alert alert-success" data-hold-id="h-1">Hold placed.</div>`
	require.Equal(t, library.HoldResult{Success: false, Message: UnknownHoldResult}, HoldOutcomeSince(held, held))
	require.Equal(t, library.HoldResult{Success: true, Message: "Hold placed.", HoldID: "h-1"}, HoldOutcomeSince("", held))
}

func TestRenewJSON(t *testing.T) {
	result, ok := RenewJSON([]byte(`{"success": true, "message": "<p>Your item was renewed</p>", "newDueDate": "02/15/2026"}`), "7")
	require.True(t, ok)
	require.Equal(t, library.RenewResult{
		ItemID:     "7",
		Success:    true,
		Message:    "Your item was renewed",
		NewDueDate: library.NewDate(2026, time.February, 15),
	}, result)

	result, ok = RenewJSON([]byte(`{"success": false, "message": "Item has holds"}`), "7")
	require.True(t, ok)
	require.False(t, result.Success)
	require.Equal(t, "Item has holds", result.Message)
	require.Nil(t, result.NewDueDate)

	result, ok = RenewJSON([]byte(`{"success": false}`), "7")
	require.True(t, ok)
	require.Equal(t, "Renewal failed", result.Message)

	_, ok = RenewJSON([]byte(`<html>Just a moment...</html>`), "7")
	require.False(t, ok)
	_, ok = RenewJSON([]byte(`{"message": "what"}`), "7")
	require.False(t, ok)
}

func TestFindRenewControl(t *testing.T) {
	page := string(checkoutsPage)
	require.Equal(t, `.renewButton[data-id="ils:1001"]`, FindRenewControl(page, "ils:1001"))
	require.Empty(t, FindRenewControl(page, "unknown"))
	require.Empty(t, FindRenewControl(page, ""))

	onclick := `<div><a href="#" onclick="return AspenDiscovery.Account.renewTitle('ils', '555');">Renew</a></div>`
	require.Equal(t, `a[onclick*='renew'][onclick*="555"]`, FindRenewControl(onclick, "555"))

	disabled := `<div data-id="8"><button class="renewButton" disabled>Renew</button></div>`
	require.Empty(t, FindRenewControl(disabled, "8"))
}

func TestPageClassifiers(t *testing.T) {
	require.True(t, IsChallenge(string(challengePage)))
	require.False(t, IsChallenge(string(checkoutsPage)))
	require.False(t, IsChallenge(""))

	login := `<form id="loginForm"><input id="username"><input id="password" type="password"><div class="alert alert-danger">Invalid Login</div></form>`
	require.True(t, HasLoginForm(login))
	require.Equal(t, "Invalid Login", LoginBanner(login))
	require.False(t, HasLoginForm(string(accountHome)))
	require.Empty(t, LoginBanner(string(accountHome)))

	require.True(t, HasLogoutControl(string(accountHome)))
	require.False(t, HasLogoutControl(login))

	require.Equal(t, "My Account | Huntsville-Madison County Public Library", Title(string(accountHome)))
}
