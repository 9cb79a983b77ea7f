package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/htmlutil"
)

// Selectors of interactive page elements, in preference order.
var (
	PickupSelect   = Candidates{"select#pickupBranch", "select[name='pickupBranch']", "select#pickupLocation", "select[name='pickupLocation']"}
	HoldSubmit     = Candidates{"input[type='submit'][value*='Hold']", "button[type='submit']", ".placeHold", "#requestTitleButton"}
	HoldLinks      = Candidates{"a[href*='/Hold']"}
	LoginUsername  = Candidates{"#username", "input[name='username']"}
	LoginPassword  = Candidates{"#password", "input[name='password']"}
	LoginRemember  = Candidates{"#rememberMe", "input[name='rememberMe']"}
	LoginSubmit    = Candidates{"#loginFormSubmit", "form#loginForm [type='submit']"}
	LogoutControls = Candidates{"a[href*='Logout']", ".logoutLink", "#logoutLink"}
)

var (
	loginErrorBanner   = Candidates{".alert-danger", ".loginError", ".error", ".alert-warning"}
	holdSuccessBanner  = Candidates{".alert-success", ".holdConfirmation", ".success"}
	holdErrorBanner    = Candidates{".alert-danger", ".holdError", ".error"}
	renewSuccessBanner = Candidates{".alert-success", ".renewSuccess", ".success"}
	renewErrorBanner   = Candidates{".alert-danger", ".renewError", ".error"}

	renewMessageKeys = Keys{"message", "title", "error"}
	renewSuccessKeys = Keys{"success"}
	renewDueKeys     = Keys{"newDueDate", "dueDate", "new_due_date"}
)

// Messages used when the catalog's response can't be classified.
const (
	UnknownHoldResult  = "Unknown result - please check your holds"
	UnknownRenewResult = "Unknown result - please check your checkouts"
)

func parse(markup string) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return doc.Selection
}

// Match returns the first of `c` that matches anything in `markup`, or "".
func Match(markup string, c Candidates) string {
	page := parse(markup)
	for _, s := range c {
		if page.Find(s).Length() > 0 {
			return s
		}
	}
	return ""
}

// PickupLocations reads the pickup branch options of a hold form. Placeholder options are
// dropped, the rest keep page order.
func PickupLocations(markup string) []library.PickupLocation {
	locations := []library.PickupLocation{}
	PickupSelect.Find(parse(markup)).First().Find("option").Each(func(_ int, option *goquery.Selection) {
		label := htmlutil.Text(option)
		if label == "" || strings.HasPrefix(strings.ToLower(label), "select a") {
			return
		}
		value, ok := option.Attr("value")
		if !ok {
			value = label
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		locations = append(locations, library.PickupLocation{Value: value, Label: label})
	})
	return locations
}

// FirstHoldLink returns the href of the first "place hold" link on a page.
func FirstHoldLink(markup string) string {
	return HoldLinks.Attr(parse(markup), "href")
}

// HoldOutcome classifies the page shown after submitting a hold form.
func HoldOutcome(markup string) library.HoldResult {
	return HoldOutcomeSince("", markup)
}

// HoldOutcomeSince classifies `after` by the banners it shows that `before`, the page the form
// was submitted from, did not.
func HoldOutcomeSince(before, after string) library.HoldResult {
	prev, page := parse(before), parse(after)
	if banner := holdSuccessBanner.Fresh(prev, page); banner != nil {
		holdID := ""
		for _, attr := range []string{"data-holdid", "data-hold-id"} {
			if holdID = strings.TrimSpace(banner.AttrOr(attr, "")); holdID != "" {
				break
			}
		}
		return library.HoldResult{Success: true, Message: htmlutil.Text(banner), HoldID: holdID}
	}
	if banner := holdErrorBanner.Fresh(prev, page); banner != nil {
		return library.HoldResult{Success: false, Message: htmlutil.Text(banner)}
	}
	return library.HoldResult{Success: false, Message: UnknownHoldResult}
}

// RenewOutcome classifies the page shown after clicking a renew control.
func RenewOutcome(markup, itemID string) library.RenewResult {
	return RenewOutcomeSince("", markup, itemID)
}

// RenewOutcomeSince classifies `after` by the banners it shows that `before`, the page the
// renew control was clicked on, did not.
func RenewOutcomeSince(before, after, itemID string) library.RenewResult {
	prev, page := parse(before), parse(after)
	if banner := renewSuccessBanner.Fresh(prev, page); banner != nil {
		message := htmlutil.Text(banner)
		return library.RenewResult{ItemID: itemID, Success: true, Message: message, NewDueDate: FindDate(message)}
	}
	if banner := renewErrorBanner.Fresh(prev, page); banner != nil {
		return library.RenewResult{ItemID: itemID, Success: false, Message: htmlutil.Text(banner)}
	}
	return library.RenewResult{ItemID: itemID, Success: false, Message: UnknownRenewResult}
}

// RenewJSON reads the renew endpoint's json answer. It reports false when `payload` is not an
// answer at all (not json, or no success flag), as opposed to an explicit refusal.
func RenewJSON(payload []byte, itemID string) (library.RenewResult, bool) {
	obj, ok := DecodeObject(payload)
	if !ok {
		return library.RenewResult{}, false
	}
	success, ok := renewSuccessKeys.Bool(obj)
	if !ok {
		return library.RenewResult{}, false
	}
	message := SanitizeText(renewMessageKeys.String(obj))
	if message == "" {
		if success {
			message = "Item renewed"
		} else {
			message = "Renewal failed"
		}
	}
	result := library.RenewResult{ItemID: itemID, Success: success, Message: message}
	if success {
		result.NewDueDate = renewDueKeys.Date(obj)
		if result.NewDueDate == nil {
			result.NewDueDate = FindDate(message)
		}
	}
	return result, true
}

// cssString quotes `s` as a css string literal.
func cssString(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// RenewControlSelectors lists the selectors that may address the renew control of `itemID`,
// in preference order.
func RenewControlSelectors(itemID string) Candidates {
	id := cssString(itemID)
	return Candidates{
		fmt.Sprintf(".renewButton[data-id=%s]", id),
		fmt.Sprintf("[data-id=%s] .renewButton", id),
		fmt.Sprintf("[data-id=%s] .renewOption", id),
		fmt.Sprintf("[data-id=%s] button.renew", id),
		fmt.Sprintf("[data-recordid=%s] .renewButton", id),
		fmt.Sprintf("button[onclick*='renew'][onclick*=%s]", id),
		fmt.Sprintf("a[onclick*='renew'][onclick*=%s]", id),
		fmt.Sprintf("button[onclick*='Renew'][onclick*=%s]", id),
		fmt.Sprintf("a[onclick*='Renew'][onclick*=%s]", id),
	}
}

// FindRenewControl returns the selector of the enabled renew control for `itemID` on a
// checkouts page, or "" when there is none.
func FindRenewControl(markup, itemID string) string {
	if strings.TrimSpace(itemID) == "" {
		return ""
	}
	page := parse(markup)
	for _, s := range RenewControlSelectors(itemID) {
		control := page.Find(s).First()
		if control.Length() > 0 && !isDisabled(control) {
			return s
		}
	}
	return ""
}

// LoginBanner returns the text of the error banner shown by a rejected login, or "".
func LoginBanner(markup string) string {
	return loginErrorBanner.Text(parse(markup))
}

// HasLoginForm reports whether a page shows the credential form.
func HasLoginForm(markup string) bool {
	page := parse(markup)
	return LoginUsername.Exists(page) && LoginPassword.Exists(page)
}

// HasLogoutControl reports whether a page shows a logout control, which only happens for an
// authenticated session.
func HasLogoutControl(markup string) bool {
	return LogoutControls.Exists(parse(markup))
}

var (
	challengeTitles   = []string{"just a moment", "attention required", "access denied", "checking your browser", "are you a robot"}
	challengeElements = Candidates{"#challenge-form", "#challenge-running", "#cf-challenge-running", ".cf-browser-verification", "#px-captcha", "div.h-captcha"}
)

// IsChallenge reports whether a page is a bot-protection interstitial instead of catalog
// content.
func IsChallenge(markup string) bool {
	page := parse(markup)
	title := strings.ToLower(htmlutil.Text(page.Find("title")))
	for _, t := range challengeTitles {
		if strings.Contains(title, t) {
			return true
		}
	}
	return challengeElements.Exists(page)
}
