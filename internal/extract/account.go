package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/htmlutil"
)

var (
	accountSummaryKeys       = Keys{"summary"}
	accountCheckedOutKeys    = Keys{"numCheckedOut", "numCheckedOutIls", "checkouts"}
	accountOverdueKeys       = Keys{"numOverdue", "numOverdueIls", "overdue"}
	accountHoldsKeys         = Keys{"numHolds", "numHoldsIls", "holds"}
	accountAvailableHoldKeys = Keys{"numAvailableHolds", "numAvailableHoldsIls", "availableHolds"}
	accountFinesKeys         = Keys{"totalFines", "fines", "finesVal"}
	accountExpiresKeys       = Keys{"expires", "expirationDate", "expiresOn"}
	accountNameKeys          = Keys{"name", "displayName", "displayNameLink"}

	accountName = Candidates{"span.menu-bar-label", ".displayNameLink", "#displayNameLink"}
)

var (
	checkedOutRegex     = regexp.MustCompile(`(?i)checked\s*out\s*titles\s*(\d+)`)
	overdueRegex        = regexp.MustCompile(`(?i)overdue\s*(\d+)`)
	onHoldRegex         = regexp.MustCompile(`(?i)titles\s*on\s*hold\s*(\d+)`)
	readyForPickupRegex = regexp.MustCompile(`(?i)ready\s*for\s*pickup\s*(\d+)`)
	feesRegex           = regexp.MustCompile(`(?i)fees?\s*\$?\s*([\d,]+(?:\.\d+)?)`)
	expiresRegex        = regexp.MustCompile(`(?i)(?:expires?|expiration\s*date)\s*(?:on)?\s*[:.]?\s*((?:\w+\.?\s+\d{1,2},?\s+\d{4})|(?:\d{1,2}[/-]\d{1,2}[/-]\d{4}))`)
)

// AccountSummary extracts the account overview from either the menu json endpoint or the
// account home page. Missing counters are 0.
func AccountSummary(payload []byte) library.AccountSummary {
	if obj, ok := DecodeObject(payload); ok {
		return AccountSummaryJSON(obj)
	}
	return AccountSummaryPage(string(payload))
}

// AccountSummaryJSON reads the account menu json. The counters are either at the top level or
// nested under "summary".
func AccountSummaryJSON(obj Object) library.AccountSummary {
	if nested, ok := accountSummaryKeys.Object(obj); ok {
		obj = nested
	}
	count := func(keys Keys) int {
		n, _ := keys.Int(obj)
		return nonNegative(n)
	}
	return library.AccountSummary{
		NumCheckedOut:     count(accountCheckedOutKeys),
		NumOverdue:        count(accountOverdueKeys),
		NumHolds:          count(accountHoldsKeys),
		NumAvailableHolds: count(accountAvailableHoldKeys),
		TotalFines:        accountFinesKeys.Amount(obj),
		Expires:           accountExpiresKeys.Date(obj),
		Name:              accountNameKeys.String(obj),
	}
}

// AccountSummaryPage reads the counters off the account home page text.
func AccountSummaryPage(markup string) library.AccountSummary {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return library.AccountSummary{}
	}
	text := htmlutil.PageText(doc)

	count := func(r *regexp.Regexp) int {
		match := r.FindStringSubmatch(text)
		if match == nil {
			return 0
		}
		n, _ := FirstInt(match[1])
		return nonNegative(n)
	}

	summary := library.AccountSummary{
		NumCheckedOut:     count(checkedOutRegex),
		NumOverdue:        count(overdueRegex),
		NumHolds:          count(onHoldRegex),
		NumAvailableHolds: count(readyForPickupRegex),
		Name:              accountName.Text(doc.Selection),
	}
	if match := feesRegex.FindStringSubmatch(text); match != nil {
		summary.TotalFines = ParseAmount(match[1])
	}
	if match := expiresRegex.FindStringSubmatch(text); match != nil {
		summary.Expires = FindDate(match[1])
	}
	return summary
}

// Title returns the cleaned document title of an html page.
func Title(markup string) string {
	return htmlutil.Text(parse(markup).Find("title"))
}
