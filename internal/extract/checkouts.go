package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/htmlutil"
)

// json fields shared by the checkout and hold list endpoints.
var (
	htmlFieldKeys = Keys{"html", "body", "checkouts_html", "holds_html"}
	titleKeys     = Keys{"title", "displayTitle", "shortTitle"}
	authorKeys    = Keys{"author", "primaryAuthor"}
	formatKeys    = Keys{"format", "formatCategory", "mediaType"}
	coverKeys     = Keys{"coverUrl", "coverURL", "cover", "image"}
	sourceKeys    = Keys{"source", "type"}
)

var (
	checkoutListKeys = Keys{"checkouts", "items", "checkedOutItems"}

	checkoutIDKeys       = Keys{"id", "recordId", "itemId"}
	checkoutDueKeys      = Keys{"dueDate", "due", "dueDateFormatted"}
	checkoutCanRenewKeys = Keys{"canRenew", "canrenew", "renewable"}
	checkoutRenewalsKeys = Keys{"renewCount", "timesRenewed", "renewals"}
	checkoutRowSelectors = RowSelectors{".checkoutEntry", ".ilsCheckoutEntry", "tr.checkout-row", ".listEntry", ".result"}
	checkoutTitle        = Candidates{".result-title", ".title a", ".title", "a.title", "h3", "h4"}
	checkoutAuthor       = Candidates{".result-author", ".author", ".by"}
	checkoutDue          = Candidates{".dueDate", ".due-date", "[data-due]", ".status"}
	checkoutFormat       = Candidates{".format", ".itemType", ".material-type", ".manifestation-format"}
	checkoutCover        = Candidates{"img.cover", "img.bookcover", "img[src*='bookcover']", "img[src*='cover']", "img.use-original-covers"}
	checkoutRenewControl = Candidates{"button.renewButton", "a.renewButton", ".renewOption", "button.renew", "input.renew"}
	checkoutCannotRenew  = Candidates{".noRenew", ".cannot-renew", ".renew-unavailable"}
	checkoutIDElements   = Candidates{"[data-id]", "[data-recordid]", "input[name*='id']"}
)

// Checkouts extracts checkouts from any payload the checkout list endpoints return: a json
// object with an item array, a json object wrapping an html fragment, or an html page.
// It never fails, payloads it doesn't understand yield an empty batch.
func Checkouts(payload []byte) Batch[library.Checkout] {
	if obj, ok := DecodeObject(payload); ok {
		if items, ok := checkoutListKeys.Array(obj); ok {
			return Batch[library.Checkout]{Rows: extractItems(items, checkoutFromJSON)}
		}
		if fragment := htmlFieldKeys.String(obj); fragment != "" {
			return CheckoutsHTML(fragment)
		}
		return Batch[library.Checkout]{}
	}
	if items, ok := decodeArray(payload); ok {
		return Batch[library.Checkout]{Rows: extractItems(items, checkoutFromJSON)}
	}
	return CheckoutsHTML(string(payload))
}

func checkoutFromJSON(item Object, emitted int) (library.Checkout, error) {
	checkout := library.Checkout{
		ID:       checkoutIDKeys.String(item),
		Title:    orDefault(titleKeys.String(item), library.DefaultTitle),
		Author:   cleanAuthor(authorKeys.String(item)),
		DueDate:  checkoutDueKeys.Date(item),
		Format:   formatKeys.String(item),
		CanRenew: true,
		Source:   strings.ToLower(orDefault(sourceKeys.String(item), library.DefaultSource)),
		CoverURL: coverKeys.String(item),
	}
	if canRenew, ok := checkoutCanRenewKeys.Bool(item); ok {
		checkout.CanRenew = canRenew
	}
	if renewed, ok := checkoutRenewalsKeys.Int(item); ok {
		checkout.TimesRenewed = nonNegative(renewed)
	}
	if checkout.ID == "" {
		checkout.ID = fmt.Sprintf("checkout-%d", emitted)
	}
	return checkout, nil
}

// CheckoutsHTML extracts checkouts from the account's checkout page or an html fragment of it.
func CheckoutsHTML(markup string) Batch[library.Checkout] {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Batch[library.Checkout]{}
	}
	selector, rows := checkoutRowSelectors.Select(doc.Selection)
	return Batch[library.Checkout]{
		Selector: selector,
		Rows:     extractRows(rows, checkoutFromRow),
	}
}

func checkoutFromRow(row *goquery.Selection, emitted int) (library.Checkout, error) {
	id := rowID(row, checkoutIDElements, "data-recordid")
	if htmlutil.Text(row) == "" && id == "" {
		return library.Checkout{}, ErrEmptyRow
	}

	checkout := library.Checkout{
		ID:       id,
		Title:    orDefault(checkoutTitle.Text(row), library.DefaultTitle),
		Author:   cleanAuthor(orDefault(Labels{"author"}.Text(row), checkoutAuthor.Text(row))),
		Format:   orDefault(checkoutFormat.Text(row), Labels{"format"}.Text(row)),
		CanRenew: true,
		Source:   strings.ToLower(orDefault(strings.TrimSpace(row.AttrOr("data-source", "")), library.DefaultSource)),
		CoverURL: checkoutCover.Attr(row, "src"),
	}

	if due := (Labels{"due"}).Text(row); due != "" {
		checkout.DueDate = FindDate(due)
	}
	if checkout.DueDate == nil {
		if due := checkoutDue.Attr(row, "data-due"); due != "" {
			checkout.DueDate = FindDate(due)
		}
	}
	if checkout.DueDate == nil {
		checkout.DueDate = FindDate(checkoutDue.Text(row))
	}

	if renewed := (Labels{"renewed", "renewals"}).Text(row); renewed != "" {
		n, _ := FirstInt(renewed)
		checkout.TimesRenewed = nonNegative(n)
	}

	control := checkoutRenewControl.Find(row).First()
	if control.Length() > 0 && isDisabled(control) {
		checkout.CanRenew = false
	}
	if checkoutCannotRenew.Exists(row) {
		checkout.CanRenew = false
	}

	if checkout.ID == "" {
		checkout.ID = fmt.Sprintf("checkout-%d", emitted)
	}
	return checkout, nil
}

var selectionInputs = Candidates{"input[type='checkbox'][name*='selected']", "input[name*='selected']", "input[type='checkbox']"}

// rowID finds the catalog's identifier for a list row. `dataAttr` is the list specific data
// attribute (data-recordid, data-holdid) checked after data-id.
func rowID(row *goquery.Selection, elements Candidates, dataAttr string) string {
	if id := strings.TrimSpace(row.AttrOr("data-id", "")); id != "" {
		return id
	}
	if id := strings.TrimSpace(row.AttrOr(dataAttr, "")); id != "" {
		return id
	}
	if id := strings.TrimSpace(row.AttrOr("id", "")); id != "" && !isLayoutID(id) {
		return id
	}
	if id := elements.Attr(row, "data-id", dataAttr, "value"); id != "" {
		return id
	}
	if id := selectionInputs.Attr(row, "value"); id != "" && id != "on" {
		return id
	}
	// legacy templates encode the id in the checkbox name as selected[source|id]
	if name := selectionInputs.Attr(row, "name"); strings.Contains(name, "|") {
		parts := strings.Split(strings.TrimRight(name, "]"), "|")
		return strings.TrimSpace(parts[len(parts)-1])
	}
	return ""
}

// isLayoutID reports element ids that belong to the page layout rather than a catalog record.
func isLayoutID(id string) bool {
	lower := strings.ToLower(id)
	for _, prefix := range []string{"listentry", "result", "row"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func isDisabled(sel *goquery.Selection) bool {
	if _, ok := sel.Attr("disabled"); ok {
		return true
	}
	if sel.HasClass("disabled") {
		return true
	}
	return strings.EqualFold(sel.AttrOr("aria-disabled", ""), "true")
}
