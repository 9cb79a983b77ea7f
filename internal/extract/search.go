package extract

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/htmlutil"
	"github.com/microcosm-cc/bluemonday"
)

var (
	searchRowSelectors  = RowSelectors{".resultsList", "div[id^='groupedRecord']", ".result"}
	searchTitle         = Candidates{".result-title", "a.result-title", ".title a", "h3"}
	searchAuthor        = Candidates{".result-author", ".author a", ".author"}
	searchFormat        = Candidates{".manifestation-format", ".formatCategory", ".format-category"}
	searchAvailability  = Candidates{".related-manifestation-shelf-status", ".status-available", ".availability"}
	searchCover         = Candidates{"img[src*='bookcover']", "img.use-original-covers", "img.listResultImage"}
	searchDescription   = Candidates{".result-description", ".description"}
	searchPopover       = Candidates{"[data-content]"}
	searchRecordLinks   = Candidates{"a.result-title", ".result-title a", "a[href*='/GroupedWork/']", "a[href*='/Record/']", "a[href]"}
	recordLinkRegex     = regexp.MustCompile(`/(GroupedWork|Record|Hoopla|OverDrive)/([^/?#]+)`)
	showEditionRegex    = regexp.MustCompile(`(?i)show edition.*$`)
	groupedRecordPrefix = "groupedRecord"
)

var descriptionPolicy = newDescriptionPolicy()

func newDescriptionPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}

// SearchResults extracts the records of a search results page in page order.
func SearchResults(markup string) Batch[library.SearchResult] {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Batch[library.SearchResult]{}
	}
	selector, rows := searchRowSelectors.Select(doc.Selection)
	return Batch[library.SearchResult]{
		Selector: selector,
		Rows:     extractRows(rows, searchResultFromRow),
	}
}

func searchResultFromRow(row *goquery.Selection, emitted int) (library.SearchResult, error) {
	id := searchRecordID(row)
	if htmlutil.Text(row) == "" && id == "" {
		return library.SearchResult{}, ErrEmptyRow
	}

	result := library.SearchResult{
		ID:           id,
		Title:        orDefault(searchTitle.Text(row), library.DefaultTitle),
		Author:       cleanAuthor(orDefault(Labels{"author"}.Text(row), searchAuthor.Text(row))),
		Format:       strings.TrimSpace(showEditionRegex.ReplaceAllString(searchFormat.Text(row), "")),
		Availability: searchAvailability.Text(row),
		CoverURL:     searchCover.Attr(row, "src"),
		Description:  searchDescription.Text(row),
	}
	if year := (Labels{"pub", "year"}).Text(row); year != "" {
		result.PublicationYear = FindYear(year)
	}
	if result.Description == "" {
		result.Description = SanitizeText(searchPopover.Attr(row, "data-content"))
	}
	if result.ID == "" {
		result.ID = fmt.Sprintf("result-%d", emitted)
	}
	return result, nil
}

func searchRecordID(row *goquery.Selection) string {
	if id := strings.TrimSpace(row.AttrOr("id", "")); strings.HasPrefix(id, groupedRecordPrefix) {
		if id = strings.TrimPrefix(id, groupedRecordPrefix); id != "" {
			return id
		}
	}
	for _, s := range searchRecordLinks {
		var id string
		row.Find(s).EachWithBreak(func(_ int, link *goquery.Selection) bool {
			match := recordLinkRegex.FindStringSubmatch(link.AttrOr("href", ""))
			if match != nil {
				id = match[2]
			}
			return id == ""
		})
		if id != "" {
			return id
		}
	}
	return ""
}

// SanitizeText turns an untrusted html snippet into plain single-line text.
func SanitizeText(snippet string) string {
	if strings.TrimSpace(snippet) == "" {
		return ""
	}
	return htmlutil.Clean(html.UnescapeString(descriptionPolicy.Sanitize(snippet)))
}
