package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/htmlutil"
)

// Location is the catalog's time zone, unix timestamps are converted to dates in it.
var Location = loadLocation("America/Chicago")

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CST", -6*60*60)
	}
	return loc
}

var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"January 2, 2006",
	"Jan 2, 2006",
	"Jan. 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
}

// ParseDate parses any of the date formats the catalog is known to emit. It returns nil when
// nothing matches.
func ParseDate(text string) *library.Date {
	text = htmlutil.Clean(text)
	if text == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, text)
		if err != nil {
			continue
		}
		d := library.DateOf(t)
		return &d
	}
	return nil
}

var (
	numericDateRegex = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{4}`)
	isoDateRegex     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	namedDateRegex   = regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4}`)
)

// FindDate looks for a date embedded in free text like "Due 02/15/2026" or
// "Expires Feb 15, 2026". It returns nil when there is none.
func FindDate(text string) *library.Date {
	for _, r := range []*regexp.Regexp{numericDateRegex, isoDateRegex, namedDateRegex} {
		match := r.FindString(text)
		if match == "" {
			continue
		}
		if d := ParseDate(match); d != nil {
			return d
		}
	}
	return ParseDate(text)
}

// UnixDate converts a unix timestamp in seconds to a date in Location.
func UnixDate(seconds int64) *library.Date {
	if seconds <= 0 {
		return nil
	}
	d := library.DateOf(time.Unix(seconds, 0).In(Location))
	return &d
}

var amountReplacer = strings.NewReplacer("$", "", ",", "", " ", "", "USD", "")

// ParseAmount parses a monetary amount such as "$1,234.50". Anything unparseable, negative or
// not finite becomes 0.
func ParseAmount(text string) float64 {
	text = amountReplacer.Replace(strings.TrimSpace(text))
	if text == "" {
		return 0
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// ParseHoldStatus classifies the catalog's free-text hold status. The rules are evaluated in
// order and the first one to match wins, so "Frozen - Ready" is available.
func ParseHoldStatus(text string) library.HoldStatus {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, "available"), strings.Contains(text, "ready"):
		return library.HoldAvailable
	case strings.Contains(text, "transit"):
		return library.HoldInTransit
	case strings.Contains(text, "suspend"), strings.Contains(text, "frozen"):
		return library.HoldSuspended
	case strings.Contains(text, "expired"):
		return library.HoldExpired
	}
	return library.HoldPending
}

var integerRegex = regexp.MustCompile(`\d+`)

// FirstInt returns the first run of digits in `text`.
func FirstInt(text string) (int, bool) {
	match := integerRegex.FindString(text)
	if match == "" {
		return 0, false
	}
	value, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return value, true
}

var yearRegex = regexp.MustCompile(`(?:^|\D)(1[5-9]\d{2}|20\d{2})(?:\D|$)`)

// FindYear returns the first plausible four digit year in `text`, "c1965." included.
func FindYear(text string) *int {
	match := yearRegex.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	year, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return &year
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func positive(n int, ok bool) *int {
	if !ok || n <= 0 {
		return nil
	}
	return &n
}

var byPrefix = regexp.MustCompile(`(?i)^by[:\s]+`)

// cleanAuthor strips a leading "by ".
func cleanAuthor(text string) string {
	return strings.TrimSpace(byPrefix.ReplaceAllString(htmlutil.Clean(text), ""))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
