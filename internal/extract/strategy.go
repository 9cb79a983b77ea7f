// Package extract turns catalog payloads (html pages, html fragments and json) into library
// records. Extraction never fails: a field that can't be found takes its default and a row
// that can't be read is skipped with a reason.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/htmlutil"
)

// Reasons a row is skipped. A skipped row never fails the batch.
var (
	ErrEmptyRow    = errors.New("row has no content")
	ErrNotObject   = errors.New("list item is not a json object")
	ErrRowPanicked = errors.New("row extraction panicked")
)

// Row is the outcome of extracting a single row. Err != nil means the row was skipped.
type Row[T any] struct {
	Index int
	Value T
	Err   error
}

// Batch is the outcome of extracting a list. Rows are in source order.
type Batch[T any] struct {
	// Selector is the row selector that matched, empty when the list came from json.
	Selector string
	Rows     []Row[T]
}

// Values returns the values of every row that was not skipped, in source order.
func (b Batch[T]) Values() []T {
	out := make([]T, 0, len(b.Rows))
	for _, r := range b.Rows {
		if r.Err == nil {
			out = append(out, r.Value)
		}
	}
	return out
}

// Skipped returns the rows that were skipped and why.
func (b Batch[T]) Skipped() []Row[T] {
	var out []Row[T]
	for _, r := range b.Rows {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// extractRow runs fn and turns a panic into a skipped row.
func extractRow[T any](index int, fn func() (T, error)) (row Row[T]) {
	row.Index = index
	defer func() {
		if r := recover(); r != nil {
			var zero T
			row.Value = zero
			row.Err = fmt.Errorf("%w: %v", ErrRowPanicked, r)
		}
	}()
	row.Value, row.Err = fn()
	return row
}

// extractRows extracts every row in `rows`. `emitted` passed to fn is the amount of rows
// successfully extracted so far, it is what positional ids are synthesized from.
func extractRows[T any](rows *goquery.Selection, fn func(row *goquery.Selection, emitted int) (T, error)) []Row[T] {
	out := make([]Row[T], 0, rows.Length())
	emitted := 0
	rows.Each(func(i int, row *goquery.Selection) {
		r := extractRow(i, func() (T, error) {
			return fn(row, emitted)
		})
		if r.Err == nil {
			emitted++
		}
		out = append(out, r)
	})
	return out
}

// Candidates is an ordered list of CSS selectors for the same concept, the first selector
// that yields a value wins.
type Candidates []string

// Find returns the matches of the first selector that matches anything.
func (c Candidates) Find(sel *goquery.Selection) *goquery.Selection {
	for _, s := range c {
		found := sel.Find(s)
		if found.Length() > 0 {
			return found
		}
	}
	return sel.Find("nonexistent-element-sentinel")
}

// Text returns the first non-empty cleaned text among the candidates.
func (c Candidates) Text(sel *goquery.Selection) string {
	for _, s := range c {
		var text string
		sel.Find(s).EachWithBreak(func(_ int, match *goquery.Selection) bool {
			text = htmlutil.Text(match)
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

// Fresh returns the first element with non-empty text that `after` has and `before` has not.
// Elements are told apart by their text, so a banner repeating an earlier one still counts
// as fresh when it occurs more often than before.
func (c Candidates) Fresh(before, after *goquery.Selection) *goquery.Selection {
	for _, s := range c {
		seen := map[string]int{}
		before.Find(s).Each(func(_ int, match *goquery.Selection) {
			seen[htmlutil.Text(match)]++
		})

		var fresh *goquery.Selection
		after.Find(s).EachWithBreak(func(_ int, match *goquery.Selection) bool {
			text := htmlutil.Text(match)
			if text == "" {
				return true
			}
			if seen[text] > 0 {
				seen[text]--
				return true
			}
			fresh = match
			return false
		})
		if fresh != nil {
			return fresh
		}
	}
	return nil
}

// Attr returns the first non-empty value of any of `attrs` on elements matching the candidates.
func (c Candidates) Attr(sel *goquery.Selection, attrs ...string) string {
	for _, s := range c {
		var value string
		sel.Find(s).EachWithBreak(func(_ int, match *goquery.Selection) bool {
			for _, a := range attrs {
				value = strings.TrimSpace(match.AttrOr(a, ""))
				if value != "" {
					return false
				}
			}
			return true
		})
		if value != "" {
			return value
		}
	}
	return ""
}

// Exists reports whether any candidate matches.
func (c Candidates) Exists(sel *goquery.Selection) bool {
	for _, s := range c {
		if sel.Find(s).Length() > 0 {
			return true
		}
	}
	return false
}

// RowSelectors is an ordered list of selectors for the rows of the same logical list, the first
// selector that matches at least one row wins and the rest are not consulted.
type RowSelectors []string

func (r RowSelectors) Select(doc *goquery.Selection) (string, *goquery.Selection) {
	for _, s := range r {
		rows := doc.Find(s)
		if rows.Length() > 0 {
			return s, rows
		}
	}
	return "", doc.Find("nonexistent-element-sentinel")
}

// Labels match the "label / value" pairs of the newer catalog template, where a `.result-label`
// element is followed by a sibling `.result-value`. A label matches an entry when its
// lowercased text contains it, entries are tried in order.
type Labels []string

func (l Labels) Value(row *goquery.Selection) *goquery.Selection {
	labels := row.Find(".result-label")
	for _, m := range l {
		var value *goquery.Selection
		labels.EachWithBreak(func(_ int, label *goquery.Selection) bool {
			if !strings.Contains(strings.ToLower(htmlutil.Text(label)), m) {
				return true
			}
			value = label.NextAllFiltered(".result-value").First()
			return false
		})
		if value != nil && value.Length() > 0 {
			return value
		}
	}
	return nil
}

// Text returns the cleaned text of the matching value, or "".
func (l Labels) Text(row *goquery.Selection) string {
	value := l.Value(row)
	if value == nil {
		return ""
	}
	return htmlutil.Text(value)
}

// Keys is an ordered list of json keys for the same concept, the first key holding a usable
// value wins.
type Keys []string
