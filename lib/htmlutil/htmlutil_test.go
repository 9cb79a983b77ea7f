package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestPageText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><head><style>.due{color:red}</style></head><body>` +
			`<div>Checked   out: <b>3</b></div><p>Due:  12/31/2026</p>` +
			`<script>var session = "x"</script></body></html>`,
	))
	require.NoError(t, err)
	require.Equal(t, "Checked out: 3\nDue: 12/31/2026", PageText(doc))
	require.Equal(t, "", PageText(nil))
}

func TestText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<ul><li class=title>\n  The Dispossessed\x07 </li><li class=title>second</li></ul>",
	))
	require.NoError(t, err)
	require.Equal(t, "The Dispossessed", Text(doc.Find(".title")))
	require.Equal(t, "", Text(doc.Find(".missing")))
	require.Equal(t, "", Text(nil))
}

func TestClean(t *testing.T) {
	require.Equal(t, "a b c", Clean("  a\t b\n\nc  "))
	require.Equal(t, "ab", Clean("a\x00b"))
}
