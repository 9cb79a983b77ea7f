package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
)

type locationsOutput struct {
	Locations []library.PickupLocation `json:"locations"`
}

func writeJSON(w io.Writer, v any) error {
	buff, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(buff))
	return err
}

// writeError prints `{"error": msg}`, errors are always json even when --table is set.
func writeError(w io.Writer, err error) {
	buff, _ := json.Marshal(map[string]string{"error": err.Error()})
	fmt.Fprintln(w, string(buff))
}

func writeWarning(w io.Writer, message string) {
	buff, _ := json.Marshal(map[string]string{"warning": message})
	fmt.Fprintln(w, string(buff))
}

func date(d *library.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func optionalInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// render writes `v` as indented json, or as a table when `asTable` is set and the value has a
// table form.
func render(w io.Writer, v any, asTable bool) error {
	if !asTable {
		return writeJSON(w, v)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)

	switch v := v.(type) {
	case library.AccountSummary:
		t.AppendHeader(table.Row{"Field", "Value"})
		if v.Name != "" {
			t.AppendRow(table.Row{"Name", v.Name})
		}
		t.AppendRows([]table.Row{
			{"Checked out", v.NumCheckedOut},
			{"Overdue", v.NumOverdue},
			{"Holds", v.NumHolds},
			{"Holds ready", v.NumAvailableHolds},
			{"Fines", fmt.Sprintf("$%.2f", v.TotalFines)},
			{"Card expires", date(v.Expires)},
		})
	case []library.Checkout:
		t.AppendHeader(table.Row{"ID", "Title", "Author", "Due", "Renewable", "Renewed", "Source"})
		for _, c := range v {
			t.AppendRow(table.Row{c.ID, c.Title, c.Author, date(c.DueDate), yesNo(c.CanRenew), c.TimesRenewed, c.Source})
		}
	case []library.Hold:
		t.AppendHeader(table.Row{"ID", "Title", "Author", "Status", "Position", "Pickup", "Expires"})
		for _, h := range v {
			t.AppendRow(table.Row{h.ID, h.Title, h.Author, h.Status, optionalInt(h.Position), h.PickupLocation, date(h.ExpirationDate)})
		}
	case []library.SearchResult:
		t.AppendHeader(table.Row{"ID", "Title", "Author", "Format", "Year", "Availability"})
		for _, r := range v {
			t.AppendRow(table.Row{r.ID, r.Title, r.Author, r.Format, optionalInt(r.PublicationYear), r.Availability})
		}
	case library.HoldResult:
		t.AppendHeader(table.Row{"Success", "Message", "Hold ID"})
		t.AppendRow(table.Row{yesNo(v.Success), v.Message, v.HoldID})
	case library.RenewResult:
		return render(w, []library.RenewResult{v}, asTable)
	case []library.RenewResult:
		t.AppendHeader(table.Row{"Item", "Success", "Message", "New due date"})
		for _, r := range v {
			t.AppendRow(table.Row{r.ItemID, yesNo(r.Success), r.Message, date(r.NewDueDate)})
		}
	case locationsOutput:
		t.AppendHeader(table.Row{"Value", "Location"})
		for _, l := range v.Locations {
			t.AppendRow(table.Row{l.Value, l.Label})
		}
	default:
		return writeJSON(w, v)
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
