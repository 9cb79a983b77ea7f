// Package library contains the records the catalog client returns. They carry no behavior
// beyond a few list filters, values are produced fresh by the extraction engine on every call.
package library

// Defaults substituted by the extraction engine when the source omits a value.
const (
	DefaultTitle  = "Unknown Title"
	DefaultSource = "ils"
)

// AccountSummary is the patron's account overview. Counters and fines are never negative.
type AccountSummary struct {
	NumCheckedOut     int     `json:"num_checked_out"`
	NumOverdue        int     `json:"num_overdue"`
	NumHolds          int     `json:"num_holds"`
	NumAvailableHolds int     `json:"num_available_holds"`
	TotalFines        float64 `json:"total_fines"`
	Expires           *Date   `json:"expires"`
	Name              string  `json:"name,omitempty"`
}

// Checkout is a checked out item.
//
// ID is the catalog's identifier when one was present in the source. Otherwise it is
// synthesized from the row position (`checkout-N`) and is not stable across fetches.
type Checkout struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author,omitempty"`
	DueDate      *Date  `json:"due_date"`
	Format       string `json:"format,omitempty"`
	CanRenew     bool   `json:"can_renew"`
	TimesRenewed int    `json:"times_renewed"`
	// Source is the system the loan lives in: "ils", "overdrive", "hoopla", ...
	Source   string `json:"source"`
	CoverURL string `json:"cover_url,omitempty"`
}

// Hold is a hold (reservation) on a title.
type Hold struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Author         string     `json:"author,omitempty"`
	Status         HoldStatus `json:"status"`
	Position       *int       `json:"position"`
	PickupLocation string     `json:"pickup_location,omitempty"`
	ExpirationDate *Date      `json:"expiration_date"`
	AvailableDate  *Date      `json:"available_date"`
	Format         string     `json:"format,omitempty"`
	IsFrozen       bool       `json:"is_frozen"`
	CoverURL       string     `json:"cover_url,omitempty"`
}

// SearchResult is a single record on a catalog search page.
type SearchResult struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	Format          string `json:"format,omitempty"`
	PublicationYear *int   `json:"publication_year"`
	Availability    string `json:"availability,omitempty"`
	CoverURL        string `json:"cover_url,omitempty"`
	Description     string `json:"description,omitempty"`
}

// HoldResult is the outcome of placing a hold. It is never retried.
type HoldResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	HoldID  string `json:"hold_id,omitempty"`
}

// RenewResult is the outcome of renewing one item. It is never retried.
type RenewResult struct {
	ItemID     string `json:"item_id,omitempty"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	NewDueDate *Date  `json:"new_due_date"`
}

// PickupLocation is one option of the hold form's pickup branch selector.
type PickupLocation struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
