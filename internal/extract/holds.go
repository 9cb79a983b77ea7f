package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
	"github.com/markuskreitzer/hmcpl-library-cli/lib/htmlutil"
)

var (
	holdListKeys = Keys{"holds", "items"}

	holdIDKeys         = Keys{"id", "holdId", "cancelId", "recordId"}
	holdStatusKeys     = Keys{"status", "statusMessage"}
	holdAvailableKeys  = Keys{"available", "isAvailable"}
	holdPositionKeys   = Keys{"position", "holdQueuePosition", "queuePosition"}
	holdPickupKeys     = Keys{"pickupLocation", "pickupLocationName", "currentPickupName"}
	holdExpirationKeys = Keys{"expirationDate", "expire", "expires"}
	holdAvailableOn    = Keys{"availableDate", "availableTime"}
	holdFrozenKeys     = Keys{"frozen", "isFrozen"}

	holdRowSelectors = RowSelectors{".holdEntry", ".ilsHoldEntry", "tr.hold-row", ".listEntry", ".result"}
	holdTitle        = Candidates{".result-title", ".title a", ".title", "a.title", "h3", "h4"}
	holdAuthor       = Candidates{".result-author", ".author", ".by"}
	holdStatus       = Candidates{".holdStatus", ".hold-status", ".status"}
	holdPosition     = Candidates{".holdPosition", ".position", ".queue"}
	holdPickup       = Candidates{".pickupLocation", ".pickup", ".location"}
	holdExpiration   = Candidates{".expirationDate", ".expires", ".expiration"}
	holdFormat       = Candidates{".format", ".itemType", ".material-type", ".manifestation-format"}
	holdCover        = Candidates{"img.cover", "img.bookcover", "img[src*='bookcover']", "img[src*='cover']", "img.use-original-covers"}
	holdFrozen       = Candidates{".frozen", ".suspended", "input[name*='freeze'][checked]"}
	holdIDElements   = Candidates{"[data-id]", "[data-holdid]", "input[name*='id']"}
)

// Holds extracts holds from any payload the hold list endpoints return. It behaves like
// Checkouts.
func Holds(payload []byte) Batch[library.Hold] {
	if obj, ok := DecodeObject(payload); ok {
		if items, ok := holdListKeys.Array(obj); ok {
			return Batch[library.Hold]{Rows: extractItems(items, holdFromJSON)}
		}
		if fragment := htmlFieldKeys.String(obj); fragment != "" {
			return HoldsHTML(fragment)
		}
		return Batch[library.Hold]{}
	}
	if items, ok := decodeArray(payload); ok {
		return Batch[library.Hold]{Rows: extractItems(items, holdFromJSON)}
	}
	return HoldsHTML(string(payload))
}

func holdFromJSON(item Object, emitted int) (library.Hold, error) {
	status := ParseHoldStatus(holdStatusKeys.String(item))
	if available, ok := holdAvailableKeys.Bool(item); ok && available {
		status = library.HoldAvailable
	}
	position, ok := holdPositionKeys.Int(item)

	hold := library.Hold{
		ID:             holdIDKeys.String(item),
		Title:          orDefault(titleKeys.String(item), library.DefaultTitle),
		Author:         cleanAuthor(authorKeys.String(item)),
		Status:         status,
		Position:       positive(position, ok),
		PickupLocation: holdPickupKeys.String(item),
		ExpirationDate: holdExpirationKeys.Date(item),
		AvailableDate:  holdAvailableOn.Date(item),
		Format:         formatKeys.String(item),
		CoverURL:       coverKeys.String(item),
	}
	frozen, _ := holdFrozenKeys.Bool(item)
	hold.IsFrozen = frozen || status == library.HoldSuspended
	if hold.ID == "" {
		hold.ID = fmt.Sprintf("hold-%d", emitted)
	}
	return hold, nil
}

// HoldsHTML extracts holds from the account's holds page or an html fragment of it.
func HoldsHTML(markup string) Batch[library.Hold] {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return Batch[library.Hold]{}
	}
	selector, rows := holdRowSelectors.Select(doc.Selection)
	return Batch[library.Hold]{
		Selector: selector,
		Rows:     extractRows(rows, holdFromRow),
	}
}

func holdFromRow(row *goquery.Selection, emitted int) (library.Hold, error) {
	id := rowID(row, holdIDElements, "data-holdid")
	if htmlutil.Text(row) == "" && id == "" {
		return library.Hold{}, ErrEmptyRow
	}

	status := ParseHoldStatus(orDefault(Labels{"status"}.Text(row), holdStatus.Text(row)))
	position, ok := FirstInt(orDefault(Labels{"position", "queue"}.Text(row), holdPosition.Text(row)))

	hold := library.Hold{
		ID:             id,
		Title:          orDefault(holdTitle.Text(row), library.DefaultTitle),
		Author:         cleanAuthor(orDefault(Labels{"author"}.Text(row), holdAuthor.Text(row))),
		Status:         status,
		Position:       positive(position, ok),
		PickupLocation: orDefault(holdPickup.Text(row), Labels{"pickup location", "pickup at", "location"}.Text(row)),
		ExpirationDate: FindDate(orDefault(holdExpiration.Text(row), Labels{"expir", "pickup by"}.Text(row))),
		Format:         orDefault(holdFormat.Text(row), Labels{"format"}.Text(row)),
		CoverURL:       holdCover.Attr(row, "src"),
	}
	if available := (Labels{"available"}).Text(row); available != "" {
		hold.AvailableDate = FindDate(available)
	}
	hold.IsFrozen = status == library.HoldSuspended ||
		holdFrozen.Exists(row) ||
		Labels{"frozen", "suspended"}.Text(row) != ""

	if hold.ID == "" {
		hold.ID = fmt.Sprintf("hold-%d", emitted)
	}
	return hold, nil
}
