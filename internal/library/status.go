package library

// HoldStatus is the normalized state of a hold.
type HoldStatus string

const (
	HoldPending   HoldStatus = "pending"
	HoldAvailable HoldStatus = "available"
	HoldInTransit HoldStatus = "in_transit"
	HoldSuspended HoldStatus = "suspended"
	HoldExpired   HoldStatus = "expired"
)

func (s HoldStatus) Valid() bool {
	switch s {
	case HoldPending, HoldAvailable, HoldInTransit, HoldSuspended, HoldExpired:
		return true
	}
	return false
}
