package library

// DueWithin returns the checkouts due on or before `today + days`. Checkouts without a due
// date are dropped.
func DueWithin(checkouts []Checkout, today Date, days int) []Checkout {
	cutoff := today.AddDays(days)
	out := []Checkout{}
	for _, c := range checkouts {
		if c.DueDate != nil && !c.DueDate.After(cutoff) {
			out = append(out, c)
		}
	}
	return out
}

// Overdue returns the checkouts whose due date is strictly before `today`.
func Overdue(checkouts []Checkout, today Date) []Checkout {
	out := []Checkout{}
	for _, c := range checkouts {
		if c.DueDate != nil && c.DueDate.Before(today) {
			out = append(out, c)
		}
	}
	return out
}

// HoldsWithStatus returns the holds in the given status, keeping source order.
func HoldsWithStatus(holds []Hold, status HoldStatus) []Hold {
	out := []Hold{}
	for _, h := range holds {
		if h.Status == status {
			out = append(out, h)
		}
	}
	return out
}
