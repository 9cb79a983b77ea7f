package chrono

import (
	"time"

	"github.com/markuskreitzer/hmcpl-library-cli/internal/library"
)

// API is the clock the list filters and CLI read "today" from.
//
// note: fault injection point
type API interface {
	Now() time.Time
	Location() *time.Location
}

// Today returns the calendar date of `api.Now()` in the api's location.
func Today(api API) library.Date {
	return library.DateOf(api.Now().In(api.Location()))
}

// the library is in Huntsville, AL, due dates roll over on central time
const libraryTimezone = "America/Chicago"

type StandardImpl struct {
	location *time.Location
}

func NewStandardImpl() (StandardImpl, error) {
	location, err := time.LoadLocation(libraryTimezone)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl is an API that always returns the same instant.
type FixedImpl struct {
	Instant time.Time
}

func (f FixedImpl) Now() time.Time {
	return f.Instant
}

func (f FixedImpl) Location() *time.Location {
	if f.Instant.Location() == nil {
		return time.UTC
	}
	return f.Instant.Location()
}
