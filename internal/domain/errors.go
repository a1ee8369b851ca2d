package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrDataUnavailable is returned by the store's load when no usable
// grid/country catalog can be established from either input files or the
// synthetic generator. It is fatal to the load.
var ErrDataUnavailable = errors.New("no usable grid/country catalog available")

// ErrRefreshInProgress is returned when a load is requested while another
// load is still running. Refreshes are serialized, never interleaved.
var ErrRefreshInProgress = errors.New("data refresh already in progress")

// UnknownCountryError reports a query that referenced a country id absent
// from the loaded catalog. A known country with zero records in range is not
// an error; only an unknown id is.
type UnknownCountryError struct {
	CountryID int64
}

func (e *UnknownCountryError) Error() string {
	return fmt.Sprintf("unknown country id %d", e.CountryID)
}

// UnknownGridError reports every requested grid id absent from the catalog.
// Queries with any unknown id fail closed: no records are returned for the
// valid ids in the same request.
type UnknownGridError struct {
	GridIDs []int64
}

func (e *UnknownGridError) Error() string {
	ids := make([]string, len(e.GridIDs))
	for i, id := range e.GridIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return "unknown grid ids: " + strings.Join(ids, ", ")
}

// InvalidFilterError reports a mutually exclusive or out-of-domain filter
// combination. It is surfaced before any index lookup is attempted.
type InvalidFilterError struct {
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return "invalid filter: " + e.Reason
}
