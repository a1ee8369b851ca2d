// Package query resolves filter specifications against the data store's
// indexes and projects results to the caller's requested metric subset.
package query

import (
	"log/slog"
	"sort"
	"time"

	"github.com/viewsdata/forecast-service/internal/domain"
	"github.com/viewsdata/forecast-service/internal/observability"
	"github.com/viewsdata/forecast-service/internal/store"
)

// Filter narrows a query to a month or month range and selects the metrics
// to project. MonthID and the range fields are mutually exclusive; the range
// is inclusive on both ends. Nil month fields mean "all months".
type Filter struct {
	MonthID    *domain.MonthID
	MonthStart *domain.MonthID
	MonthEnd   *domain.MonthID
	Metrics    domain.MetricSelection
}

// validate surfaces filter contradictions before any index lookup.
func (f Filter) validate() error {
	if f.MonthID != nil && (f.MonthStart != nil || f.MonthEnd != nil) {
		return &domain.InvalidFilterError{Reason: "month_id and a month range are mutually exclusive"}
	}
	if f.MonthID != nil && !f.MonthID.Valid() {
		return &domain.InvalidFilterError{Reason: "month_id must be positive"}
	}
	if f.MonthStart != nil && !f.MonthStart.Valid() {
		return &domain.InvalidFilterError{Reason: "month_start must be positive"}
	}
	if f.MonthEnd != nil && !f.MonthEnd.Valid() {
		return &domain.InvalidFilterError{Reason: "month_end must be positive"}
	}
	if f.MonthStart != nil && f.MonthEnd != nil && *f.MonthStart > *f.MonthEnd {
		return &domain.InvalidFilterError{Reason: "month_start is after month_end"}
	}
	return nil
}

// includes reports whether a month passes the filter.
func (f Filter) includes(m domain.MonthID) bool {
	if f.MonthID != nil {
		return m == *f.MonthID
	}
	if f.MonthStart != nil && m < *f.MonthStart {
		return false
	}
	if f.MonthEnd != nil && m > *f.MonthEnd {
		return false
	}
	return true
}

// Engine answers forecast queries against the store. All operations are pure
// reads against the snapshot active when the query started; results are
// always ordered ascending by (grid id, month id).
type Engine struct {
	store   *store.Store
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Engine over the given store.
func New(st *store.Store, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{store: st, logger: logger, metrics: metrics}
}

// ByCountry returns the projected records of every grid cell in the country,
// filtered to the requested months. An id absent from the country catalog
// yields UnknownCountryError even when the result would be empty anyway.
func (e *Engine) ByCountry(countryID int64, f Filter) ([]domain.ForecastRecord, error) {
	return e.instrument("country", func(v store.View) ([]domain.ForecastRecord, error) {
		if err := f.validate(); err != nil {
			return nil, err
		}
		if !v.HasCountry(countryID) {
			return nil, &domain.UnknownCountryError{CountryID: countryID}
		}

		var out []domain.ForecastRecord
		for _, gridID := range v.GridIDsForCountry(countryID) {
			out = appendProjected(out, v.RecordsForGrid(gridID), f)
		}
		return out, nil
	})
}

// ByGrid returns the projected records of the requested grid cells across
// the filtered months. If any requested id is unknown, the query fails
// closed with UnknownGridError naming every invalid id and returns no
// records for the valid ones.
func (e *Engine) ByGrid(gridIDs []int64, f Filter) ([]domain.ForecastRecord, error) {
	return e.instrument("grid", func(v store.View) ([]domain.ForecastRecord, error) {
		if err := f.validate(); err != nil {
			return nil, err
		}
		if len(gridIDs) == 0 {
			return nil, &domain.InvalidFilterError{Reason: "at least one grid id is required"}
		}

		ids := dedupeSorted(gridIDs)
		var unknown []int64
		for _, id := range ids {
			if !v.HasGrid(id) {
				unknown = append(unknown, id)
			}
		}
		if len(unknown) > 0 {
			return nil, &domain.UnknownGridError{GridIDs: unknown}
		}

		var out []domain.ForecastRecord
		for _, id := range ids {
			out = appendProjected(out, v.RecordsForGrid(id), f)
		}
		return out, nil
	})
}

// ByMonth returns the projected records of one month, optionally narrowed to
// a country. A valid month id with no data yields an empty result, not an
// error; an unknown country id is still an error.
func (e *Engine) ByMonth(monthID domain.MonthID, countryID *int64, metrics domain.MetricSelection) ([]domain.ForecastRecord, error) {
	return e.instrument("month", func(v store.View) ([]domain.ForecastRecord, error) {
		if !monthID.Valid() {
			return nil, &domain.InvalidFilterError{Reason: "month_id must be positive"}
		}
		if countryID != nil && !v.HasCountry(*countryID) {
			return nil, &domain.UnknownCountryError{CountryID: *countryID}
		}

		out := []domain.ForecastRecord{}
		for _, rec := range v.RecordsForMonth(monthID) {
			if countryID != nil && rec.CountryID != *countryID {
				continue
			}
			out = append(out, metrics.Project(rec))
		}
		return out, nil
	})
}

// instrument wraps an operation with snapshot acquisition, metrics, and
// debug logging.
func (e *Engine) instrument(op string, fn func(store.View) ([]domain.ForecastRecord, error)) ([]domain.ForecastRecord, error) {
	start := time.Now()

	v, err := e.store.View()
	if err != nil {
		e.metrics.QueriesTotal.WithLabelValues(op, "unavailable").Inc()
		return nil, err
	}

	out, err := fn(v)
	if err != nil {
		e.metrics.QueriesTotal.WithLabelValues(op, outcomeLabel(err)).Inc()
		return nil, err
	}

	e.metrics.QueriesTotal.WithLabelValues(op, "success").Inc()
	e.metrics.QueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	e.metrics.QueryResultSize.Observe(float64(len(out)))
	e.logger.Debug("query resolved", "operation", op, "records", len(out), "duration", time.Since(start))
	return out, nil
}

func outcomeLabel(err error) string {
	switch err.(type) {
	case *domain.UnknownCountryError, *domain.UnknownGridError:
		return "not_found"
	case *domain.InvalidFilterError:
		return "invalid"
	default:
		return "error"
	}
}

// appendProjected appends the month-filtered projection of a grid's records,
// which are already sorted by month id.
func appendProjected(dst []domain.ForecastRecord, recs []domain.ForecastRecord, f Filter) []domain.ForecastRecord {
	for _, rec := range recs {
		if !f.includes(rec.MonthID) {
			continue
		}
		dst = append(dst, f.Metrics.Project(rec))
	}
	return dst
}

func dedupeSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
