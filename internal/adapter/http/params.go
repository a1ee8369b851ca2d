package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/viewsdata/forecast-service/internal/domain"
	"github.com/viewsdata/forecast-service/internal/query"
)

// forecastResponse is the envelope around query results.
type forecastResponse struct {
	Data          []domain.ForecastRecord `json:"data"`
	TotalCells    int                     `json:"total_cells"`
	MonthsCovered int                     `json:"months_covered"`
}

func newForecastResponse(records []domain.ForecastRecord) forecastResponse {
	if records == nil {
		records = []domain.ForecastRecord{}
	}
	months := make(map[domain.MonthID]bool)
	for _, rec := range records {
		months[rec.MonthID] = true
	}
	return forecastResponse{
		Data:          records,
		TotalCells:    len(records),
		MonthsCovered: len(months),
	}
}

type errorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func errorBody(kind, message string, details map[string]any) errorResponse {
	return errorResponse{Error: kind, Message: message, Details: details}
}

// parseFilter reads the month narrowing and metric flags. Contradictory
// combinations are left for the query engine to reject, so the error shape
// is identical no matter where the filter came from.
func parseFilter(r *http.Request) (query.Filter, error) {
	f := query.Filter{Metrics: parseMetricSelection(r)}

	monthID, err := optionalMonthQuery(r, "month_id")
	if err != nil {
		return query.Filter{}, err
	}
	start, err := optionalMonthQuery(r, "month_start")
	if err != nil {
		return query.Filter{}, err
	}
	end, err := optionalMonthQuery(r, "month_end")
	if err != nil {
		return query.Filter{}, err
	}

	f.MonthID = monthID
	f.MonthStart = start
	f.MonthEnd = end
	return f, nil
}

// parseMetricSelection applies the include_* flags on top of the lean
// default (map + binary). Flags not present keep their default.
func parseMetricSelection(r *http.Request) domain.MetricSelection {
	m := domain.DefaultMetricSelection()
	q := r.URL.Query()

	apply := func(key string, target *bool) {
		if v := q.Get(key); v != "" {
			*target = v == "true" || v == "1"
		}
	}
	apply("include_map", &m.Map)
	apply("include_hdi_50", &m.HDI50)
	apply("include_hdi_90", &m.HDI90)
	apply("include_hdi_99", &m.HDI99)
	apply("include_thresholds", &m.Thresholds)
	apply("include_binary", &m.Binary)
	return m
}

func int64Param(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &domain.InvalidFilterError{Reason: name + " must be an integer"}
	}
	return v, nil
}

// gridIDsParam parses the required comma-separated grid_ids query parameter.
func gridIDsParam(r *http.Request) ([]int64, error) {
	raw := r.URL.Query().Get("grid_ids")
	if raw == "" {
		return nil, &domain.InvalidFilterError{Reason: "grid_ids is required"}
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, &domain.InvalidFilterError{Reason: "grid_ids must be comma-separated integers"}
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, &domain.InvalidFilterError{Reason: "grid_ids is required"}
	}
	return ids, nil
}

func optionalInt64Query(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &domain.InvalidFilterError{Reason: name + " must be an integer"}
	}
	return &v, nil
}

func optionalMonthQuery(r *http.Request, name string) (*domain.MonthID, error) {
	v, err := optionalInt64Query(r, name)
	if err != nil || v == nil {
		return nil, err
	}
	m := domain.MonthID(*v)
	return &m, nil
}
