package http_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/viewsdata/forecast-service/internal/adapter/http"
	"github.com/viewsdata/forecast-service/internal/domain"
	"github.com/viewsdata/forecast-service/internal/query"
)

func f64(v float64) *float64 { return &v }

func testRecord(gridID int64, monthID domain.MonthID) domain.ForecastRecord {
	return domain.ForecastRecord{
		GridID:           gridID,
		MonthID:          monthID,
		CountryID:        5,
		Latitude:         12.5,
		Longitude:        30.25,
		Year:             monthID.Year(),
		Month:            monthID.Month(),
		MapValue:         f64(0.5),
		BinaryExceedance: f64(0.4),
	}
}

// mockEngine records the arguments of the last query and returns canned data.
type mockEngine struct {
	records []domain.ForecastRecord
	err     error

	lastCountryID int64
	lastGridIDs   []int64
	lastMonthID   domain.MonthID
	lastFilter    query.Filter
	lastMetrics   domain.MetricSelection
}

func (m *mockEngine) ByCountry(countryID int64, f query.Filter) ([]domain.ForecastRecord, error) {
	m.lastCountryID, m.lastFilter = countryID, f
	return m.records, m.err
}

func (m *mockEngine) ByGrid(gridIDs []int64, f query.Filter) ([]domain.ForecastRecord, error) {
	m.lastGridIDs, m.lastFilter = gridIDs, f
	return m.records, m.err
}

func (m *mockEngine) ByMonth(monthID domain.MonthID, countryID *int64, metrics domain.MetricSelection) ([]domain.ForecastRecord, error) {
	m.lastMonthID, m.lastMetrics = monthID, metrics
	if countryID != nil {
		m.lastCountryID = *countryID
	}
	return m.records, m.err
}

type mockData struct {
	ready     bool
	countries []domain.Country
	info      domain.Info
	loadErr   error
	loads     int
}

func (m *mockData) Ready() bool                          { return m.ready }
func (m *mockData) Countries() ([]domain.Country, error) { return m.countries, nil }
func (m *mockData) Info() (domain.Info, error)           { return m.info, nil }
func (m *mockData) Load(_ context.Context) error         { m.loads++; return m.loadErr }

func newTestServer(engine *mockEngine, data *mockData) *httpadapter.Server {
	return httpadapter.NewServer(":0", engine, data, slog.Default())
}

func doRequest(srv *httpadapter.Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&mockEngine{}, &mockData{})
	rec := doRequest(srv, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := newTestServer(&mockEngine{}, &mockData{ready: true})
		rec := doRequest(srv, http.MethodGet, "/readyz")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready before first load", func(t *testing.T) {
		srv := newTestServer(&mockEngine{}, &mockData{ready: false})
		rec := doRequest(srv, http.MethodGet, "/readyz")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockEngine{}, &mockData{})
	rec := doRequest(srv, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestInfo(t *testing.T) {
	data := &mockData{info: domain.Info{
		MinMonth:      548,
		MaxMonth:      583,
		GridCellCount: 100,
		CountryCount:  5,
		DateRange:     domain.DateRange{Start: "2025-08", End: "2028-07"},
		LoadedAt:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}}
	srv := newTestServer(&mockEngine{}, data)
	rec := doRequest(srv, http.MethodGet, "/api/info")

	require.Equal(t, http.StatusOK, rec.Code)

	var info domain.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, data.info, info)
}

func TestCountries(t *testing.T) {
	data := &mockData{countries: []domain.Country{
		{CountryID: 1, Name: "Testland", ISOCode: "TST", GridCellCount: 20},
	}}
	srv := newTestServer(&mockEngine{}, data)
	rec := doRequest(srv, http.MethodGet, "/api/countries")

	require.Equal(t, http.StatusOK, rec.Code)

	var countries []domain.Country
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &countries))
	assert.Equal(t, data.countries, countries)
}

func TestByCountryRoute(t *testing.T) {
	engine := &mockEngine{records: []domain.ForecastRecord{
		testRecord(100, 500),
		testRecord(100, 501),
		testRecord(101, 500),
	}}
	srv := newTestServer(engine, &mockData{})

	rec := doRequest(srv, http.MethodGet, "/api/forecasts/country/5?month_start=500&month_end=501")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, int64(5), engine.lastCountryID)
	require.NotNil(t, engine.lastFilter.MonthStart)
	assert.Equal(t, domain.MonthID(500), *engine.lastFilter.MonthStart)
	require.NotNil(t, engine.lastFilter.MonthEnd)
	assert.Equal(t, domain.MonthID(501), *engine.lastFilter.MonthEnd)
	assert.Nil(t, engine.lastFilter.MonthID)

	var body struct {
		Data          []domain.ForecastRecord `json:"data"`
		TotalCells    int                     `json:"total_cells"`
		MonthsCovered int                     `json:"months_covered"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 3)
	assert.Equal(t, 3, body.TotalCells)
	assert.Equal(t, 2, body.MonthsCovered)
}

func TestByCountryRouteErrors(t *testing.T) {
	t.Run("non-numeric id", func(t *testing.T) {
		srv := newTestServer(&mockEngine{}, &mockData{})
		rec := doRequest(srv, http.MethodGet, "/api/forecasts/country/abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "invalid_filter", body["error"])
	})

	t.Run("unknown country", func(t *testing.T) {
		engine := &mockEngine{err: &domain.UnknownCountryError{CountryID: 42}}
		srv := newTestServer(engine, &mockData{})
		rec := doRequest(srv, http.MethodGet, "/api/forecasts/country/42")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unknown_country", body["error"])
		details := body["details"].(map[string]any)
		assert.Equal(t, float64(42), details["country_id"])
	})

	t.Run("store unavailable", func(t *testing.T) {
		engine := &mockEngine{err: domain.ErrDataUnavailable}
		srv := newTestServer(engine, &mockData{})
		rec := doRequest(srv, http.MethodGet, "/api/forecasts/country/5")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestByGridRoute(t *testing.T) {
	t.Run("parses id list", func(t *testing.T) {
		engine := &mockEngine{records: []domain.ForecastRecord{testRecord(100, 500)}}
		srv := newTestServer(engine, &mockData{})

		rec := doRequest(srv, http.MethodGet, "/api/forecasts/grid?grid_ids=100,%20101&month_id=500")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []int64{100, 101}, engine.lastGridIDs)
		require.NotNil(t, engine.lastFilter.MonthID)
		assert.Equal(t, domain.MonthID(500), *engine.lastFilter.MonthID)
	})

	t.Run("missing grid_ids", func(t *testing.T) {
		srv := newTestServer(&mockEngine{}, &mockData{})
		rec := doRequest(srv, http.MethodGet, "/api/forecasts/grid")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("garbage grid_ids", func(t *testing.T) {
		srv := newTestServer(&mockEngine{}, &mockData{})
		rec := doRequest(srv, http.MethodGet, "/api/forecasts/grid?grid_ids=100,abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown ids", func(t *testing.T) {
		engine := &mockEngine{err: &domain.UnknownGridError{GridIDs: []int64{888, 999}}}
		srv := newTestServer(engine, &mockData{})
		rec := doRequest(srv, http.MethodGet, "/api/forecasts/grid?grid_ids=888,999")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "unknown_grid", body["error"])
	})
}

func TestByMonthRoute(t *testing.T) {
	t.Run("with country narrowing", func(t *testing.T) {
		engine := &mockEngine{records: []domain.ForecastRecord{testRecord(100, 548)}}
		srv := newTestServer(engine, &mockData{})

		rec := doRequest(srv, http.MethodGet, "/api/forecasts/month/548?country_id=5")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.MonthID(548), engine.lastMonthID)
		assert.Equal(t, int64(5), engine.lastCountryID)
	})

	t.Run("default metric selection", func(t *testing.T) {
		engine := &mockEngine{}
		srv := newTestServer(engine, &mockData{})

		rec := doRequest(srv, http.MethodGet, "/api/forecasts/month/548")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.DefaultMetricSelection(), engine.lastMetrics)
	})

	t.Run("include flags override defaults", func(t *testing.T) {
		engine := &mockEngine{}
		srv := newTestServer(engine, &mockData{})

		rec := doRequest(srv, http.MethodGet,
			"/api/forecasts/month/548?include_hdi_90=true&include_thresholds=1&include_binary=false")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.MetricSelection{
			Map:        true,
			HDI90:      true,
			Thresholds: true,
		}, engine.lastMetrics)
	})

	t.Run("empty month still returns envelope", func(t *testing.T) {
		engine := &mockEngine{records: []domain.ForecastRecord{}}
		srv := newTestServer(engine, &mockData{})

		rec := doRequest(srv, http.MethodGet, "/api/forecasts/month/9999")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"data":[],"total_cells":0,"months_covered":0}`, rec.Body.String())
	})
}

func TestRefreshRoute(t *testing.T) {
	t.Run("success returns fresh info", func(t *testing.T) {
		data := &mockData{info: domain.Info{GridCellCount: 100}}
		srv := newTestServer(&mockEngine{}, data)

		rec := doRequest(srv, http.MethodPost, "/api/admin/refresh")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, data.loads)

		var info domain.Info
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		assert.Equal(t, 100, info.GridCellCount)
	})

	t.Run("conflict while in progress", func(t *testing.T) {
		data := &mockData{loadErr: domain.ErrRefreshInProgress}
		srv := newTestServer(&mockEngine{}, data)

		rec := doRequest(srv, http.MethodPost, "/api/admin/refresh")
		assert.Equal(t, http.StatusConflict, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "refresh_in_progress", body["error"])
	})

	t.Run("get not allowed", func(t *testing.T) {
		srv := newTestServer(&mockEngine{}, &mockData{})
		rec := doRequest(srv, http.MethodGet, "/api/admin/refresh")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestProjectionStripsFieldsFromJSON(t *testing.T) {
	engine := &mockEngine{records: []domain.ForecastRecord{testRecord(100, 548)}}
	srv := newTestServer(engine, &mockData{})

	rec := doRequest(srv, http.MethodGet, "/api/forecasts/month/548")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Contains(t, body.Data[0], "map_value")
	assert.NotContains(t, body.Data[0], "hdi_50_low")
	assert.NotContains(t, body.Data[0], "threshold_probabilities")
}
