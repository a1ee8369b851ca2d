// Package store owns the authoritative in-memory forecast dataset: loading
// from flat CSV sources with per-source synthetic fallback, index
// construction, and lock-free read access via immutable snapshots.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/viewsdata/forecast-service/internal/domain"
	"github.com/viewsdata/forecast-service/internal/observability"
	"github.com/viewsdata/forecast-service/internal/synth"
)

// Config holds the store's input sources and fallback policy. Each path list
// is tried in order; the first readable, parseable, non-empty candidate wins.
type Config struct {
	GridDataPaths    []string
	CountryDataPaths []string
	HDIDataPaths     []string
	CoordDataPaths   []string

	// Synth configures the generator used for per-source fallback.
	Synth synth.Config

	// SyntheticFallback enables replacing unavailable sources with generated
	// data. With it disabled, an unavailable grid source fails the load.
	SyntheticFallback bool

	// LoadTimeout bounds a single load. Zero means no budget.
	LoadTimeout time.Duration
}

// Store is the process-wide forecast dataset. The active snapshot is swapped
// atomically by Load; readers take a View and are never blocked by a refresh.
type Store struct {
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics

	snap       atomic.Pointer[snapshot]
	refreshing atomic.Bool
}

// New creates an unloaded Store. Call Load before serving queries.
func New(cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{cfg: cfg, logger: logger, metrics: metrics}
}

// Load parses the configured sources, falls back to the synthetic generator
// per unavailable source, builds indexes, and publishes the new snapshot as
// one atomic swap. Loads are serialized: a call while another load is running
// returns ErrRefreshInProgress without touching the active snapshot. A load
// exceeding the configured time budget fails with ErrDataUnavailable.
func (s *Store) Load(ctx context.Context) error {
	if !s.refreshing.CompareAndSwap(false, true) {
		s.metrics.LoadsTotal.WithLabelValues("rejected").Inc()
		return domain.ErrRefreshInProgress
	}
	defer s.refreshing.Store(false)

	if s.cfg.LoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LoadTimeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := s.load(ctx)
	if err != nil {
		s.metrics.LoadsTotal.WithLabelValues("failure").Inc()
		return err
	}

	s.snap.Store(snap)

	s.metrics.LoadsTotal.WithLabelValues("success").Inc()
	s.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	s.metrics.LoadWarnings.Set(float64(snap.warnings))
	s.metrics.RecordsLoaded.Set(float64(snap.recordCount))
	s.metrics.SyntheticSources.Set(float64(len(snap.synthetic)))
	s.metrics.StoreReady.Set(1)

	s.logger.Info("data store loaded",
		"records", snap.recordCount,
		"grid_cells", len(snap.cells),
		"countries", len(snap.countryList),
		"months", fmt.Sprintf("%s..%s", snap.minMonth, snap.maxMonth),
		"warnings", snap.warnings,
		"synthetic_sources", snap.synthetic,
		"duration", time.Since(start),
	)
	return nil
}

func (s *Store) load(ctx context.Context) (*snapshot, error) {
	gen := synth.New(s.cfg.Synth)
	data := &sourceData{}

	if err := s.loadGridSource(ctx, gen, data); err != nil {
		return nil, err
	}
	if err := s.checkDeadline(ctx); err != nil {
		return nil, err
	}
	s.loadCountrySource(gen, data)
	s.loadHDISource(data)
	s.loadCoordSource(data)
	if err := s.checkDeadline(ctx); err != nil {
		return nil, err
	}

	return buildSnapshot(data)
}

// loadGridSource establishes the forecast rows and, when the source is
// unavailable, the synthetic catalog backing them. This is the only source
// whose unavailability can fail the whole load.
func (s *Store) loadGridSource(ctx context.Context, gen *synth.Generator, data *sourceData) error {
	rows, warnings, err := loadFirst(s.cfg.GridDataPaths, parseGridTable)
	data.warnings += warnings
	if err == nil {
		data.grid = rows
		return nil
	}

	if !s.cfg.SyntheticFallback {
		return fmt.Errorf("grid source unavailable and synthetic fallback disabled: %w", domain.ErrDataUnavailable)
	}
	if ctx.Err() != nil {
		return s.checkDeadline(ctx)
	}

	s.logger.Warn("grid source unavailable, generating synthetic data", "error", err)
	cells, _ := gen.Catalog()
	data.grid = gridRowsFromRecords(gen.Records(cells))
	data.coords = coordsFromCells(cells)
	data.synthetic = append(data.synthetic, sourceGrid)
	return nil
}

func (s *Store) loadCountrySource(gen *synth.Generator, data *sourceData) {
	countries, warnings, err := loadFirst(s.cfg.CountryDataPaths, parseCountryTable)
	data.warnings += warnings
	if err == nil {
		data.countries = countries
		return
	}

	s.logger.Warn("country source unavailable, using synthetic catalog", "error", err)
	_, data.countries = gen.Catalog()
	data.synthetic = append(data.synthetic, sourceCountry)
}

// loadHDISource loads interval bounds. There is no generated stand-in table:
// records without loaded bounds get theirs derived from the point prediction
// during snapshot construction.
func (s *Store) loadHDISource(data *sourceData) {
	bounds, warnings, err := loadFirst(s.cfg.HDIDataPaths, parseHDITable)
	data.warnings += warnings
	if err == nil {
		data.hdi = bounds
		return
	}

	s.logger.Warn("hdi source unavailable, deriving bounds from point predictions", "error", err)
	data.hdi = map[recordKey]hdiBounds{}
	data.synthetic = append(data.synthetic, sourceHDI)
}

func (s *Store) loadCoordSource(data *sourceData) {
	coords, warnings, err := loadFirst(s.cfg.CoordDataPaths, parseCoordTable)
	data.warnings += warnings
	if err == nil {
		// A synthetic grid source already populated coords; real coordinate
		// rows take precedence for matching ids.
		if data.coords == nil {
			data.coords = coords
		} else {
			for id, c := range coords {
				data.coords[id] = c
			}
		}
		return
	}
	if data.coords != nil {
		return
	}

	s.logger.Warn("coords source unavailable, deriving coordinates from grid ids", "error", err)
	data.coords = map[int64]coordRow{}
	data.synthetic = append(data.synthetic, sourceCoords)
}

func (s *Store) checkDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("load aborted (%v): %w", err, domain.ErrDataUnavailable)
	}
	return nil
}

// loadFirst tries each candidate path in order and returns the first
// successfully parsed result.
func loadFirst[T any](paths []string, parse func(*table) (T, int, error)) (T, int, error) {
	var zero T
	var lastErr error
	warnings := 0
	for _, path := range paths {
		t, err := readTable(path)
		if err != nil {
			lastErr = err
			continue
		}
		result, w, err := parse(t)
		warnings += w
		if err != nil {
			lastErr = err
			continue
		}
		return result, warnings, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no candidate paths configured")
	}
	return zero, warnings, lastErr
}

func gridRowsFromRecords(records []domain.ForecastRecord) []gridRow {
	rows := make([]gridRow, len(records))
	for i, rec := range records {
		rows[i] = gridRow{
			gridID:     rec.GridID,
			monthID:    rec.MonthID,
			countryID:  rec.CountryID,
			hasCountry: true,
			mapValue:   *rec.MapValue,
			binary:     rec.BinaryExceedance,
		}
	}
	return rows
}

func coordsFromCells(cells []domain.GridCell) map[int64]coordRow {
	coords := make(map[int64]coordRow, len(cells))
	for _, cell := range cells {
		coords[cell.GridID] = coordRow{
			lat:        cell.Latitude,
			lon:        cell.Longitude,
			countryID:  cell.CountryID,
			hasCountry: true,
		}
	}
	return coords
}

// Ready reports whether a snapshot has been published.
func (s *Store) Ready() bool {
	return s.snap.Load() != nil
}

// View returns a read handle pinned to the active snapshot, or
// ErrDataUnavailable before the first successful load.
func (s *Store) View() (View, error) {
	snap := s.snap.Load()
	if snap == nil {
		return View{}, domain.ErrDataUnavailable
	}
	return View{snap: snap}, nil
}

// Countries returns the distinct country catalog ordered by country id.
func (s *Store) Countries() ([]domain.Country, error) {
	v, err := s.View()
	if err != nil {
		return nil, err
	}
	return v.snap.countryList, nil
}

// Info summarizes the active snapshot for the info boundary operation.
func (s *Store) Info() (domain.Info, error) {
	v, err := s.View()
	if err != nil {
		return domain.Info{}, err
	}
	snap := v.snap
	return domain.Info{
		MinMonth:      snap.minMonth,
		MaxMonth:      snap.maxMonth,
		GridCellCount: len(snap.cells),
		CountryCount:  len(snap.countryList),
		DateRange: domain.DateRange{
			Start: snap.minMonth.String(),
			End:   snap.maxMonth.String(),
		},
		LoadWarnings:     snap.warnings,
		SyntheticSources: snap.synthetic,
		LoadedAt:         snap.loadedAt,
	}, nil
}
