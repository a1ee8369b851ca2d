package synth

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewsdata/forecast-service/internal/domain"
)

func TestCatalogShape(t *testing.T) {
	gen := New(DefaultConfig())
	cells, countries := gen.Catalog()

	require.Len(t, cells, 100)
	require.Len(t, countries, 5)

	assert.Equal(t, int64(62356), cells[0].GridID)
	assert.Equal(t, int64(62455), cells[99].GridID)

	// Contiguous 20-cell blocks per country, in catalog order.
	for i, cell := range cells {
		assert.Equal(t, countries[i/20].CountryID, cell.CountryID, "cell %d", i)
	}

	for _, cell := range cells {
		assert.GreaterOrEqual(t, cell.Latitude, -60.0)
		assert.LessOrEqual(t, cell.Latitude, 70.0)
		assert.GreaterOrEqual(t, cell.Longitude, -180.0)
		assert.LessOrEqual(t, cell.Longitude, 180.0)
	}
}

func TestCatalogDeterministic(t *testing.T) {
	cellsA, countriesA := New(DefaultConfig()).Catalog()
	cellsB, countriesB := New(DefaultConfig()).Catalog()

	assert.Empty(t, cmp.Diff(cellsA, cellsB))
	assert.Empty(t, cmp.Diff(countriesA, countriesB))
}

func TestCatalogSeedChangesPlacement(t *testing.T) {
	cfg := DefaultConfig()
	cellsA, _ := New(cfg).Catalog()

	cfg.Seed = 43
	cellsB, _ := New(cfg).Catalog()

	assert.NotEmpty(t, cmp.Diff(cellsA, cellsB))
}

func TestRecordsDeterministic(t *testing.T) {
	gen := New(DefaultConfig())
	cells, _ := gen.Catalog()

	recsA := gen.Records(cells)
	recsB := New(DefaultConfig()).Records(cells)

	require.Len(t, recsA, 100*36)
	assert.Empty(t, cmp.Diff(recsA, recsB))
}

func TestRecordsOrderedAndComplete(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GridCount = 10
	cfg.StartMonth = 548
	cfg.EndMonth = 553

	gen := New(cfg)
	cells, _ := gen.Catalog()
	recs := gen.Records(cells)

	require.Len(t, recs, 10*6)
	for i := 1; i < len(recs); i++ {
		prev, cur := recs[i-1], recs[i]
		if cur.GridID == prev.GridID {
			assert.Equal(t, prev.MonthID+1, cur.MonthID)
		} else {
			assert.Equal(t, prev.GridID+1, cur.GridID)
			assert.Equal(t, domain.MonthID(548), cur.MonthID)
		}
	}
}

func TestRecordsSatisfyInvariants(t *testing.T) {
	gen := New(DefaultConfig())
	cells, _ := gen.Catalog()

	for _, rec := range gen.Records(cells) {
		require.NoError(t, rec.Validate(), "grid %d month %d", rec.GridID, rec.MonthID)
	}
}

func TestRecordsCarryCalendarFields(t *testing.T) {
	gen := New(DefaultConfig())
	cells, _ := gen.Catalog()
	recs := gen.Records(cells)

	first := recs[0]
	assert.Equal(t, domain.MonthID(548), first.MonthID)
	assert.Equal(t, 2025, first.Year)
	assert.Equal(t, 8, first.Month)
	assert.Equal(t, cells[0].Latitude, first.Latitude)
	assert.Equal(t, cells[0].Longitude, first.Longitude)
	assert.Equal(t, cells[0].CountryID, first.CountryID)
}

func TestRecordsBoundedDrift(t *testing.T) {
	gen := New(DefaultConfig())
	cells, _ := gen.Catalog()
	recs := gen.Records(cells)

	// Per cell, every month's value stays within the walk bounds of the
	// cell's base intensity.
	base := map[int64]float64{}
	for _, cell := range cells {
		base[cell.GridID] = gen.baseIntensity(cell.Latitude, cell.Longitude)
	}

	for _, rec := range recs {
		b := base[rec.GridID]
		v := *rec.MapValue
		assert.GreaterOrEqual(t, v, 0.4*b-1e-12, "grid %d month %d", rec.GridID, rec.MonthID)
		assert.LessOrEqual(t, v, 2.5*b+1e-12, "grid %d month %d", rec.GridID, rec.MonthID)
	}
}

func TestConfigDefaulting(t *testing.T) {
	gen := New(Config{Seed: 7, GridCount: -1, StartMonth: 10, EndMonth: 2})
	cfg := gen.Config()

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 100, cfg.GridCount)
	assert.Equal(t, int64(62356), cfg.FirstGridID)
	assert.Equal(t, domain.MonthID(548), cfg.StartMonth)
	assert.Equal(t, domain.MonthID(583), cfg.EndMonth)
	assert.Len(t, cfg.Countries, 5)
}

func TestAnchoredThresholdCurve(t *testing.T) {
	curve := AnchoredThresholdCurve(0.8)
	require.Len(t, curve, len(domain.SeverityThresholds))

	// Passes through the anchor at the reference threshold.
	assert.InDelta(t, 0.8, curve[0].Probability, 1e-12)

	for i := 1; i < len(curve); i++ {
		assert.LessOrEqual(t, curve[i].Probability, curve[i-1].Probability)
	}
}
