// Package synth fabricates complete, invariant-satisfying forecast datasets
// for use when authoritative input files are missing or unreadable. Output is
// a pure function of the configuration: the same seed, catalog, and month
// range always produce byte-identical data.
package synth

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/viewsdata/forecast-service/internal/domain"
)

// Config describes the catalog and month range to fabricate.
type Config struct {
	Seed        int64
	GridCount   int
	FirstGridID int64
	Countries   []domain.Country
	StartMonth  domain.MonthID
	EndMonth    domain.MonthID
}

// DefaultConfig mirrors the demo dataset shipped with the original VIEWS
// fatalities run: 100 PRIO-GRID cells from id 62356, five countries, and the
// 36-month window August 2025 through July 2028.
func DefaultConfig() Config {
	return Config{
		Seed:        42,
		GridCount:   100,
		FirstGridID: 62356,
		Countries:   DefaultCountries(),
		StartMonth:  548,
		EndMonth:    583,
	}
}

// DefaultCountries is the synthetic five-country catalog.
func DefaultCountries() []domain.Country {
	return []domain.Country{
		{CountryID: 1, Name: "Testland", ISOCode: "TST", GWCode: 100},
		{CountryID: 2, Name: "Democracia", ISOCode: "DEM", GWCode: 101},
		{CountryID: 3, Name: "Republica", ISOCode: "REP", GWCode: 102},
		{CountryID: 4, Name: "Federation", ISOCode: "FED", GWCode: 103},
		{CountryID: 5, Name: "Kingdom", ISOCode: "KNG", GWCode: 104},
	}
}

// Generator produces catalogs and forecast records from a Config. It holds no
// mutable state; all randomness is re-derived from the seed on each call.
type Generator struct {
	cfg Config

	// Phase offsets for the spatial intensity field, derived from the seed.
	phaseA float64
	phaseB float64
	phaseC float64
}

// New creates a Generator. A zero GridCount, empty country list, or unordered
// month range falls back to the corresponding DefaultConfig values.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.GridCount <= 0 {
		cfg.GridCount = def.GridCount
	}
	if cfg.FirstGridID <= 0 {
		cfg.FirstGridID = def.FirstGridID
	}
	if len(cfg.Countries) == 0 {
		cfg.Countries = def.Countries
	}
	if !cfg.StartMonth.Valid() || !cfg.EndMonth.Valid() || cfg.EndMonth < cfg.StartMonth {
		cfg.StartMonth, cfg.EndMonth = def.StartMonth, def.EndMonth
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	return &Generator{
		cfg:    cfg,
		phaseA: rng.Float64() * 2 * math.Pi,
		phaseB: rng.Float64() * 2 * math.Pi,
		phaseC: rng.Float64() * 2 * math.Pi,
	}
}

// Config returns the effective configuration after defaulting.
func (g *Generator) Config() Config {
	return g.cfg
}

// Catalog fabricates the grid-cell and country catalogs. Cells are assigned
// to countries in contiguous blocks and placed around a per-country center so
// that cells sharing a country are also spatially clustered.
func (g *Generator) Catalog() ([]domain.GridCell, []domain.Country) {
	countries := make([]domain.Country, len(g.cfg.Countries))
	copy(countries, g.cfg.Countries)

	centers := make([][2]float64, len(countries))
	rng := rand.New(rand.NewSource(g.cfg.Seed + 1))
	for i := range centers {
		// Country centers avoid the polar extremes.
		centers[i] = [2]float64{
			rng.Float64()*110 - 50,  // lat in [-50, 60)
			rng.Float64()*340 - 170, // lon in [-170, 170)
		}
	}

	cells := make([]domain.GridCell, g.cfg.GridCount)
	for i := range cells {
		gridID := g.cfg.FirstGridID + int64(i)
		countryIdx := i * len(countries) / g.cfg.GridCount
		center := centers[countryIdx]

		cellRng := rand.New(rand.NewSource(subSeed(g.cfg.Seed, gridID)))
		lat := clamp(center[0]+cellRng.Float64()*8-4, -60, 70)
		lon := clamp(center[1]+cellRng.Float64()*8-4, -180, 180)

		cells[i] = domain.GridCell{
			GridID:    gridID,
			Latitude:  lat,
			Longitude: lon,
			CountryID: countries[countryIdx].CountryID,
		}
	}

	return cells, countries
}

// Records fabricates one ForecastRecord per (cell, month) pair in the
// configured range, ordered ascending by (grid id, month id). Every record
// satisfies the forecast invariants by construction.
func (g *Generator) Records(cells []domain.GridCell) []domain.ForecastRecord {
	months := int(g.cfg.EndMonth-g.cfg.StartMonth) + 1
	records := make([]domain.ForecastRecord, 0, len(cells)*months)

	for _, cell := range cells {
		base := g.baseIntensity(cell.Latitude, cell.Longitude)
		rng := rand.New(rand.NewSource(subSeed(g.cfg.Seed+2, cell.GridID)))

		// Bounded multiplicative random walk: forecasts drift month to month
		// without jumping, and never leave [0.4x, 2.5x] of the cell's base level.
		walk := 1.0
		for m := g.cfg.StartMonth; m <= g.cfg.EndMonth; m++ {
			walk = clamp(walk+rng.Float64()*0.3-0.15, 0.4, 2.5)
			records = append(records, g.record(cell, m, base*walk))
		}
	}

	return records
}

func (g *Generator) record(cell domain.GridCell, month domain.MonthID, intensity float64) domain.ForecastRecord {
	low50, high50, low90, high90, low99, high99 := HDIBounds(intensity)
	thresholds, binary := ThresholdCurve(intensity)

	return domain.ForecastRecord{
		GridID:    cell.GridID,
		MonthID:   month,
		CountryID: cell.CountryID,
		Latitude:  cell.Latitude,
		Longitude: cell.Longitude,
		Year:      month.Year(),
		Month:     month.Month(),

		MapValue:  f64(intensity),
		HDI50Low:  f64(low50),
		HDI50High: f64(high50),
		HDI90Low:  f64(low90),
		HDI90High: f64(high90),
		HDI99Low:  f64(low99),
		HDI99High: f64(high99),

		Thresholds:       thresholds,
		BinaryExceedance: f64(binary),
	}
}

// baseIntensity evaluates a smooth spatial field at the cell centroid: a sum
// of seeded sinusoids pushed through an exponential onto the non-negative
// fatalities scale. Smoothness in (lat, lon) is what gives nearby cells
// correlated base levels.
func (g *Generator) baseIntensity(lat, lon float64) float64 {
	x := lon * math.Pi / 180
	y := lat * math.Pi / 180
	v := math.Sin(3*x+g.phaseA)*math.Cos(2*y+g.phaseB) + 0.5*math.Sin(5*x-2*y+g.phaseC)
	return 0.05 * math.Exp(1.2*v)
}

// HDIBounds derives the three interval pairs around a point prediction by
// widening symmetric margins in increasing amounts for 50/90/99%. Margins are
// strictly ordered, so nesting and containment hold by construction; lows are
// floored at zero, which preserves both.
func HDIBounds(mapValue float64) (low50, high50, low90, high90, low99, high99 float64) {
	m50 := 0.30*mapValue + 0.002
	m90 := 0.80*mapValue + 0.010
	m99 := 1.50*mapValue + 0.050

	low50, high50 = math.Max(0, mapValue-m50), mapValue+m50
	low90, high90 = math.Max(0, mapValue-m90), mapValue+m90
	low99, high99 = math.Max(0, mapValue-m99), mapValue+m99
	return
}

// ThresholdCurve derives exceedance probabilities over SeverityThresholds as
// an exponential decay in the threshold value relative to the point
// prediction. The curve is strictly decreasing in the threshold, so
// monotonicity holds by construction. The second return value is the binary
// exceedance probability at the reference (first) threshold.
func ThresholdCurve(mapValue float64) ([]domain.ThresholdProbability, float64) {
	scale := 10*mapValue + 0.1
	curve := make([]domain.ThresholdProbability, len(domain.SeverityThresholds))
	for i, t := range domain.SeverityThresholds {
		curve[i] = domain.ThresholdProbability{
			Threshold:   t,
			Probability: math.Exp(-t / scale),
		}
	}
	return curve, curve[0].Probability
}

// AnchoredThresholdCurve derives the exceedance curve from an authoritative
// binary exceedance probability instead of the point prediction: p(t) = p1^t,
// so the curve passes through the real value at the reference threshold and
// decays monotonically above it.
func AnchoredThresholdCurve(binary float64) []domain.ThresholdProbability {
	curve := make([]domain.ThresholdProbability, len(domain.SeverityThresholds))
	for i, t := range domain.SeverityThresholds {
		curve[i] = domain.ThresholdProbability{
			Threshold:   t,
			Probability: math.Pow(binary, t),
		}
	}
	return curve
}

// subSeed derives a per-cell seed so record generation is independent of
// iteration order.
func subSeed(seed, gridID int64) int64 {
	h := fnv.New64a()
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(seed >> (8 * i))
		buf[8+i] = byte(gridID >> (8 * i))
	}
	h.Write(buf[:])
	return int64(h.Sum64())
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func f64(v float64) *float64 {
	return &v
}
