package store

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"time"

	"github.com/viewsdata/forecast-service/internal/domain"
	"github.com/viewsdata/forecast-service/internal/synth"
)

// snapshot is one immutable, fully indexed dataset. A load builds a complete
// snapshot off to the side and publishes it with a single pointer swap;
// queries never observe a half-built index.
type snapshot struct {
	cells     map[int64]domain.GridCell
	countries map[int64]domain.Country

	// countryList is the catalog ordered by country id, with grid counts.
	countryList []domain.Country

	byGrid    map[int64][]domain.ForecastRecord // sorted by month id
	byCountry map[int64][]int64                 // sorted grid ids
	byMonth   map[domain.MonthID][]domain.ForecastRecord // sorted by grid id

	minMonth, maxMonth domain.MonthID
	recordCount        int
	warnings           int
	synthetic          []string
	loadedAt           time.Time
}

// sourceData is the merged output of the four source loaders before indexing.
type sourceData struct {
	grid      []gridRow
	countries []domain.Country
	hdi       map[recordKey]hdiBounds
	coords    map[int64]coordRow
	warnings  int
	synthetic []string
}

// buildSnapshot merges the four sources into validated records and indexes.
// Missing per-record data is repaired from the generator's derivation rules;
// rows that remain invalid after repair are dropped with a warning.
func buildSnapshot(data *sourceData) (*snapshot, error) {
	snap := &snapshot{
		cells:     make(map[int64]domain.GridCell),
		countries: make(map[int64]domain.Country, len(data.countries)),
		byGrid:    make(map[int64][]domain.ForecastRecord),
		byCountry: make(map[int64][]int64),
		byMonth:   make(map[domain.MonthID][]domain.ForecastRecord),
		warnings:  data.warnings,
		synthetic: data.synthetic,
		loadedAt:  clock.Now(),
	}

	for _, c := range data.countries {
		snap.countries[c.CountryID] = c
	}

	// Establish the grid-cell catalog: every grid id seen in the forecast
	// rows becomes a cell, with coordinates from the coords source when
	// present and deterministic fallback coordinates otherwise.
	for _, row := range data.grid {
		if _, ok := snap.cells[row.gridID]; ok {
			continue
		}
		snap.cells[row.gridID] = makeCell(row, data, len(data.countries))
	}
	if len(snap.cells) == 0 {
		return nil, fmt.Errorf("empty grid catalog: %w", domain.ErrDataUnavailable)
	}

	// Invariant: every cell's country id resolves. Countries referenced by
	// cells but absent from the catalog get a placeholder entry.
	for _, cell := range snap.cells {
		if _, ok := snap.countries[cell.CountryID]; !ok {
			snap.countries[cell.CountryID] = domain.Country{
				CountryID: cell.CountryID,
				Name:      "Country " + strconv.FormatInt(cell.CountryID, 10),
			}
		}
	}

	seen := make(map[recordKey]bool, len(data.grid))
	for _, row := range data.grid {
		key := recordKey{row.gridID, row.monthID}
		if seen[key] {
			snap.warnings++
			continue
		}
		seen[key] = true

		rec := buildRecord(row, snap.cells[row.gridID], data.hdi[key])
		if err := rec.Validate(); err != nil {
			snap.warnings++
			continue
		}
		snap.insert(rec)
	}
	if snap.recordCount == 0 {
		return nil, fmt.Errorf("no valid forecast records: %w", domain.ErrDataUnavailable)
	}

	snap.finalize()
	return snap, nil
}

// makeCell resolves one grid id to a catalog cell. Country assignment prefers
// the forecast row, then the coords row, then a deterministic spread over the
// country catalog so every cell resolves to some country.
func makeCell(row gridRow, data *sourceData, countryCount int) domain.GridCell {
	cell := domain.GridCell{GridID: row.gridID}

	coord, hasCoord := data.coords[row.gridID]
	if hasCoord {
		cell.Latitude, cell.Longitude = coord.lat, coord.lon
	} else {
		cell.Latitude, cell.Longitude = fallbackCoords(row.gridID)
	}

	switch {
	case row.hasCountry:
		cell.CountryID = row.countryID
	case hasCoord && coord.hasCountry:
		cell.CountryID = coord.countryID
	default:
		cell.CountryID = data.countries[int(row.gridID)%countryCount].CountryID
	}
	return cell
}

// buildRecord assembles one forecast record, filling interval levels and the
// threshold curve that the sources did not provide. When the source carried a
// real binary exceedance probability, the synthesized curve is anchored to it
// so the two stay coherent; otherwise the full curve derives from the point
// prediction. If loaded bounds break containment or nesting, all three levels
// are re-derived from the point prediction rather than patched individually.
func buildRecord(row gridRow, cell domain.GridCell, bounds hdiBounds) domain.ForecastRecord {
	mapValue := row.mapValue
	rec := domain.ForecastRecord{
		GridID:    row.gridID,
		MonthID:   row.monthID,
		CountryID: cell.CountryID,
		Latitude:  cell.Latitude,
		Longitude: cell.Longitude,
		Year:      row.monthID.Year(),
		Month:     row.monthID.Month(),
		MapValue:  &mapValue,

		HDI50Low:  bounds.low50,
		HDI50High: bounds.high50,
		HDI90Low:  bounds.low90,
		HDI90High: bounds.high90,
		HDI99Low:  bounds.low99,
		HDI99High: bounds.high99,
	}

	low50, high50, low90, high90, low99, high99 := synth.HDIBounds(mapValue)
	if rec.HDI50Low == nil {
		rec.HDI50Low, rec.HDI50High = &low50, &high50
	}
	if rec.HDI90Low == nil {
		rec.HDI90Low, rec.HDI90High = &low90, &high90
	}
	if rec.HDI99Low == nil {
		rec.HDI99Low, rec.HDI99High = &low99, &high99
	}

	if row.binary != nil {
		rec.BinaryExceedance = row.binary
		rec.Thresholds = synth.AnchoredThresholdCurve(*row.binary)
	} else {
		curve, binary := synth.ThresholdCurve(mapValue)
		rec.Thresholds = curve
		rec.BinaryExceedance = &binary
	}

	if rec.Validate() != nil {
		rec.HDI50Low, rec.HDI50High = &low50, &high50
		rec.HDI90Low, rec.HDI90High = &low90, &high90
		rec.HDI99Low, rec.HDI99High = &low99, &high99
	}
	return rec
}

func (s *snapshot) insert(rec domain.ForecastRecord) {
	s.byGrid[rec.GridID] = append(s.byGrid[rec.GridID], rec)
	s.byMonth[rec.MonthID] = append(s.byMonth[rec.MonthID], rec)
	s.recordCount++

	if s.minMonth == 0 || rec.MonthID < s.minMonth {
		s.minMonth = rec.MonthID
	}
	if rec.MonthID > s.maxMonth {
		s.maxMonth = rec.MonthID
	}
}

// finalize sorts the indexes, builds the country index, and fixes the
// ordered country catalog.
func (s *snapshot) finalize() {
	for _, recs := range s.byGrid {
		sort.Slice(recs, func(i, j int) bool { return recs[i].MonthID < recs[j].MonthID })
	}
	for _, recs := range s.byMonth {
		sort.Slice(recs, func(i, j int) bool { return recs[i].GridID < recs[j].GridID })
	}

	counts := make(map[int64]int, len(s.countries))
	for _, cell := range s.cells {
		s.byCountry[cell.CountryID] = append(s.byCountry[cell.CountryID], cell.GridID)
		counts[cell.CountryID]++
	}
	for _, ids := range s.byCountry {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}

	s.countryList = make([]domain.Country, 0, len(s.countries))
	for id, c := range s.countries {
		c.GridCellCount = counts[id]
		s.countries[id] = c
		s.countryList = append(s.countryList, c)
	}
	sort.Slice(s.countryList, func(i, j int) bool {
		return s.countryList[i].CountryID < s.countryList[j].CountryID
	})
}

// fallbackCoords derives stable pseudo-coordinates from a grid id for cells
// the coordinate source does not cover. Polar extremes are avoided.
func fallbackCoords(gridID int64) (lat, lon float64) {
	h := fnv.New64a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(gridID >> (8 * i))
	}
	h.Write(buf[:])
	v := h.Sum64()

	lat = float64(v%13000)/100.0 - 60.0        // [-60, 70)
	lon = float64((v/13000)%36000)/100.0 - 180 // [-180, 180)
	return lat, lon
}

// View is a read handle pinned to one snapshot. All methods of one View
// observe the same dataset even if a refresh publishes a newer snapshot
// mid-query.
type View struct {
	snap *snapshot
}

// HasCountry reports whether the country id is in the catalog.
func (v View) HasCountry(id int64) bool {
	_, ok := v.snap.countries[id]
	return ok
}

// HasGrid reports whether the grid id is in the catalog.
func (v View) HasGrid(id int64) bool {
	_, ok := v.snap.cells[id]
	return ok
}

// GridIDsForCountry returns the country's grid ids in ascending order.
func (v View) GridIDsForCountry(id int64) []int64 {
	return v.snap.byCountry[id]
}

// RecordsForGrid returns the grid's records ascending by month id.
func (v View) RecordsForGrid(id int64) []domain.ForecastRecord {
	return v.snap.byGrid[id]
}

// RecordsForMonth returns the month's records ascending by grid id. A month
// with no data yields nil, which is not an error.
func (v View) RecordsForMonth(m domain.MonthID) []domain.ForecastRecord {
	return v.snap.byMonth[m]
}

// MonthBounds returns the inclusive month range present in the snapshot.
func (v View) MonthBounds() (domain.MonthID, domain.MonthID) {
	return v.snap.minMonth, v.snap.maxMonth
}
