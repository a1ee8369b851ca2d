package store

import (
	"fmt"

	"github.com/viewsdata/forecast-service/internal/domain"
)

// Source kind names, used in logs, warnings, and the info summary.
const (
	sourceGrid    = "grid"
	sourceCountry = "country"
	sourceHDI     = "hdi"
	sourceCoords  = "coords"
)

// recordKey is the (grid, month) primary key of a forecast row.
type recordKey struct {
	gridID  int64
	monthID domain.MonthID
}

// gridRow is one parsed row of the grid-level forecast table.
type gridRow struct {
	gridID     int64
	monthID    domain.MonthID
	countryID  int64
	hasCountry bool
	mapValue   float64
	binary     *float64
}

// hdiBounds carries whichever interval levels a source row provided.
// Absent levels stay nil and are filled from the generator's widening rule.
type hdiBounds struct {
	low50, high50 *float64
	low90, high90 *float64
	low99, high99 *float64
}

// coordRow is one parsed row of the coordinates table.
type coordRow struct {
	lat, lon   float64
	countryID  int64
	hasCountry bool
}

// parseGridTable parses the grid-level forecast source. Rows whose key
// columns are unreadable or non-positive are dropped and counted as
// warnings; a missing point prediction is repaired to zero with a warning.
func parseGridTable(t *table) ([]gridRow, int, error) {
	if !t.hasColumn("pg_id", "priogrid_id", "grid_id") || !t.hasColumn("month_id") {
		return nil, 0, fmt.Errorf("grid table: missing key columns")
	}

	var warnings int
	rows := make([]gridRow, 0, len(t.rows))
	for _, raw := range t.rows {
		gridID, okGrid := t.int64Field(raw, "pg_id", "priogrid_id", "grid_id")
		monthID, okMonth := t.int64Field(raw, "month_id")
		if !okGrid || !okMonth || gridID < 1 || monthID < 1 {
			warnings++
			continue
		}

		row := gridRow{gridID: gridID, monthID: domain.MonthID(monthID)}

		if v, ok := t.floatField(raw, "main_mean", "map_value"); ok && v >= 0 {
			row.mapValue = v
		} else {
			warnings++
		}

		if v, ok := t.floatField(raw, "main_dich", "binary_exceedance_probability"); ok {
			if v >= 0 && v <= 1 {
				row.binary = &v
			} else {
				warnings++
			}
		}

		if id, ok := t.int64Field(raw, "country_id"); ok {
			row.countryID = id
			row.hasCountry = true
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, warnings, fmt.Errorf("grid table: no usable rows")
	}
	return rows, warnings, nil
}

// parseCountryTable parses the country-month metadata source into the
// distinct country catalog.
func parseCountryTable(t *table) ([]domain.Country, int, error) {
	if !t.hasColumn("country_id") {
		return nil, 0, fmt.Errorf("country table: missing country_id column")
	}

	var warnings int
	seen := make(map[int64]bool)
	var countries []domain.Country
	for _, raw := range t.rows {
		id, ok := t.int64Field(raw, "country_id")
		if !ok {
			warnings++
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		c := domain.Country{
			CountryID: id,
			Name:      t.field(raw, "country", "name"),
			ISOCode:   t.field(raw, "isoab", "iso_code"),
		}
		if gw, ok := t.int64Field(raw, "gwcode"); ok {
			c.GWCode = int(gw)
		}
		countries = append(countries, c)
	}

	if len(countries) == 0 {
		return nil, warnings, fmt.Errorf("country table: no usable rows")
	}
	return countries, warnings, nil
}

// parseHDITable parses the interval-bound source into per-key bounds.
// Field names accept both the service's own column names and the VIEWS
// sample-prediction export names, which only carry the 90% level.
func parseHDITable(t *table) (map[recordKey]hdiBounds, int, error) {
	if !t.hasColumn("priogrid_id", "pg_id", "grid_id") || !t.hasColumn("month_id") {
		return nil, 0, fmt.Errorf("hdi table: missing key columns")
	}

	var warnings int
	bounds := make(map[recordKey]hdiBounds, len(t.rows))
	for _, raw := range t.rows {
		gridID, okGrid := t.int64Field(raw, "priogrid_id", "pg_id", "grid_id")
		monthID, okMonth := t.int64Field(raw, "month_id")
		if !okGrid || !okMonth || monthID < 1 {
			warnings++
			continue
		}

		var b hdiBounds
		b.low50, b.high50 = boundPair(t, raw, &warnings, "hdi_50_low", "hdi_50_high", "hdi_50_lower", "hdi_50_upper")
		b.low90, b.high90 = boundPair(t, raw, &warnings,
			"hdi_90_low", "hdi_90_high",
			"hdi_90_lower", "hdi_90_upper",
			"pred_ln_sb_prob_hdi_lower", "pred_ln_sb_prob_hdi_upper")
		b.low99, b.high99 = boundPair(t, raw, &warnings, "hdi_99_low", "hdi_99_high", "hdi_99_lower", "hdi_99_upper")

		if b == (hdiBounds{}) {
			continue
		}
		bounds[recordKey{gridID, domain.MonthID(monthID)}] = b
	}

	if len(bounds) == 0 {
		return nil, warnings, fmt.Errorf("hdi table: no usable rows")
	}
	return bounds, warnings, nil
}

// boundPair reads one interval level given alternating low/high alias pairs.
// A level with only one readable bound is treated as unset with a warning;
// negative or inverted bounds are likewise rejected.
func boundPair(t *table, raw []string, warnings *int, aliases ...string) (*float64, *float64) {
	for i := 0; i+1 < len(aliases); i += 2 {
		low, okLow := t.floatField(raw, aliases[i])
		high, okHigh := t.floatField(raw, aliases[i+1])
		if !okLow && !okHigh {
			continue
		}
		if !okLow || !okHigh || low < 0 || high < low {
			*warnings++
			return nil, nil
		}
		return &low, &high
	}
	return nil, nil
}

// parseCoordTable parses the coordinates source.
func parseCoordTable(t *table) (map[int64]coordRow, int, error) {
	if !t.hasColumn("priogrid_id", "pg_id", "grid_id") {
		return nil, 0, fmt.Errorf("coords table: missing grid id column")
	}

	var warnings int
	coords := make(map[int64]coordRow, len(t.rows))
	for _, raw := range t.rows {
		gridID, ok := t.int64Field(raw, "priogrid_id", "pg_id", "grid_id")
		if !ok {
			warnings++
			continue
		}
		lat, okLat := t.floatField(raw, "latitude", "lat")
		lon, okLon := t.floatField(raw, "longitude", "lon")
		if !okLat || !okLon || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			warnings++
			continue
		}

		row := coordRow{lat: lat, lon: lon}
		if id, ok := t.int64Field(raw, "country_id"); ok {
			row.countryID = id
			row.hasCountry = true
		}
		coords[gridID] = row
	}

	if len(coords) == 0 {
		return nil, warnings, fmt.Errorf("coords table: no usable rows")
	}
	return coords, warnings, nil
}
