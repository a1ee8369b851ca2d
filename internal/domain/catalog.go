package domain

import "time"

// GridCell is one PRIO-GRID cell: a stable numeric id, the centroid
// coordinates, and the id of the country containing it. Cells are loaded once
// at store construction and never mutated.
type GridCell struct {
	GridID    int64   `json:"grid_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	CountryID int64   `json:"country_id"`
}

// Country is one entry in the country catalog. GridCellCount is derived at
// index-build time from the grid catalog.
type Country struct {
	CountryID     int64  `json:"country_id"`
	Name          string `json:"country"`
	ISOCode       string `json:"iso_code,omitempty"`
	GWCode        int    `json:"gwcode,omitempty"`
	GridCellCount int    `json:"grid_cells_count"`
}

// DateRange is the human-readable span of loaded months, "YYYY-MM" inclusive.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Info summarizes the loaded dataset for the info boundary operation.
type Info struct {
	MinMonth         MonthID   `json:"min_month"`
	MaxMonth         MonthID   `json:"max_month"`
	GridCellCount    int       `json:"total_grid_cells"`
	CountryCount     int       `json:"countries_available"`
	DateRange        DateRange `json:"date_range"`
	LoadWarnings     int       `json:"load_warnings"`
	SyntheticSources []string  `json:"synthetic_sources,omitempty"`
	LoadedAt         time.Time `json:"loaded_at"`
}
