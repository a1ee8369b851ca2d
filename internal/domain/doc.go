// Package domain models VIEWS conflict-forecast data at PRIO-GRID resolution.
//
// # Data Source
//
// Forecasts originate from the VIEWS (Violence & Impacts Early Warning System)
// fatalities model runs, distributed as flat CSV tables with one row per
// (grid cell, month) or (country, month). The service loads four table kinds:
// grid-level forecasts, country-month metadata, HDI interval bounds, and grid
// cell coordinates. Any source that is missing or unreadable is replaced by
// synthetically generated data so the service always starts with a complete,
// internally consistent dataset.
//
// # PRIO-GRID
//
// The spatial unit is the PRIO-GRID cell: a fixed 0.5° x 0.5° cell identified
// by a stable numeric id. Each cell belongs to exactly one country. The
// latitude/longitude carried on records is the cell centroid.
//
// # Month Ids
//
// Time is indexed by the VIEWS month id: month 1 is January 1980, and ids
// increase by one per calendar month, so
//
//	month_id = (year - 1980)*12 + month
//
// Month 548 is therefore August 2025. [MonthID] converts in both directions.
//
// # Forecast Metrics
//
// A [ForecastRecord] carries up to 13 metric values around the point
// prediction:
//
//	map_value                      point prediction (mean fatalities scale, >= 0)
//	hdi_{50,90,99}_{low,high}      highest-density-interval bounds
//	threshold_probabilities       P(outcome > t) for t in {1, 5, 10, 25, 100, 1000}
//	binary_exceedance_probability  P(outcome > 1), the reference threshold
//
// Five invariants hold for every record, loaded or synthesized: interval
// nesting, interval containment of the point prediction, non-negativity,
// threshold monotonicity, and referential integrity of grid and country ids.
// [ForecastRecord.Validate] checks the first four; the data store enforces
// the fifth during index construction.
package domain
