package domain

import "fmt"

// SeverityThresholds is the fixed fatality-count ladder that threshold
// probabilities are reported against. The first entry is the reference
// threshold for the binary exceedance probability.
var SeverityThresholds = []float64{1, 5, 10, 25, 100, 1000}

// ThresholdProbability is one point on the exceedance curve:
// the probability that the outcome exceeds Threshold fatalities.
type ThresholdProbability struct {
	Threshold   float64 `json:"threshold"`
	Probability float64 `json:"probability"`
}

// ForecastRecord is the atomic data unit: one grid cell, one month, and the
// forecast metrics for that pair. Grid id, country id, coordinates, and the
// calendar year/month are denormalized onto the record so it serializes
// without a join.
//
// Metric fields are pointers so projection can strip unselected fields
// entirely from the serialized output rather than null-filling them. A record
// as loaded or generated always carries MapValue; the remaining metrics are
// optional.
type ForecastRecord struct {
	GridID    int64   `json:"grid_id"`
	MonthID   MonthID `json:"month_id"`
	CountryID int64   `json:"country_id,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Year      int     `json:"year,omitempty"`
	Month     int     `json:"month,omitempty"`

	MapValue *float64 `json:"map_value,omitempty"`

	HDI50Low  *float64 `json:"hdi_50_low,omitempty"`
	HDI50High *float64 `json:"hdi_50_high,omitempty"`
	HDI90Low  *float64 `json:"hdi_90_low,omitempty"`
	HDI90High *float64 `json:"hdi_90_high,omitempty"`
	HDI99Low  *float64 `json:"hdi_99_low,omitempty"`
	HDI99High *float64 `json:"hdi_99_high,omitempty"`

	Thresholds       []ThresholdProbability `json:"threshold_probabilities,omitempty"`
	BinaryExceedance *float64               `json:"binary_exceedance_probability,omitempty"`
}

// Key returns the record's primary key.
func (r *ForecastRecord) Key() (int64, MonthID) {
	return r.GridID, r.MonthID
}

// Validate checks the record-local invariants: non-negativity of the point
// prediction and all interval bounds, nesting of the 50/90/99 intervals,
// containment of the point prediction in every present interval, threshold
// monotonicity, and probability domains. Referential integrity of grid and
// country ids is the store's responsibility and is not checked here.
func (r *ForecastRecord) Validate() error {
	if r.MapValue == nil {
		return fmt.Errorf("record (%d, %d): missing map_value", r.GridID, r.MonthID)
	}
	if *r.MapValue < 0 {
		return fmt.Errorf("record (%d, %d): negative map_value %g", r.GridID, r.MonthID, *r.MapValue)
	}

	if err := r.validateIntervals(); err != nil {
		return err
	}
	if err := r.validateProbabilities(); err != nil {
		return err
	}
	return nil
}

func (r *ForecastRecord) validateIntervals() error {
	type bound struct {
		name string
		low  *float64
		high *float64
	}
	// Ordered narrowest to widest so nesting can be checked pairwise.
	levels := []bound{
		{"hdi_50", r.HDI50Low, r.HDI50High},
		{"hdi_90", r.HDI90Low, r.HDI90High},
		{"hdi_99", r.HDI99Low, r.HDI99High},
	}

	mapValue := *r.MapValue
	for _, l := range levels {
		if (l.low == nil) != (l.high == nil) {
			return fmt.Errorf("record (%d, %d): %s has only one bound", r.GridID, r.MonthID, l.name)
		}
		if l.low == nil {
			continue
		}
		if *l.low < 0 {
			return fmt.Errorf("record (%d, %d): negative %s_low %g", r.GridID, r.MonthID, l.name, *l.low)
		}
		if *l.low > mapValue || *l.high < mapValue {
			return fmt.Errorf("record (%d, %d): map_value %g outside %s [%g, %g]",
				r.GridID, r.MonthID, mapValue, l.name, *l.low, *l.high)
		}
	}

	// Nesting is checked between each present level and the nearest present
	// wider level, so an absent middle level does not disconnect the chain.
	prev := -1
	for i := range levels {
		if levels[i].low == nil {
			continue
		}
		if prev >= 0 {
			narrow, wide := levels[prev], levels[i]
			if *wide.low > *narrow.low || *wide.high < *narrow.high {
				return fmt.Errorf("record (%d, %d): %s [%g, %g] not nested in %s [%g, %g]",
					r.GridID, r.MonthID, narrow.name, *narrow.low, *narrow.high, wide.name, *wide.low, *wide.high)
			}
		}
		prev = i
	}
	return nil
}

func (r *ForecastRecord) validateProbabilities() error {
	prev := 1.0
	prevThreshold := -1.0
	for _, tp := range r.Thresholds {
		if tp.Probability < 0 || tp.Probability > 1 {
			return fmt.Errorf("record (%d, %d): threshold %g probability %g outside [0, 1]",
				r.GridID, r.MonthID, tp.Threshold, tp.Probability)
		}
		if tp.Threshold <= prevThreshold {
			return fmt.Errorf("record (%d, %d): thresholds not strictly increasing at %g",
				r.GridID, r.MonthID, tp.Threshold)
		}
		if tp.Probability > prev {
			return fmt.Errorf("record (%d, %d): exceedance probability increases at threshold %g (%g > %g)",
				r.GridID, r.MonthID, tp.Threshold, tp.Probability, prev)
		}
		prev = tp.Probability
		prevThreshold = tp.Threshold
	}

	if r.BinaryExceedance != nil && (*r.BinaryExceedance < 0 || *r.BinaryExceedance > 1) {
		return fmt.Errorf("record (%d, %d): binary exceedance probability %g outside [0, 1]",
			r.GridID, r.MonthID, *r.BinaryExceedance)
	}
	return nil
}
