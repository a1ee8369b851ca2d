package domain

// MetricSelection toggles which metric groups a query projects into its
// results. Each flag is independent; unselected groups are removed from the
// output records entirely rather than null-filled, so payload size is
// controlled by construction.
type MetricSelection struct {
	Map        bool
	HDI50      bool
	HDI90      bool
	HDI99      bool
	Thresholds bool
	Binary     bool
}

// DefaultMetricSelection is the lean-by-default policy: point prediction and
// binary exceedance included, intervals and the full threshold curve opt-in.
func DefaultMetricSelection() MetricSelection {
	return MetricSelection{Map: true, Binary: true}
}

// Project returns a copy of the record with unselected metric fields cleared.
// Identity and coordinate fields are always retained. The input record is not
// modified; selected pointer fields are shared with the original, which is
// safe because records are immutable after load.
func (m MetricSelection) Project(r ForecastRecord) ForecastRecord {
	out := r
	if !m.Map {
		out.MapValue = nil
	}
	if !m.HDI50 {
		out.HDI50Low, out.HDI50High = nil, nil
	}
	if !m.HDI90 {
		out.HDI90Low, out.HDI90High = nil, nil
	}
	if !m.HDI99 {
		out.HDI99Low, out.HDI99High = nil, nil
	}
	if !m.Thresholds {
		out.Thresholds = nil
	}
	if !m.Binary {
		out.BinaryExceedance = nil
	}
	return out
}
