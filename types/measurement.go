package types

import "time"

// Measurement is one timestamped numeric reading belonging to exactly one series.
type Measurement struct {
	// ID is the unique identifier of the measurement.
	ID int64 `json:"id" db:"id"`

	// SeriesID references the owning series. Deleting the series deletes
	// the measurement.
	SeriesID int `json:"series_id" db:"series_id"`

	// Timestamp is the moment the reading was taken, always UTC.
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Value is the reading itself.
	Value float64 `json:"value" db:"value"`
}

// MeasurementPatch carries a partial measurement update. Nil fields keep
// their current value.
type MeasurementPatch struct {
	Value     *float64
	Timestamp *time.Time
}

// Apply returns a copy of m with the non-nil patch fields applied.
func (p MeasurementPatch) Apply(m Measurement) Measurement {
	if p.Value != nil {
		m.Value = *p.Value
	}
	if p.Timestamp != nil {
		m.Timestamp = p.Timestamp.UTC()
	}
	return m
}

// MeasurementFilter selects measurements for a range query.
// An empty SeriesIDs selects nothing. From and To are inclusive when set.
type MeasurementFilter struct {
	SeriesIDs []int
	From      *time.Time
	To        *time.Time
}
