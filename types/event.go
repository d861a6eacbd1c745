package types

import "time"

// EventType names a change to a series or measurement.
type EventType string

const (
	EventSeriesCreated      EventType = "series.created"
	EventSeriesUpdated      EventType = "series.updated"
	EventSeriesDeleted      EventType = "series.deleted"
	EventMeasurementCreated EventType = "measurement.created"
	EventMeasurementUpdated EventType = "measurement.updated"
	EventMeasurementDeleted EventType = "measurement.deleted"
)

// Event is the payload published to the message broker after a successful
// mutation. Series or Measurement is set depending on Type; deletions only
// carry the identifiers.
type Event struct {
	Type          EventType    `json:"type"`
	SeriesID      int          `json:"series_id,omitempty"`
	MeasurementID int64        `json:"measurement_id,omitempty"`
	Series        *Series      `json:"series,omitempty"`
	Measurement   *Measurement `json:"measurement,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

// Snapshot is a full export of the ledger, used for backups.
type Snapshot struct {
	CreatedAt time.Time        `json:"created_at"`
	Series    []SeriesSnapshot `json:"series"`
}

// SeriesSnapshot is a series together with all of its measurements.
type SeriesSnapshot struct {
	Series
	Measurements []Measurement `json:"measurements"`
}
