package types

// DefaultSeriesColor is used when a series is created without a color.
const DefaultSeriesColor = "#000000"

// Series is a named, bounded category of measurements, e.g. the
// temperature log of a single city.
type Series struct {
	// ID is the unique identifier of the series.
	ID int `json:"id" db:"id"`

	// Name is the display name of the series.
	Name string `json:"name" db:"name"`

	// Color is the display color, usually a hex string such as "#3b82f6".
	Color string `json:"color" db:"color"`

	// MinValue is the inclusive lower bound for measurement values.
	MinValue float64 `json:"min_value" db:"min_value"`

	// MaxValue is the inclusive upper bound for measurement values.
	MaxValue float64 `json:"max_value" db:"max_value"`
}

// Contains reports whether value lies within the closed interval
// [MinValue, MaxValue].
func (s Series) Contains(value float64) bool {
	return s.MinValue <= value && value <= s.MaxValue
}

// SeriesPatch carries a partial series update. Nil fields keep their
// current value.
type SeriesPatch struct {
	Name     *string
	Color    *string
	MinValue *float64
	MaxValue *float64
}

// Apply returns a copy of s with the non-nil patch fields applied.
func (p SeriesPatch) Apply(s Series) Series {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Color != nil {
		s.Color = *p.Color
	}
	if p.MinValue != nil {
		s.MinValue = *p.MinValue
	}
	if p.MaxValue != nil {
		s.MaxValue = *p.MaxValue
	}
	return s
}
