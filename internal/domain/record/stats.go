package record

import "time"

// Summary aggregates every recorded conversion.
type Summary struct {
	TotalImages       int     `json:"total_images"`
	MostUsedMode      *string `json:"most_used_mode"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
	CommonImageType   *string `json:"common_image_type"`
}

// DayCount is the number of conversions on a UTC date (YYYY-MM-DD).
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// HourCount is the number of conversions in a UTC hour of day ("00".."23").
type HourCount struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// TypeCount is the number of conversions per input media type.
type TypeCount struct {
	Type  *string `json:"type"`
	Count int     `json:"count"`
}

// ModeTime is the mean duration of a mode in seconds.
type ModeTime struct {
	Mode    string  `json:"mode"`
	AvgTime float64 `json:"avg_time"`
}

// TimedConversion is a conversion reduced to name, mode and duration.
type TimedConversion struct {
	ImageName   string
	Mode        string
	DurationSec float64
	CreatedAt   time.Time
}
