package anomaly

import "time"

// Direction says which side of the baseline the current value landed on.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Severity buckets a z-score into operator-facing urgency.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// severityRank orders severities for result sorting.
var severityRank = map[Severity]int{
	SeverityCritical: 3,
	SeverityWarning:  2,
	SeverityInfo:     1,
}

// Event is one detected deviation from a metric's weekly baseline. Events
// are immutable once created and persisted for audit history.
type Event struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"client_id"`
	MetricSlug     string    `json:"metric_slug"`
	Direction      Direction `json:"direction"`
	ZScore         float64   `json:"z_score"`
	CurrentValue   float64   `json:"current_value"`
	BaselineMean   float64   `json:"baseline_mean"`
	BaselineStdDev float64   `json:"baseline_std_dev"`
	Severity       Severity  `json:"severity"`
	DetectedAt     time.Time `json:"detected_at"`
}
