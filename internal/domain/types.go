package domain

import (
	"time"

	"github.com/google/uuid"
)

// Mood labels produced by the bundled model
const (
	Normal     = "Normal"
	Anxiety    = "Anxiety"
	Depression = "Depression"
	Suicidal   = "Suicidal"

	// Unknown is reported when no classification could be made
	Unknown = "Unknown"
)

// Labels is the bundled vocabulary, in legend order
var Labels = []string{Normal, Anxiety, Depression, Suicidal}

// MoodRecord is one classified journal submission
type MoodRecord struct {
	ID         string    `json:"id"`
	Mood       string    `json:"mood"`
	Confidence float64   `json:"confidence"`
	Date       time.Time `json:"date"`
}

// NewMoodRecord builds a record with a fresh id, stamped at the given instant.
// The date is normalized to UTC so that it survives a JSON round-trip unchanged.
func NewMoodRecord(p Prediction, at time.Time) MoodRecord {
	return MoodRecord{
		ID:         uuid.New().String(),
		Mood:       p.Label,
		Confidence: p.Confidence,
		Date:       at.UTC(),
	}
}

// Prediction is a classifier's answer for a piece of text
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// UnknownPrediction is returned when classification is unavailable
func UnknownPrediction() Prediction {
	return Prediction{Label: Unknown, Confidence: 0}
}

// Hypothesis is one label of a ranked distribution
type Hypothesis struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// IsKnownLabel reports whether label belongs to the bundled vocabulary
func IsKnownLabel(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}
