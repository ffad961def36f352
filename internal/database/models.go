package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/voicemetrics/updrs-meter/internal/types"
)

// Prediction is one stored prediction record.
type Prediction struct {
	ID         string             `json:"id" db:"id"`
	Inputs     types.SliderInputs `json:"inputs"`
	Severity   float64            `json:"severity" db:"severity"`
	DurationMS int64              `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time          `json:"created_at" db:"created_at"`
}

// NewPrediction creates a prediction record with a generated ID.
func NewPrediction(inputs types.SliderInputs, severity float64, duration time.Duration) *Prediction {
	return &Prediction{
		ID:         uuid.New().String(),
		Inputs:     inputs,
		Severity:   severity,
		DurationMS: duration.Milliseconds(),
		CreatedAt:  time.Now(),
	}
}

// HistoryStats aggregates the stored predictions.
type HistoryStats struct {
	Count       int64   `json:"count"`
	MeanScore   float64 `json:"mean_score"`
	MinScore    float64 `json:"min_score"`
	MaxScore    float64 `json:"max_score"`
	Last24Hours int64   `json:"last_24_hours"`
}
