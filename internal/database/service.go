package database

import (
	"log/slog"
	"time"

	"github.com/voicemetrics/updrs-meter/internal/types"
)

// HistoryService records completed predictions and serves history queries.
type HistoryService struct {
	repo *Repository
}

// NewHistoryService creates a history service.
func NewHistoryService(repo *Repository) *HistoryService {
	return &HistoryService{repo: repo}
}

// Record stores one completed prediction. Failures are logged, never
// surfaced: history is best-effort and must not affect the response.
func (s *HistoryService) Record(inputs types.SliderInputs, severity float64, duration time.Duration) {
	p := NewPrediction(inputs, severity, duration)
	if err := s.repo.Insert(p); err != nil {
		slog.Error("Failed to record prediction", "error", err)
	}
}

// Recent returns the newest predictions up to limit.
func (s *HistoryService) Recent(limit int) ([]*Prediction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.Recent(limit)
}

// Stats returns aggregate history statistics.
func (s *HistoryService) Stats() (*HistoryStats, error) {
	return s.repo.Stats()
}

// StartCleanup deletes records past the retention window on a daily tick.
func (s *HistoryService) StartCleanup(retention time.Duration) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			n, err := s.repo.DeleteOlderThan(retention)
			if err != nil {
				slog.Error("History cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("History cleanup removed records", "count", n)
			}
		}
	}()
}
