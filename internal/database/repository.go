package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Repository provides data access for prediction records.
type Repository struct {
	db *DB
}

// NewRepository creates a repository over the given database.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Insert stores a prediction record.
func (r *Repository) Insert(p *Prediction) error {
	query := `INSERT INTO predictions
		(id, age, sex, tremor, voice_clarity, speech_stability, distortion, severity, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		p.ID,
		p.Inputs.Age,
		int(p.Inputs.Sex),
		p.Inputs.Tremor,
		p.Inputs.VoiceClarity,
		p.Inputs.SpeechStability,
		p.Inputs.Distortion,
		p.Severity,
		p.DurationMS,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// Recent returns the most recent predictions, newest first.
func (r *Repository) Recent(limit int) ([]*Prediction, error) {
	query := `SELECT id, age, sex, tremor, voice_clarity, speech_stability, distortion, severity, duration_ms, created_at
		FROM predictions ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var out []*Prediction
	for rows.Next() {
		p := &Prediction{}
		var sex int
		if err := rows.Scan(
			&p.ID,
			&p.Inputs.Age,
			&sex,
			&p.Inputs.Tremor,
			&p.Inputs.VoiceClarity,
			&p.Inputs.SpeechStability,
			&p.Inputs.Distortion,
			&p.Severity,
			&p.DurationMS,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		if sex == 1 {
			p.Inputs.Sex = 1
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Stats aggregates the stored predictions.
func (r *Repository) Stats() (*HistoryStats, error) {
	stats := &HistoryStats{}

	row := r.db.QueryRow(`SELECT COUNT(*), COALESCE(AVG(severity), 0), COALESCE(MIN(severity), 0), COALESCE(MAX(severity), 0) FROM predictions`)
	if err := row.Scan(&stats.Count, &stats.MeanScore, &stats.MinScore, &stats.MaxScore); err != nil {
		return nil, fmt.Errorf("failed to aggregate predictions: %w", err)
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	row = r.db.QueryRow(`SELECT COUNT(*) FROM predictions WHERE created_at >= ?`, cutoff)
	if err := row.Scan(&stats.Last24Hours); err != nil {
		return nil, fmt.Errorf("failed to count recent predictions: %w", err)
	}

	return stats, nil
}

// DeleteOlderThan removes records older than the retention window and
// returns how many were deleted.
func (r *Repository) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := r.db.Exec(`DELETE FROM predictions WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old predictions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return n, nil
}
