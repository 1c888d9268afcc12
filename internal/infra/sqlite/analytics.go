package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coverquest/coverquest/internal/domain"
)

// ─── Behavior Analytics ─────────────────────────────────────────────────────
// The rolling record is stored as one JSON document per user; the analysis
// gate timestamp stays relational so batch jobs can query it.

// UpsertAnalytics writes the full analytics record for a user.
func (d *DB) UpsertAnalytics(rec *domain.AnalyticsRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal analytics: %w", err)
	}

	_, err = d.db.Exec(
		`INSERT INTO analytics (user_id, record, last_analyzed_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			record=excluded.record,
			last_analyzed_at=excluded.last_analyzed_at,
			updated_at=excluded.updated_at`,
		rec.UserID, string(raw), nullableUnix(rec.LastAnalyzedAt), rec.UpdatedAt.Unix(),
	)
	return err
}

// GetAnalytics retrieves a user's analytics record. A user with no events
// yet gets a fresh zero record rather than an error — analytics is
// append-mostly and tolerates absence.
func (d *DB) GetAnalytics(userID string) (*domain.AnalyticsRecord, error) {
	var raw string
	err := d.db.QueryRow(`SELECT record FROM analytics WHERE user_id = ?`, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return &domain.AnalyticsRecord{
			UserID:          userID,
			CategoryPrefs:   map[domain.Category]int{},
			DifficultyPrefs: map[domain.Difficulty]int{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	var rec domain.AnalyticsRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal analytics: %w", err)
	}
	if rec.CategoryPrefs == nil {
		rec.CategoryPrefs = map[domain.Category]int{}
	}
	if rec.DifficultyPrefs == nil {
		rec.DifficultyPrefs = map[domain.Difficulty]int{}
	}
	return &rec, nil
}

// ListAnalyticsDue returns user IDs whose last analysis is older than the
// cutoff (or who have never been analyzed). Used by the adaptive-learning
// batch to apply the re-analysis gate in one query.
func (d *DB) ListAnalyticsDue(cutoff time.Time) ([]string, error) {
	rows, err := d.db.Query(
		`SELECT user_id FROM analytics
		 WHERE last_analyzed_at IS NULL OR last_analyzed_at < ?
		 ORDER BY updated_at ASC`,
		cutoff.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
