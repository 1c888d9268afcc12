package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coverquest/coverquest/internal/domain"
)

// ─── User Repository ────────────────────────────────────────────────────────

const userColumns = `id, overall_score, category_scores, current_streak, longest_streak,
	last_active_date, has_streak_freeze, daily_challenges, daily_points,
	last_challenge_date, focus_areas, active_policies, level, version,
	created_at, updated_at`

// CreateUser inserts a new user row.
func (d *DB) CreateUser(u *domain.User) error {
	scores, err := json.Marshal(orEmptyScores(u.CategoryScores))
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	focus, _ := json.Marshal(orEmptyCats(u.FocusAreas))
	policies, _ := json.Marshal(orEmptyCats(u.ActivePolicies))

	now := time.Now().Unix()
	level := u.Level
	if level < 1 {
		level = 1
	}

	_, err = d.db.Exec(
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.OverallScore, string(scores), u.CurrentStreak, u.LongestStreak,
		nullableUnix(u.LastActiveDate), u.HasStreakFreeze,
		u.DailyChallengesCompleted, u.DailyProtectionPoints,
		nullableUnix(u.LastChallengeDate), string(focus), string(policies),
		level, u.Version, now, now,
	)
	return err
}

// GetUser retrieves a user by ID. Returns domain.ErrUserNotFound if missing.
func (d *DB) GetUser(id string) (*domain.User, error) {
	row := d.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

// UpdateUser writes the user's mutable state back with an optimistic version
// check. Returns domain.ErrStoreConflict if another writer got there first.
// On success the in-memory Version is advanced to match the row.
func (d *DB) UpdateUser(u *domain.User) error {
	scores, err := json.Marshal(orEmptyScores(u.CategoryScores))
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	focus, _ := json.Marshal(orEmptyCats(u.FocusAreas))
	policies, _ := json.Marshal(orEmptyCats(u.ActivePolicies))

	result, err := d.db.Exec(
		`UPDATE users SET
			overall_score = ?, category_scores = ?,
			current_streak = ?, longest_streak = ?, last_active_date = ?,
			has_streak_freeze = ?,
			daily_challenges = ?, daily_points = ?, last_challenge_date = ?,
			focus_areas = ?, active_policies = ?, level = ?,
			version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		u.OverallScore, string(scores),
		u.CurrentStreak, u.LongestStreak, nullableUnix(u.LastActiveDate),
		u.HasStreakFreeze,
		u.DailyChallengesCompleted, u.DailyProtectionPoints, nullableUnix(u.LastChallengeDate),
		string(focus), string(policies), u.Level,
		time.Now().Unix(), u.ID, u.Version,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		// Either the row is gone or the version moved under us.
		if _, err := d.GetUser(u.ID); err != nil {
			return err
		}
		return domain.ErrStoreConflict
	}
	u.Version++
	return nil
}

// ListUserIDs returns all user IDs in creation order. Batch jobs iterate
// this and load each user fresh inside the per-user unit of work.
func (d *DB) ListUserIDs() ([]string, error) {
	rows, err := d.db.Query(`SELECT id FROM users ORDER BY created_at ASC`)
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

// UserCount returns the total number of users.
func (d *DB) UserCount() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func scanUser(s scanner) (*domain.User, error) {
	var u domain.User
	var scores, focus, policies string
	var lastActive, lastChallenge sql.NullInt64
	var createdAt, updatedAt int64

	err := s.Scan(&u.ID, &u.OverallScore, &scores, &u.CurrentStreak, &u.LongestStreak,
		&lastActive, &u.HasStreakFreeze, &u.DailyChallengesCompleted, &u.DailyProtectionPoints,
		&lastChallenge, &focus, &policies, &u.Level, &u.Version,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(scores), &u.CategoryScores); err != nil {
		return nil, fmt.Errorf("unmarshal scores: %w", err)
	}
	if err := json.Unmarshal([]byte(focus), &u.FocusAreas); err != nil {
		return nil, fmt.Errorf("unmarshal focus areas: %w", err)
	}
	if err := json.Unmarshal([]byte(policies), &u.ActivePolicies); err != nil {
		return nil, fmt.Errorf("unmarshal policies: %w", err)
	}

	u.LastActiveDate = timeFromUnix(lastActive)
	u.LastChallengeDate = timeFromUnix(lastChallenge)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &u, nil
}

func orEmptyScores(m map[domain.Category]float64) map[domain.Category]float64 {
	if m == nil {
		return map[domain.Category]float64{}
	}
	return m
}

func orEmptyCats(c []domain.Category) []domain.Category {
	if c == nil {
		return []domain.Category{}
	}
	return c
}
