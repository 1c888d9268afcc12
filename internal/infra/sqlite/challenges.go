package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coverquest/coverquest/internal/domain"
)

// ─── Challenge Templates ────────────────────────────────────────────────────

const templateColumns = `id, category, type, title, description, steps, points,
	difficulty, est_minutes, trigger, source, created_at`

// InsertTemplate persists a challenge template. Templates are immutable —
// there is deliberately no update path.
func (d *DB) InsertTemplate(t *domain.ChallengeTemplate) error {
	steps, err := json.Marshal(t.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	var trigger sql.NullString
	if t.Trigger != nil {
		raw, err := json.Marshal(t.Trigger)
		if err != nil {
			return fmt.Errorf("marshal trigger: %w", err)
		}
		trigger = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = d.db.Exec(
		`INSERT INTO templates (`+templateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Category), string(t.Type), t.Title, t.Description,
		string(steps), t.Points, string(t.Difficulty), t.EstMinutes,
		trigger, string(t.Source), t.CreatedAt.Unix(),
	)
	return err
}

// GetTemplate retrieves a template by ID.
// Returns domain.ErrTemplateNotFound if missing.
func (d *DB) GetTemplate(id string) (*domain.ChallengeTemplate, error) {
	row := d.db.QueryRow(`SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrTemplateNotFound
	}
	return t, nil
}

// ListTemplatesBySource returns templates from one source (catalog or ai).
func (d *DB) ListTemplatesBySource(source domain.TemplateSource) ([]domain.ChallengeTemplate, error) {
	rows, err := d.db.Query(
		`SELECT `+templateColumns+` FROM templates WHERE source = ? ORDER BY created_at ASC`,
		string(source),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []domain.ChallengeTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// ─── User Challenges ────────────────────────────────────────────────────────

const userChallengeColumns = `id, user_id, template_id, title, category, points,
	status, progress, started_at, completed_at`

// InsertUserChallenge assigns a challenge to a user.
func (d *DB) InsertUserChallenge(c *domain.UserChallenge) error {
	_, err := d.db.Exec(
		`INSERT INTO user_challenges (`+userChallengeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.TemplateID, c.Title, string(c.Category), c.Points,
		string(c.Status), c.Progress, c.StartedAt.Unix(), nullableUnix(c.CompletedAt),
	)
	return err
}

// GetUserChallenge retrieves one assignment.
// Returns domain.ErrChallengeNotFound if missing.
func (d *DB) GetUserChallenge(id string) (*domain.UserChallenge, error) {
	row := d.db.QueryRow(`SELECT `+userChallengeColumns+` FROM user_challenges WHERE id = ?`, id)
	c, err := scanUserChallenge(row)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrChallengeNotFound
	}
	return c, nil
}

// ListUserChallenges returns a user's assignments, newest first. An empty
// status lists all of them.
func (d *DB) ListUserChallenges(userID string, status domain.ChallengeStatus) ([]domain.UserChallenge, error) {
	query := `SELECT ` + userChallengeColumns + ` FROM user_challenges WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY started_at DESC`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var challenges []domain.UserChallenge
	for rows.Next() {
		c, err := scanUserChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

// UserChallengeTitleKeys returns the case-insensitive title keys of every
// challenge ever assigned to the user, for dedup during generation.
func (d *DB) UserChallengeTitleKeys(userID string) (map[string]bool, error) {
	rows, err := d.db.Query(`SELECT title FROM user_challenges WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		keys[domain.TitleKey(title)] = true
	}
	return keys, rows.Err()
}

// SetChallengeProgress updates progress on an active challenge.
// The status guard keeps terminal rows immutable at the SQL level.
func (d *DB) SetChallengeProgress(id string, progress int) error {
	result, err := d.db.Exec(
		`UPDATE user_challenges SET progress = ? WHERE id = ? AND status = ?`,
		progress, id, string(domain.ChallengeActive),
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		if _, err := d.GetUserChallenge(id); err != nil {
			return err
		}
		return domain.ErrChallengeTerminal
	}
	return nil
}

// TransitionChallenge moves an active challenge into a terminal state.
// Returns domain.ErrChallengeTerminal if it already reached one.
func (d *DB) TransitionChallenge(id string, status domain.ChallengeStatus, at time.Time) error {
	progress := -1
	if status == domain.ChallengeCompleted {
		progress = 100
	}

	var result sql.Result
	var err error
	if progress >= 0 {
		result, err = d.db.Exec(
			`UPDATE user_challenges SET status = ?, progress = ?, completed_at = ?
			 WHERE id = ? AND status = ?`,
			string(status), progress, at.Unix(), id, string(domain.ChallengeActive),
		)
	} else {
		result, err = d.db.Exec(
			`UPDATE user_challenges SET status = ?, completed_at = ?
			 WHERE id = ? AND status = ?`,
			string(status), at.Unix(), id, string(domain.ChallengeActive),
		)
	}
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		if _, err := d.GetUserChallenge(id); err != nil {
			return err
		}
		return domain.ErrChallengeTerminal
	}
	return nil
}

// ─── Scanners ───────────────────────────────────────────────────────────────

func scanTemplate(s scanner) (*domain.ChallengeTemplate, error) {
	var t domain.ChallengeTemplate
	var steps string
	var trigger sql.NullString
	var createdAt int64

	err := s.Scan(&t.ID, &t.Category, &t.Type, &t.Title, &t.Description,
		&steps, &t.Points, &t.Difficulty, &t.EstMinutes, &trigger, &t.Source, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(steps), &t.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if trigger.Valid {
		var tr domain.Trigger
		if err := json.Unmarshal([]byte(trigger.String), &tr); err != nil {
			return nil, fmt.Errorf("unmarshal trigger: %w", err)
		}
		t.Trigger = &tr
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &t, nil
}

func scanUserChallenge(s scanner) (*domain.UserChallenge, error) {
	var c domain.UserChallenge
	var startedAt int64
	var completedAt sql.NullInt64

	err := s.Scan(&c.ID, &c.UserID, &c.TemplateID, &c.Title, &c.Category,
		&c.Points, &c.Status, &c.Progress, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.StartedAt = time.Unix(startedAt, 0).UTC()
	c.CompletedAt = timeFromUnix(completedAt)
	return &c, nil
}
