package challenge

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/coverquest/coverquest/internal/domain"
	"github.com/coverquest/coverquest/internal/infra/sqlite"
)

// WriteRequest describes the challenge the AI collaborator should produce.
// Difficulty, points, and duration are derived from the user's score tier
// before the call — the model fills in content, not economics.
type WriteRequest struct {
	Category      domain.Category   `json:"category"`
	Difficulty    domain.Difficulty `json:"difficulty"`
	Points        int               `json:"points"`
	DurationHours int               `json:"duration_hours"`
	Stage         domain.Stage      `json:"stage"`
}

// Writer produces an AI-generated challenge template. ok=false covers every
// flavor of unavailable (timeout, transport error, malformed output) — the
// generator treats it as a first-class outcome, never a crash.
type Writer interface {
	WriteChallenge(ctx context.Context, req WriteRequest) (*domain.ChallengeTemplate, bool)
}

// Recorder receives the acceptance event for each assigned challenge.
// Implemented by the analytics service; nil drops the events.
type Recorder interface {
	ChallengeAccepted(userID string, difficulty domain.Difficulty)
}

// Generator assembles each user's daily challenge: a weighted coin decides
// between a catalog pick and an AI-written variant, with title dedup against
// everything the user has ever been assigned.
type Generator struct {
	db      *sqlite.DB
	writer  Writer   // nil disables the AI path
	rec     Recorder // nil drops acceptance events
	library []domain.ChallengeTemplate

	aiTimeout time.Duration
	catalogP  float64
	rng       *rand.Rand
	now       func() time.Time
}

// NewGenerator creates a generator over the built-in library. writer may be
// nil, in which case users with an exhausted catalog are skipped; rec may be
// nil.
func NewGenerator(db *sqlite.DB, writer Writer, rec Recorder, aiTimeout time.Duration) *Generator {
	return &Generator{
		db:        db,
		writer:    writer,
		rec:       rec,
		library:   Library(),
		aiTimeout: aiTimeout,
		catalogP:  0.7,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// StageFor classifies the user's engagement lifecycle stage from score and
// inactivity.
func StageFor(score float64, inactiveDays int) domain.Stage {
	switch {
	case score > 60:
		return domain.StageLoyal
	case inactiveDays > 7:
		return domain.StageInactive
	case score < 20:
		return domain.StageNew
	default:
		return domain.StageActive
	}
}

// tierSpec maps a Protection Score to the difficulty, points, and duration
// an AI-written challenge should carry.
func tierSpec(score float64) (domain.Difficulty, int, int) {
	switch {
	case score > 60:
		return domain.DiffHard, 15, 3
	case score > 30:
		return domain.DiffMedium, 10, 2
	default:
		return domain.DiffEasy, 5, 1
	}
}

func contextFor(u *domain.User, now time.Time) domain.UserContext {
	inactive := 0
	if !u.LastActiveDate.IsZero() {
		inactive = domain.DaysBetween(u.LastActiveDate, now)
	}
	return domain.UserContext{
		Stage:          StageFor(u.OverallScore, inactive),
		ActivePolicies: u.ActivePolicies,
		DaysToRenewal:  -1, // renewal data comes from the policy system, not the engine
		InactiveDays:   inactive,
		FocusAreas:     u.FocusAreas,
		Level:          u.Level,
	}
}

// GenerateDaily creates and assigns today's challenge for one user. Returns
// ErrAIUnavailable when neither the catalog nor the AI path produced a
// usable, non-duplicate template — callers treat that as "skip this cycle".
func (g *Generator) GenerateDaily(ctx context.Context, u *domain.User) (*domain.UserChallenge, error) {
	seen, err := g.db.UserChallengeTitleKeys(u.ID)
	if err != nil {
		return nil, err
	}

	now := g.now()
	uctx := contextFor(u, now)

	var fresh []domain.ChallengeTemplate
	for _, t := range SelectEligible(g.library, uctx) {
		if !seen[domain.TitleKey(t.Title)] {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) > 0 && g.rng.Float64() < g.catalogP {
		pick := fresh[g.rng.Intn(len(fresh))]
		return g.assign(u.ID, &pick, now)
	}

	tpl, err := g.generateAI(ctx, u, uctx, seen, now)
	if err != nil {
		// The coin chose AI but the catalog still has material; fall back
		// rather than skip the user.
		if len(fresh) > 0 {
			pick := fresh[g.rng.Intn(len(fresh))]
			return g.assign(u.ID, &pick, now)
		}
		return nil, err
	}
	return g.assign(u.ID, tpl, now)
}

func (g *Generator) generateAI(ctx context.Context, u *domain.User, uctx domain.UserContext, seen map[string]bool, now time.Time) (*domain.ChallengeTemplate, error) {
	if g.writer == nil {
		return nil, domain.ErrAIUnavailable
	}

	difficulty, pts, hours := tierSpec(u.OverallScore)
	req := WriteRequest{
		Category:      g.pickCategory(u),
		Difficulty:    difficulty,
		Points:        pts,
		DurationHours: hours,
		Stage:         uctx.Stage,
	}

	aiCtx, cancel := context.WithTimeout(ctx, g.aiTimeout)
	defer cancel()

	tpl, ok := g.writer.WriteChallenge(aiCtx, req)
	if !ok || tpl.Title == "" {
		return nil, domain.ErrAIUnavailable
	}
	if seen[domain.TitleKey(tpl.Title)] {
		return nil, domain.ErrAIUnavailable
	}

	// The model writes content; the engine owns identity and economics.
	tpl.ID = uuid.NewString()
	tpl.Category = req.Category
	tpl.Difficulty = difficulty
	tpl.Points = pts
	tpl.EstMinutes = hours * 60
	tpl.Source = domain.SourceAI
	tpl.CreatedAt = now

	if err := g.db.InsertTemplate(tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (g *Generator) pickCategory(u *domain.User) domain.Category {
	pool := u.FocusAreas
	if len(pool) == 0 {
		pool = domain.AllCategories()
	}
	return pool[g.rng.Intn(len(pool))]
}

func (g *Generator) assign(userID string, tpl *domain.ChallengeTemplate, now time.Time) (*domain.UserChallenge, error) {
	uc := &domain.UserChallenge{
		ID:         uuid.NewString(),
		UserID:     userID,
		TemplateID: tpl.ID,
		Title:      tpl.Title,
		Category:   tpl.Category,
		Points:     tpl.Points,
		Status:     domain.ChallengeActive,
		StartedAt:  now,
	}
	if err := g.db.InsertUserChallenge(uc); err != nil {
		return nil, err
	}
	if g.rec != nil {
		g.rec.ChallengeAccepted(userID, tpl.Difficulty)
	}
	return uc, nil
}

// GenerateAll runs the daily generation over every user. Failures are
// isolated per user: logged and skipped, never fatal to the batch. Returns
// (generated, skipped).
func (g *Generator) GenerateAll(ctx context.Context) (int, int, error) {
	ids, err := g.db.ListUserIDs()
	if err != nil {
		return 0, 0, err
	}

	generated, skipped := 0, 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return generated, skipped, err
		}
		u, err := g.db.GetUser(id)
		if err != nil {
			log.Printf("challenge generation: user %s: %v", id, err)
			skipped++
			continue
		}
		if _, err := g.GenerateDaily(ctx, u); err != nil {
			log.Printf("challenge generation: user %s: %v", id, err)
			skipped++
			continue
		}
		generated++
	}
	return generated, skipped, nil
}
