// Package ai is the client for the text-generation collaborator. It speaks
// the OpenAI chat-completions wire format so any compatible provider (hosted
// or local) works unchanged.
//
// Every capability returns (result, ok): unavailable — timeout, transport
// error, malformed output — is a first-class outcome the callers fall back
// from, never an error to crash on.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/coverquest/coverquest/internal/app/challenge"
	"github.com/coverquest/coverquest/internal/domain"
	"github.com/coverquest/coverquest/internal/infra/metrics"
)

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// NewClient creates a client. An empty baseURL disables the client — every
// capability reports unavailable.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client is configured at all.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Ping checks endpoint reachability via the models listing.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return fmt.Errorf("ai client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ai endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// ─── Chat Completions ───────────────────────────────────────────────────────

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// chat sends one system+user exchange and returns the assistant content.
func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	defer func() { metrics.AILatency.Observe(time.Since(start).Seconds()) }()

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
		MaxTokens:   600,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completions returned %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// extractJSON pulls the first JSON object out of model output, tolerating
// code fences and surrounding prose.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// ─── Challenge Writing ──────────────────────────────────────────────────────

const writerSystemPrompt = `You write short, actionable insurance engagement challenges.
Respond with a single JSON object only, no prose:
{"title": "...", "description": "...", "steps": ["...", "..."]}
Titles are imperative and under 60 characters. 2-4 steps, each a concrete action.`

type writtenChallenge struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
}

// WriteChallenge asks the model for challenge content. The caller owns
// identity and economics; only title, description, and steps come from here.
func (c *Client) WriteChallenge(ctx context.Context, req challenge.WriteRequest) (*domain.ChallengeTemplate, bool) {
	if !c.Enabled() {
		return nil, false
	}

	prompt := fmt.Sprintf(
		"Write a %s-difficulty challenge about %s insurance for a user in the %q lifecycle stage. "+
			"It should take roughly %d hour(s) and award %d points.",
		req.Difficulty, req.Category, req.Stage, req.DurationHours, req.Points,
	)

	out, err := c.chat(ctx, writerSystemPrompt, prompt)
	if err != nil {
		log.Printf("ai: write challenge: %v", err)
		metrics.AIRequests.WithLabelValues("write_challenge", "unavailable").Inc()
		return nil, false
	}

	var w writtenChallenge
	if err := json.Unmarshal([]byte(extractJSON(out)), &w); err != nil || w.Title == "" || len(w.Steps) == 0 {
		log.Printf("ai: write challenge: unusable output")
		metrics.AIRequests.WithLabelValues("write_challenge", "malformed").Inc()
		return nil, false
	}

	metrics.AIRequests.WithLabelValues("write_challenge", "ok").Inc()
	return &domain.ChallengeTemplate{
		Title:       w.Title,
		Description: w.Description,
		Steps:       w.Steps,
		Type:        domain.ChallengeEngagement,
	}, true
}

// ─── Insight Recommendations ────────────────────────────────────────────────

const recommenderSystemPrompt = `You analyze user engagement behavior for an insurance app.
Respond with a single JSON object only, no prose:
{"recommended_difficulty": "easy|medium|hard",
 "recommended_categories": ["motor|health|travel|home|life", ...],
 "recommended_tone": "strict|friendly|balanced",
 "engagement_pattern": "new|highly-engaged|declining|moderate",
 "notes": "...",
 "confidence": 0.0-1.0}`

// Recommend asks the model for insight recommendations from the analytics
// record.
func (c *Client) Recommend(ctx context.Context, rec domain.AnalyticsRecord) (*domain.Insights, bool) {
	if !c.Enabled() {
		return nil, false
	}

	summary, err := json.Marshal(map[string]any{
		"total_accepted":       rec.TotalAccepted,
		"total_completed":      rec.TotalCompleted,
		"total_abandoned":      rec.TotalAbandoned,
		"completion_rate":      rec.CompletionRate,
		"avg_completion_hours": rec.AvgCompletionHours,
		"total_sessions":       rec.TotalSessions,
		"avg_session_minutes":  rec.AvgSessionMinutes,
		"category_prefs":       rec.CategoryPrefs,
		"weekly_score_trend":   rec.WeeklyScoreTrend(),
	})
	if err != nil {
		return nil, false
	}

	out, err := c.chat(ctx, recommenderSystemPrompt, string(summary))
	if err != nil {
		log.Printf("ai: recommend: %v", err)
		metrics.AIRequests.WithLabelValues("recommend", "unavailable").Inc()
		return nil, false
	}

	var ins domain.Insights
	if err := json.Unmarshal([]byte(extractJSON(out)), &ins); err != nil {
		log.Printf("ai: recommend: unusable output")
		metrics.AIRequests.WithLabelValues("recommend", "malformed").Inc()
		return nil, false
	}
	metrics.AIRequests.WithLabelValues("recommend", "ok").Inc()
	return &ins, true
}
