package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coverquest/coverquest/internal/app/challenge"
	"github.com/coverquest/coverquest/internal/domain"
)

func chatServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":` + content + `}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWriteChallenge_ParsesFencedJSON(t *testing.T) {
	srv := chatServer(t, `"Here you go:\n{\"title\":\"Check your tyre tread\",\"description\":\"Quick check\",\"steps\":[\"Find a 20p coin\",\"Test each tyre\"]}"`, http.StatusOK)
	c := NewClient(srv.URL, "key", "test-model", time.Second)

	tpl, ok := c.WriteChallenge(context.Background(), challenge.WriteRequest{
		Category: domain.CatMotor, Difficulty: domain.DiffEasy, Points: 5,
	})
	if !ok {
		t.Fatal("expected usable challenge")
	}
	if tpl.Title != "Check your tyre tread" || len(tpl.Steps) != 2 {
		t.Errorf("parsed template = %+v", tpl)
	}
}

func TestWriteChallenge_MalformedOutputUnavailable(t *testing.T) {
	srv := chatServer(t, `"I cannot produce JSON today."`, http.StatusOK)
	c := NewClient(srv.URL, "key", "test-model", time.Second)

	if _, ok := c.WriteChallenge(context.Background(), challenge.WriteRequest{}); ok {
		t.Error("expected unavailable on non-JSON output")
	}
}

func TestWriteChallenge_ServerErrorUnavailable(t *testing.T) {
	srv := chatServer(t, `""`, http.StatusInternalServerError)
	c := NewClient(srv.URL, "key", "test-model", time.Second)

	if _, ok := c.WriteChallenge(context.Background(), challenge.WriteRequest{}); ok {
		t.Error("expected unavailable on 500")
	}
}

func TestRecommend_ParsesInsights(t *testing.T) {
	srv := chatServer(t, `"{\"recommended_difficulty\":\"hard\",\"recommended_categories\":[\"life\"],\"recommended_tone\":\"strict\",\"engagement_pattern\":\"highly-engaged\",\"confidence\":0.85}"`, http.StatusOK)
	c := NewClient(srv.URL, "key", "test-model", time.Second)

	ins, ok := c.Recommend(context.Background(), domain.AnalyticsRecord{})
	if !ok {
		t.Fatal("expected usable insights")
	}
	if ins.RecommendedDifficulty != domain.DiffHard || ins.Confidence != 0.85 {
		t.Errorf("parsed insights = %+v", ins)
	}
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("", "", "", time.Second)
	if c.Enabled() {
		t.Error("empty baseURL should disable the client")
	}
	if _, ok := c.WriteChallenge(context.Background(), challenge.WriteRequest{}); ok {
		t.Error("disabled client reported available")
	}
	if _, ok := c.Recommend(context.Background(), domain.AnalyticsRecord{}); ok {
		t.Error("disabled client reported available")
	}
}

func TestExtractJSON(t *testing.T) {
	got := extractJSON("```json\n{\"a\": 1}\n```")
	if got != `{"a": 1}` {
		t.Errorf("extractJSON = %q", got)
	}
	if extractJSON("no json here") != "" {
		t.Error("expected empty string when no object present")
	}
}
