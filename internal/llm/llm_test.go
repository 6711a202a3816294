package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestServer returns a Client pointed at a fake OpenAI-compatible endpoint
// that replies to every chat completion with content.
func newTestServer(t *testing.T, content string, status int) *Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "backend unavailable", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
	}))
	t.Cleanup(ts.Close)
	return New(ts.URL+"/v1", "test-key", "test-model", 5*time.Second)
}

func TestGenerateQuestions(t *testing.T) {
	c := newTestServer(t, `[{"question":"Q1","answer":"A1"},{"question":"Q2","answer":"A2"}]`, http.StatusOK)

	qs, err := c.GenerateQuestions(context.Background(), "Backend Engineer", "Go services", "Go", 3)
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[0].Question != "Q1" || qs[1].Answer != "A2" {
		t.Errorf("unexpected questions: %+v", qs)
	}
}

func TestGenerateQuestionsMalformedReply(t *testing.T) {
	c := newTestServer(t, "I'm sorry, I can't help with that.", http.StatusOK)

	qs, err := c.GenerateQuestions(context.Background(), "Role", "Desc", "Tech", 1)
	if err != nil {
		t.Fatalf("malformed reply must not error: %v", err)
	}
	if len(qs) != 0 {
		t.Fatalf("expected empty set, got %d", len(qs))
	}
}

func TestGenerateQuestionsAPIError(t *testing.T) {
	c := newTestServer(t, "", http.StatusInternalServerError)

	if _, err := c.GenerateQuestions(context.Background(), "Role", "Desc", "Tech", 1); err == nil {
		t.Fatal("expected error from failing backend")
	}
}

func TestScoreAnswer(t *testing.T) {
	c := newTestServer(t, `{"ratings": 8, "feedback": "Well structured."}`, http.StatusOK)

	score, err := c.ScoreAnswer(context.Background(), "Q", "ref", "mine")
	if err != nil {
		t.Fatalf("ScoreAnswer: %v", err)
	}
	if score.Rating != 8 {
		t.Errorf("rating = %d, want 8", score.Rating)
	}
	if score.Feedback != "Well structured." {
		t.Errorf("feedback = %q", score.Feedback)
	}
}

func TestScoreAnswerAPIErrorYieldsFallback(t *testing.T) {
	c := newTestServer(t, "", http.StatusServiceUnavailable)

	score, err := c.ScoreAnswer(context.Background(), "Q", "ref", "mine")
	if err == nil {
		t.Fatal("expected error from failing backend")
	}
	// The score must still be usable despite the error.
	if score.Rating != 0 || score.Feedback != FallbackFeedback {
		t.Errorf("expected fallback score, got %+v", score)
	}
}
