package llm

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/pavelanni/mockview/internal/model"
)

// FallbackFeedback is the feedback text used whenever a score cannot be
// extracted from the model's reply.
const FallbackFeedback = "Unable to generate feedback"

// Score is the parsed rating/feedback fragment of a scoring round.
type Score struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// fenceRe matches markdown code-fence markers and the literal token "json",
// which models routinely wrap JSON replies in despite instructions.
var fenceRe = regexp.MustCompile("(?i)```|json")

// ParseQuestionSet extracts a question/answer array from free-form model
// output. It takes the outermost [...] span (newlines included) and decodes
// it; if no span exists or decoding fails it returns nil. Degrading silently
// is deliberate: the caller must still render a usable, if empty, session.
func ParseQuestionSet(raw string) []model.Question {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end <= start {
		return nil
	}

	var questions []model.Question
	if err := json.Unmarshal([]byte(raw[start:end+1]), &questions); err != nil {
		return nil
	}
	return questions
}

// ParseScore extracts a rating/feedback object from free-form model output.
// Code fences and the "json" token are stripped before decoding. ParseScore
// is total: any input, however malformed, yields a rating in [0,10] and
// non-empty feedback, so downstream code never branches on parse success.
func ParseScore(raw string) Score {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))

	// The wire shape uses "ratings"; the internal model uses "rating".
	var wire struct {
		Ratings  float64 `json:"ratings"`
		Feedback string  `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return fallbackScore()
	}
	if math.IsNaN(wire.Ratings) {
		return fallbackScore()
	}

	rating := int(math.Round(wire.Ratings))
	if rating < 0 {
		rating = 0
	}
	if rating > 10 {
		rating = 10
	}

	feedback := strings.TrimSpace(wire.Feedback)
	if feedback == "" {
		feedback = FallbackFeedback
	}
	return Score{Rating: rating, Feedback: feedback}
}

func fallbackScore() Score {
	return Score{Rating: 0, Feedback: FallbackFeedback}
}
