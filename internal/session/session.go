// Package session coordinates one interview practice run: question
// navigation, the single active capture, answer scoring, and duplicate-aware
// persistence of results.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/mockview/internal/capture"
	"github.com/pavelanni/mockview/internal/i18n"
	"github.com/pavelanni/mockview/internal/llm"
	"github.com/pavelanni/mockview/internal/model"
	"github.com/pavelanni/mockview/internal/notify"
	"github.com/pavelanni/mockview/internal/stt"
)

var (
	// ErrSessionEnded reports an operation on a session after End.
	ErrSessionEnded = errors.New("session: ended")

	// ErrNoSuchQuestion reports a question index outside the interview.
	ErrNoSuchQuestion = errors.New("session: no such question")

	// ErrStaleResult reports a scoring result that arrived after the user
	// re-recorded or moved on. The result is discarded.
	ErrStaleResult = errors.New("session: stale scoring result")
)

// Scorer rates one answer against its reference answer.
type Scorer interface {
	ScoreAnswer(ctx context.Context, question, referenceAnswer, userAnswer string) (llm.Score, error)
}

// AnswerStore persists scored answers with per-question uniqueness.
type AnswerStore interface {
	HasUserAnswer(userID int64, interviewID, question string) (bool, error)
	SaveUserAnswer(ans *model.UserAnswer) error
}

// Controller runs one interview for one user. Exactly one question is
// current at a time, and only the current question's capture may record;
// navigation deactivates the outgoing capture before moving.
type Controller struct {
	interview *model.Interview
	userID    int64
	scorer    Scorer
	store     AnswerStore
	notifier  notify.Notifier

	mu       sync.Mutex
	current  int
	captures []*capture.Session
	answers  []*model.ScoredAnswer
	ended    bool
}

// NewController builds a controller with one capture session per question.
// A nil store disables persistence; a nil notifier defaults to slog notices.
func NewController(interview *model.Interview, userID int64, scorer Scorer, store AnswerStore, notifier notify.Notifier, provider stt.Provider, device capture.MediaDevice, sttCfg stt.Config) *Controller {
	if notifier == nil {
		notifier = notify.Log{}
	}
	captures := make([]*capture.Session, len(interview.Questions))
	for i := range captures {
		captures[i] = capture.NewSession(provider, device, notifier, sttCfg)
	}
	return &Controller{
		interview: interview,
		userID:    userID,
		scorer:    scorer,
		store:     store,
		notifier:  notifier,
		captures:  captures,
		answers:   make([]*model.ScoredAnswer, len(interview.Questions)),
	}
}

// Interview returns the interview this session runs.
func (c *Controller) Interview() *model.Interview { return c.interview }

// Current returns the index of the current question.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Question returns the current question.
func (c *Controller) Question() model.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interview.Questions[c.current]
}

// Capture returns the capture session for the current question.
func (c *Controller) Capture() *capture.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captures[c.current]
}

// GoNext moves to the next question, clamped at the last one. The outgoing
// question's capture is deactivated before the move.
func (c *Controller) GoNext(ctx context.Context) error {
	return c.move(ctx, func(i int) int { return i + 1 })
}

// GoPrevious moves to the previous question, clamped at the first one.
func (c *Controller) GoPrevious(ctx context.Context) error {
	return c.move(ctx, func(i int) int { return i - 1 })
}

func (c *Controller) move(ctx context.Context, step func(int) int) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return ErrSessionEnded
	}
	next := step(c.current)
	if next < 0 {
		next = 0
	}
	if max := len(c.interview.Questions) - 1; next > max {
		next = max
	}
	if next == c.current {
		c.mu.Unlock()
		return nil
	}
	outgoing := c.captures[c.current]
	c.current = next
	c.mu.Unlock()

	outgoing.Deactivate(ctx)
	return nil
}

// SelectQuestion jumps directly to the given question index.
func (c *Controller) SelectQuestion(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return ErrSessionEnded
	}
	if index < 0 || index >= len(c.interview.Questions) {
		c.mu.Unlock()
		return fmt.Errorf("%w: index %d of %d", ErrNoSuchQuestion, index, len(c.interview.Questions))
	}
	if index == c.current {
		c.mu.Unlock()
		return nil
	}
	outgoing := c.captures[c.current]
	c.current = index
	c.mu.Unlock()

	outgoing.Deactivate(ctx)
	return nil
}

// StartRecording begins recording on the current question.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return ErrSessionEnded
	}
	cs := c.captures[c.current]
	c.mu.Unlock()
	return cs.StartRecording(ctx)
}

// SendAudio forwards an audio frame to the current question's recording.
func (c *Controller) SendAudio(frame []byte) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return ErrSessionEnded
	}
	cs := c.captures[c.current]
	c.mu.Unlock()
	return cs.SendAudio(frame)
}

// ToggleWebcam toggles the webcam on the current question's capture.
func (c *Controller) ToggleWebcam(ctx context.Context) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return ErrSessionEnded
	}
	cs := c.captures[c.current]
	c.mu.Unlock()
	return cs.ToggleWebcam(ctx)
}

// RetakeAnswer discards the current question's transcript so the user can
// record again. Completion history is kept.
func (c *Controller) RetakeAnswer(ctx context.Context) error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return ErrSessionEnded
	}
	cs := c.captures[c.current]
	c.mu.Unlock()
	cs.Reset(ctx)
	return nil
}

// SubmitAnswer stops the current recording, scores the transcript, and
// records the result for the question it was issued for. A result arriving
// after the user re-recorded or after End is discarded with ErrStaleResult.
// The persisted copy is skipped when the user already answered this question
// in this interview.
func (c *Controller) SubmitAnswer(ctx context.Context) (*model.ScoredAnswer, error) {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil, ErrSessionEnded
	}
	index := c.current
	cs := c.captures[index]
	c.mu.Unlock()

	transcript, err := cs.StopRecording(ctx)
	if err != nil {
		return nil, err
	}
	generation := cs.Generation()
	question := c.interview.Questions[index]

	score, scoreErr := c.scorer.ScoreAnswer(ctx, question.Question, question.Answer, transcript)
	if scoreErr != nil {
		// Degrade to the fallback score; the user still gets a result.
		slog.Error("score answer", "question", index, "error", scoreErr)
		c.notifier.Notify(ctx, notify.LevelError, i18n.T(ctx, "ScoringFailed"))
		if score.Feedback == "" {
			score = llm.Score{Rating: 0, Feedback: llm.FallbackFeedback}
		}
	}

	c.mu.Lock()
	if c.ended || c.current != index || cs.Generation() != generation {
		c.mu.Unlock()
		slog.Debug("discarding stale scoring result", "question", index)
		return nil, ErrStaleResult
	}
	scored := &model.ScoredAnswer{
		QuestionIndex: index,
		QuestionText:  question.Question,
		UserAnswer:    transcript,
		Rating:        score.Rating,
		Feedback:      score.Feedback,
	}
	c.answers[index] = scored
	c.mu.Unlock()
	cs.MarkAttempted()

	// Fallback-scored answers stay in memory only, so a retake after a
	// transient scoring failure can still be persisted.
	if scoreErr == nil {
		c.persist(ctx, question, transcript, score)
	}
	return scored, nil
}

func (c *Controller) persist(ctx context.Context, question model.Question, transcript string, score llm.Score) {
	if c.store == nil {
		return
	}
	exists, err := c.store.HasUserAnswer(c.userID, c.interview.ID, question.Question)
	if err != nil {
		slog.Error("check existing answer", "error", err)
		c.notifier.Notify(ctx, notify.LevelError, i18n.T(ctx, "SaveFailed"))
		return
	}
	if exists {
		c.notifier.Notify(ctx, notify.LevelInfo, i18n.T(ctx, "AlreadyAnswered"))
		return
	}
	ans := &model.UserAnswer{
		ID:          uuid.NewString(),
		InterviewID: c.interview.ID,
		UserID:      c.userID,
		Question:    question.Question,
		CorrectAns:  question.Answer,
		UserAns:     transcript,
		Feedback:    score.Feedback,
		Rating:      score.Rating,
		CreatedAt:   time.Now(),
	}
	if err := c.store.SaveUserAnswer(ans); err != nil {
		slog.Error("save answer", "error", err)
		c.notifier.Notify(ctx, notify.LevelError, i18n.T(ctx, "SaveFailed"))
		return
	}
	c.notifier.Notify(ctx, notify.LevelSuccess, i18n.T(ctx, "AnswerSaved"))
}

// Answers returns the in-memory scored answers, one slot per question. Slots
// without a completed scoring round are nil.
func (c *Controller) Answers() []*model.ScoredAnswer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.ScoredAnswer, len(c.answers))
	copy(out, c.answers)
	return out
}

// Progress reports how many questions have a completed scoring round.
func (c *Controller) Progress() model.SessionProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	attempted := 0
	for _, cs := range c.captures {
		if cs.Attempted() {
			attempted++
		}
	}
	total := len(c.interview.Questions)
	return model.SessionProgress{
		AttemptedCount: attempted,
		TotalQuestions: total,
		Complete:       total > 0 && attempted == total,
	}
}

// IsComplete reports whether every question has a completed scoring round.
func (c *Controller) IsComplete() bool {
	return c.Progress().Complete
}

// End terminates the session. All captures are deactivated and every later
// operation fails with ErrSessionEnded. End is idempotent.
func (c *Controller) End(ctx context.Context) {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}
	c.ended = true
	captures := c.captures
	c.mu.Unlock()

	for _, cs := range captures {
		cs.Deactivate(ctx)
	}
}

// Ended reports whether End has been called.
func (c *Controller) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}
