package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/pavelanni/mockview/internal/capture"
	"github.com/pavelanni/mockview/internal/model"
	"github.com/pavelanni/mockview/internal/notify"
	"github.com/pavelanni/mockview/internal/session"
	"github.com/pavelanni/mockview/internal/stt"
)

// liveSession pairs a running controller with a notice recorder so API
// responses can carry the notices each operation produced.
type liveSession struct {
	ctrl *session.Controller
	rec  *notify.Recorder
}

type liveSessions struct {
	mu sync.Mutex
	m  map[string]*liveSession
}

func newLiveSessions() *liveSessions {
	return &liveSessions{m: make(map[string]*liveSession)}
}

func sessionKey(userID int64, interviewID string) string {
	return fmt.Sprintf("%d/%s", userID, interviewID)
}

func (l *liveSessions) get(key string) (*liveSession, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ls, ok := l.m[key]
	return ls, ok
}

// put registers a session, ending any other live session the same user has.
// One live practice session per user at a time.
func (l *liveSessions) put(ctx context.Context, userID int64, key string, ls *liveSession) {
	prefix := fmt.Sprintf("%d/", userID)
	l.mu.Lock()
	var ended []*liveSession
	for k, existing := range l.m {
		if strings.HasPrefix(k, prefix) {
			ended = append(ended, existing)
			delete(l.m, k)
		}
	}
	l.m[key] = ls
	l.mu.Unlock()

	for _, e := range ended {
		e.ctrl.End(ctx)
	}
}

func (l *liveSessions) end(ctx context.Context, key string) {
	l.mu.Lock()
	ls, ok := l.m[key]
	delete(l.m, key)
	l.mu.Unlock()
	if ok {
		ls.ctrl.End(ctx)
	}
}

// sessionState is the snapshot returned by most live-session endpoints.
type sessionState struct {
	InterviewID string                `json:"interview_id"`
	Current     int                   `json:"current"`
	Question    string                `json:"question"`
	Capture     model.CaptureState    `json:"capture"`
	Interim     string                `json:"interim,omitempty"`
	Progress    model.SessionProgress `json:"progress"`
	Ended       bool                  `json:"ended"`
	Notices     []notify.Notice       `json:"notices,omitempty"`
}

func (h *Handler) stateFor(iv *model.Interview, ls *liveSession) sessionState {
	ctrl := ls.ctrl
	cs := ctrl.Capture()
	st := sessionState{
		InterviewID: iv.ID,
		Current:     ctrl.Current(),
		Question:    ctrl.Question().Question,
		Capture:     cs.State(),
		Interim:     cs.Interim(),
		Progress:    ctrl.Progress(),
		Ended:       ctrl.Ended(),
		Notices:     ls.rec.Notices(),
	}
	ls.rec.Reset()
	return st
}

// loadLive fetches the interview and its live session, writing the error
// response when either is missing.
func (h *Handler) loadLive(w http.ResponseWriter, r *http.Request) (*model.Interview, *liveSession) {
	iv := h.loadInterview(w, r)
	if iv == nil {
		return nil, nil
	}
	user := model.UserFromContext(r.Context())
	ls, ok := h.live.get(sessionKey(user.ID, iv.ID))
	if !ok {
		respondError(w, http.StatusNotFound, "no active session for this interview")
		return nil, nil
	}
	return iv, ls
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	iv := h.loadInterview(w, r)
	if iv == nil {
		return
	}
	if len(iv.Questions) == 0 {
		respondError(w, http.StatusConflict, "interview has no questions")
		return
	}
	user := model.UserFromContext(r.Context())

	sttCfg := stt.Config{SampleRate: h.config.STTSampleRate, Language: h.config.STTLanguage}
	if sttCfg.SampleRate == 0 {
		sttCfg.SampleRate = 16000
	}
	if sttCfg.Language == "" {
		sttCfg.Language = "en"
	}
	rec := &notify.Recorder{}
	ctrl := session.NewController(iv, user.ID, h.llm, h.store, rec, h.provider, h.device, sttCfg)
	ls := &liveSession{ctrl: ctrl, rec: rec}
	h.live.put(r.Context(), user.ID, sessionKey(user.ID, iv.ID), ls)

	slog.Info("started practice session", "interview", iv.ID, "user", user.ID)
	respondJSON(w, http.StatusCreated, h.stateFor(iv, ls))
}

func (h *Handler) handleSessionState(w http.ResponseWriter, r *http.Request) {
	iv, ls := h.loadLive(w, r)
	if ls == nil {
		return
	}
	respondJSON(w, http.StatusOK, h.stateFor(iv, ls))
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	iv := h.loadInterview(w, r)
	if iv == nil {
		return
	}
	user := model.UserFromContext(r.Context())
	h.live.end(r.Context(), sessionKey(user.ID, iv.ID))
	respondJSON(w, http.StatusOK, map[string]string{"message": "session ended"})
}

// sessionOp runs op on the live session and responds with the new state,
// translating the controller's sentinel errors to HTTP statuses.
func (h *Handler) sessionOp(w http.ResponseWriter, r *http.Request, op func(context.Context, *session.Controller) error) {
	iv, ls := h.loadLive(w, r)
	if ls == nil {
		return
	}
	if err := op(r.Context(), ls.ctrl); err != nil {
		h.respondSessionError(w, r, iv, ls, err)
		return
	}
	respondJSON(w, http.StatusOK, h.stateFor(iv, ls))
}

func (h *Handler) respondSessionError(w http.ResponseWriter, r *http.Request, iv *model.Interview, ls *liveSession, err error) {
	st := h.stateFor(iv, ls)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrSessionEnded):
		status = http.StatusConflict
	case errors.Is(err, session.ErrStaleResult):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNoSuchQuestion):
		status = http.StatusBadRequest
	case errors.Is(err, capture.ErrTranscriptTooShort):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, capture.ErrNotRecording), errors.Is(err, capture.ErrAlreadyRecording):
		status = http.StatusConflict
	}
	respondJSON(w, status, map[string]any{"error": err.Error(), "state": st})
}

func (h *Handler) handleGoNext(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, func(ctx context.Context, c *session.Controller) error {
		return c.GoNext(ctx)
	})
}

func (h *Handler) handleGoPrevious(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, func(ctx context.Context, c *session.Controller) error {
		return c.GoPrevious(ctx)
	})
}

func (h *Handler) handleSelectQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.sessionOp(w, r, func(ctx context.Context, c *session.Controller) error {
		return c.SelectQuestion(ctx, req.Index)
	})
}

func (h *Handler) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, func(ctx context.Context, c *session.Controller) error {
		return c.StartRecording(ctx)
	})
}

func (h *Handler) handleRetake(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, func(ctx context.Context, c *session.Controller) error {
		return c.RetakeAnswer(ctx)
	})
}

func (h *Handler) handleToggleWebcam(w http.ResponseWriter, r *http.Request) {
	h.sessionOp(w, r, func(ctx context.Context, c *session.Controller) error {
		return c.ToggleWebcam(ctx)
	})
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	iv, ls := h.loadLive(w, r)
	if ls == nil {
		return
	}
	scored, err := ls.ctrl.SubmitAnswer(r.Context())
	if err != nil {
		h.respondSessionError(w, r, iv, ls, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"answer": scored,
		"state":  h.stateFor(iv, ls),
	})
}

// handleAudioStream accepts a websocket connection and forwards binary
// frames into the current question's recording.
func (h *Handler) handleAudioStream(w http.ResponseWriter, r *http.Request) {
	_, ls := h.loadLive(w, r)
	if ls == nil {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				conn.Close(websocket.StatusNormalClosure, "")
			}
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}
		if err := ls.ctrl.SendAudio(data); err != nil {
			if errors.Is(err, capture.ErrNotRecording) {
				// Frames may race the stop; drop them.
				continue
			}
			slog.Error("forward audio frame", "error", err)
			conn.Close(websocket.StatusInternalError, "audio forwarding failed")
			return
		}
	}
}
