// Package handler exposes the JSON API: authentication, interview CRUD,
// live practice sessions with websocket audio ingest, and feedback reports.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pavelanni/mockview/internal/capture"
	"github.com/pavelanni/mockview/internal/i18n"
	"github.com/pavelanni/mockview/internal/llm"
	"github.com/pavelanni/mockview/internal/model"
	"github.com/pavelanni/mockview/internal/notify"
	"github.com/pavelanni/mockview/internal/report"
	"github.com/pavelanni/mockview/internal/store"
	"github.com/pavelanni/mockview/internal/stt"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	llm      *llm.Client
	provider stt.Provider
	device   capture.MediaDevice
	notifier notify.Notifier
	config   model.AppConfig

	live *liveSessions
}

// New creates a new Handler. A nil device defaults to capture.NullDevice.
func New(s *store.Store, l *llm.Client, provider stt.Provider, device capture.MediaDevice, cfg model.AppConfig) *Handler {
	if device == nil {
		device = capture.NullDevice{}
	}
	return &Handler{
		store:    s,
		llm:      l,
		provider: provider,
		device:   device,
		notifier: notify.Log{},
		config:   cfg,
		live:     newLiveSessions(),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(h.csrfMiddleware)

		r.Route("/api/interviews", func(r chi.Router) {
			r.Get("/", h.handleListInterviews)
			r.Post("/", h.handleCreateInterview)
			r.Route("/{interviewID}", func(r chi.Router) {
				r.Get("/", h.handleGetInterview)
				r.Put("/", h.handleUpdateInterview)
				r.Delete("/", h.handleDeleteInterview)
				r.Get("/feedback", h.handleFeedback)

				r.Route("/session", func(r chi.Router) {
					r.Post("/", h.handleStartSession)
					r.Get("/", h.handleSessionState)
					r.Delete("/", h.handleEndSession)
					r.Post("/next", h.handleGoNext)
					r.Post("/previous", h.handleGoPrevious)
					r.Post("/select", h.handleSelectQuestion)
					r.Post("/record", h.handleStartRecording)
					r.Post("/retake", h.handleRetake)
					r.Post("/webcam", h.handleToggleWebcam)
					r.Post("/answer", h.handleSubmitAnswer)
					r.Get("/audio", h.handleAudioStream)
				})
			})
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

type interviewRequest struct {
	Position    string `json:"position"`
	Description string `json:"description"`
	Experience  int    `json:"experience"`
	TechStack   string `json:"tech_stack"`
}

func (h *Handler) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req interviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Position) == "" {
		respondError(w, http.StatusBadRequest, "position is required")
		return
	}

	questions, err := h.llm.GenerateQuestions(r.Context(), req.Position, req.Description, req.TechStack, req.Experience)
	if err != nil {
		slog.Error("generate questions", "position", req.Position, "error", err)
		respondError(w, http.StatusBadGateway, i18n.T(r.Context(), "GenerationFailed"))
		return
	}
	if len(questions) == 0 {
		respondError(w, http.StatusBadGateway, i18n.T(r.Context(), "GenerationFailed"))
		return
	}

	now := time.Now()
	iv := &model.Interview{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Position:    req.Position,
		Description: req.Description,
		Experience:  req.Experience,
		TechStack:   req.TechStack,
		Questions:   questions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.CreateInterview(iv); err != nil {
		slog.Error("create interview", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	slog.Info("created interview", "id", iv.ID, "position", iv.Position, "questions", len(questions))
	h.notifier.Notify(r.Context(), notify.LevelSuccess, i18n.T(r.Context(), "InterviewCreated"))
	respondJSON(w, http.StatusCreated, iv)
}

func (h *Handler) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	interviews, err := h.store.ListInterviewsByUser(user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if interviews == nil {
		interviews = []model.Interview{}
	}
	respondJSON(w, http.StatusOK, interviews)
}

// loadInterview fetches the interview from the URL and checks ownership.
// Admins may read any interview.
func (h *Handler) loadInterview(w http.ResponseWriter, r *http.Request) *model.Interview {
	user := model.UserFromContext(r.Context())
	iv, err := h.store.GetInterview(chi.URLParam(r, "interviewID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if iv == nil {
		respondError(w, http.StatusNotFound, "interview not found")
		return nil
	}
	if iv.UserID != user.ID && user.Role != model.UserRoleAdmin {
		respondError(w, http.StatusForbidden, "forbidden")
		return nil
	}
	return iv
}

func (h *Handler) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	iv := h.loadInterview(w, r)
	if iv == nil {
		return
	}
	respondJSON(w, http.StatusOK, iv)
}

func (h *Handler) handleUpdateInterview(w http.ResponseWriter, r *http.Request) {
	iv := h.loadInterview(w, r)
	if iv == nil {
		return
	}

	var req interviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Position) == "" {
		respondError(w, http.StatusBadRequest, "position is required")
		return
	}

	iv.Position = req.Position
	iv.Description = req.Description
	iv.Experience = req.Experience
	iv.TechStack = req.TechStack
	if err := h.store.UpdateInterview(iv); err != nil {
		slog.Error("update interview", "id", iv.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, iv)
}

func (h *Handler) handleDeleteInterview(w http.ResponseWriter, r *http.Request) {
	iv := h.loadInterview(w, r)
	if iv == nil {
		return
	}
	h.live.end(r.Context(), sessionKey(model.UserFromContext(r.Context()).ID, iv.ID))
	if err := h.store.DeleteInterview(iv.ID); err != nil {
		slog.Error("delete interview", "id", iv.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": i18n.T(r.Context(), "InterviewDeleted")})
}

type feedbackResponse struct {
	Interview     *model.Interview   `json:"interview"`
	Answers       []model.UserAnswer `json:"answers"`
	OverallRating string             `json:"overall_rating"`
	Buckets       report.Buckets     `json:"buckets"`
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	iv := h.loadInterview(w, r)
	if iv == nil {
		return
	}
	answers, err := h.store.ListAnswersForInterview(iv.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if answers == nil {
		answers = []model.UserAnswer{}
	}
	respondJSON(w, http.StatusOK, feedbackResponse{
		Interview:     iv,
		Answers:       answers,
		OverallRating: report.OverallRating(answers),
		Buckets:       report.RatingBuckets(answers),
	})
}
