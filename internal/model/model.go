package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleCandidate is a regular interview-practice user.
	UserRoleCandidate UserRole = "candidate"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Question is one generated interview question together with the reference
// answer the user's response is scored against. Immutable once loaded.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Interview is a user-defined mock interview: the target role plus the
// AI-generated question set.
type Interview struct {
	ID          string     `json:"id"`
	UserID      int64      `json:"user_id"`
	Position    string     `json:"position"`
	Description string     `json:"description"`
	Experience  int        `json:"experience"`
	TechStack   string     `json:"tech_stack"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ScoredAnswer is the result of one scoring round. Rating is always an
// integer in [0,10]; malformed model output is coerced to 0 with an
// explanatory feedback message before it reaches this type.
type ScoredAnswer struct {
	QuestionIndex int    `json:"question_index"`
	QuestionText  string `json:"question_text"`
	UserAnswer    string `json:"user_answer"`
	Rating        int    `json:"rating"`
	Feedback      string `json:"feedback"`
}

// UserAnswer is the persisted record of one answered question.
type UserAnswer struct {
	ID          string    `json:"id"`
	InterviewID string    `json:"interview_id"`
	UserID      int64     `json:"user_id"`
	Question    string    `json:"question"`
	CorrectAns  string    `json:"correct_ans"`
	UserAns     string    `json:"user_ans"`
	Feedback    string    `json:"feedback"`
	Rating      int       `json:"rating"`
	CreatedAt   time.Time `json:"created_at"`
}

// CaptureStatus represents the recording state of a single question's capture.
type CaptureStatus string

const (
	CaptureIdle      CaptureStatus = "idle"
	CaptureRecording CaptureStatus = "recording"
	CaptureStopped   CaptureStatus = "stopped"
)

// CaptureState is the per-question capture snapshot exposed to callers.
type CaptureState struct {
	Status     CaptureStatus `json:"status"`
	Transcript string        `json:"transcript"`
	WebcamOn   bool          `json:"webcam_on"`
	Attempted  bool          `json:"attempted"`
}

// SessionProgress is derived from the per-question attempted flags.
type SessionProgress struct {
	AttemptedCount int  `json:"attempted_count"`
	TotalQuestions int  `json:"total_questions"`
	Complete       bool `json:"complete"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	LLMTimeout    time.Duration // bound on a single completion call
	SecureCookies bool          // Set Secure flag on cookies (disable for local dev)
	BasePath      string        // URL prefix for sub-path deployments
	STTLanguage   string        // transcription language
	STTSampleRate int           // audio sample rate in Hz
}
