package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/mockview/internal/i18n"
	"github.com/pavelanni/mockview/internal/llm"
	"github.com/pavelanni/mockview/internal/model"
	"github.com/pavelanni/mockview/internal/notify"
	"github.com/pavelanni/mockview/internal/store"
	"github.com/pavelanni/mockview/internal/stt"
	"github.com/pavelanni/mockview/internal/stt/sttmock"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("en"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeLLM serves OpenAI-style chat completions with a switchable reply.
type fakeLLM struct {
	mu      sync.Mutex
	content string
}

func (f *fakeLLM) set(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content = content
}

func (f *fakeLLM) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	content := f.content
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
}

// scriptedProvider hands out a fresh mock stream per start and remembers
// them so tests can feed transcripts in.
type scriptedProvider struct {
	mu      sync.Mutex
	streams []*sttmock.Stream
}

func (p *scriptedProvider) StartStream(_ context.Context, _ stt.Config) (stt.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := sttmock.NewStream()
	p.streams = append(p.streams, s)
	return s, nil
}

func (p *scriptedProvider) last() *sttmock.Stream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streams[len(p.streams)-1]
}

type testEnv struct {
	t        *testing.T
	srv      *httptest.Server
	client   *http.Client
	llm      *fakeLLM
	provider *scriptedProvider
	store    *store.Store
	notices  *notify.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if _, err := s.CreateUser(model.User{
		Username:     "alice",
		DisplayName:  "Alice",
		PasswordHash: string(hash),
		Role:         model.UserRoleCandidate,
		Active:       true,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	fake := &fakeLLM{}
	llmSrv := httptest.NewServer(fake)
	t.Cleanup(llmSrv.Close)

	provider := &scriptedProvider{}
	h := New(s, llm.New(llmSrv.URL, "test-key", "test-model", 0), provider, nil, model.AppConfig{})
	notices := &notify.Recorder{}
	h.notifier = notices

	r := chi.NewRouter()
	h.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testEnv{
		t:        t,
		srv:      srv,
		client:   &http.Client{Jar: jar},
		llm:      fake,
		provider: provider,
		store:    s,
		notices:  notices,
	}
}

func (e *testEnv) csrfToken() string {
	u, _ := url.Parse(e.srv.URL)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == csrfCookieName {
			return c.Value
		}
	}
	return ""
}

// do issues a request with the session cookie and, for mutating methods, the
// CSRF header. The decoded JSON body lands in out when it is non-nil.
func (e *testEnv) do(method, path string, body any, out any) *http.Response {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if method != "GET" {
		req.Header.Set(csrfHeaderName, e.csrfToken())
	}
	resp, err := e.client.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			e.t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp
}

func (e *testEnv) login() {
	e.t.Helper()
	resp := e.do("POST", "/api/login", loginRequest{Username: "alice", Password: "secret"}, nil)
	if resp.StatusCode != http.StatusOK {
		e.t.Fatalf("login status = %d", resp.StatusCode)
	}
	// Prime the CSRF cookie.
	if resp := e.do("GET", "/api/interviews", nil, nil); resp.StatusCode != http.StatusOK {
		e.t.Fatalf("list status = %d", resp.StatusCode)
	}
}

const questionsJSON = `[
  {"question": "What is a goroutine?", "answer": "A lightweight thread managed by the Go runtime."},
  {"question": "What is a channel?", "answer": "A typed conduit for communication between goroutines."}
]`

func (e *testEnv) createInterview() *model.Interview {
	e.t.Helper()
	e.llm.set(questionsJSON)
	var iv model.Interview
	resp := e.do("POST", "/api/interviews", interviewRequest{
		Position:    "Backend Developer",
		Description: "APIs and services in Go",
		Experience:  3,
		TechStack:   "Go, PostgreSQL",
	}, &iv)
	if resp.StatusCode != http.StatusCreated {
		e.t.Fatalf("create interview status = %d", resp.StatusCode)
	}
	return &iv
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do("GET", "/api/interviews", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do("POST", "/api/login", loginRequest{Username: "alice", Password: "wrong"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCSRFRequired(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	req, _ := http.NewRequest("POST", e.srv.URL+"/api/interviews",
		bytes.NewBufferString(`{"position":"SRE"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestInterviewLifecycle(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	iv := e.createInterview()
	if len(iv.Questions) != 2 {
		t.Fatalf("created interview has %d questions, want 2", len(iv.Questions))
	}
	if iv.ID == "" || iv.Position != "Backend Developer" {
		t.Errorf("interview = %+v", iv)
	}
	notices := e.notices.Notices()
	if len(notices) != 1 || notices[0].Level != notify.LevelSuccess {
		t.Errorf("notices after create = %+v, want one success notice", notices)
	}

	var list []model.Interview
	if resp := e.do("GET", "/api/interviews", nil, &list); resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	if len(list) != 1 {
		t.Fatalf("list has %d interviews, want 1", len(list))
	}

	var got model.Interview
	if resp := e.do("GET", "/api/interviews/"+iv.ID, nil, &got); resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if got.ID != iv.ID {
		t.Errorf("got interview %q, want %q", got.ID, iv.ID)
	}

	if resp := e.do("DELETE", "/api/interviews/"+iv.ID, nil, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if resp := e.do("GET", "/api/interviews/"+iv.ID, nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateInterviewGenerationFailure(t *testing.T) {
	e := newTestEnv(t)
	e.login()

	// Reply with prose containing no question array.
	e.llm.set("I cannot help with that.")
	resp := e.do("POST", "/api/interviews", interviewRequest{Position: "SRE"}, nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestPracticeSessionFlow(t *testing.T) {
	e := newTestEnv(t)
	e.login()
	iv := e.createInterview()
	base := "/api/interviews/" + iv.ID + "/session"

	var state sessionState
	if resp := e.do("POST", base, nil, &state); resp.StatusCode != http.StatusCreated {
		t.Fatalf("start session status = %d", resp.StatusCode)
	}
	if state.Current != 0 || state.Question != iv.Questions[0].Question {
		t.Errorf("initial state = %+v", state)
	}

	if resp := e.do("POST", base+"/record", nil, &state); resp.StatusCode != http.StatusOK {
		t.Fatalf("record status = %d", resp.StatusCode)
	}
	if state.Capture.Status != model.CaptureRecording {
		t.Fatalf("capture status = %q, want recording", state.Capture.Status)
	}

	e.provider.last().FinalsCh <- stt.Transcript{
		Text:    "a goroutine is a lightweight thread managed by the go runtime",
		IsFinal: true,
	}
	e.llm.set(`{"ratings": 8, "feedback": "Good coverage of the scheduler."}`)

	var submit struct {
		Answer model.ScoredAnswer `json:"answer"`
		State  sessionState       `json:"state"`
	}
	if resp := e.do("POST", base+"/answer", nil, &submit); resp.StatusCode != http.StatusOK {
		t.Fatalf("answer status = %d", resp.StatusCode)
	}
	if submit.Answer.Rating != 8 {
		t.Errorf("rating = %d, want 8", submit.Answer.Rating)
	}
	if !submit.State.Capture.Attempted {
		t.Error("capture not marked attempted after scoring")
	}
	if submit.State.Progress.AttemptedCount != 1 {
		t.Errorf("attempted = %d, want 1", submit.State.Progress.AttemptedCount)
	}

	// The scored answer was persisted.
	var feedback feedbackResponse
	if resp := e.do("GET", "/api/interviews/"+iv.ID+"/feedback", nil, &feedback); resp.StatusCode != http.StatusOK {
		t.Fatalf("feedback status = %d", resp.StatusCode)
	}
	if len(feedback.Answers) != 1 {
		t.Fatalf("feedback has %d answers, want 1", len(feedback.Answers))
	}
	if feedback.OverallRating != "8.0" {
		t.Errorf("overall rating = %q, want 8.0", feedback.OverallRating)
	}
	if feedback.Buckets.High != 1 {
		t.Errorf("buckets = %+v, want one high", feedback.Buckets)
	}

	if resp := e.do("POST", base+"/next", nil, &state); resp.StatusCode != http.StatusOK {
		t.Fatalf("next status = %d", resp.StatusCode)
	}
	if state.Current != 1 || state.Question != iv.Questions[1].Question {
		t.Errorf("state after next = %+v", state)
	}

	if resp := e.do("POST", base+"/webcam", nil, &state); resp.StatusCode != http.StatusOK {
		t.Fatalf("webcam status = %d", resp.StatusCode)
	}
	if !state.Capture.WebcamOn {
		t.Error("webcam not on after toggle")
	}

	if resp := e.do("DELETE", base, nil, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("end session status = %d", resp.StatusCode)
	}
	if resp := e.do("POST", base+"/record", nil, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("record after end status = %d, want 404", resp.StatusCode)
	}
}

func TestSubmitShortAnswer(t *testing.T) {
	e := newTestEnv(t)
	e.login()
	iv := e.createInterview()
	base := "/api/interviews/" + iv.ID + "/session"

	e.do("POST", base, nil, nil)
	e.do("POST", base+"/record", nil, nil)
	e.provider.last().FinalsCh <- stt.Transcript{Text: "too short", IsFinal: true}

	resp := e.do("POST", base+"/answer", nil, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestAudioWebsocket(t *testing.T) {
	e := newTestEnv(t)
	e.login()
	iv := e.createInterview()
	base := "/api/interviews/" + iv.ID + "/session"

	e.do("POST", base, nil, nil)
	e.do("POST", base+"/record", nil, nil)
	stream := e.provider.last()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, e.srv.URL+base+"/audio", &websocket.DialOptions{
		HTTPClient: e.client,
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	frame := []byte{0x01, 0x02, 0x03, 0x04}
	if err := conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(stream.Frames()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("frame never reached the transcription stream")
		}
		time.Sleep(10 * time.Millisecond)
	}
	got := stream.Frames()[0]
	if !bytes.Equal(got, frame) {
		t.Errorf("frame = %v, want %v", got, frame)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}
