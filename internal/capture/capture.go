// Package capture owns the microphone/webcam lifecycle and transcript
// assembly for a single interview question. A Session accumulates finalized
// speech-to-text fragments into the committed answer transcript and keeps the
// latest interim fragment as a live preview. Webcam acquisition failures are
// recoverable: the flag stays off, a notice is emitted, and the session
// continues.
package capture

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pavelanni/mockview/internal/i18n"
	"github.com/pavelanni/mockview/internal/model"
	"github.com/pavelanni/mockview/internal/notify"
	"github.com/pavelanni/mockview/internal/stt"
)

// MinTranscriptChars is the minimum answer length accepted for scoring.
const MinTranscriptChars = 30

var (
	// ErrTranscriptTooShort reports a stop on an answer below the minimum
	// length. Surfaced to the user; the session stays open for retry.
	ErrTranscriptTooShort = errors.New("capture: transcript too short")

	// ErrNotRecording reports a stop without a preceding start.
	ErrNotRecording = errors.New("capture: not recording")

	// ErrAlreadyRecording reports a start while a recording is in progress.
	ErrAlreadyRecording = errors.New("capture: already recording")
)

// VideoStream is an acquired camera stream. Closing it releases the device.
type VideoStream interface {
	Close() error
}

// MediaDevice is the media-device collaborator. Acquisition may fail with a
// permission or availability error; callers treat that as recoverable.
type MediaDevice interface {
	AcquireVideoStream(ctx context.Context) (VideoStream, error)
}

// NullDevice is a MediaDevice for deployments where the browser owns the
// camera and only mirrors the on/off flag to the server. Acquisition always
// succeeds with a no-op stream.
type NullDevice struct{}

// AcquireVideoStream returns a no-op stream.
func (NullDevice) AcquireVideoStream(_ context.Context) (VideoStream, error) {
	return nopVideo{}, nil
}

type nopVideo struct{}

func (nopVideo) Close() error { return nil }

// Session is the capture state for one question. Methods are safe for
// concurrent use with the collector goroutine that drains the STT stream.
type Session struct {
	provider stt.Provider
	device   MediaDevice
	notifier notify.Notifier
	sttCfg   stt.Config

	mu         sync.Mutex
	status     model.CaptureStatus
	starting   bool
	fragments  []string
	interim    string
	stream     stt.Stream
	video      VideoStream
	webcamOn   bool
	attempted  bool
	generation int
	done       chan struct{}
}

// NewSession creates an idle capture session. A nil notifier defaults to
// slog-backed notices.
func NewSession(provider stt.Provider, device MediaDevice, notifier notify.Notifier, cfg stt.Config) *Session {
	if notifier == nil {
		notifier = notify.Log{}
	}
	return &Session{
		provider: provider,
		device:   device,
		notifier: notifier,
		sttCfg:   cfg,
		status:   model.CaptureIdle,
	}
}

// StartRecording opens a transcription stream and begins accumulating
// finalized fragments. The transcript restarts from empty: the committed
// answer is whatever is heard between this start and the matching stop.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.status == model.CaptureRecording || s.starting {
		s.mu.Unlock()
		return ErrAlreadyRecording
	}
	// Claim the slot before the provider call so a concurrent start cannot
	// open a second stream.
	s.starting = true
	s.mu.Unlock()

	stream, err := s.provider.StartStream(ctx, s.sttCfg)

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.status = model.CaptureRecording
	s.fragments = nil
	s.interim = ""
	s.stream = stream
	s.generation++
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.collect(stream, s.done)
	return nil
}

// collect drains the stream until both channels close. Finalized fragments
// join the transcript; interim ones only update the preview.
func (s *Session) collect(stream stt.Stream, done chan struct{}) {
	defer close(done)

	interim := stream.Interim()
	finals := stream.Finals()
	for interim != nil || finals != nil {
		select {
		case t, ok := <-finals:
			if !ok {
				finals = nil
				continue
			}
			if t.Text == "" {
				continue
			}
			s.mu.Lock()
			if s.stream == stream {
				s.fragments = append(s.fragments, t.Text)
				s.interim = ""
			}
			s.mu.Unlock()
		case t, ok := <-interim:
			if !ok {
				interim = nil
				continue
			}
			s.mu.Lock()
			if s.stream == stream {
				s.interim = t.Text
			}
			s.mu.Unlock()
		}
	}
}

// SendAudio forwards an audio frame to the active transcription stream.
func (s *Session) SendAudio(frame []byte) error {
	s.mu.Lock()
	stream := s.stream
	recording := s.status == model.CaptureRecording
	s.mu.Unlock()
	if !recording || stream == nil {
		return ErrNotRecording
	}
	return stream.SendAudio(frame)
}

// StopRecording finalizes the transcript and returns it. The transition to
// Stopped happens regardless; a transcript below MinTranscriptChars returns
// ErrTranscriptTooShort with a user notice, and the caller must not proceed
// to scoring.
func (s *Session) StopRecording(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.status != model.CaptureRecording {
		s.mu.Unlock()
		return "", ErrNotRecording
	}
	stream := s.stream
	done := s.done
	s.status = model.CaptureStopped
	s.mu.Unlock()

	_ = stream.Close()
	<-done

	s.mu.Lock()
	transcript := strings.Join(s.fragments, " ")
	s.interim = ""
	s.stream = nil
	s.mu.Unlock()

	if utf8.RuneCountInString(transcript) < MinTranscriptChars {
		s.notifier.Notify(ctx, notify.LevelError,
			i18n.Td(ctx, "AnswerTooShort", map[string]any{"Min": MinTranscriptChars}))
		return transcript, ErrTranscriptTooShort
	}
	return transcript, nil
}

// ToggleWebcam acquires or releases the camera. Acquisition failure leaves
// the flag off and emits a recoverable notice; it never fails the session.
func (s *Session) ToggleWebcam(ctx context.Context) error {
	s.mu.Lock()
	if s.webcamOn {
		video := s.video
		s.video = nil
		s.webcamOn = false
		s.mu.Unlock()
		if video != nil {
			_ = video.Close()
		}
		s.notifier.Notify(ctx, notify.LevelInfo, i18n.T(ctx, "WebcamStopped"))
		return nil
	}
	s.mu.Unlock()

	video, err := s.device.AcquireVideoStream(ctx)
	if err != nil {
		s.notifier.Notify(ctx, notify.LevelError, i18n.T(ctx, "WebcamDenied"))
		return nil
	}

	s.mu.Lock()
	s.video = video
	s.webcamOn = true
	s.mu.Unlock()
	s.notifier.Notify(ctx, notify.LevelSuccess, i18n.T(ctx, "WebcamStarted"))
	return nil
}

// Deactivate stops any recording and releases the webcam without length
// validation. Used when the user navigates to another question.
func (s *Session) Deactivate(ctx context.Context) {
	s.mu.Lock()
	stream := s.stream
	done := s.done
	video := s.video
	if s.status == model.CaptureRecording {
		s.status = model.CaptureStopped
	}
	s.stream = nil
	s.video = nil
	s.webcamOn = false
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
		<-done
	}
	if video != nil {
		_ = video.Close()
	}
}

// Reset discards the transcript and returns to Idle. The attempted flag is
// preserved: re-recording does not erase completion history until a new
// score is actually saved.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	stream := s.stream
	done := s.done
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		_ = stream.Close()
		<-done
	}

	s.mu.Lock()
	s.status = model.CaptureIdle
	s.fragments = nil
	s.interim = ""
	s.generation++
	s.mu.Unlock()
}

// MarkAttempted records that a scoring round completed for this question.
func (s *Session) MarkAttempted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempted = true
}

// Attempted reports whether a scoring round has completed for this question.
func (s *Session) Attempted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempted
}

// Generation identifies the current recording round. It increments on every
// start and reset, so a result computed for an earlier round can be
// recognized as stale.
func (s *Session) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Transcript returns the committed transcript assembled so far.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.fragments, " ")
}

// Interim returns the live preview fragment, if any.
func (s *Session) Interim() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interim
}

// State returns a snapshot of the capture state.
func (s *Session) State() model.CaptureState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CaptureState{
		Status:     s.status,
		Transcript: strings.Join(s.fragments, " "),
		WebcamOn:   s.webcamOn,
		Attempted:  s.attempted,
	}
}
