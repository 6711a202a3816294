// Package sttmock provides test doubles for the stt interfaces.
//
// Tests pre-populate InterimCh and FinalsCh with the Transcript values the
// consumer should receive, then close them when done.
package sttmock

import (
	"context"
	"sync"

	"github.com/pavelanni/mockview/internal/stt"
)

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Stream is returned by StartStream. If nil, StartStream returns a new
	// Stream with buffered channels.
	Stream stt.Stream

	// StartErr, if non-nil, is returned as the error from StartStream.
	StartErr error

	// StartCalls counts StartStream invocations.
	StartCalls int
}

// StartStream records the call and returns Stream, StartErr.
func (p *Provider) StartStream(_ context.Context, _ stt.Config) (stt.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.StartCalls++
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	if p.Stream != nil {
		return p.Stream, nil
	}
	return NewStream(), nil
}

var _ stt.Provider = (*Provider)(nil)

// Stream is a mock implementation of stt.Stream.
type Stream struct {
	mu sync.Mutex

	// InterimCh is the channel returned by Interim(). Owned by the test.
	InterimCh chan stt.Transcript

	// FinalsCh is the channel returned by Finals(). Owned by the test.
	FinalsCh chan stt.Transcript

	// SendAudioErr, if non-nil, is returned by every SendAudio call.
	SendAudioErr error

	// Sent collects the frames passed to SendAudio.
	Sent [][]byte

	// CloseCount is the number of times Close was called.
	CloseCount int

	closeOnce sync.Once
}

// NewStream returns a Stream with buffered channels.
func NewStream() *Stream {
	return &Stream{
		InterimCh: make(chan stt.Transcript, 16),
		FinalsCh:  make(chan stt.Transcript, 16),
	}
}

// SendAudio records the frame and returns SendAudioErr.
func (s *Stream) SendAudio(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendAudioErr != nil {
		return s.SendAudioErr
	}
	s.Sent = append(s.Sent, frame)
	return nil
}

// Frames returns a copy of the frames received so far.
func (s *Stream) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.Sent))
	copy(out, s.Sent)
	return out
}

// Interim returns InterimCh.
func (s *Stream) Interim() <-chan stt.Transcript { return s.InterimCh }

// Finals returns FinalsCh.
func (s *Stream) Finals() <-chan stt.Transcript { return s.FinalsCh }

// Close records the call and closes both channels exactly once.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.CloseCount++
	s.mu.Unlock()
	s.closeOnce.Do(func() {
		close(s.InterimCh)
		close(s.FinalsCh)
	})
	return nil
}

// Closed reports whether Close has been called at least once.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCount > 0
}

var _ stt.Stream = (*Stream)(nil)
