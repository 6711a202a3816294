// Package stt defines the speech-to-text collaborator interface. A provider
// wraps a streaming transcription service and exposes two transcript streams:
// low-latency interim fragments for live preview, and finalized fragments
// that become part of the committed answer transcript.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Transcript is one recognition result emitted by a provider.
type Transcript struct {
	// Text is the recognized speech for this fragment.
	Text string

	// IsFinal reports whether the provider has committed to this result.
	// Only final fragments may enter the answer transcript; interim ones are
	// preview-only and will be superseded.
	IsFinal bool

	// Confidence is the provider's confidence in [0,1], when reported.
	Confidence float64
}

// Config describes the audio format for a new transcription stream.
type Config struct {
	// SampleRate is the audio sample rate in Hz.
	SampleRate int

	// Language is the BCP-47 language tag for recognition. Empty lets the
	// provider auto-detect, if supported.
	Language string
}

// Stream is an open transcription session. Callers must Close it when the
// recording ends; failing to do so may leak goroutines and connections
// inside the provider.
type Stream interface {
	// SendAudio delivers a chunk of raw PCM audio for transcription.
	// Calling SendAudio after Close returns an error.
	SendAudio(chunk []byte) error

	// Interim returns a read-only channel of preliminary results. Closed when
	// the stream ends.
	Interim() <-chan Transcript

	// Finals returns a read-only channel of committed results. Closed when
	// the stream ends.
	Finals() <-chan Transcript

	// Close flushes pending audio and releases the stream. Calling Close more
	// than once is safe and returns nil.
	Close() error
}

// Provider opens transcription streams.
type Provider interface {
	// StartStream opens a new streaming transcription session. The returned
	// Stream is ready to accept audio immediately. The caller owns it and
	// must call Close when done.
	StartStream(ctx context.Context, cfg Config) (Stream, error)
}
