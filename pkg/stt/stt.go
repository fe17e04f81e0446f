// Package stt provides speech-to-text for uploaded audio clips.
//
// The only production engine is Vosk, reached over a websocket connection to
// a local vosk-server instance. The engine being down is a degraded mode, not
// a fatal one: callers get an UnavailableError carrying installation guidance
// while the rest of the service keeps working.
package stt

import (
	"context"
	"errors"
	"time"
)

// ErrNoSpeech means the engine ran but recognized no text. This is a caller
// outcome, not a system fault.
var ErrNoSpeech = errors.New("stt: no recognizable speech")

// FormatError reports an upload that failed audio validation before reaching
// the engine.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "stt: " + e.Reason
}

// UnavailableError means the engine could not be reached or is not set up.
// Instructions tell the operator how to fix that.
type UnavailableError struct {
	Reason       string
	Instructions string
}

func (e *UnavailableError) Error() string {
	return "stt: engine unavailable: " + e.Reason
}

// Result is a completed transcription.
type Result struct {
	Text      string
	Language  string
	Engine    string
	WordCount int
	Elapsed   time.Duration
}

// EngineStatus describes one engine for the status endpoint.
type EngineStatus struct {
	Status      string `json:"status"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint"`
	Offline     bool   `json:"offline"`
}

// Status is the diagnostic snapshot returned by GET /stt/status.
type Status struct {
	Status    string                  `json:"status"`
	Message   string                  `json:"message"`
	Version   string                  `json:"version"`
	Service   string                  `json:"service"`
	Engines   map[string]EngineStatus `json:"engines"`
	VoskModel string                  `json:"vosk_model,omitempty"`
	Timestamp string                  `json:"timestamp"`
}

// Engine turns a WAV clip into text.
type Engine interface {
	// Transcribe recognizes speech in a mono 16-bit PCM WAV clip. It
	// returns ErrNoSpeech when nothing was recognized, a *FormatError for
	// invalid audio and an *UnavailableError when the engine is down.
	Transcribe(ctx context.Context, wavData []byte) (*Result, error)

	// Available reports whether the engine can currently serve requests.
	Available() bool

	// Status returns the diagnostic snapshot for this engine.
	Status() Status
}

func statusTimestamp() string {
	return time.Now().Format(time.RFC3339)
}

func wordCount(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		switch {
		case r == ' ' || r == '\t' || r == '\n':
			inWord = false
		case !inWord:
			inWord = true
			n++
		}
	}
	return n
}
