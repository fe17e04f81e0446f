package stt

import (
	"context"
	"time"
)

// Mock implements Engine for testing.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	TranscribeFunc func(ctx context.Context, wavData []byte) (*Result, error)

	// AvailableFunc overrides Available; nil means always available.
	AvailableFunc func() bool
}

// NewMock creates a mock engine that recognizes the given text for every
// clip.
func NewMock(text string) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, wavData []byte) (*Result, error) {
			return &Result{
				Text:      text,
				Language:  voskLanguage,
				Engine:    "mock",
				WordCount: wordCount(text),
				Elapsed:   time.Millisecond,
			}, nil
		},
	}
}

// Transcribe calls TranscribeFunc.
func (m *Mock) Transcribe(ctx context.Context, wavData []byte) (*Result, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, wavData)
	}
	return nil, ErrNoSpeech
}

// Available calls AvailableFunc if set.
func (m *Mock) Available() bool {
	if m.AvailableFunc != nil {
		return m.AvailableFunc()
	}
	return true
}

// Status reports a synthetic snapshot.
func (m *Mock) Status() Status {
	state := "unavailable"
	if m.Available() {
		state = "available"
	}
	return Status{
		Status:  "online",
		Message: "NAO Smart AI Server - Running",
		Version: "1.0.0",
		Service: "NAO STT Server",
		Engines: map[string]EngineStatus{
			"mock": {Status: state, Description: "Mock Speech Recognition", Endpoint: "/stt/vosk", Offline: true},
		},
		Timestamp: statusTimestamp(),
	}
}

var _ Engine = (*Mock)(nil)
