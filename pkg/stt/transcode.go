package stt

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"github.com/naosocial/go-naochat/internal/log"
)

const ffmpegInstructions = `ffmpeg non trovato nel PATH. Installalo con:
  Debian/Ubuntu: sudo apt install ffmpeg
  macOS:         brew install ffmpeg`

// Transcode converts an audio clip in any container ffmpeg understands into
// the mono 16-bit 16 kHz WAV the recognizer expects. Used by the fast upload
// path so clients can send whatever their recorder produces.
func Transcode(ctx context.Context, audio []byte) ([]byte, error) {
	if len(audio) == 0 {
		return nil, &FormatError{Reason: "file audio troppo piccolo o vuoto"}
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ac", "1",
		"-ar", "16000",
		"-sample_fmt", "s16",
		"-f", "wav",
		"pipe:1",
	)
	cmd.Stdin = bytes.NewReader(audio)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &UnavailableError{Reason: "ffmpeg non installato", Instructions: ffmpegInstructions}
		}
		log.Warn("ffmpeg transcode failed", "error", err, "stderr", stderr.String())
		return nil, &FormatError{Reason: "transcodifica audio fallita: " + stderr.String()}
	}

	return out.Bytes(), nil
}
