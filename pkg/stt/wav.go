package stt

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-audio/wav"
)

// minAudioBytes rejects uploads too small to hold any speech.
const minAudioBytes = 1000

// pcmClip is a validated clip ready for the recognizer.
type pcmClip struct {
	sampleRate int
	data       []byte
}

// decodeWAV validates the container and extracts raw little-endian 16-bit PCM.
// The engine requires mono 16-bit audio; anything else is a *FormatError.
func decodeWAV(wavData []byte) (*pcmClip, error) {
	if len(wavData) < minAudioBytes {
		return nil, &FormatError{Reason: "file audio troppo piccolo o vuoto"}
	}

	dec := wav.NewDecoder(bytes.NewReader(wavData))
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, &FormatError{Reason: "file WAV non valido"}
	}

	if dec.NumChans != 1 {
		return nil, &FormatError{Reason: fmt.Sprintf("audio deve essere MONO (ricevuti %d canali)", dec.NumChans)}
	}
	if dec.BitDepth != 16 {
		return nil, &FormatError{Reason: fmt.Sprintf("audio deve essere 16bit (ricevuto %dbit)", dec.BitDepth)}
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &FormatError{Reason: "file WAV non valido: " + err.Error()}
	}

	data := make([]byte, 2*len(buf.Data))
	for i, sample := range buf.Data {
		binary.LittleEndian.PutUint16(data[2*i:], uint16(int16(sample)))
	}

	return &pcmClip{sampleRate: int(dec.SampleRate), data: data}, nil
}
