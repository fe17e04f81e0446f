package stt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/naosocial/go-naochat/internal/log"
)

const (
	voskEngineName = "vosk"
	voskLanguage   = "it-IT"

	// chunkBytes is how much PCM goes out per websocket frame, 4000 frames
	// of 16-bit audio at a time.
	chunkBytes = 8000

	probeTimeout = 2 * time.Second
)

// voskInstructions is shown to the operator when the recognizer cannot be
// reached.
const voskInstructions = `Il server Vosk non risponde. Per installarlo:

1. Scarica il modello italiano da https://alphacephei.com/vosk/models
   (consigliato: vosk-model-it-0.22)
2. Avvia vosk-server sulla porta 2700, ad esempio con Docker:
   docker run -d -p 2700:2700 -v /path/vosk-model-it:/opt/vosk-model/model \
     alphacep/kaldi-en:latest
3. Verifica con: GET /stt/status

In alternativa imposta VOSK_SERVER_URL sull'indirizzo del server attivo.`

// Vosk recognizes speech through a vosk-server instance speaking the Kaldi
// websocket protocol: a config message, binary PCM frames, then {"eof": 1}
// to flush the final result.
type Vosk struct {
	url    string
	dialer *websocket.Dialer

	mu        sync.Mutex
	reachable bool
	checked   time.Time
}

// NewVosk creates a Vosk engine pointed at a vosk-server websocket URL,
// typically ws://localhost:2700. No connection is made until the first use.
func NewVosk(url string) *Vosk {
	return &Vosk{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: probeTimeout},
	}
}

// Transcribe implements Engine.
func (v *Vosk) Transcribe(ctx context.Context, wavData []byte) (*Result, error) {
	start := time.Now()

	clip, err := decodeWAV(wavData)
	if err != nil {
		return nil, err
	}

	text, err := v.recognize(ctx, clip)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrNoSpeech
	}

	elapsed := time.Since(start)
	log.Info("transcription completed", "engine", voskEngineName, "words", wordCount(text), "elapsed", elapsed)

	return &Result{
		Text:      text,
		Language:  voskLanguage,
		Engine:    voskEngineName,
		WordCount: wordCount(text),
		Elapsed:   elapsed,
	}, nil
}

// recognize streams the clip to vosk-server and joins the recognized
// segments. Utterance boundaries arrive as intermediate "text" results; the
// eof reply carries the last one.
func (v *Vosk) recognize(ctx context.Context, clip *pcmClip) (string, error) {
	conn, _, err := v.dialer.DialContext(ctx, v.url, nil)
	if err != nil {
		v.setReachable(false)
		log.Error("vosk server unreachable", "url", v.url, "error", err)
		return "", &UnavailableError{Reason: err.Error(), Instructions: voskInstructions}
	}
	defer conn.Close()
	v.setReachable(true)

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
		conn.SetWriteDeadline(deadline)
	}

	config := map[string]map[string]int{"config": {"sample_rate": clip.sampleRate}}
	if err := conn.WriteJSON(config); err != nil {
		return "", &UnavailableError{Reason: err.Error(), Instructions: voskInstructions}
	}

	var segments []string
	collect := func(payload []byte) {
		var res struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(payload, &res); err != nil {
			log.Warn("unparseable recognizer message", "error", err)
			return
		}
		if t := strings.TrimSpace(res.Text); t != "" {
			segments = append(segments, t)
		}
	}

	for off := 0; off < len(clip.data); off += chunkBytes {
		end := off + chunkBytes
		if end > len(clip.data) {
			end = len(clip.data)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, clip.data[off:end]); err != nil {
			return "", &UnavailableError{Reason: err.Error(), Instructions: voskInstructions}
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return "", &UnavailableError{Reason: err.Error(), Instructions: voskInstructions}
		}
		collect(payload)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return "", &UnavailableError{Reason: err.Error(), Instructions: voskInstructions}
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		return "", &UnavailableError{Reason: err.Error(), Instructions: voskInstructions}
	}
	collect(payload)

	return strings.Join(segments, " "), nil
}

// Available implements Engine. Reachability is probed at most once per
// probeTimeout window so the status endpoint stays cheap.
func (v *Vosk) Available() bool {
	v.mu.Lock()
	if time.Since(v.checked) < probeTimeout {
		reachable := v.reachable
		v.mu.Unlock()
		return reachable
	}
	v.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	conn, _, err := v.dialer.DialContext(ctx, v.url, nil)
	if err != nil {
		v.setReachable(false)
		return false
	}
	conn.Close()
	v.setReachable(true)
	return true
}

// Status implements Engine.
func (v *Vosk) Status() Status {
	available := v.Available()

	state := "unavailable"
	model := ""
	if available {
		state = "available"
		model = "vosk-model-it"
	}

	return Status{
		Status:  "online",
		Message: "NAO Smart AI Server - Running",
		Version: "1.0.0",
		Service: "NAO STT Server",
		Engines: map[string]EngineStatus{
			voskEngineName: {
				Status:      state,
				Description: "Offline Speech Recognition",
				Endpoint:    "/stt/vosk",
				Offline:     true,
			},
		},
		VoskModel: model,
		Timestamp: statusTimestamp(),
	}
}

func (v *Vosk) setReachable(ok bool) {
	v.mu.Lock()
	v.reachable = ok
	v.checked = time.Now()
	v.mu.Unlock()
}

var _ Engine = (*Vosk)(nil)
