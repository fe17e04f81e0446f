package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/naosocial/go-naochat/pkg/actions"
	"github.com/naosocial/go-naochat/pkg/animation"
	"github.com/naosocial/go-naochat/pkg/chat"
	"github.com/naosocial/go-naochat/pkg/contract"
	"github.com/naosocial/go-naochat/pkg/inference"
	"github.com/naosocial/go-naochat/pkg/persona"
	"github.com/naosocial/go-naochat/pkg/stt"
)

const mockReply = `{"action": "NO_ACTION", "chunks": [{"text": "Ciao!", "movements": ["Hello_1"]}]}`

func newTestServer(t *testing.T, provider inference.Provider, engine stt.Engine) *Server {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "standard_system.txt"), []byte("Sei NAO."), 0o644); err != nil {
		t.Fatal(err)
	}
	registry := persona.NewRegistry(dir, "standard", "ISTRUZIONI")

	parser := contract.NewParser(
		animation.NewResolver(rand.NewSource(1)),
		actions.NewTable(nil),
		nil,
	)
	chatAPI := chat.New(provider, registry, parser, nil, 20)

	return NewServer("3030", chatAPI, engine)
}

func postJSON(t *testing.T, s *Server, path string, body string) (*http.Response, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unparseable response %q: %v", data, err)
	}
	return out
}

func postAudio(t *testing.T, s *Server, path string, audio []byte, fields map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if audio != nil {
		fw, err := w.CreateFormFile("audio", "clip.wav")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(audio)
	}
	for k, v := range fields {
		w.WriteField(k, v)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp, decodeBody(t, resp)
}

func TestChatTalk(t *testing.T) {
	s := newTestServer(t, inference.NewMock(mockReply), stt.NewMock("ciao"))

	resp, body := postJSON(t, s, "/chat", `{"action": "talk", "message": "ciao"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["success"] != true {
		t.Errorf("success = %v", body["success"])
	}
	if body["chat_id"] == "" || body["chat_id"] == nil {
		t.Error("chat_id missing")
	}

	response := body["response"].(map[string]any)
	chunks := response["chunks"].([]any)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if text := chunks[0].(map[string]any)["text"]; text != "Ciao!" {
		t.Errorf("chunk text = %v", text)
	}
}

func TestChatValidation(t *testing.T) {
	s := newTestServer(t, inference.NewMock(mockReply), stt.NewMock("ciao"))

	tests := []struct {
		name string
		body string
	}{
		{"no body", ``},
		{"missing action", `{"message": "ciao"}`},
		{"unknown action", `{"action": "dance"}`},
		{"talk without message", `{"action": "talk"}`},
		{"end without chat_id", `{"action": "end"}`},
		{"history without chat_id", `{"action": "history"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postJSON(t, s, "/chat", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
		})
	}
}

func TestChatEndAndHistory(t *testing.T) {
	s := newTestServer(t, inference.NewMock(mockReply), stt.NewMock("ciao"))

	_, body := postJSON(t, s, "/chat", `{"action": "talk", "message": "ciao"}`)
	chatID := body["chat_id"].(string)

	resp, body := postJSON(t, s, "/chat", `{"action": "history", "chat_id": "`+chatID+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d", resp.StatusCode)
	}
	history := body["history"].([]any)
	if len(history) != 2 {
		t.Errorf("expected 2 history messages, got %d", len(history))
	}

	resp, _ = postJSON(t, s, "/chat", `{"action": "end", "chat_id": "`+chatID+`"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d", resp.StatusCode)
	}

	resp, _ = postJSON(t, s, "/chat", `{"action": "end", "chat_id": "`+chatID+`"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second end status = %d, want 404", resp.StatusCode)
	}

	resp, _ = postJSON(t, s, "/chat", `{"action": "history", "chat_id": "`+chatID+`"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("history after end status = %d, want 404", resp.StatusCode)
	}
}

func TestChatPersonaSwitch(t *testing.T) {
	s := newTestServer(t, inference.NewMock(mockReply), stt.NewMock("ciao"))

	resp, body := postJSON(t, s, "/chat", `{"action": "talk", "message": "comando di sistema ora sarai standard"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["personality_changed"] != true {
		t.Errorf("personality_changed = %v", body["personality_changed"])
	}

	// Unknown persona is a conversational failure, still HTTP 200.
	resp, body = postJSON(t, s, "/chat", `{"action": "talk", "message": "abracadabra diventa inesistente"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["personality_changed"] != false {
		t.Errorf("personality_changed = %v, want false", body["personality_changed"])
	}
}

func TestChatInvalidModelOutput(t *testing.T) {
	s := newTestServer(t, inference.NewMock("garbage"), stt.NewMock("ciao"))

	resp, body := postJSON(t, s, "/chat", `{"action": "talk", "message": "ciao"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if !strings.Contains(body["error"].(string), "non valida") {
		t.Errorf("unexpected error %v", body["error"])
	}
}

func TestChatUpstreamError(t *testing.T) {
	provider := &inference.Mock{
		ChatFunc: func(ctx context.Context, req *inference.ChatRequest) (*inference.ChatResponse, error) {
			return nil, inference.WrapError("gemini", inference.ErrEmptyResponse)
		},
	}
	s := newTestServer(t, provider, stt.NewMock("ciao"))

	resp, body := postJSON(t, s, "/chat", `{"action": "talk", "message": "ciao"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	// Provider detail stays server-side.
	if strings.Contains(body["error"].(string), "gemini") {
		t.Errorf("error leaks provider detail: %v", body["error"])
	}
}

func TestAdmin(t *testing.T) {
	s := newTestServer(t, inference.NewMock(mockReply), stt.NewMock("ciao"))

	postJSON(t, s, "/chat", `{"action": "talk", "message": "ciao"}`)
	postJSON(t, s, "/chat", `{"action": "talk", "message": "ciao"}`)

	resp, body := postJSON(t, s, "/admin", `{"action": "list-chats"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["total_chats"].(float64) != 2 {
		t.Errorf("total_chats = %v", body["total_chats"])
	}
	if got := len(body["full_history"].([]any)); got != 4 {
		t.Errorf("full_history entries = %d, want 4", got)
	}

	resp, body = postJSON(t, s, "/admin", `{"action": "delete-chats"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if body["success"] != true {
		t.Errorf("delete success = %v", body["success"])
	}

	_, body = postJSON(t, s, "/admin", `{"action": "list-chats"}`)
	if body["total_chats"].(float64) != 0 {
		t.Errorf("total_chats after delete = %v", body["total_chats"])
	}

	resp, _ = postJSON(t, s, "/admin", `{"action": "explode"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown action status = %d, want 400", resp.StatusCode)
	}
}

func TestSTTUpload(t *testing.T) {
	s := newTestServer(t, inference.NewMock(mockReply), stt.NewMock("ciao come stai"))

	resp, body := postAudio(t, s, "/stt/vosk", []byte("fake wav bytes"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["success"] != true || body["text"] != "ciao come stai" {
		t.Errorf("unexpected payload: %v", body)
	}
	if body["word_count"].(float64) != 3 {
		t.Errorf("word_count = %v", body["word_count"])
	}
}

func TestSTTUploadMissingFile(t *testing.T) {
	s := newTestServer(t, inference.NewMock(mockReply), stt.NewMock("ciao"))

	resp, body := postAudio(t, s, "/stt/vosk", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["success"] != false {
		t.Errorf("success = %v", body["success"])
	}
}

func TestSTTEngineUnavailable(t *testing.T) {
	engine := &stt.Mock{
		TranscribeFunc: func(ctx context.Context, wavData []byte) (*stt.Result, error) {
			return nil, &stt.UnavailableError{Reason: "server down", Instructions: "avvia vosk-server"}
		},
		AvailableFunc: func() bool { return false },
	}
	s := newTestServer(t, inference.NewMock(mockReply), engine)

	resp, body := postAudio(t, s, "/stt/vosk", []byte("x"), nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if body["instructions"] != "avvia vosk-server" {
		t.Errorf("instructions = %v", body["instructions"])
	}
}

func TestSTTFormatErrorAndNoSpeech(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"format error", &stt.FormatError{Reason: "audio deve essere MONO"}},
		{"no speech", stt.ErrNoSpeech},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &stt.Mock{
				TranscribeFunc: func(ctx context.Context, wavData []byte) (*stt.Result, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(t, inference.NewMock(mockReply), engine)

			resp, body := postAudio(t, s, "/stt/vosk", []byte("x"), nil)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			if body["success"] != false {
				t.Errorf("success = %v, want false", body["success"])
			}
		})
	}
}

func TestChatVoice(t *testing.T) {
	s := newTestServer(t, inference.NewMock(mockReply), stt.NewMock("come stai"))

	resp, body := postAudio(t, s, "/chat/voice", []byte("fake wav"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["transcription"] != "come stai" {
		t.Errorf("transcription = %v", body["transcription"])
	}
	if body["chat_id"] == nil {
		t.Error("chat_id missing")
	}

	// Follow-up on the same session.
	chatID := body["chat_id"].(string)
	resp, body = postAudio(t, s, "/chat/voice", []byte("fake wav"), map[string]string{"chat_id": chatID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["chat_id"] != chatID {
		t.Errorf("chat_id changed: %v", body["chat_id"])
	}
}

func TestChatVoiceStageSTT(t *testing.T) {
	engine := &stt.Mock{
		TranscribeFunc: func(ctx context.Context, wavData []byte) (*stt.Result, error) {
			return nil, stt.ErrNoSpeech
		},
	}
	s := newTestServer(t, inference.NewMock(mockReply), engine)

	resp, body := postAudio(t, s, "/chat/voice", []byte("x"), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["stage"] != "stt" {
		t.Errorf("stage = %v, want stt", body["stage"])
	}
}

func TestChatVoiceStageLLM(t *testing.T) {
	s := newTestServer(t, inference.NewMock("garbage"), stt.NewMock("ciao"))

	resp, body := postAudio(t, s, "/chat/voice", []byte("x"), nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if body["stage"] != "llm" {
		t.Errorf("stage = %v, want llm", body["stage"])
	}
	if body["transcription"] != "ciao" {
		t.Errorf("transcription = %v", body["transcription"])
	}
}

func TestSTTStatus(t *testing.T) {
	s := newTestServer(t, inference.NewMock(mockReply), stt.NewMock("ciao"))

	req := httptest.NewRequest(http.MethodGet, "/stt/status", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["engines"] == nil {
		t.Error("engines missing from status")
	}
	if body["timestamp"] == "" {
		t.Error("timestamp missing")
	}
}

func TestGetLogs(t *testing.T) {
	s := newTestServer(t, inference.NewMock(mockReply), stt.NewMock("ciao"))

	s.AddLog("info", "server avviato")
	postJSON(t, s, "/chat", `{"action": "talk", "message": "ciao"}`)

	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}

	body := decodeBody(t, resp)
	logs := body["logs"].([]any)
	if len(logs) < 2 {
		t.Errorf("expected at least 2 log entries, got %d", len(logs))
	}
	first := logs[0].(map[string]any)
	if first["message"] != "server avviato" {
		t.Errorf("first log = %v", first)
	}
}
