package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiChat(t *testing.T) {
	var captured struct {
		query   string
		payload map[string]interface{}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.query = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&captured.payload); err != nil {
			t.Errorf("decoding request payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"action\":\"NO_ACTION\",\"chunks\":[]}"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	g, err := NewGemini(
		WithBaseURL(server.URL),
		WithKeyRing(NewKeyRing("test-key-1,test-key-2")),
		WithModel("gemini-2.0-flash"),
	)
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	defer g.Close()

	resp, err := g.Chat(context.Background(), &ChatRequest{
		SystemInstruction: "Sei un robot sociale",
		Messages: []Message{
			NewUserMessage("ciao"),
			NewAssistantMessage("ciao a te"),
			NewUserMessage("come stai?"),
		},
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Message.Role != RoleAssistant {
		t.Errorf("response role = %q", resp.Message.Role)
	}
	if resp.Message.Content == "" {
		t.Error("empty response content")
	}
	if resp.FinishReason != "STOP" {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}

	if captured.query != "key=test-key-1" {
		t.Errorf("expected first ring key in query, got %q", captured.query)
	}

	sys, ok := captured.payload["systemInstruction"].(map[string]interface{})
	if !ok {
		t.Fatal("systemInstruction missing from payload")
	}
	parts := sys["parts"].([]interface{})
	if text := parts[0].(map[string]interface{})["text"]; text != "Sei un robot sociale" {
		t.Errorf("system instruction = %v", text)
	}

	contents, ok := captured.payload["contents"].([]interface{})
	if !ok || len(contents) != 3 {
		t.Fatalf("expected 3 contents entries, got %v", captured.payload["contents"])
	}
	second := contents[1].(map[string]interface{})
	if second["role"] != "model" {
		t.Errorf("assistant message converted to role %q, want model", second["role"])
	}

	gen, ok := captured.payload["generationConfig"].(map[string]interface{})
	if !ok {
		t.Fatal("generationConfig missing from payload")
	}
	if gen["responseMimeType"] != "application/json" {
		t.Errorf("responseMimeType = %v", gen["responseMimeType"])
	}
}

func TestGeminiKeyRotationAcrossCalls(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	g, err := NewGemini(
		WithBaseURL(server.URL),
		WithKeyRing(NewKeyRing("k1,k2")),
	)
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	defer g.Close()

	for i := 0; i < 3; i++ {
		if _, err := g.Chat(context.Background(), &ChatRequest{
			Messages: []Message{NewUserMessage("ciao")},
		}); err != nil {
			t.Fatalf("Chat %d failed: %v", i, err)
		}
	}

	want := []string{"key=k1", "key=k2", "key=k1"}
	for i, w := range want {
		if queries[i] != w {
			t.Errorf("call %d used %q, want %q", i, queries[i], w)
		}
	}
}

func TestGeminiAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota exceeded","code":429}}`))
	}))
	defer server.Close()

	g, err := NewGemini(WithBaseURL(server.URL), WithKeyRing(NewKeyRing("k")))
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	defer g.Close()

	_, err = g.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("ciao")},
	})
	if err == nil {
		t.Fatal("expected error")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if !apiErr.IsRateLimited() || !apiErr.IsRetryable() {
		t.Errorf("429 should be rate-limited and retryable: %+v", apiErr)
	}
	if apiErr.Message != "quota exceeded" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestGeminiNoKeyOmitsQueryParam(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	g, err := NewGemini(WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewGemini failed: %v", err)
	}
	defer g.Close()

	if _, err := g.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("ciao")},
	}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if query != "" {
		t.Errorf("expected no query params without credentials, got %q", query)
	}
}
