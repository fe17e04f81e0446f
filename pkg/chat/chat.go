// Package chat owns the live conversation state: the map of active sessions,
// their transcripts, and the turn loop that carries a user message through the
// in-band command check, the LLM call and the response contract.
//
// Sessions are purely in-memory; a process restart loses them all. The only
// durable artifact is the daily chat log, which is write-only diagnostics.
//
// Locking discipline: the session map has its own mutex, held only for
// insert/lookup/delete/iterate. Each session carries a second mutex held for
// the whole append-call-append span of a turn, so two requests on the same
// session serialize while requests on different sessions run in parallel. The
// LLM round trip happens under the session lock but never under the map lock.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/naosocial/go-naochat/internal/log"
	"github.com/naosocial/go-naochat/pkg/chatlog"
	"github.com/naosocial/go-naochat/pkg/command"
	"github.com/naosocial/go-naochat/pkg/contract"
	"github.com/naosocial/go-naochat/pkg/inference"
	"github.com/naosocial/go-naochat/pkg/persona"
)

var (
	// ErrEmptyMessage is returned by Talk when the message is missing or blank.
	ErrEmptyMessage = errors.New("chat: message is required")

	// ErrNotFound is returned when the referenced session is not live.
	ErrNotFound = errors.New("chat: session not found")
)

// Acknowledgement gestures for persona-switch turns.
const (
	gestureYes = "animations/Stand/Gestures/Yes_1"
	gestureNo  = "animations/Stand/Gestures/No_1"
)

// session is one live conversation. mu serializes turns; the transcript
// stores every message ever exchanged, regardless of the model's context
// window.
type session struct {
	mu         sync.Mutex
	transcript []inference.Message
	persona    string
}

// Entry is one flattened transcript line for the admin listing.
type Entry struct {
	ChatID  string `json:"chat_id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Result is the outcome of one successful Talk turn.
type Result struct {
	// ChatID identifies the session, minted fresh when the caller gave none.
	ChatID string

	// Response carries the parsed chunks and resolved action.
	Response *contract.Response

	// PersonaSwitch is true when the turn was an in-band persona command
	// and never reached the model.
	PersonaSwitch bool

	// PersonaChanged reports whether a persona command actually took effect.
	PersonaChanged bool
}

// API is the session store and turn orchestrator.
type API struct {
	mu       sync.Mutex
	sessions map[string]*session

	provider inference.Provider
	registry *persona.Registry
	parser   *contract.Parser
	clog     *chatlog.Logger
	window   int
}

// New creates an API. window bounds how many past transcript messages are
// sent to the model per turn; zero or negative falls back to 20. clog may be
// nil (tests).
func New(provider inference.Provider, registry *persona.Registry, parser *contract.Parser, clog *chatlog.Logger, window int) *API {
	if window <= 0 {
		window = 20
	}
	return &API{
		sessions: make(map[string]*session),
		provider: provider,
		registry: registry,
		parser:   parser,
		clog:     clog,
		window:   window,
	}
}

// acquire returns the live session for chatID, or a fresh one under a newly
// minted id when chatID is empty or not live. Stale identifiers are not an
// error: the caller simply gets a new conversation.
func (a *API) acquire(chatID string) (string, *session) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if chatID != "" {
		if s, ok := a.sessions[chatID]; ok {
			log.Info("continuing chat", "chat_id", chatID)
			return chatID, s
		}
	}

	chatID = uuid.NewString()
	s := &session{}
	a.sessions[chatID] = s
	log.Info("new chat created", "chat_id", chatID)
	return chatID, s
}

// Talk runs one conversation turn. The user message is appended to the
// transcript before anything else, and is never rolled back: a failed model
// call or an unparseable reply leaves the turn recorded, and a retry replays
// it as accumulated context.
func (a *API) Talk(ctx context.Context, chatID, message string) (*Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	chatID, sess := a.acquire(chatID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if a.clog != nil {
		a.clog.Message(chatID, "user", message)
	}
	sess.transcript = append(sess.transcript, inference.NewUserMessage(message))

	if isCommand, name := command.Detect(message); isCommand {
		return a.changePersona(sess, chatID, name), nil
	}

	req := &inference.ChatRequest{
		Messages:          a.windowed(sess),
		SystemInstruction: a.systemInstruction(sess),
		ResponseMIMEType:  contract.ResponseMIMEType,
	}

	resp, err := a.provider.Chat(ctx, req)
	if err != nil {
		log.Error("llm call failed", "chat_id", chatID, "error", err)
		if a.clog != nil {
			a.clog.Error(fmt.Sprintf("llm call failed for chat %s: %v", chatID, err))
		}
		return nil, fmt.Errorf("chat: llm call: %w", err)
	}

	raw := resp.Message.Content
	sess.transcript = append(sess.transcript, inference.NewAssistantMessage(raw))

	parsed, err := a.parser.Parse(raw, chatID)
	if err != nil {
		return nil, err
	}

	return &Result{ChatID: chatID, Response: parsed}, nil
}

// windowed returns the messages to send to the model: the most recent window
// of past transcript plus the just-appended user turn, which is always
// included regardless of the bound.
func (a *API) windowed(sess *session) []inference.Message {
	past := sess.transcript[:len(sess.transcript)-1]
	if len(past) > a.window {
		past = past[len(past)-a.window:]
	}

	out := make([]inference.Message, 0, len(past)+1)
	out = append(out, past...)
	out = append(out, sess.transcript[len(sess.transcript)-1])
	return out
}

// systemInstruction resolves the effective system instruction for a session:
// its bound persona when one loads, the default otherwise.
func (a *API) systemInstruction(sess *session) string {
	if sess.persona != "" {
		if text, err := a.registry.Load(sess.persona); err == nil {
			return persona.SystemInstruction(text)
		}
		log.Warn("bound persona no longer loadable, using default", "persona", sess.persona)
	}
	return persona.SystemInstruction(a.registry.Default())
}

// changePersona applies an in-band persona switch. A successful switch binds
// the persona and wipes the transcript; context built under the old persona
// would leak conflicting instructions into the new one. Failure leaves the
// session untouched. Either way the reply is a single synthetic chunk and the
// model is never called.
func (a *API) changePersona(sess *session, chatID, name string) *Result {
	ok, msg := a.applyPersona(sess, chatID, name)

	gesture := gestureNo
	if ok {
		gesture = gestureYes
	}

	log.Info("persona command handled", "chat_id", chatID, "persona", name, "changed", ok)
	if a.clog != nil {
		a.clog.Info(fmt.Sprintf("persona command for chat %s: %s", chatID, msg))
	}

	return &Result{
		ChatID: chatID,
		Response: &contract.Response{
			Chunks: []contract.Chunk{{Text: msg, Movements: []string{gesture}}},
		},
		PersonaSwitch:  true,
		PersonaChanged: ok,
	}
}

func (a *API) applyPersona(sess *session, chatID, name string) (bool, string) {
	available := a.registry.List()

	found := false
	for _, p := range available {
		if p == name {
			found = true
			break
		}
	}
	if !found {
		log.Warn("persona switch to unknown persona", "chat_id", chatID, "persona", name)
		return false, fmt.Sprintf(
			"ERRORE cambio personalità non riuscito! Personalità '%s' non trovata. Disponibili: %s",
			name, strings.Join(available, ", "))
	}

	if _, err := a.registry.Load(name); err != nil {
		log.Error("persona switch load failed", "chat_id", chatID, "persona", name, "error", err)
		return false, fmt.Sprintf("ERRORE cambio personalità non riuscito! Impossibile caricare '%s'", name)
	}

	dropped := len(sess.transcript)
	sess.persona = name
	sess.transcript = nil
	log.Info("transcript reset after persona switch", "chat_id", chatID, "dropped_messages", dropped)

	return true, fmt.Sprintf("OK cambio personalità effettuato in %s", name)
}

// End removes a session. Ending an unknown session returns ErrNotFound rather
// than failing silently, so the caller can distinguish the two.
func (a *API) End(chatID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.sessions[chatID]; !ok {
		return ErrNotFound
	}
	delete(a.sessions, chatID)
	log.Info("chat closed", "chat_id", chatID)
	if a.clog != nil {
		a.clog.Info("CHAT_CLOSED: " + chatID)
	}
	return nil
}

// History returns a copy of the session's full transcript in call order.
func (a *API) History(chatID string) ([]inference.Message, error) {
	a.mu.Lock()
	sess, ok := a.sessions[chatID]
	a.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]inference.Message, len(sess.transcript))
	copy(out, sess.transcript)
	return out, nil
}

// AdminList flattens every live transcript into (chat_id, role, content)
// entries and reports the live session count.
func (a *API) AdminList() ([]Entry, int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries := make([]Entry, 0)
	for chatID, sess := range a.sessions {
		sess.mu.Lock()
		for _, m := range sess.transcript {
			entries = append(entries, Entry{ChatID: chatID, Role: string(m.Role), Content: m.Content})
		}
		sess.mu.Unlock()
	}
	return entries, len(a.sessions)
}

// AdminDeleteAll drops every live session and returns how many were removed.
func (a *API) AdminDeleteAll() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.sessions)
	a.sessions = make(map[string]*session)
	log.Info("all chats deleted", "count", n)
	return n
}

// Live reports whether the session is currently in the live set.
func (a *API) Live(chatID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.sessions[chatID]
	return ok
}
