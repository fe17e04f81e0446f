// Package contract enforces the structured-output contract on the model's
// raw replies.
//
// The model is instructed to answer with a JSON object carrying an "action"
// key and an ordered "chunks" array; each chunk pairs spoken text with the
// movement tokens to perform while speaking it. Models drift from that
// contract in predictable ways (markdown code fences, missing fields), so
// parsing repairs what it can and fails with a typed error on anything
// structurally broken. Chunk order is playback order and is never changed.
//
// The response schema is deliberately plain data: the movement and action
// vocabularies travel to the model inside the technical instructions, and
// contract enforcement happens here rather than at the provider transport.
package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/naosocial/go-naochat/internal/log"
	"github.com/naosocial/go-naochat/pkg/actions"
	"github.com/naosocial/go-naochat/pkg/animation"
	"github.com/naosocial/go-naochat/pkg/chatlog"
	"github.com/naosocial/go-naochat/pkg/cleantext"
)

// ResponseMIMEType is the structured output format requested from the
// provider.
const ResponseMIMEType = "application/json"

// ErrInvalidModelOutput marks a reply that could not be decoded into the
// expected structure.
var ErrInvalidModelOutput = errors.New("contract: invalid model output")

// previewLen bounds the raw-text excerpt attached to decode errors.
const previewLen = 200

// Chunk is one unit of spoken text with the resolved animation paths to
// perform while speaking it.
type Chunk struct {
	Text      string   `json:"text"`
	Movements []string `json:"movements"`
}

// Response is the decoded, fully resolved model reply.
type Response struct {
	// Action is the resolved action path, empty when the turn has none.
	Action string `json:"action,omitempty"`

	// Chunks in model-authored order; this is the robot's playback order.
	Chunks []Chunk `json:"chunks"`
}

// Parser decodes raw model text into a Response, applying text
// normalization, movement resolution and action translation along the way.
type Parser struct {
	resolver *animation.Resolver
	table    *actions.Table
	clog     *chatlog.Logger
}

// NewParser creates a Parser. clog may be nil, in which case per-chunk chat
// logging is skipped (tests).
func NewParser(resolver *animation.Resolver, table *actions.Table, clog *chatlog.Logger) *Parser {
	return &Parser{resolver: resolver, table: table, clog: clog}
}

// rawResponse mirrors the JSON shape the model is instructed to emit.
type rawResponse struct {
	Action string `json:"action"`
	Chunks []struct {
		Text      string   `json:"text"`
		Movements []string `json:"movements"`
	} `json:"chunks"`
}

// Parse decodes raw model text for the given session. Code-fence wrapping
// is stripped before decoding; a structurally broken reply yields
// ErrInvalidModelOutput with a truncated preview. An empty chunks array is
// valid (logged as a warning). Every normalized chunk text is appended to
// the chat log under role "model" before returning.
func (p *Parser) Parse(raw, chatID string) (*Response, error) {
	cleaned := StripMarkdownFences(raw)

	var decoded rawResponse
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		log.Error("model output decode failed", "chat_id", chatID, "error", err, "preview", preview(raw))
		return nil, fmt.Errorf("%w: %v (text: %q)", ErrInvalidModelOutput, err, preview(raw))
	}

	if len(decoded.Chunks) == 0 {
		log.Warn("model response without chunks", "chat_id", chatID)
	}

	resp := &Response{
		Action: p.table.Translate(decoded.Action),
		Chunks: make([]Chunk, 0, len(decoded.Chunks)),
	}

	for _, c := range decoded.Chunks {
		text := cleantext.Normalize(c.Text)
		if p.clog != nil {
			p.clog.Message(chatID, "model", text)
		}

		movements := make([]string, 0, len(c.Movements))
		for _, m := range c.Movements {
			movements = append(movements, p.resolver.Resolve(m))
		}
		resp.Chunks = append(resp.Chunks, Chunk{Text: text, Movements: movements})
	}

	return resp, nil
}

var fenceOpenRe = regexp.MustCompile("^```[a-zA-Z]*[ \t]*\r?\n?")

// StripMarkdownFences removes a leading ``` fence (with optional language
// tag) and a trailing ``` fence. Text without fences passes through
// unchanged.
func StripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func preview(s string) string {
	if len(s) > previewLen {
		return s[:previewLen] + "..."
	}
	return s
}
