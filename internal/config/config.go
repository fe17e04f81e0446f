// Package config provides environment-driven configuration for go-naochat.
// A .env file next to the binary is loaded first (if present), then plain
// environment variables take over.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults for the conversational backend.
const (
	DefaultModel          = "gemini-2.0-flash"
	DefaultPort           = "3030"
	DefaultPromptsDir     = "ai_prompts"
	DefaultLogsDir        = "logs"
	DefaultMovementsFile  = "movements.json"
	DefaultActionsFile    = "actions_map.json"
	DefaultContextWindow  = 20
	DefaultMaxOutputToken = 8192
	DefaultTemperature    = 1.0
	DefaultTopP           = 0.95
	DefaultTopK           = 40
	DefaultVoskURL        = "ws://localhost:2700"
)

// Config holds the full configuration surface of the backend.
type Config struct {
	// Model is the LLM model identifier.
	Model string

	// APIKeys is the raw comma-separated credential list for the provider.
	APIKeys string

	// DefaultPersona names the persona used when a session has none bound.
	DefaultPersona string

	// PromptsDir is the directory scanned for persona definition files.
	PromptsDir string

	// MovementsFile is the JSON catalog of movement tokens.
	MovementsFile string

	// ActionsFile is the JSON map of action keys to animation paths.
	ActionsFile string

	// LogsDir is where daily chat log files are written.
	LogsDir string

	// ContextWindow is the number of most recent turns sent to the model.
	ContextWindow int

	// MaxOutputTokens caps the model reply length.
	MaxOutputTokens int

	// Sampling parameters shared by every session.
	Temperature float64
	TopP        float64
	TopK        int

	// Port is the HTTP listen port.
	Port string

	// VoskURL is the websocket address of the local vosk-server.
	VoskURL string

	// LogLevel for operational logging.
	LogLevel string
}

// Load reads configuration from the environment. If a .env file exists at
// path (or "./.env" when path is empty) it is loaded first; a missing file
// is not an error.
func Load(path string) *Config {
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)

	return &Config{
		Model:           getString("LLM_MODEL", DefaultModel),
		APIKeys:         getString("GOOGLE_API_KEY", ""),
		DefaultPersona:  getString("DEFAULT_PERSONA", ""),
		PromptsDir:      getString("PROMPTS_DIR", DefaultPromptsDir),
		MovementsFile:   getString("MOVEMENTS_FILE", DefaultMovementsFile),
		ActionsFile:     getString("ACTIONS_FILE", DefaultActionsFile),
		LogsDir:         getString("LOGS_DIR", DefaultLogsDir),
		ContextWindow:   getInt("CONTEXT_WINDOW", DefaultContextWindow),
		MaxOutputTokens: getInt("MAX_OUTPUT_TOKENS", DefaultMaxOutputToken),
		Temperature:     getFloat("TEMPERATURE", DefaultTemperature),
		TopP:            getFloat("TOP_P", DefaultTopP),
		TopK:            getInt("TOP_K", DefaultTopK),
		Port:            getString("PORT", DefaultPort),
		VoskURL:         getString("VOSK_SERVER_URL", DefaultVoskURL),
		LogLevel:        getString("LOG_LEVEL", "info"),
	}
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}
