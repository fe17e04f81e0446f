// Package web is the HTTP surface: the chat and admin endpoints the robot
// client talks to, the speech-to-text uploads, and the live log stream for
// the admin dashboard.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/naosocial/go-naochat/internal/log"
	"github.com/naosocial/go-naochat/pkg/chat"
	"github.com/naosocial/go-naochat/pkg/hub"
	"github.com/naosocial/go-naochat/pkg/stt"
)

// maxLogEntries bounds the in-memory log buffer served to the dashboard.
const maxLogEntries = 500

// LogEntry is one line of the dashboard log stream.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Server serves the conversational API.
type Server struct {
	app  *fiber.App
	port string

	chat   *chat.API
	engine stt.Engine

	logHub *hub.Hub
	logs   []LogEntry
	logsMu sync.RWMutex
}

// NewServer wires the routes. port is the bare port number, without a colon.
func NewServer(port string, chatAPI *chat.API, engine stt.Engine) *Server {
	s := &Server{
		port:   port,
		chat:   chatAPI,
		engine: engine,
		logHub: hub.New("logs"),
		logs:   make([]LogEntry, 0, maxLogEntries),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-naochat",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	app.Post("/chat", s.handleChat)
	app.Post("/admin", s.handleAdmin)
	app.Post("/chat/voice", s.handleChatVoice)
	app.Post("/stt/vosk", s.handleSTT)
	app.Post("/stt/vosk-fast", s.handleSTTFast)
	app.Get("/stt/status", s.handleSTTStatus)
	app.Get("/logs", s.handleGetLogs)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	s.app = app
	return s
}

// Start runs the log hub and listens. Blocks until Shutdown.
func (s *Server) Start() error {
	go s.logHub.Run()
	log.Info("http server listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// AddLog records a dashboard log line and broadcasts it to subscribers.
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON(entry)
}

func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	s.logsMu.RLock()
	entries := make([]LogEntry, len(s.logs))
	copy(entries, s.logs)
	s.logsMu.RUnlock()

	return c.JSON(fiber.Map{"logs": entries, "success": true})
}

func (s *Server) handleLogsWS(c *websocket.Conn) {
	client := hub.NewClient(s.logHub, c)
	client.Run()
}
