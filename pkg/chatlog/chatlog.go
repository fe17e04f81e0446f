// Package chatlog writes the daily append-only conversation log.
//
// One file per day (chat_log_YYYYMMDD.txt) records every chat message plus
// operational info/warning/error lines. The file is diagnostic only and is
// never read back by the system. Operational entries are mirrored to the
// structured logger so they also reach stdout.
package chatlog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/naosocial/go-naochat/internal/log"
	"github.com/naosocial/go-naochat/pkg/cleantext"
)

// Logger appends timestamped lines to a per-day log file.
type Logger struct {
	mu      sync.Mutex
	dir     string
	day     string
	file    *os.File
	nowFunc func() time.Time
}

// New creates a Logger writing under dir. The directory is created if
// missing; a failure to create it is returned so the caller can decide to
// run without a durable log.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("chatlog: create %s: %w", dir, err)
	}
	return &Logger{dir: dir, nowFunc: time.Now}, nil
}

// Message records one chat message tagged with its session and role.
// Content longer than cleantext.MaxLogLen is truncated in the log copy.
func (l *Logger) Message(chatID, role, content string) {
	content = cleantext.TruncateForLog(content)
	l.write("INFO", fmt.Sprintf("CHAT_ID: %s | ROLE: %s | MSG: %s", chatID, role, content))
}

// Info records an operational info line.
func (l *Logger) Info(msg string) {
	l.write("INFO", msg)
	log.Info(msg)
}

// Warning records an operational warning line.
func (l *Logger) Warning(msg string) {
	l.write("WARNING", msg)
	log.Warn(msg)
}

// Error records an operational error line.
func (l *Logger) Error(msg string) {
	l.write("ERROR", msg)
	log.Error(msg)
}

// Close releases the current log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) write(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if err := l.rotate(now); err != nil {
		log.Error("chatlog rotate failed", "error", err)
		return
	}

	line := fmt.Sprintf("%s - %s - %s\n", now.Format("2006-01-02 15:04:05"), level, msg)
	if _, err := l.file.WriteString(line); err != nil {
		log.Error("chatlog write failed", "error", err)
	}
}

// rotate opens the file for the current day, switching at midnight.
// Caller must hold l.mu.
func (l *Logger) rotate(now time.Time) error {
	day := now.Format("20060102")
	if l.file != nil && day == l.day {
		return nil
	}
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}

	path := filepath.Join(l.dir, fmt.Sprintf("chat_log_%s.txt", day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	l.file = f
	l.day = day
	return nil
}
