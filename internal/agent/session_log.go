package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// sessionLogger appends one JSON record per line to data_dir/sessions/<id>.jsonl.
type sessionLogger struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func newSessionLogger(dataDir, sessionID string) (*sessionLogger, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data dir not configured")
	}
	dir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	path := filepath.Join(dir, sessionID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}

	return &sessionLogger{path: path, f: f}, nil
}

func (l *sessionLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *sessionLogger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
}

// log is a no-op on a nil or closed logger.
func (l *sessionLogger) log(rec sessionRecord) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}

	if rec.TS == "" {
		rec.TS = nowTS()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	b = append(b, '\n')
	_, _ = l.f.Write(b)
}

const (
	recordSession    = "session"
	recordUser       = "user"
	recordToolCall   = "tool_call"
	recordToolResult = "tool_result"
	recordAssistant  = "assistant"
	recordError      = "error"
)

type sessionRecord struct {
	TS   string `json:"ts"`
	Type string `json:"type"`

	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`

	Content string `json:"content,omitempty"`

	ToolName string    `json:"tool_name,omitempty"`
	Args     string    `json:"args,omitempty"`
	Text     string    `json:"text,omitempty"`
	Blocks   []UIBlock `json:"blocks,omitempty"`
	IsError  bool      `json:"is_error,omitempty"`
}

func nowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
