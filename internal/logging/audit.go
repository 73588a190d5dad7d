// Audit logging for command invocations. Every slash command the bot handles
// is appended as a structured JSONL event, replacing the ad-hoc per-command
// console lines of the old bot.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType defines the type of audit event.
type AuditEventType string

const (
	// Command lifecycle
	AuditCommandInvoke   AuditEventType = "command_invoke"
	AuditCommandComplete AuditEventType = "command_complete"
	AuditCommandError    AuditEventType = "command_error"

	// Voice session lifecycle
	AuditVoiceJoin       AuditEventType = "voice_join"
	AuditVoiceLeave      AuditEventType = "voice_leave"
	AuditVoiceIdleLeave  AuditEventType = "voice_idle_leave"

	// Playback
	AuditTrackStart  AuditEventType = "track_start"
	AuditTrackFinish AuditEventType = "track_finish"
	AuditTrackSkip   AuditEventType = "track_skip"

	// Playlist expansion
	AuditPlaylistStart    AuditEventType = "playlist_start"
	AuditPlaylistComplete AuditEventType = "playlist_complete"
	AuditPlaylistAbort    AuditEventType = "playlist_abort"
)

// AuditEvent is one structured audit log entry.
type AuditEvent struct {
	Timestamp  int64          `json:"ts"` // Unix milliseconds
	EventType  AuditEventType `json:"event"`
	GuildID    string         `json:"guild,omitempty"`
	UserID     string         `json:"user,omitempty"`
	Command    string         `json:"command,omitempty"`
	RequestID  string         `json:"req,omitempty"`
	Target     string         `json:"target,omitempty"` // Track URL, channel ID...
	Success    bool           `json:"success"`
	DurationMs int64          `json:"dur_ms,omitempty"`
	Error      string         `json:"error,omitempty"`
	Message    string         `json:"msg,omitempty"`
}

// AuditLogger appends events to an audit JSONL file.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

var (
	auditLogger *AuditLogger
	auditOnce   sync.Once
)

// Audit returns the process-wide audit logger. It is created lazily on first
// use so that Initialize has already established the data directory.
func Audit() *AuditLogger {
	auditOnce.Do(func() {
		auditLogger = &AuditLogger{}
		if logsDir == "" {
			return
		}
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "[audit] Warning: could not create logs dir: %v\n", err)
			return
		}
		path := filepath.Join(logsDir, "audit.jsonl")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[audit] Warning: could not open audit log: %v\n", err)
			return
		}
		auditLogger.file = f
		auditLogger.path = path
	})
	return auditLogger
}

// Record appends one event. No-op when the audit file is unavailable.
func (a *AuditLogger) Record(ev AuditEvent) {
	if a == nil || a.file == nil {
		return
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.file.Write(append(data, '\n'))
}

// Close closes the audit log file.
func (a *AuditLogger) Close() {
	if a == nil || a.file == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.file.Close()
	a.file = nil
}

// RecordCommand is a convenience wrapper for command lifecycle events.
func RecordCommand(eventType AuditEventType, guildID, userID, command, requestID string, err error) {
	ev := AuditEvent{
		EventType: eventType,
		GuildID:   guildID,
		UserID:    userID,
		Command:   command,
		RequestID: requestID,
		Success:   err == nil,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	Audit().Record(ev)
}
