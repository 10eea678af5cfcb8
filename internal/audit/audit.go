package audit

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"ec2roles/internal/redact"
)

// Event records a single region call.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Region     string    `json:"region"`
	Operation  string    `json:"operation"`
	Role       string    `json:"role,omitempty"`
	InstanceID string    `json:"instanceId,omitempty"`
	Count      int       `json:"count"`
	DurationMs int64     `json:"durationMs"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
}

var jsonMarshal = json.Marshal

type Logger struct {
	out      io.Writer
	redactor *redact.Redactor
	mu       sync.Mutex
}

func NewLogger(out io.Writer) *Logger {
	if out == nil {
		out = io.Discard
	}
	return &Logger{out: out, redactor: redact.New()}
}

func (l *Logger) Log(event Event) {
	if l == nil {
		return
	}
	event.Error = l.redactor.RedactString(event.Error)
	l.mu.Lock()
	defer l.mu.Unlock()
	data, err := jsonMarshal(event)
	if err != nil {
		return
	}
	_, _ = l.out.Write(append(data, '\n'))
}
