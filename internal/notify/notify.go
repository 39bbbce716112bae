// Package notify delivers transient user-facing notifications. Messages are
// always human-readable summaries; transport errors stay in the logs.
package notify

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	stafflinesdk "staffline/sdk/go"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows a short message to the user.
type Notifier interface {
	Notify(level Level, msg string)
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// Terminal prints notifications to a writer, optionally colorized.
type Terminal struct {
	Out   io.Writer
	Color bool
	mu    sync.Mutex
}

func (t *Terminal) Notify(level Level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	icon, color := "•", ""
	switch level {
	case LevelSuccess:
		icon, color = "✓", colorGreen
	case LevelWarning:
		icon, color = "!", colorYellow
	case LevelError:
		icon, color = "✗", colorRed
	}
	if t.Color && color != "" {
		fmt.Fprintf(t.Out, "%s%s%s %s\n", color, icon, colorReset, msg)
		return
	}
	fmt.Fprintf(t.Out, "%s %s\n", icon, msg)
}

type Message struct {
	Level Level
	Text  string
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

func (r *Recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Level: level, Text: msg})
}

// Last returns the most recent message, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

// Discard drops all notifications.
type Discard struct{}

func (Discard) Notify(Level, string) {}

// OrDiscard returns n, or Discard when n is nil.
func OrDiscard(n Notifier) Notifier {
	if n == nil {
		return Discard{}
	}
	return n
}

// Summarize turns err into a message suitable for a notification.
func Summarize(action string, err error) string {
	if err == nil {
		return action
	}
	var apiErr *stafflinesdk.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Sprintf("%s failed: session expired", action)
		case http.StatusForbidden:
			return fmt.Sprintf("%s failed: not permitted", action)
		case http.StatusNotFound:
			return fmt.Sprintf("%s failed: not found", action)
		}
		if apiErr.StatusCode >= 500 {
			return fmt.Sprintf("%s failed: server error", action)
		}
		return fmt.Sprintf("%s failed: %s", action, apiErr.Message())
	}
	var msgErr interface{ UserMessage() string }
	if errors.As(err, &msgErr) {
		return msgErr.UserMessage()
	}
	return fmt.Sprintf("%s failed: network error", action)
}
