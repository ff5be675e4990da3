package chat

import (
	"sync"

	"github.com/dmitrijs2005/thyroscope/internal/client/models"
)

// Transcript is the in-memory message list of one chat view. It holds at
// most one pending assistant message. Once closed, every mutation is ignored
// and reports false.
type Transcript struct {
	mu       sync.Mutex
	messages []models.ChatMessage
	pending  int
	closed   bool
}

// NewTranscript starts a transcript, optionally with an assistant greeting.
func NewTranscript(greeting string) *Transcript {
	t := &Transcript{pending: -1}
	if greeting != "" {
		t.messages = append(t.messages, models.ChatMessage{Sender: models.SenderAssistant, Text: greeting})
	}
	return t
}

// Messages returns a copy of every message, the pending one included.
func (t *Transcript) Messages() []models.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) AppendUser(text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.messages = append(t.messages, models.ChatMessage{Sender: models.SenderUser, Text: text})
	return true
}

// BeginPending inserts an empty assistant message. It fails if one is
// already pending.
func (t *Transcript) BeginPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.pending >= 0 {
		return false
	}
	t.messages = append(t.messages, models.ChatMessage{Sender: models.SenderAssistant})
	t.pending = len(t.messages) - 1
	return true
}

// AppendPending adds a fragment to the pending message.
func (t *Transcript) AppendPending(fragment string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.pending < 0 {
		return false
	}
	t.messages[t.pending].Text += fragment
	return true
}

// Finalize replaces the pending text and commits the message.
func (t *Transcript) Finalize(text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.pending < 0 {
		return false
	}
	t.messages[t.pending].Text = text
	t.pending = -1
	return true
}

// Close detaches the transcript from its view.
func (t *Transcript) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func (t *Transcript) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
