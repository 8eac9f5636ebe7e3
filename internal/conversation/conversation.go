// Package conversation holds the ordered, role-tagged transcript sent to the
// model. Index 0 is always the system message.
package conversation

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"forge/internal/models"
)

type Conversation struct {
	mu       sync.RWMutex
	messages []models.Message
	entropy  *ulid.MonotonicEntropy
	now      func() time.Time
}

func New(systemPrompt string) *Conversation {
	c := &Conversation{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
	c.messages = []models.Message{c.newMessage(models.RoleSystem, systemPrompt)}
	return c
}

// SetClock overrides the timestamp source.
func (c *Conversation) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *Conversation) newMessage(role, content string) models.Message {
	ts := c.now().UTC()
	return models.Message{
		ID:        ulid.MustNew(ulid.Timestamp(ts), c.entropy).String(),
		Role:      role,
		Content:   content,
		Timestamp: ts,
	}
}

// Append adds a message and returns it with its id and timestamp filled in.
func (c *Conversation) Append(role, content string) models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := c.newMessage(role, content)
	c.messages = append(c.messages, msg)
	return msg
}

// SetSystemPrompt rewrites the content of the system message. It is the
// only in-place change the transcript allows.
func (c *Conversation) SetSystemPrompt(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[0].Content = content
}

func (c *Conversation) SystemPrompt() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messages[0].Content
}

// ReplaceAll swaps the transcript, e.g. when restoring a saved chat. The
// current system message is kept unless msgs starts with one.
func (c *Conversation) ReplaceAll(msgs []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]models.Message, 0, len(msgs)+1)
	if len(msgs) == 0 || msgs[0].Role != models.RoleSystem {
		next = append(next, c.messages[0])
	}
	for _, m := range msgs {
		if m.ID == "" {
			fresh := c.newMessage(m.Role, m.Content)
			if !m.Timestamp.IsZero() {
				fresh.Timestamp = m.Timestamp.UTC()
			}
			m = fresh
		}
		next = append(next, m)
	}
	c.messages = next
}

// Clear truncates the transcript to the system message.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = c.messages[:1:1]
}

func (c *Conversation) Snapshot() []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Message(nil), c.messages...)
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the most recent message.
func (c *Conversation) Last() models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messages[len(c.messages)-1]
}

// IsDuplicateSubmission reports whether content repeats the latest user
// message within window, which happens when a submit fires twice.
func (c *Conversation) IsDuplicateSubmission(content string, window time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now().UTC()
	for i := len(c.messages) - 1; i > 0; i-- {
		m := c.messages[i]
		if m.Role != models.RoleUser {
			continue
		}
		return m.Content == content && now.Sub(m.Timestamp) <= window
	}
	return false
}
