// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultChatName is the sentinel name a chat carries until its first user
// message produces a real title.
const DefaultChatName = "New Chat"

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat is an ordered sequence of messages with an identity and a display
// name. LastActivity is bumped on every append so chat lists can sort by
// recency.
type Chat struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LastActivity time.Time `json:"timestamp"`
	Messages     []Message `json:"messages"`
}

// NewChat creates an empty chat with the sentinel name and a fresh id.
func NewChat() *Chat {
	return &Chat{
		ID:           uuid.NewString(),
		Name:         DefaultChatName,
		LastActivity: time.Now(),
		Messages:     []Message{},
	}
}

// Append adds msg as a new trailing entry, or, when merge is set and the
// trailing message has the same role, concatenates msg.Content onto it in
// place. Streamed delta fragments arrive via merge appends so a whole
// assistant turn collapses into a single message.
func (c *Chat) Append(msg Message, merge bool) {
	if merge && len(c.Messages) > 0 {
		last := &c.Messages[len(c.Messages)-1]
		if last.Role == msg.Role {
			last.Content += msg.Content
			c.LastActivity = time.Now()
			return
		}
	}
	c.Messages = append(c.Messages, msg)
	c.LastActivity = time.Now()
}

// LastMessage returns the trailing message, or nil for an empty chat.
func (c *Chat) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// HasDefaultName reports whether the chat still carries the sentinel name.
func (c *Chat) HasDefaultName() bool {
	return c.Name == DefaultChatName
}

// Clone returns a deep copy of the chat.
func (c *Chat) Clone() *Chat {
	msgs := make([]Message, len(c.Messages))
	copy(msgs, c.Messages)
	return &Chat{
		ID:           c.ID,
		Name:         c.Name,
		LastActivity: c.LastActivity,
		Messages:     msgs,
	}
}
