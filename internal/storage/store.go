// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the persisted chat store: an ordered
// collection of chats with one active chat, idempotent merge appends
// for streamed content, and pluggable persistence backends.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jeranaias/chainchat-tui/internal/model"
)

// StorageKey is the fixed name the serialized record is stored under,
// in both the file and SQLite backends.
const StorageKey = "nebula-chat-storage"

var (
	// ErrNotHydrated is returned by every mutation attempted before
	// Hydrate has completed. The gate prevents a fresh chat from being
	// auto-created and persisted over existing history that has not
	// loaded yet.
	ErrNotHydrated = errors.New("chat store not hydrated")

	// ErrChatNotFound is returned when an operation names an unknown chat.
	ErrChatNotFound = errors.New("chat not found")
)

// Backend persists the serialized chat record. Load returns (nil, nil)
// when no record exists yet.
type Backend interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// record is the persisted layout: the whole collection plus the active
// id, serialized as one document.
type record struct {
	Chats      []*model.Chat `json:"chats"`
	ActiveChat *string       `json:"activeChat"`
}

// =============================================================================
// CHAT STORE
// =============================================================================

// ChatStore holds the chat collection. Chats are stored newest-first so
// creation is an O(1) prepend and display order is storage order.
//
// Lifecycle: Uninitialized -> Ready (after Hydrate). Mutations are
// synchronous and persist the whole record before returning.
type ChatStore struct {
	mu      sync.Mutex
	backend Backend
	chats   []*model.Chat
	active  string // empty = no active chat
	ready   bool
}

// NewChatStore creates a store over the given backend. The store is not
// usable until Hydrate is called.
func NewChatStore(backend Backend) *ChatStore {
	return &ChatStore{backend: backend}
}

// Hydrate loads the persisted record and marks the store Ready. A
// missing record is a valid empty store. An active id that no longer
// references an existing chat is discarded.
func (s *ChatStore) Hydrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load()
	if err != nil {
		return fmt.Errorf("failed to load chat record: %w", err)
	}

	if data != nil {
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to parse chat record: %w", err)
		}
		s.chats = rec.Chats
		if rec.ActiveChat != nil && s.findLocked(*rec.ActiveChat) != nil {
			s.active = *rec.ActiveChat
		}
	}
	if s.chats == nil {
		s.chats = []*model.Chat{}
	}

	s.ready = true
	return nil
}

// Ready reports whether Hydrate has completed.
func (s *ChatStore) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// NewChat creates a chat with the sentinel name, prepends it, and makes
// it active.
func (s *ChatStore) NewChat() (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil, ErrNotHydrated
	}

	chat := model.NewChat()
	s.chats = append([]*model.Chat{chat}, s.chats...)
	s.active = chat.ID

	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return chat.Clone(), nil
}

// DeleteChat removes the chat. If it was active, there is no active
// chat afterwards.
func (s *ChatStore) DeleteChat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotHydrated
	}

	idx := -1
	for i, c := range s.chats {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}

	s.chats = append(s.chats[:idx], s.chats[idx+1:]...)
	if s.active == id {
		s.active = ""
	}
	return s.persistLocked()
}

// ClearAll empties the collection and clears the active id.
func (s *ChatStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotHydrated
	}

	s.chats = []*model.Chat{}
	s.active = ""
	return s.persistLocked()
}

// SetActive selects the active chat; an empty id clears the selection.
func (s *ChatStore) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotHydrated
	}

	if id != "" && s.findLocked(id) == nil {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	s.active = id
	return s.persistLocked()
}

// ActiveID returns the active chat id, or "" when none is active.
func (s *ChatStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Active returns a copy of the active chat, or nil.
func (s *ChatStore) Active() *model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chat := s.findLocked(s.active); chat != nil {
		return chat.Clone()
	}
	return nil
}

// Get returns a copy of the chat with the given id, or nil.
func (s *ChatStore) Get(id string) *model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chat := s.findLocked(id); chat != nil {
		return chat.Clone()
	}
	return nil
}

// Chats returns copies of all chats, newest-first.
func (s *ChatStore) Chats() []*model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = c.Clone()
	}
	return out
}

// AppendMessage adds msg to the chat. With merge set, a trailing
// message of the same role absorbs the content in place, which is how
// streamed delta fragments collapse into one assistant message.
//
// A non-merge append of a user message while the chat still carries the
// sentinel name derives the chat's title, exactly once.
func (s *ChatStore) AppendMessage(chatID string, msg model.Message, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotHydrated
	}

	chat := s.findLocked(chatID)
	if chat == nil {
		return fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}

	chat.Append(msg, merge)
	if !merge && msg.Role == model.RoleUser && chat.HasDefaultName() {
		chat.Name = GenerateChatName(msg.Content)
	}

	return s.persistLocked()
}

// RenameChat sets a new display name.
func (s *ChatStore) RenameChat(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return ErrNotHydrated
	}

	chat := s.findLocked(id)
	if chat == nil {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	chat.Name = name
	return s.persistLocked()
}

// findLocked returns the chat with the given id, or nil. Caller holds mu.
func (s *ChatStore) findLocked(id string) *model.Chat {
	if id == "" {
		return nil
	}
	for _, c := range s.chats {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// persistLocked serializes the whole record to the backend. Caller holds mu.
func (s *ChatStore) persistLocked() error {
	rec := record{Chats: s.chats}
	if s.active != "" {
		rec.ActiveChat = &s.active
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to serialize chat record: %w", err)
	}
	if err := s.backend.Save(data); err != nil {
		return fmt.Errorf("failed to persist chat record: %w", err)
	}
	return nil
}
