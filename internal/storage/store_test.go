// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jeranaias/chainchat-tui/internal/model"
)

// memoryBackend keeps the record in memory for store tests.
type memoryBackend struct {
	data []byte
}

func (b *memoryBackend) Load() ([]byte, error) { return b.data, nil }
func (b *memoryBackend) Save(data []byte) error {
	b.data = append([]byte(nil), data...)
	return nil
}

func newReadyStore(t *testing.T) (*ChatStore, *memoryBackend) {
	t.Helper()
	backend := &memoryBackend{}
	store := NewChatStore(backend)
	if err := store.Hydrate(); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}
	return store, backend
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestMutationsRejectedBeforeHydrate(t *testing.T) {
	store := NewChatStore(&memoryBackend{})

	if _, err := store.NewChat(); !errors.Is(err, ErrNotHydrated) {
		t.Errorf("NewChat err = %v, want ErrNotHydrated", err)
	}
	if err := store.AppendMessage("x", model.NewUserMessage("hi"), false); !errors.Is(err, ErrNotHydrated) {
		t.Errorf("AppendMessage err = %v, want ErrNotHydrated", err)
	}
	if err := store.ClearAll(); !errors.Is(err, ErrNotHydrated) {
		t.Errorf("ClearAll err = %v, want ErrNotHydrated", err)
	}
	if store.Ready() {
		t.Error("store reports Ready before Hydrate")
	}
}

func TestHydrateEmptyBackend(t *testing.T) {
	store, _ := newReadyStore(t)
	if !store.Ready() {
		t.Error("store not Ready after Hydrate")
	}
	if len(store.Chats()) != 0 {
		t.Errorf("expected empty store, got %d chats", len(store.Chats()))
	}
	if store.ActiveID() != "" {
		t.Errorf("expected no active chat, got %q", store.ActiveID())
	}
}

func TestHydrateDiscardsDanglingActiveID(t *testing.T) {
	backend := &memoryBackend{data: []byte(`{"chats":[],"activeChat":"gone"}`)}
	store := NewChatStore(backend)
	if err := store.Hydrate(); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}
	if store.ActiveID() != "" {
		t.Errorf("dangling active id survived hydration: %q", store.ActiveID())
	}
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

func TestNewChatPrependsAndActivates(t *testing.T) {
	store, _ := newReadyStore(t)

	first, err := store.NewChat()
	if err != nil {
		t.Fatalf("NewChat failed: %v", err)
	}
	second, err := store.NewChat()
	if err != nil {
		t.Fatalf("NewChat failed: %v", err)
	}

	chats := store.Chats()
	if len(chats) != 2 {
		t.Fatalf("len(chats) = %d, want 2", len(chats))
	}
	// Newest first.
	if chats[0].ID != second.ID || chats[1].ID != first.ID {
		t.Errorf("chats not in newest-first order")
	}
	if store.ActiveID() != second.ID {
		t.Errorf("active = %q, want newest chat %q", store.ActiveID(), second.ID)
	}
	if !second.HasDefaultName() {
		t.Errorf("new chat name = %q, want sentinel", second.Name)
	}
}

func TestDeleteChatClearsActive(t *testing.T) {
	store, _ := newReadyStore(t)
	chat, _ := store.NewChat()

	if err := store.DeleteChat(chat.ID); err != nil {
		t.Fatalf("DeleteChat failed: %v", err)
	}
	if store.ActiveID() != "" {
		t.Errorf("active = %q after deleting the active chat", store.ActiveID())
	}
	if len(store.Chats()) != 0 {
		t.Errorf("chat not removed")
	}

	if err := store.DeleteChat("missing"); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("err = %v, want ErrChatNotFound", err)
	}
}

func TestDeleteInactiveChatKeepsActive(t *testing.T) {
	store, _ := newReadyStore(t)
	first, _ := store.NewChat()
	second, _ := store.NewChat()

	if err := store.DeleteChat(first.ID); err != nil {
		t.Fatalf("DeleteChat failed: %v", err)
	}
	if store.ActiveID() != second.ID {
		t.Errorf("active changed when deleting an inactive chat")
	}
}

func TestClearAll(t *testing.T) {
	store, _ := newReadyStore(t)
	store.NewChat()
	store.NewChat()

	if err := store.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if len(store.Chats()) != 0 || store.ActiveID() != "" {
		t.Error("ClearAll left state behind")
	}
}

func TestSetActive(t *testing.T) {
	store, _ := newReadyStore(t)
	first, _ := store.NewChat()
	store.NewChat()

	if err := store.SetActive(first.ID); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}
	if store.ActiveID() != first.ID {
		t.Errorf("active = %q, want %q", store.ActiveID(), first.ID)
	}

	if err := store.SetActive(""); err != nil {
		t.Fatalf("SetActive(\"\") failed: %v", err)
	}
	if store.ActiveID() != "" {
		t.Error("active not cleared")
	}

	if err := store.SetActive("missing"); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("err = %v, want ErrChatNotFound", err)
	}
}

// =============================================================================
// MESSAGE APPENDS
// =============================================================================

func TestAppendMergeCollapsesStreamedTurn(t *testing.T) {
	store, _ := newReadyStore(t)
	chat, _ := store.NewChat()

	store.AppendMessage(chat.ID, model.NewUserMessage("question"), false)

	fragments := []string{"stream", "ed ", "frag", "ments"}
	for _, f := range fragments {
		if err := store.AppendMessage(chat.ID, model.NewAssistantMessage(f), true); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	got := store.Get(chat.ID)
	if len(got.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2", len(got.Messages))
	}
	if want := strings.Join(fragments, ""); got.Messages[1].Content != want {
		t.Errorf("merged content = %q, want %q", got.Messages[1].Content, want)
	}
}

func TestAppendAutoNamesOnceFromFirstUserMessage(t *testing.T) {
	store, _ := newReadyStore(t)
	chat, _ := store.NewChat()

	store.AppendMessage(chat.ID, model.NewUserMessage("price of USDC on Polygon"), false)
	if got := store.Get(chat.ID).Name; got != "USDC on Polygon" {
		t.Errorf("name = %q, want %q", got, "USDC on Polygon")
	}

	// A later user message must not rename the chat.
	store.AppendMessage(chat.ID, model.NewUserMessage("deploy a token contract"), false)
	if got := store.Get(chat.ID).Name; got != "USDC on Polygon" {
		t.Errorf("name changed on second user message: %q", got)
	}
}

func TestAppendMergeDoesNotAutoName(t *testing.T) {
	store, _ := newReadyStore(t)
	chat, _ := store.NewChat()

	// Merge appends (streamed fragments) never trigger naming.
	store.AppendMessage(chat.ID, model.NewAssistantMessage("hello"), true)
	if got := store.Get(chat.ID); !got.HasDefaultName() {
		t.Errorf("name = %q, want sentinel", got.Name)
	}
}

func TestAppendToUnknownChat(t *testing.T) {
	store, _ := newReadyStore(t)
	err := store.AppendMessage("missing", model.NewUserMessage("hi"), false)
	if !errors.Is(err, ErrChatNotFound) {
		t.Errorf("err = %v, want ErrChatNotFound", err)
	}
}

func TestRenameChat(t *testing.T) {
	store, _ := newReadyStore(t)
	chat, _ := store.NewChat()

	if err := store.RenameChat(chat.ID, "Treasury ops"); err != nil {
		t.Fatalf("RenameChat failed: %v", err)
	}
	if got := store.Get(chat.ID).Name; got != "Treasury ops" {
		t.Errorf("name = %q", got)
	}
}

// =============================================================================
// PERSISTENCE ROUND-TRIPS
// =============================================================================

func roundTrip(t *testing.T, backend Backend) {
	t.Helper()

	store := NewChatStore(backend)
	if err := store.Hydrate(); err != nil {
		t.Fatalf("Hydrate failed: %v", err)
	}

	first, _ := store.NewChat()
	store.AppendMessage(first.ID, model.NewUserMessage("how to verify a contract on etherscan"), false)
	store.AppendMessage(first.ID, model.NewAssistantMessage("Use the verify tab."), true)
	second, _ := store.NewChat()
	store.AppendMessage(second.ID, model.NewUserMessage("price of USDC on Polygon"), false)
	store.SetActive(first.ID)

	// A second store over the same backend must reproduce everything.
	reloaded := NewChatStore(backend)
	if err := reloaded.Hydrate(); err != nil {
		t.Fatalf("reload Hydrate failed: %v", err)
	}

	if got, want := reloaded.ActiveID(), first.ID; got != want {
		t.Errorf("active = %q, want %q", got, want)
	}
	if !reflect.DeepEqual(chatsForCompare(reloaded), chatsForCompare(store)) {
		t.Errorf("reloaded chats differ from originals")
	}
}

// chatsForCompare strips sub-second timestamp precision, which JSON
// round-trips preserve but reflect.DeepEqual on time.Time monotonic
// clocks does not.
func chatsForCompare(s *ChatStore) []map[string]any {
	var out []map[string]any
	for _, c := range s.Chats() {
		msgs := make([]model.Message, len(c.Messages))
		copy(msgs, c.Messages)
		out = append(out, map[string]any{
			"id":       c.ID,
			"name":     c.Name,
			"messages": msgs,
			"activity": c.LastActivity.Unix(),
		})
	}
	return out
}

func TestRoundTripMemory(t *testing.T) {
	roundTrip(t, &memoryBackend{})
}

func TestRoundTripFile(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	roundTrip(t, backend)
}

func TestRoundTripSQLite(t *testing.T) {
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "chats.db"))
	if err != nil {
		t.Fatalf("NewSQLiteBackend failed: %v", err)
	}
	defer backend.Close()
	roundTrip(t, backend)
}

func TestFileBackendLoadMissing(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}
	data, err := backend.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil for missing record, got %q", data)
	}
}
