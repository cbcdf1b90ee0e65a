// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// runCommand executes a slash command typed into the input.
func (m *Model) runCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd := fields[0]

	switch cmd {
	case "/new":
		return m.commandNew()

	case "/chats":
		m.openList()
		return m, nil

	case "/delete":
		active := m.store.ActiveID()
		if active == "" {
			m.status = "No active chat to delete."
			return m, nil
		}
		if err := m.store.DeleteChat(active); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = "Chat deleted."
		m.refreshViewport()
		return m, nil

	case "/clear":
		if err := m.store.ClearAll(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.status = "All chats cleared."
		m.refreshViewport()
		return m, nil

	case "/help":
		m.status = "/new /chats /delete /clear /quit"
		return m, nil

	case "/quit", "/exit":
		return m, tea.Quit

	default:
		m.status = fmt.Sprintf("Unknown command: %s", cmd)
		return m, nil
	}
}

func (m *Model) commandNew() (tea.Model, tea.Cmd) {
	if m.streaming {
		m.cancelTurn()
	}
	if _, err := m.store.NewChat(); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = ""
	m.refreshViewport()
	return m, nil
}

// =============================================================================
// CHAT LIST OVERLAY
// =============================================================================

func (m *Model) openList() {
	m.listOpen = true
	m.listCursor = 0

	// Start on the active chat.
	active := m.store.ActiveID()
	for i, c := range m.store.Chats() {
		if c.ID == active {
			m.listCursor = i
			break
		}
	}
}

func (m *Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	chats := m.store.Chats()

	switch msg.String() {
	case "esc", "q", "ctrl+l":
		m.listOpen = false

	case "up", "k":
		if m.listCursor > 0 {
			m.listCursor--
		}

	case "down", "j":
		if m.listCursor < len(chats)-1 {
			m.listCursor++
		}

	case "enter":
		if m.listCursor < len(chats) {
			if err := m.store.SetActive(chats[m.listCursor].ID); err != nil {
				m.status = err.Error()
			}
		}
		m.listOpen = false
		m.refreshViewport()

	case "d":
		if m.listCursor < len(chats) {
			if err := m.store.DeleteChat(chats[m.listCursor].ID); err != nil {
				m.status = err.Error()
			}
			if m.listCursor > 0 {
				m.listCursor--
			}
			m.refreshViewport()
		}

	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}
