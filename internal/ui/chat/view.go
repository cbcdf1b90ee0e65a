// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/chainchat-tui/internal/model"
	"github.com/jeranaias/chainchat-tui/internal/nebula"
)

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.listOpen {
		return m.viewChatList()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.textarea.View()))
	b.WriteString("\n")
	b.WriteString(m.viewStatusBar())
	return b.String()
}

// viewHeader renders the chat title on the left and the wallet identity
// on the right.
func (m *Model) viewHeader() string {
	title := "chainchat"
	if active := m.store.Active(); active != nil {
		title = active.Name
	}

	right := "no wallet"
	if m.walletAddr != "" {
		right = nebula.RedactAddress(m.walletAddr)
	}

	// Pad between segments by display width, not byte length.
	gap := m.width - runewidth.StringWidth(title) - runewidth.StringWidth(right) - 2
	if gap < 1 {
		gap = 1
	}
	line := m.theme.HeaderTitle.Render(title) +
		strings.Repeat(" ", gap) +
		m.theme.HeaderMeta.Render(right)
	return m.theme.Header.Width(m.width).Render(line)
}

func (m *Model) viewStatusBar() string {
	if m.streaming {
		return m.theme.StatusBar.Width(m.width).Render(
			m.spinner.View() + " thinking... " +
				m.theme.ShortcutDesc.Render("(esc to cancel)"))
	}

	if m.status != "" {
		return m.theme.StatusBar.Width(m.width).Render(m.status)
	}

	hints := []struct{ key, desc string }{
		{"enter", "send"},
		{"ctrl+n", "new chat"},
		{"ctrl+l", "chats"},
		{"ctrl+c", "quit"},
	}
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = m.theme.ShortcutKey.Render(h.key) + " " + m.theme.ShortcutDesc.Render(h.desc)
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}

// viewChatList renders the chat picker overlay, newest first.
func (m *Model) viewChatList() string {
	chats := m.store.Chats()

	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Chats"))
	b.WriteString("\n\n")

	if len(chats) == 0 {
		b.WriteString(m.theme.ChatMeta.Render("No chats yet. Press esc and say gm."))
	}

	for i, c := range chats {
		cursor := "  "
		style := m.theme.ChatItem
		if i == m.listCursor {
			cursor = "> "
			style = m.theme.ChatItemSelected
		}
		meta := fmt.Sprintf("%d messages, %s",
			len(c.Messages), c.LastActivity.Format("Jan 2 15:04"))
		b.WriteString(cursor + style.Render(c.Name) + "  " + m.theme.ChatMeta.Render(meta))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.ChatMeta.Render("enter select / d delete / esc close"))
	return m.theme.ChatList.Width(m.width - 4).Render(b.String())
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// refreshViewport rebuilds the transcript and scrolls to the bottom.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	active := m.store.Active()
	if active == nil || len(active.Messages) == 0 {
		return m.theme.ChatMeta.Render("\n  Ask Nebula anything about the chain.")
	}

	width := m.width - 4
	var b strings.Builder
	for _, msg := range active.Messages {
		b.WriteString(m.renderMessage(msg, width))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m *Model) renderMessage(msg model.Message, width int) string {
	switch msg.Role {
	case model.RoleUser:
		return m.theme.UserLabel.Render("You") + "\n" +
			m.theme.UserText.Width(width).Render(msg.Content)
	default:
		body := msg.Content
		if m.renderer != nil {
			if rendered, err := m.renderer.Render(msg.Content); err == nil {
				body = strings.TrimRight(rendered, "\n")
			}
		}
		return m.theme.AssistantLabel.Render("Nebula") + "\n" +
			m.theme.AssistantText.Width(width).Render(body)
	}
}
