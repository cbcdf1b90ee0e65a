// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chainchat-tui/internal/nebula"
	"github.com/jeranaias/chainchat-tui/internal/wallet"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StreamTickMsg drives streaming buffer drains at the frame rate.
type StreamTickMsg struct {
	Time time.Time
}

// StreamActionMsg carries an action payload surfaced mid-stream.
type StreamActionMsg struct {
	Turn   int
	Action nebula.Action
}

// StreamDoneMsg signals that the stream closed normally.
type StreamDoneMsg struct {
	Turn int
}

// StreamErrMsg signals that the turn failed.
type StreamErrMsg struct {
	Turn int
	Err  error
}

// WalletOutcomeMsg carries the terminal result of a dispatched
// transaction back into the chat.
type WalletOutcomeMsg struct {
	Outcome wallet.Outcome
}

// ConfigReloadedMsg delivers settings picked up from a config file
// change while the TUI is running.
type ConfigReloadedMsg struct {
	WalletAddress string
	Markdown      bool
}

// =============================================================================
// STREAM PUMP
// =============================================================================

// streamEvent is the internal wire between the streaming goroutine and
// the Bubble Tea loop. Tokens bypass it and go straight into the
// StreamingBuffer; everything discrete flows through here. turn stamps
// the event with the turn that produced it so a cancelled pump's late
// events cannot be mistaken for the current turn's. Wallet outcomes
// are the exception: they stay valid after the turn ends.
type streamEvent struct {
	turn    int
	action  *nebula.Action
	outcome *wallet.Outcome
	err     error
	done    bool
}

// waitForEvent blocks on the next discrete stream event and converts it
// to a Bubble Tea message. Each handler re-arms it.
func waitForEvent(ch <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return StreamDoneMsg{}
		}
		switch {
		case ev.action != nil:
			return StreamActionMsg{Turn: ev.turn, Action: *ev.action}
		case ev.outcome != nil:
			return WalletOutcomeMsg{Outcome: *ev.outcome}
		case ev.err != nil:
			return StreamErrMsg{Turn: ev.turn, Err: ev.err}
		default:
			return StreamDoneMsg{Turn: ev.turn}
		}
	}
}
