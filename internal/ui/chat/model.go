// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/chainchat-tui/internal/model"
	"github.com/jeranaias/chainchat-tui/internal/nebula"
	"github.com/jeranaias/chainchat-tui/internal/storage"
	"github.com/jeranaias/chainchat-tui/internal/ui/styles"
	"github.com/jeranaias/chainchat-tui/internal/wallet"
)

// turnFailedMessage is shown as the assistant reply when a turn fails.
const turnFailedMessage = "Sorry, there was an error processing your request."

// Config wires the chat model to its collaborators.
type Config struct {
	Store         *storage.ChatStore
	Client        *nebula.Client
	Signer        wallet.Signer
	WalletAddress string
	Theme         *styles.Theme
	Markdown      bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	store      *storage.ChatStore
	client     *nebula.Client
	dispatcher wallet.Dispatcher
	signer     wallet.Signer
	walletAddr string

	theme    *styles.Theme
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	markdown bool

	width  int
	height int
	ready  bool

	// Streaming state. events lives for the whole session; it also
	// carries wallet outcomes, which can land after the stream ends.
	// turn identifies the current turn; events stamped with an older
	// turn came from a cancelled pump and are dropped.
	streaming    bool
	turn         int
	streamBuf    *StreamingBuffer
	events       chan streamEvent
	cancelStream context.CancelFunc

	// Chat list overlay
	listOpen   bool
	listCursor int

	status string
}

// New creates a chat model. The store must already be hydrated.
func New(cfg Config) *Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about wallets, tokens, contracts..."
	ta.Prompt = "> "
	ta.CharLimit = 4000
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(cfg.Theme.Spinner),
	)

	return &Model{
		store:      cfg.Store,
		client:     cfg.Client,
		signer:     cfg.Signer,
		walletAddr: cfg.WalletAddress,
		theme:      cfg.Theme,
		textarea:   ta,
		spinner:    sp,
		markdown:   cfg.Markdown,
		streamBuf:  NewStreamingBuffer(),
		events:     make(chan streamEvent, 16),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEvent(m.events))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StreamTickMsg:
		return m.handleStreamTick()

	case StreamActionMsg:
		if msg.Turn != m.turn {
			return m, waitForEvent(m.events)
		}
		return m.handleAction(msg.Action)

	case StreamDoneMsg:
		if msg.Turn != m.turn {
			return m, waitForEvent(m.events)
		}
		return m.handleStreamDone()

	case StreamErrMsg:
		if msg.Turn != m.turn {
			return m, waitForEvent(m.events)
		}
		return m.handleStreamErr(msg.Err)

	case WalletOutcomeMsg:
		m.appendAssistant(msg.Outcome.Message(), false)
		m.refreshViewport()
		return m, waitForEvent(m.events)

	case ConfigReloadedMsg:
		m.walletAddr = msg.WalletAddress
		if msg.Markdown != m.markdown {
			m.markdown = msg.Markdown
			if !m.markdown {
				m.renderer = nil
			} else if m.width > 0 {
				if renderer, err := glamour.NewTermRenderer(
					glamour.WithAutoStyle(),
					glamour.WithWordWrap(m.width-4),
				); err == nil {
					m.renderer = renderer
				}
			}
			m.refreshViewport()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 1
	statusHeight := 1
	inputHeight := 3
	vpHeight := msg.Height - headerHeight - statusHeight - inputHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(msg.Width - 4)

	if m.markdown {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(msg.Width-4),
		)
		if err != nil {
			log.Printf("chat: markdown renderer unavailable: %v", err)
			m.renderer = nil
		} else {
			m.renderer = renderer
		}
	}

	m.refreshViewport()
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.listOpen {
		return m.handleListKey(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		// First Ctrl+C cancels an in-flight turn; the next one quits.
		if m.streaming {
			m.cancelTurn()
			return m, nil
		}
		return m, tea.Quit

	case "esc":
		if m.streaming {
			m.cancelTurn()
			return m, nil
		}
		return m, nil

	case "ctrl+n":
		return m.commandNew()

	case "ctrl+l":
		m.openList()
		return m, nil

	case "enter":
		// One turn at a time.
		if m.streaming {
			return m, nil
		}
		text := strings.TrimSpace(m.textarea.Value())
		if text == "" {
			return m, nil
		}
		m.textarea.Reset()
		if strings.HasPrefix(text, "/") {
			return m.runCommand(text)
		}
		return m.submit(text)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// =============================================================================
// TURN LIFECYCLE
// =============================================================================

// submit sends a user message and starts streaming the reply.
func (m *Model) submit(text string) (tea.Model, tea.Cmd) {
	active := m.store.ActiveID()
	if active == "" {
		chat, err := m.store.NewChat()
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		active = chat.ID
	}

	if err := m.store.AppendMessage(active, model.NewUserMessage(text), false); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.refreshViewport()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelStream = cancel
	m.streaming = true
	m.turn++
	m.streamBuf.Reset()
	m.status = ""

	req := nebula.ChatRequest{
		Message:       text,
		WalletAddress: m.walletAddr,
	}
	go m.pump(ctx, m.turn, req)

	return m, tea.Batch(streamTickCmd(), m.spinner.Tick)
}

// pump runs the streaming request on its own goroutine. Tokens go
// straight into the StreamingBuffer; discrete events go through the
// events channel, stamped with the turn that owns this pump.
func (m *Model) pump(ctx context.Context, turn int, req nebula.ChatRequest) {
	err := m.client.Stream(ctx, req, nebula.Handlers{
		OnDelta: m.streamBuf.Write,
		OnAction: func(action nebula.Action) {
			m.events <- streamEvent{turn: turn, action: &action}
		},
	})
	if err != nil && ctx.Err() == nil {
		m.events <- streamEvent{turn: turn, err: err}
		return
	}
	m.events <- streamEvent{turn: turn, done: true}
}

func (m *Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if !m.streaming {
		return m, nil
	}
	if content, ok := m.streamBuf.Flush(); ok {
		m.appendAssistant(content, true)
		m.refreshViewport()
	}
	return m, streamTickCmd()
}

func (m *Model) handleStreamDone() (tea.Model, tea.Cmd) {
	if content, ok := m.streamBuf.ForceFlush(); ok {
		m.appendAssistant(content, true)
	}
	m.streaming = false
	m.cancelStream = nil
	m.refreshViewport()
	return m, waitForEvent(m.events)
}

func (m *Model) handleStreamErr(err error) (tea.Model, tea.Cmd) {
	log.Printf("chat: turn failed: %v", err)
	// Text that arrived before the failure stays on the transcript.
	if content, ok := m.streamBuf.ForceFlush(); ok {
		m.appendAssistant(content, true)
	}
	m.streaming = false
	m.cancelStream = nil
	m.appendAssistant(turnFailedMessage, false)
	m.refreshViewport()
	return m, waitForEvent(m.events)
}

// handleAction surfaces a transaction request and hands it to the
// signer. The stream keeps flowing while the signer runs.
func (m *Model) handleAction(action nebula.Action) (tea.Model, tea.Cmd) {
	m.appendAssistant(wallet.RequestMessage(action.Payload), false)
	m.refreshViewport()

	req, err := wallet.ParseTransactionRequest(action.Payload)
	if err != nil {
		log.Printf("chat: unparseable transaction request: %v", err)
		return m, waitForEvent(m.events)
	}

	// Signing may outlast the stream, so it gets its own context.
	m.dispatcher.Dispatch(context.Background(), m.signer, *req, func(o wallet.Outcome) {
		m.events <- streamEvent{outcome: &o}
	})
	return m, waitForEvent(m.events)
}

// cancelTurn aborts the in-flight stream. Whatever already reached the
// store stays. Advancing the turn orphans the cancelled pump: its late
// events carry the old stamp and get dropped.
func (m *Model) cancelTurn() {
	if m.cancelStream != nil {
		m.cancelStream()
		m.cancelStream = nil
	}
	m.turn++
	if content, ok := m.streamBuf.ForceFlush(); ok {
		m.appendAssistant(content, true)
	}
	m.streaming = false
	m.status = "Cancelled."
	m.refreshViewport()
}

// appendAssistant appends assistant text to the active chat.
func (m *Model) appendAssistant(content string, merge bool) {
	active := m.store.ActiveID()
	if active == "" {
		return
	}
	if err := m.store.AppendMessage(active, model.NewAssistantMessage(content), merge); err != nil {
		log.Printf("chat: append failed: %v", err)
	}
}
