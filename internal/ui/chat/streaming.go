// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// Streaming happens in a goroutine while rendering happens in the main
// Bubble Tea loop, so tokens are batched through a StreamingBuffer and
// drained at a capped frame rate instead of re-rendering per token.
package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches streamed tokens for rendering. The flush
// cadence is capped at 30fps; a full batch flushes early.
// PERFORMANCE: Per-token rendering causes flicker and high CPU on fast streams.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize int
	minFlush  time.Duration
}

const (
	defaultBatchSize = 15
	framesPerSecond  = 30
)

// NewStreamingBuffer creates a streaming buffer with default settings.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		batchSize: defaultBatchSize,
		minFlush:  time.Second / framesPerSecond,
		lastFlush: time.Now(),
	}
}

// Write adds a token to the buffer. Called from the streaming goroutine.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns accumulated content when a flush threshold is reached:
// either a full batch of tokens or the frame interval elapsing.
// Called from the main Bubble Tea loop.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.tokenCount < sb.batchSize && time.Since(sb.lastFlush) < sb.minFlush {
		return "", false
	}
	return sb.drainLocked(), true
}

// ForceFlush immediately drains all buffered content regardless of
// thresholds. Used when a stream completes.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.drainLocked(), true
}

// Reset clears the buffer without flushing. Used when a stream is
// cancelled.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of tokens waiting to be flushed.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

func (sb *StreamingBuffer) drainLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content
}

// =============================================================================
// STREAMING TICK COMMAND
// =============================================================================

// streamTickCmd drives buffer drains while a stream is active.
func streamTickCmd() tea.Cmd {
	return tea.Tick(time.Second/framesPerSecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
