// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nebula

import (
	"errors"
	"fmt"
)

// Error variables for common client errors.
var (
	// ErrMissingCredential indicates no API key is available from any
	// source. Returned before any network attempt is made.
	ErrMissingCredential = errors.New("no API credential configured")
)

// UpstreamError represents a non-2xx response from the chat backend.
// The full error body is captured so setup problems (bad key, bad
// payload) are diagnosable from the message alone.
type UpstreamError struct {
	Status     int
	StatusText string
	Body       string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("chat API request failed: %d %s - %s", e.Status, e.StatusText, e.Body)
	}
	return fmt.Sprintf("chat API request failed: %d %s", e.Status, e.StatusText)
}

// StreamError represents a mid-stream protocol error delivered on an
// `error` event. It aborts the current turn; text already appended to
// the conversation is kept.
type StreamError struct {
	Message string
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	return fmt.Sprintf("stream error: %s", e.Message)
}
