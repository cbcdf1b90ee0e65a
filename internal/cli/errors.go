// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for chainchat CLI commands.
//
// STANDARDIZED PATTERN:
//   - ALWAYS return errors (never just print and return nil)
//   - Let the caller decide how to display errors
//
// ERROR HANDLING: Errors must not be silently ignored
package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/jeranaias/chainchat-tui/internal/nebula"
	"github.com/jeranaias/chainchat-tui/internal/storage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a missing or rejected credential
	ExitAuthError = 4
	// ExitNetworkError indicates an upstream or connectivity error
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// GetExitCode maps an error to its exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var upstream *nebula.UpstreamError
	switch {
	case errors.Is(err, nebula.ErrMissingCredential):
		return ExitAuthError
	case errors.As(err, &upstream):
		if upstream.Status == http.StatusUnauthorized || upstream.Status == http.StatusForbidden {
			return ExitAuthError
		}
		return ExitNetworkError
	case errors.Is(err, storage.ErrChatNotFound):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	default:
		return ExitGeneralError
	}
}
