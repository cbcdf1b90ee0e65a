// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package wallet

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Sentinel errors for dispatch outcomes.
var (
	// ErrNoSigner indicates no wallet is connected; the request is
	// reported as failed, never raised to the UI shell.
	ErrNoSigner = errors.New("no signer connected")

	// ErrDeclined indicates the user rejected the transaction.
	ErrDeclined = errors.New("transaction declined by user")
)

// Status is the terminal state of a dispatched transaction.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Outcome is the terminal result a dispatch reports back.
type Outcome struct {
	Status Status
	TxHash string
	Err    error
}

// Message renders the synthetic assistant message for this outcome.
func (o Outcome) Message() string {
	switch o.Status {
	case StatusSubmitted:
		return fmt.Sprintf("Transaction submitted: %s", o.TxHash)
	case StatusCancelled:
		return "Transaction cancelled."
	default:
		return fmt.Sprintf("Transaction failed: %v", o.Err)
	}
}

// Signer executes a transaction request. Implementations own everything
// on-chain: key material, gas estimation, RPC submission.
type Signer interface {
	SignAndSend(ctx context.Context, req TransactionRequest) (txHash string, err error)
}

// Dispatcher forwards transaction requests to a signer. The signer is
// passed at call time by the caller that owns the connection; there is
// no process-wide current-wallet variable.
type Dispatcher struct{}

// Dispatch runs the signer on its own goroutine and delivers exactly
// one terminal Outcome through report. It never blocks the caller, so
// stream consumption continues while the user decides.
func (d *Dispatcher) Dispatch(ctx context.Context, signer Signer, req TransactionRequest, report func(Outcome)) {
	go func() {
		if signer == nil {
			report(Outcome{Status: StatusFailed, Err: ErrNoSigner})
			return
		}

		hash, err := signer.SignAndSend(ctx, req)
		switch {
		case err == nil:
			log.Printf("wallet: transaction submitted on chain %d: %s", req.ChainID, hash)
			report(Outcome{Status: StatusSubmitted, TxHash: hash})
		case errors.Is(err, context.Canceled) || errors.Is(err, ErrDeclined):
			report(Outcome{Status: StatusCancelled, Err: err})
		default:
			log.Printf("wallet: transaction failed on chain %d: %v", req.ChainID, err)
			report(Outcome{Status: StatusFailed, Err: err})
		}
	}()
}
