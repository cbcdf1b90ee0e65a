// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nebula

import (
	"context"
	"encoding/json"
	"io"
	"log"
)

// =============================================================================
// PROTOCOL EVENT INTERPRETER
// =============================================================================

// ActionSignTransaction is the one action kind the backend currently
// emits: a request for the user's wallet to sign and send a transaction.
const ActionSignTransaction = "sign_transaction"

// actionKinds is the set of payload types recognized as actions.
var actionKinds = map[string]bool{
	ActionSignTransaction: true,
}

// Action is a structured instruction extracted from the stream,
// independent of SSE event labeling.
type Action struct {
	Kind    string
	Payload json.RawMessage
}

// Handlers receives the normalized event sequence of one streamed turn.
// Either callback may be nil.
type Handlers struct {
	// OnDelta receives each incremental fragment of assistant text.
	OnDelta func(text string)

	// OnAction receives each extracted action payload. Actions are
	// interleaved with deltas and never interrupt text accumulation.
	OnAction func(a Action)
}

// frameBody is the superset of fields a data payload can carry.
type frameBody struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	V     string          `json:"v"`
	Error string          `json:"error"`
}

// Interpret consumes the SSE stream from r and dispatches normalized
// events to h until end-of-stream, an `error` event, or context
// cancellation. An `error` event returns a *StreamError and stops
// consuming; frames already dispatched stand.
//
// Action detection runs on every frame before the event-label switch:
// a payload whose `type` names a known action kind is routed to
// OnAction no matter what label it arrived under. This is load-bearing
// for transaction flows, where action frames show up mid-delta under
// the `delta` label.
func Interpret(ctx context.Context, r io.Reader, h Handlers) error {
	dec := NewDecoder(r)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := dec.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var body frameBody
		if err := json.Unmarshal(frame.Data, &body); err != nil {
			log.Printf("nebula: skipping frame with unusable shape: %v", err)
			continue
		}

		if actionKinds[body.Type] {
			payload := body.Data
			// The embedded payload is sometimes a JSON document encoded
			// as a string; unwrap it before handing it off.
			var encoded string
			if json.Unmarshal(payload, &encoded) == nil {
				if !json.Valid([]byte(encoded)) {
					log.Printf("nebula: action %q carries invalid embedded payload, skipping", body.Type)
					continue
				}
				payload = json.RawMessage(encoded)
			}
			if h.OnAction != nil {
				h.OnAction(Action{Kind: body.Type, Payload: payload})
			}
			continue
		}

		switch frame.Event {
		case "delta":
			if body.V != "" && h.OnDelta != nil {
				h.OnDelta(body.V)
			}
		case "init":
			log.Printf("nebula: stream initialized: %s", frame.Data)
		case "presence":
			log.Printf("nebula: backend status: %s", frame.Data)
		case "error":
			msg := body.Error
			if msg == "" {
				msg = "unknown stream error"
			}
			return &StreamError{Message: msg}
		default:
			log.Printf("nebula: unhandled event type %q: %s", frame.Event, frame.Data)
		}
	}
}
