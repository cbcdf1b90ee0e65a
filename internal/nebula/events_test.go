// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nebula

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recorded struct {
	deltas  []string
	actions []Action
}

func interpret(t *testing.T, stream string) (recorded, error) {
	t.Helper()
	var rec recorded
	err := Interpret(context.Background(), strings.NewReader(stream), Handlers{
		OnDelta:  func(text string) { rec.deltas = append(rec.deltas, text) },
		OnAction: func(a Action) { rec.actions = append(rec.actions, a) },
	})
	return rec, err
}

func TestInterpretDeltas(t *testing.T) {
	rec, err := interpret(t, "event: delta\n"+
		"data: {\"v\":\"The answer \"}\n"+
		"data: {\"v\":\"is 42.\"}\n")
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if got := strings.Join(rec.deltas, ""); got != "The answer is 42." {
		t.Errorf("accumulated text = %q", got)
	}
}

func TestInterpretActionByShapeNotLabel(t *testing.T) {
	// The action frame arrives under the delta label; detection is by
	// payload shape, so it must still be routed as an action.
	rec, err := interpret(t, "event: delta\n"+
		`data: {"type":"sign_transaction","data":{"to":"0xabc","value":"1","data":"0x","chainId":1}}`+"\n")
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if len(rec.actions) != 1 {
		t.Fatalf("len(actions) = %d, want 1", len(rec.actions))
	}
	if rec.actions[0].Kind != ActionSignTransaction {
		t.Errorf("Kind = %q", rec.actions[0].Kind)
	}
	if len(rec.deltas) != 0 {
		t.Errorf("action frame leaked into deltas: %v", rec.deltas)
	}
}

func TestInterpretActionUnwrapsStringPayload(t *testing.T) {
	rec, err := interpret(t, "event: delta\n"+
		`data: {"type":"sign_transaction","data":"{\"to\":\"0xabc\",\"chainId\":1}"}`+"\n")
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if len(rec.actions) != 1 {
		t.Fatalf("len(actions) = %d, want 1", len(rec.actions))
	}
	if got := string(rec.actions[0].Payload); got != `{"to":"0xabc","chainId":1}` {
		t.Errorf("Payload = %s", got)
	}
}

func TestInterpretActionDoesNotInterruptText(t *testing.T) {
	rec, err := interpret(t, "event: delta\n"+
		"data: {\"v\":\"before \"}\n"+
		`data: {"type":"sign_transaction","data":{"chainId":1}}`+"\n"+
		"data: {\"v\":\"after\"}\n")
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if got := strings.Join(rec.deltas, ""); got != "before after" {
		t.Errorf("text = %q, want concatenation as if the action were absent", got)
	}
	if len(rec.actions) != 1 {
		t.Errorf("len(actions) = %d, want 1", len(rec.actions))
	}
}

func TestInterpretErrorEventStops(t *testing.T) {
	rec, err := interpret(t, "event: delta\n"+
		"data: {\"v\":\"partial\"}\n"+
		"event: error\n"+
		"data: {\"error\":\"timeout\"}\n"+
		"event: delta\n"+
		"data: {\"v\":\"never seen\"}\n")

	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("err = %v, want *StreamError", err)
	}
	if streamErr.Message != "timeout" {
		t.Errorf("Message = %q, want %q", streamErr.Message, "timeout")
	}
	// Text already dispatched stands; nothing after the error arrives.
	if got := strings.Join(rec.deltas, ""); got != "partial" {
		t.Errorf("deltas = %q, want %q", got, "partial")
	}
}

func TestInterpretErrorWithoutMessage(t *testing.T) {
	_, err := interpret(t, "event: error\ndata: {}\n")
	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("err = %v, want *StreamError", err)
	}
	if streamErr.Message != "unknown stream error" {
		t.Errorf("Message = %q", streamErr.Message)
	}
}

func TestInterpretDiagnosticEventsAreNoOps(t *testing.T) {
	rec, err := interpret(t, "event: init\n"+
		"data: {\"session_id\":\"s1\"}\n"+
		"event: presence\n"+
		"data: {\"status\":\"thinking\"}\n"+
		"event: something_new\n"+
		"data: {\"x\":1}\n")
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if len(rec.deltas) != 0 || len(rec.actions) != 0 {
		t.Errorf("diagnostic events produced output: %+v", rec)
	}
}

func TestInterpretContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Interpret(ctx, strings.NewReader("event: delta\ndata: {\"v\":\"x\"}\n"), Handlers{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestInterpretNilHandlers(t *testing.T) {
	err := Interpret(context.Background(), strings.NewReader("event: delta\n"+
		"data: {\"v\":\"x\"}\n"+
		`data: {"type":"sign_transaction","data":{"chainId":1}}`+"\n"), Handlers{})
	if err != nil {
		t.Fatalf("Interpret with nil handlers failed: %v", err)
	}
}
