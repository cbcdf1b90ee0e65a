// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nebula

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatDirectRequestShape(t *testing.T) {
	var gotHeaders http.Header
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		assert.Equal(t, "/chat", r.URL.Path)
		w.Write([]byte(`{"message":"hi","session_id":"s1","request_id":"m1"}`))
	}))
	defer srv.Close()

	client := NewClient("sk-test-key").WithBaseURL(srv.URL).WithClientID("cid-1")
	result, err := client.Chat(context.Background(), ChatRequest{
		Message:       "What is the ETH price?",
		WalletAddress: "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045",
	})
	require.NoError(t, err)

	assert.Equal(t, "sk-test-key", gotHeaders.Get("x-secret-key"))
	assert.Equal(t, "cid-1", gotHeaders.Get("x-client-id"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))

	assert.Equal(t, "What is the ETH price?", gotBody["message"])
	assert.Equal(t, DefaultUserID, gotBody["user_id"])
	assert.Equal(t, false, gotBody["stream"])
	execCfg, ok := gotBody["execute_config"].(map[string]any)
	require.True(t, ok, "execute_config missing")
	assert.Equal(t, "client", execCfg["mode"])
	assert.Equal(t, "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", execCfg["signer_wallet_address"])

	assert.Equal(t, "hi", result.Message)
	assert.Equal(t, "s1", result.SessionID)
	assert.Equal(t, "m1", result.MessageID)
}

func TestChatPerCallKeyOverridesClientKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-secret-key")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("client-key").WithBaseURL(srv.URL)
	_, err := client.Chat(context.Background(), ChatRequest{Message: "q", SecretKey: "call-key"})
	require.NoError(t, err)
	assert.Equal(t, "call-key", gotKey)
}

func TestChatRelayFallbackWhenNoKey(t *testing.T) {
	var gotBody map[string]any
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-secret-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"result":{"message":"ok","session_id":"s","message_id":"m"}}`))
	}))
	defer srv.Close()

	client := NewClient("").WithRelayURL(srv.URL)
	result, err := client.Chat(context.Background(), ChatRequest{
		Message:       "q",
		WalletAddress: "0xabc",
		UserID:        "u1",
	})
	require.NoError(t, err)

	// The relay envelope carries no secret header; the relay holds the key.
	assert.Empty(t, gotKey)
	assert.Equal(t, "q", gotBody["message"])
	assert.Equal(t, "0xabc", gotBody["walletAddress"])
	assert.Equal(t, "u1", gotBody["userId"])
	assert.Equal(t, "ok", result.Message)
}

func TestChatMissingCredentialNoNetworkAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	// Base URL points at a live server, but with no key and no relay the
	// client must fail before making any request.
	client := NewClient("").WithBaseURL(srv.URL)
	_, err := client.Chat(context.Background(), ChatRequest{Message: "q"})
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Zero(t, calls)
}

func TestChatUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid secret key"}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key").WithBaseURL(srv.URL)
	_, err := client.Chat(context.Background(), ChatRequest{Message: "q"})

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr), "err = %v, want *UpstreamError", err)
	assert.Equal(t, http.StatusUnauthorized, upErr.Status)
	assert.Equal(t, "Unauthorized", upErr.StatusText)
	assert.Contains(t, upErr.Body, "invalid secret key")
}

func TestChatNormalizesResultShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{"message":"$3000","session_id":"s1","message_id":"m1"}}`))
	}))
	defer srv.Close()

	client := NewClient("k").WithBaseURL(srv.URL)
	result, err := client.Chat(context.Background(), ChatRequest{Message: "What is the ETH price?"})
	require.NoError(t, err)

	assert.Equal(t, "$3000", result.Message)
	assert.Equal(t, "s1", result.SessionID)
	assert.Equal(t, "m1", result.MessageID)
}

func TestChatNormalizesActions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"actions":[{"type":"sign_transaction","data":"{\"chainId\":1}"}],"session_id":"s1"}`))
	}))
	defer srv.Close()

	client := NewClient("k").WithBaseURL(srv.URL)
	result, err := client.Chat(context.Background(), ChatRequest{Message: "send eth"})
	require.NoError(t, err)

	require.Len(t, result.Actions, 1)
	assert.Equal(t, ActionSignTransaction, result.Actions[0].Kind)
	assert.JSONEq(t, `{"chainId":1}`, string(result.Actions[0].Payload))
}

func TestStreamEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("event: delta\n" +
			"data: {\"v\":\"streamed \"}\n" +
			"data: {\"v\":\"text\"}\n"))
	}))
	defer srv.Close()

	var text strings.Builder
	client := NewClient("k").WithBaseURL(srv.URL)
	err := client.Stream(context.Background(), ChatRequest{Message: "q"}, Handlers{
		OnDelta: func(s string) { text.WriteString(s) },
	})
	require.NoError(t, err)
	assert.Equal(t, "streamed text", text.String())
}

func TestStreamUpstreamErrorBeforeBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	client := NewClient("k").WithBaseURL(srv.URL)
	err := client.Stream(context.Background(), ChatRequest{Message: "q"}, Handlers{})

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusBadGateway, upErr.Status)
	assert.Equal(t, "upstream down", upErr.Body)
}

func TestRedactAddress(t *testing.T) {
	assert.Equal(t, "0xd8dA...6045", RedactAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"))
	assert.Equal(t, "0xabc", RedactAddress("0xabc"))
	assert.Equal(t, "", RedactAddress(""))
}

func TestAPIKeyMasked(t *testing.T) {
	client := NewClient("super-secret-key")
	masked := client.APIKeyMasked()
	assert.NotContains(t, masked, "super-secret-key")
	assert.Contains(t, masked, "REDACTED")
	assert.Equal(t, "[not set]", NewClient("").APIKeyMasked())
}

func TestIsConfigured(t *testing.T) {
	assert.True(t, NewClient("k").IsConfigured())
	assert.True(t, NewClient("").WithRelayURL("http://localhost/api").IsConfigured())
	assert.False(t, NewClient("").IsConfigured())
}

func TestReadResponseSizeCap(t *testing.T) {
	atCap := &http.Response{Body: io.NopCloser(bytes.NewReader(bytes.Repeat([]byte("a"), MaxResponseSize)))}
	body, err := readResponse(atCap)
	require.NoError(t, err)
	assert.Len(t, body, MaxResponseSize)

	overCap := &http.Response{Body: io.NopCloser(bytes.NewReader(bytes.Repeat([]byte("a"), MaxResponseSize+1)))}
	_, err = readResponse(overCap)
	assert.ErrorContains(t, err, "maximum size")
}
