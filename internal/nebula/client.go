// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package nebula is the client for thirdweb's Nebula conversational
// blockchain API: the HTTP transport, the SSE frame decoder, and the
// protocol event interpreter that turns frames into text deltas and
// action requests.
//
// CLOUD: Secure logging and validation; credentials never appear in logs.
package nebula

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the chat backend.
const (
	// DefaultBaseURL is the direct API endpoint.
	DefaultBaseURL = "https://nebula-api.thirdweb.com"

	// DefaultUserID is used when the caller supplies none.
	DefaultUserID = "default-user"

	// DefaultTimeout bounds non-streaming requests. Streaming requests
	// carry no overall timeout; cancellation is the caller's context.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps error and non-streaming bodies.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for non-streaming requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; a live SSE stream is open
	// for as long as the model generates. Cancellation via context only.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat backend, either directly with a secret key
// or through a same-origin relay that holds the key server-side.
type Client struct {
	secretKey string
	clientID  string
	baseURL   string
	relayURL  string
	userID    string

	// limiter throttles outbound requests client-side so a fast typist
	// cannot trip the backend's rate limits.
	limiter *rate.Limiter
}

// NewClient creates a client with the given secret key. An empty key is
// allowed: requests then go through the relay URL when one is
// configured, and fail with ErrMissingCredential otherwise.
func NewClient(secretKey string) *Client {
	return &Client{
		secretKey: strings.TrimSpace(secretKey),
		baseURL:   DefaultBaseURL,
		userID:    DefaultUserID,
		limiter:   rate.NewLimiter(rate.Inf, 1),
	}
}

// WithBaseURL sets a custom direct API endpoint.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithRelayURL sets the relay endpoint used when no secret key is
// available (the relay adds the credential server-side).
func (c *Client) WithRelayURL(url string) *Client {
	c.relayURL = strings.TrimSuffix(url, "/")
	return c
}

// WithClientID sets the optional client identifier header.
func (c *Client) WithClientID(id string) *Client {
	c.clientID = strings.TrimSpace(id)
	return c
}

// WithUserID sets the user id sent in request envelopes.
func (c *Client) WithUserID(id string) *Client {
	if id != "" {
		c.userID = id
	}
	return c
}

// WithRateLimit throttles outbound requests to rps with the given burst.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// IsConfigured reports whether the client can reach the backend at all:
// it holds a key or knows a relay that does.
func (c *Client) IsConfigured() bool {
	return c.secretKey != "" || c.relayURL != ""
}

// APIKeyMasked returns a displayable form of the credential.
// SECURITY: never exposes key fragments; fingerprint only.
func (c *Client) APIKeyMasked() string {
	if c.secretKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.secretKey), keyFingerprint(c.secretKey))
}

// keyFingerprint returns a short SHA-256 based identifier for a key.
func keyFingerprint(key string) string {
	if key == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:4])
}

// RedactAddress shortens a wallet address for logs and display:
// "0x1234...abcd". Addresses are never logged in full.
func RedactAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// ChatRequest is one user turn.
type ChatRequest struct {
	Message       string
	WalletAddress string
	UserID        string // falls back to the client's user id
	SecretKey     string // per-call credential, overrides the client's
}

// ChatResult is the normalized non-streaming response. The backend
// answers in three shapes; all collapse to this one view.
type ChatResult struct {
	Message   string
	SessionID string
	MessageID string
	Actions   []Action
}

// executeConfig tells the backend that transaction signing happens
// client-side with the given wallet.
type executeConfig struct {
	Mode                string `json:"mode"`
	SignerWalletAddress string `json:"signer_wallet_address"`
}

// chatEnvelope is the direct-API request body.
type chatEnvelope struct {
	Message       string        `json:"message"`
	UserID        string        `json:"user_id"`
	Stream        bool          `json:"stream"`
	ExecuteConfig executeConfig `json:"execute_config"`
}

// relayEnvelope is the relay request body; the relay holds the key and
// rewrites this into the direct shape.
type relayEnvelope struct {
	Message       string `json:"message"`
	WalletAddress string `json:"walletAddress"`
	UserID        string `json:"userId"`
	Stream        bool   `json:"stream"`
}

// wireResponse is the superset of the backend's non-streaming shapes.
type wireResponse struct {
	Message   string       `json:"message"`
	Actions   []wireAction `json:"actions"`
	SessionID string       `json:"session_id"`
	RequestID string       `json:"request_id"`
	Result    *struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
		MessageID string `json:"message_id"`
	} `json:"result"`
}

type wireAction struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Stream submits req and interprets the SSE response through h. It
// returns when the stream ends, an `error` event arrives, or ctx is
// cancelled. The response body is released on every exit path.
func (c *Client) Stream(ctx context.Context, req ChatRequest, h Handlers) error {
	resp, err := c.open(ctx, req, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return Interpret(ctx, resp.Body, h)
}

// Chat submits req without streaming and returns the normalized result.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	resp, err := c.open(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return normalize(&wire), nil
}

// open resolves the credential, builds the request for the direct or
// relay path, and returns the response with a 2xx status.
func (c *Client) open(ctx context.Context, req ChatRequest, stream bool) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	userID := req.UserID
	if userID == "" {
		userID = c.userID
	}

	key := strings.TrimSpace(req.SecretKey)
	if key == "" {
		key = c.secretKey
	}

	var (
		url      string
		bodyJSON []byte
		err      error
	)
	direct := key != ""
	switch {
	case direct:
		url = c.baseURL + "/chat"
		bodyJSON, err = json.Marshal(chatEnvelope{
			Message: req.Message,
			UserID:  userID,
			Stream:  stream,
			ExecuteConfig: executeConfig{
				Mode:                "client",
				SignerWalletAddress: req.WalletAddress,
			},
		})
	case c.relayURL != "":
		url = c.relayURL
		bodyJSON, err = json.Marshal(relayEnvelope{
			Message:       req.Message,
			WalletAddress: req.WalletAddress,
			UserID:        userID,
			Stream:        stream,
		})
	default:
		// No key, no relay: fail before touching the network.
		return nil, ErrMissingCredential
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if direct {
		httpReq.Header.Set("x-secret-key", key)
		if c.clientID != "" {
			httpReq.Header.Set("x-client-id", c.clientID)
		}
	}
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	// CLOUD: Secure logging - wallet redacted, key as fingerprint only.
	log.Printf("nebula: POST %s (stream=%t, wallet=%s, key=%s)",
		url, stream, RedactAddress(req.WalletAddress), keyFingerprint(key))

	client := sharedHTTPClient
	if stream {
		client = sharedStreamingClient
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	log.Printf("nebula: response %d %s (%v)", resp.StatusCode, resp.Status, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Read the full error body so the failure is diagnosable.
		body, readErr := readResponse(resp)
		resp.Body.Close()
		if readErr != nil {
			body = nil
		}
		return nil, &UpstreamError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       string(body),
		}
	}

	return resp, nil
}

// readResponse reads a response body with a size cap.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	// Read one byte past the cap so a body of exactly MaxResponseSize
	// bytes is accepted.
	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// normalize collapses the backend's response shapes into one view.
func normalize(wire *wireResponse) *ChatResult {
	result := &ChatResult{}

	for _, a := range wire.Actions {
		payload := a.Data
		var encoded string
		if json.Unmarshal(payload, &encoded) == nil && json.Valid([]byte(encoded)) {
			payload = json.RawMessage(encoded)
		}
		result.Actions = append(result.Actions, Action{Kind: a.Type, Payload: payload})
	}

	if wire.Result != nil {
		result.Message = wire.Result.Message
		result.SessionID = wire.Result.SessionID
		result.MessageID = wire.Result.MessageID
		return result
	}

	result.Message = wire.Message
	result.SessionID = wire.SessionID
	result.MessageID = wire.RequestID
	return result
}
