// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package wallet is the signing boundary. The chat core hands action
// payloads to this package unmodified; everything on-chain (gas, RPC,
// actual signing) belongs to the injected Signer implementation.
package wallet

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// TransactionRequest is the payload of a sign_transaction action.
// Value is a decimal wei string, Data the hex-encoded calldata.
type TransactionRequest struct {
	To      string `json:"to"`
	Value   string `json:"value"`
	Data    string `json:"data"`
	ChainID int64  `json:"chainId"`
}

// ParseTransactionRequest decodes an action payload. The payload passes
// through unmodified; only the known fields are read.
func ParseTransactionRequest(payload json.RawMessage) (*TransactionRequest, error) {
	var req TransactionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("failed to parse transaction request: %w", err)
	}
	return &req, nil
}

// =============================================================================
// NETWORKS
// =============================================================================

// Network describes a known chain for display purposes.
type Network struct {
	Name     string
	Symbol   string
	Explorer string
}

var networks = map[int64]Network{
	1:        {Name: "Ethereum", Symbol: "ETH", Explorer: "https://etherscan.io"},
	5:        {Name: "Goerli", Symbol: "ETH", Explorer: "https://goerli.etherscan.io"},
	10:       {Name: "Optimism", Symbol: "ETH", Explorer: "https://optimistic.etherscan.io"},
	56:       {Name: "BNB Chain", Symbol: "BNB", Explorer: "https://bscscan.com"},
	137:      {Name: "Polygon", Symbol: "MATIC", Explorer: "https://polygonscan.com"},
	80001:    {Name: "Mumbai", Symbol: "MATIC", Explorer: "https://mumbai.polygonscan.com"},
	11155111: {Name: "Sepolia", Symbol: "ETH", Explorer: "https://sepolia.etherscan.io"},
	42161:    {Name: "Arbitrum One", Symbol: "ETH", Explorer: "https://arbiscan.io"},
	43114:    {Name: "Avalanche", Symbol: "AVAX", Explorer: "https://snowtrace.io"},
}

// NetworkFor returns the display info for a chain id; unknown chains
// get a generic placeholder rather than an error.
func NetworkFor(chainID int64) Network {
	if n, ok := networks[chainID]; ok {
		return n
	}
	return Network{Name: fmt.Sprintf("Chain %d", chainID), Symbol: "units"}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// Kind is the displayed category of a transaction request.
type Kind string

const (
	KindDeployment  Kind = "contract deployment"
	KindInteraction Kind = "contract interaction"
	KindTransfer    Kind = "transfer"
	KindCall        Kind = "call"
)

// Kind classifies the request: no recipient means deployment, calldata
// means a contract interaction, positive value a transfer.
func (r *TransactionRequest) Kind() Kind {
	if r.To == "" {
		return KindDeployment
	}
	if r.Data != "" && r.Data != "0x" {
		return KindInteraction
	}
	if v, ok := new(big.Int).SetString(r.Value, 10); ok && v.Sign() > 0 {
		return KindTransfer
	}
	return KindCall
}

// FormatValue renders a decimal wei string in the chain's native unit,
// trailing zeros trimmed ("1500000000000000000" -> "1.5"). Unparseable
// input is returned as-is.
func FormatValue(wei string) string {
	v, ok := new(big.Int).SetString(wei, 10)
	if !ok {
		return wei
	}

	ether := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	whole, frac := new(big.Int).QuoRem(v, ether, new(big.Int))

	if frac.Sign() == 0 {
		return whole.String()
	}
	fracStr := frac.String()
	if pad := 18 - len(fracStr); pad > 0 {
		fracStr = strings.Repeat("0", pad) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	return whole.String() + "." + fracStr
}

// Describe renders a short human-readable summary of the request, shown
// to the user before the signer runs.
func (r *TransactionRequest) Describe() string {
	net := NetworkFor(r.ChainID)

	var b strings.Builder
	fmt.Fprintf(&b, "%s on %s", r.Kind(), net.Name)
	if r.To != "" {
		fmt.Fprintf(&b, "\nTo: %s", r.To)
	}
	if r.Value != "" && r.Value != "0" {
		fmt.Fprintf(&b, "\nValue: %s %s", FormatValue(r.Value), net.Symbol)
	}
	if r.Data != "" && r.Data != "0x" {
		fmt.Fprintf(&b, "\nData: %d bytes of calldata", hexDataLen(r.Data))
	}
	return b.String()
}

// hexDataLen returns the byte length of 0x-prefixed hex calldata.
func hexDataLen(data string) int {
	data = strings.TrimPrefix(data, "0x")
	return len(data) / 2
}

// RequestMessage renders the assistant message announcing an incoming
// transaction request, with the raw payload pretty-printed.
func RequestMessage(payload json.RawMessage) string {
	var buf strings.Builder
	buf.WriteString("Transaction request received: ")

	var pretty map[string]any
	if err := json.Unmarshal(payload, &pretty); err == nil {
		if out, err := json.MarshalIndent(pretty, "", "  "); err == nil {
			buf.Write(out)
			return buf.String()
		}
	}
	buf.Write(payload)
	return buf.String()
}
