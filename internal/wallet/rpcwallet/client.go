// Package rpcwallet talks JSON-RPC 2.0 to a wallet endpoint. It implements
// the wallet.Provider capability with the two standard account methods:
// eth_accounts (silent enumeration) and eth_requestAccounts (interactive
// authorization). Provider-level errors follow the EIP-1193 code space.
package rpcwallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"blockship/internal/wallet"
)

// EIP-1193 provider error codes.
const (
	codeUserRejected   = 4001
	codeUnauthorized   = 4100
	codeRequestPending = -32002
)

// Client is a JSON-RPC 2.0 wallet provider client.
type Client struct {
	endpoint string
	client   *http.Client
	nextID   atomic.Int64
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// ListAuthorizedAccounts calls eth_accounts, which never prompts.
func (c *Client) ListAuthorizedAccounts(ctx context.Context) ([]string, error) {
	result, err := c.call(ctx, "eth_accounts")
	if err != nil {
		return nil, err
	}

	var accounts []string
	if err := json.Unmarshal(result, &accounts); err != nil {
		return nil, wallet.NewProviderError(wallet.ErrorTransport, "wallet returned a malformed account list", err)
	}
	return accounts, nil
}

// RequestAccess calls eth_requestAccounts, which may prompt the user and
// block until they answer.
func (c *Client) RequestAccess(ctx context.Context) error {
	_, err := c.call(ctx, "eth_requestAccounts")
	return err
}

// Health probes the endpoint with a silent enumeration.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.call(ctx, "eth_accounts")
	return err
}

func (c *Client) call(ctx context.Context, method string) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  []any{},
	})
	if err != nil {
		return nil, wallet.NewProviderError(wallet.ErrorTransport, "", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, wallet.NewProviderError(wallet.ErrorTransport, "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, wallet.NewProviderError(wallet.ErrorTransport, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, wallet.NewProviderError(wallet.ErrorTransport,
			fmt.Sprintf("wallet endpoint answered %s", resp.Status), nil)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, wallet.NewProviderError(wallet.ErrorTransport, "wallet returned a malformed response", err)
	}

	if rpcResp.Error != nil {
		return nil, classifyRPCError(rpcResp.Error)
	}
	return rpcResp.Result, nil
}

func classifyRPCError(rpcErr *rpcError) error {
	switch rpcErr.Code {
	case codeUserRejected:
		return wallet.NewProviderError(wallet.ErrorRejected, "wallet connection was rejected", nil)
	case codeRequestPending:
		return wallet.NewProviderError(wallet.ErrorPending, "a wallet authorization request is already pending", nil)
	case codeUnauthorized:
		return wallet.NewProviderError(wallet.ErrorLocked, rpcErr.Message, nil)
	default:
		return wallet.NewProviderError(wallet.ErrorTransport, rpcErr.Message, nil)
	}
}
