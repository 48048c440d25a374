package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Client is a minimal Ethereum JSON-RPC client covering the calls the
// borrower view needs: account discovery, balance reads, contract calls
// and node-signed transactions. Keys never touch this process; signing
// happens in the node that owns the accounts.
type Client struct {
	urls        []string
	httpClient  *http.Client
	requestID   atomic.Int64
	receiptWait time.Duration
}

// NewClient creates a client for the given endpoint URLs. The first URL
// is primary; others are fallbacks.
func NewClient(urls ...string) *Client {
	return &Client{
		urls: urls,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		receiptWait: 500 * time.Millisecond,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error keeps the node's message intact; reverts arrive here with the
// contract's human-readable reason when one was provided.
func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Tx describes a node-signed transaction submission.
type Tx struct {
	From  string
	To    string
	Value *big.Int
	Gas   uint64
	Nonce uint64
	Data  []byte
}

// Receipt is the subset of eth_getTransactionReceipt the client inspects.
type Receipt struct {
	TransactionHash string `json:"transactionHash"`
	BlockNumber     string `json:"blockNumber"`
	Status          string `json:"status"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.requestID.Add(1),
	}

	var lastErr error
	for _, url := range c.urls {
		raw, err := c.doRequest(ctx, url, req)
		if err != nil {
			// a method-level error is the node's answer (revert,
			// insufficient funds); another endpoint would say the same
			var rpcErr *rpcError
			if errors.As(err, &rpcErr) {
				return err
			}
			lastErr = err
			continue
		}
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("unmarshal %s result: %w", method, err)
		}
		return nil
	}
	return fmt.Errorf("all RPC endpoints failed: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, url string, req rpcRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// Accounts returns the accounts the node is willing to sign for. An
// empty list means the node granted no access.
func (c *Client) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.call(ctx, "eth_accounts", []interface{}{}, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// BalanceAt returns the latest wei balance of addr.
func (c *Client) BalanceAt(ctx context.Context, addr string) (*big.Int, error) {
	var hexBalance string
	if err := c.call(ctx, "eth_getBalance", []interface{}{addr, "latest"}, &hexBalance); err != nil {
		return nil, err
	}
	return parseHexBig(hexBalance)
}

// PendingNonceAt returns the next nonce for addr including pending txs.
func (c *Client) PendingNonceAt(ctx context.Context, addr string) (uint64, error) {
	var hexNonce string
	if err := c.call(ctx, "eth_getTransactionCount", []interface{}{addr, "pending"}, &hexNonce); err != nil {
		return 0, err
	}
	n, err := parseHexBig(hexNonce)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// EthCall executes a read-only contract call and returns the raw result bytes.
func (c *Client) EthCall(ctx context.Context, to string, calldata []byte) ([]byte, error) {
	params := []interface{}{
		map[string]string{
			"to":   to,
			"data": HexEncode(calldata),
		},
		"latest",
	}
	var hexResult string
	if err := c.call(ctx, "eth_call", params, &hexResult); err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimPrefix(hexResult, "0x"))
}

// SendTransaction submits tx for node-side signing and returns its hash.
func (c *Client) SendTransaction(ctx context.Context, tx Tx) (string, error) {
	obj := map[string]string{
		"from":  tx.From,
		"to":    tx.To,
		"gas":   fmt.Sprintf("0x%x", tx.Gas),
		"nonce": fmt.Sprintf("0x%x", tx.Nonce),
	}
	if tx.Value != nil {
		obj["value"] = "0x" + tx.Value.Text(16)
	}
	if len(tx.Data) > 0 {
		obj["data"] = HexEncode(tx.Data)
	}
	var hash string
	if err := c.call(ctx, "eth_sendTransaction", []interface{}{obj}, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// WaitMined polls for the receipt of hash until it lands or ctx ends.
// A status of 0x0 is reported as an error since the spent transaction
// changed no contract state.
func (c *Client) WaitMined(ctx context.Context, hash string) (*Receipt, error) {
	ticker := time.NewTicker(c.receiptWait)
	defer ticker.Stop()
	for {
		var receipt *Receipt
		if err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash}, &receipt); err != nil {
			return nil, err
		}
		if receipt != nil {
			if receipt.Status == "0x0" {
				return receipt, fmt.Errorf("transaction %s reverted", hash)
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func parseHexBig(s string) (*big.Int, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity: %s", s)
	}
	return n, nil
}
