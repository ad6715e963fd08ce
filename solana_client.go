package buywatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultHTTPTimeout    = 15 * time.Second
	defaultRateLimitDelay = 2 * time.Second

	// lamportsPerSOL is the scale factor between the chain's smallest unit
	// and whole SOL.
	lamportsPerSOL = 1_000_000_000
)

var (
	chainRPCLogger    = NewLogger("chain-rpc")
	rpcRequestCounter uint64
)

func newRPCRequestID() string {
	counter := atomic.AddUint64(&rpcRequestCounter, 1)
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), counter)
}

// ErrRateLimited marks an HTTP 429 from the chain RPC endpoint.
var ErrRateLimited = errors.New("chain rpc rate limited")

// ChainClient defines the read-only chain queries the watcher needs. Both
// calls downgrade transport, decode, and throttling failures to an
// empty/absent result; the polling loop must keep running indefinitely, so
// failures never surface as errors. A throttled call pauses for the
// configured rate-limit delay before returning.
type ChainClient interface {
	GetSignaturesForAddress(ctx context.Context, address string, limit int) []SignatureInfo
	GetTransaction(ctx context.Context, signature string) *TransactionDetail
}

// RPCChainClient calls a Solana-compatible JSON-RPC endpoint.
type RPCChainClient struct {
	Endpoint       string
	HTTPClient     *http.Client
	Logger         Logger
	RateLimitDelay time.Duration

	cacheOnce sync.Once
	txCache   *methodCache[*TransactionDetail]
}

func (c *RPCChainClient) logger() Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return chainRPCLogger
}

// SignatureInfo represents a transaction signature reference for an address.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	BlockTime *int64
}

// TransactionDetail contains the subset of fields we care about from getTransaction.
type TransactionDetail struct {
	Slot        uint64
	BlockTime   *int64
	AccountKeys []string
	Meta        TransactionMeta
}

// TransactionMeta captures the balance movements recorded for a transaction.
type TransactionMeta struct {
	Err               json.RawMessage
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TokenBalance is one pre- or post-transaction token balance entry.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     float64
}

// GetSignaturesForAddress returns the most recent signatures touching the
// address, newest first. Any failure yields an empty slice.
func (c *RPCChainClient) GetSignaturesForAddress(ctx context.Context, address string, limit int) []SignatureInfo {
	sigs, err := c.listSignatures(ctx, address, limit)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			c.logger().Printf("getSignaturesForAddress throttled, pausing %s", c.rateLimitDelay())
			c.pause(ctx)
			return nil
		}
		c.logger().Printf("getSignaturesForAddress failed: %v", err)
		return nil
	}
	return sigs
}

// GetTransaction fetches a parsed transaction. Any failure yields nil.
func (c *RPCChainClient) GetTransaction(ctx context.Context, signature string) *TransactionDetail {
	c.cacheOnce.Do(func() {
		c.txCache = newMethodCache[*TransactionDetail](transactionCacheConfig())
	})
	if detail, ok := c.txCache.Get(signature); ok {
		return detail
	}

	detail, err := c.fetchTransaction(ctx, signature)
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			c.logger().Printf("getTransaction %s throttled, pausing %s", shortSignature(signature), c.rateLimitDelay())
			c.pause(ctx)
			return nil
		}
		c.logger().Printf("getTransaction %s failed: %v", shortSignature(signature), err)
		return nil
	}

	c.txCache.Add(signature, detail)
	return detail
}

func (c *RPCChainClient) listSignatures(ctx context.Context, address string, limit int) ([]SignatureInfo, error) {
	if limit <= 0 {
		limit = 1
	}

	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      newRPCRequestID(),
		Method:  "getSignaturesForAddress",
		Params: []any{
			address,
			map[string]any{
				"limit": limit,
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode signatures request: %w", err)
	}

	resp, err := c.doRPCRequest(ctx, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("rpc request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("rpc status %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp rpcGetSignaturesResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode signatures response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error (%d): %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	results := make([]SignatureInfo, 0, len(rpcResp.Result))
	for _, item := range rpcResp.Result {
		results = append(results, SignatureInfo{
			Signature: item.Signature,
			Slot:      item.Slot,
			BlockTime: item.BlockTime,
		})
	}
	return results, nil
}

func (c *RPCChainClient) fetchTransaction(ctx context.Context, signature string) (*TransactionDetail, error) {
	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      newRPCRequestID(),
		Method:  "getTransaction",
		Params: []any{
			signature,
			map[string]any{
				"encoding":                       "json",
				"maxSupportedTransactionVersion": 0,
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode transaction request: %w", err)
	}

	resp, err := c.doRPCRequest(ctx, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("rpc request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("rpc status %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp rpcGetTransactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode transaction response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("rpc error (%d): %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return nil, fmt.Errorf("transaction not found")
	}

	detail := convertTransactionResult(rpcResp.Result)
	if detail == nil {
		return nil, fmt.Errorf("transaction details missing")
	}
	return detail, nil
}

func (c *RPCChainClient) doRPCRequest(ctx context.Context, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		if delay, ok := retryAfterDelay(resp.Header.Get("Retry-After")); ok {
			return nil, fmt.Errorf("%w: retry after %s", ErrRateLimited, delay)
		}
		return nil, ErrRateLimited
	}
	return resp, nil
}

// pause sleeps for the configured rate-limit delay, or until cancellation.
func (c *RPCChainClient) pause(ctx context.Context) {
	timer := time.NewTimer(c.rateLimitDelay())
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (c *RPCChainClient) rateLimitDelay() time.Duration {
	if c.RateLimitDelay > 0 {
		return c.RateLimitDelay
	}
	return defaultRateLimitDelay
}

func (c *RPCChainClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	c.HTTPClient = newRateLimitedHTTPClient(c.endpoint())
	return c.HTTPClient
}

func (c *RPCChainClient) endpoint() string {
	if c.Endpoint == "" {
		panic("RPCChainClient endpoint not configured")
	}
	return c.Endpoint
}

func convertTransactionResult(result *rpcTransactionResult) *TransactionDetail {
	if result == nil {
		return nil
	}

	var accountKeys []string
	if result.Transaction != nil {
		accountKeys = append(accountKeys, result.Transaction.Message.AccountKeys...)
	}
	if result.Meta != nil && result.Meta.LoadedAddresses != nil {
		accountKeys = append(accountKeys, result.Meta.LoadedAddresses.Writable...)
		accountKeys = append(accountKeys, result.Meta.LoadedAddresses.Readonly...)
	}

	meta := TransactionMeta{}
	if result.Meta != nil {
		if len(result.Meta.PreBalances) > 0 {
			meta.PreBalances = append(meta.PreBalances, result.Meta.PreBalances...)
		}
		if len(result.Meta.PostBalances) > 0 {
			meta.PostBalances = append(meta.PostBalances, result.Meta.PostBalances...)
		}
		if len(result.Meta.Err) > 0 {
			trimmed := bytes.TrimSpace(result.Meta.Err)
			if !bytes.Equal(trimmed, []byte("null")) {
				meta.Err = append([]byte(nil), trimmed...)
			}
		}
		meta.PreTokenBalances = convertTokenBalances(result.Meta.PreTokenBalances)
		meta.PostTokenBalances = convertTokenBalances(result.Meta.PostTokenBalances)
	}

	return &TransactionDetail{
		Slot:        result.Slot,
		BlockTime:   result.BlockTime,
		AccountKeys: accountKeys,
		Meta:        meta,
	}
}

func convertTokenBalances(entries []rpcTokenBalance) []TokenBalance {
	if len(entries) == 0 {
		return nil
	}
	balances := make([]TokenBalance, 0, len(entries))
	for _, entry := range entries {
		balance := TokenBalance{
			AccountIndex: entry.AccountIndex,
			Mint:         entry.Mint,
			Owner:        entry.Owner,
		}
		if entry.UITokenAmount != nil {
			balance.UIAmount = entry.UITokenAmount.value()
		}
		balances = append(balances, balance)
	}
	return balances
}

func retryAfterDelay(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second)), true
	}

	if when, err := http.ParseTime(value); err == nil {
		delay := max(time.Until(when), 0)
		return delay, true
	}

	return 0, false
}

func shortSignature(signature string) string {
	if len(signature) > 8 {
		return signature[:8] + "..."
	}
	return signature
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcGetSignaturesResponse struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      string             `json:"id"`
	Result  []rpcSignatureInfo `json:"result"`
	Error   *rpcError          `json:"error"`
}

type rpcSignatureInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	BlockTime *int64 `json:"blockTime"`
}

type rpcGetTransactionResponse struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      string                `json:"id"`
	Result  *rpcTransactionResult `json:"result"`
	Error   *rpcError             `json:"error"`
}

type rpcTransactionResult struct {
	Slot        uint64              `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *rpcTransactionMeta `json:"meta"`
	Transaction *rpcTransactionData `json:"transaction"`
}

type rpcTransactionData struct {
	Message rpcTransactionMessage `json:"message"`
}

type rpcTransactionMessage struct {
	AccountKeys []string `json:"accountKeys"`
}

type rpcTransactionMeta struct {
	Err               json.RawMessage     `json:"err"`
	PreBalances       []uint64            `json:"preBalances"`
	PostBalances      []uint64            `json:"postBalances"`
	PreTokenBalances  []rpcTokenBalance   `json:"preTokenBalances"`
	PostTokenBalances []rpcTokenBalance   `json:"postTokenBalances"`
	LoadedAddresses   *rpcLoadedAddresses `json:"loadedAddresses"`
}

type rpcTokenBalance struct {
	AccountIndex  int               `json:"accountIndex"`
	Mint          string            `json:"mint"`
	Owner         string            `json:"owner"`
	UITokenAmount *rpcUITokenAmount `json:"uiTokenAmount"`
}

type rpcUITokenAmount struct {
	UIAmount *float64 `json:"uiAmount"`
	Amount   string   `json:"amount"`
	Decimals int      `json:"decimals"`
}

// value resolves the human-scale amount, deriving it from the raw integer
// amount when the endpoint reports uiAmount as null.
func (a *rpcUITokenAmount) value() float64 {
	if a == nil {
		return 0
	}
	if a.UIAmount != nil {
		return *a.UIAmount
	}
	raw, err := strconv.ParseFloat(strings.TrimSpace(a.Amount), 64)
	if err != nil {
		return 0
	}
	for i := 0; i < a.Decimals; i++ {
		raw /= 10
	}
	return raw
}

type rpcLoadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}
