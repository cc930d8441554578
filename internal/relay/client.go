// Package relay is the HTTP client for the relay and save servers. It owns
// the response envelope convention and maps failures onto the errs taxonomy;
// protocol packages depend on the small interfaces declared here rather than
// on *Client.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/0gfoundation/0g-points-relay/internal/errs"
)

// DefaultTimeout bounds every round trip.
const DefaultTimeout = 5 * time.Second

// NonceSource supplies the next expected nonce of an account.
type NonceSource interface {
	LedgerNonce(ctx context.Context, account string) (*big.Int, error)
	ShopNonce(ctx context.Context, account string) (*big.Int, error)
}

// ChainIDSource supplies the side chain id embedded in signed messages.
type ChainIDSource interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// TaskSource is the task event feed polled by the collector.
type TaskSource interface {
	LatestTaskSequence(ctx context.Context) (uint64, error)
	Tasks(ctx context.Context, since uint64) ([]Task, error)
}

// Client talks to the relay server and the purchase save server.
type Client struct {
	relayURL string
	saveURL  string
	http     *http.Client
	limiter  *rate.Limiter

	mu        sync.Mutex
	chainID   *big.Int
	chainInfo map[Chain]*ChainInfo
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables it.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(relayURL, saveURL string, opts ...Option) *Client {
	c := &Client{
		relayURL: strings.TrimRight(relayURL, "/"),
		saveURL:  strings.TrimRight(saveURL, "/"),
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// RelayURL returns the configured relay base URL.
func (c *Client) RelayURL() string { return c.relayURL }

type envelope struct {
	Code  int             `json:"code"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// seg trims and escapes one path segment.
func seg(s string) string {
	return url.PathEscape(strings.TrimSpace(s))
}

// call performs one round trip and returns the envelope's data payload.
func (c *Client) call(ctx context.Context, method, base, path string, body any) (json.RawMessage, error) {
	target := base + path
	op := method + " " + path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &errs.TransportError{Op: op, URL: target, Err: err}
		}
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", op, err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, &errs.TransportError{Op: op, URL: target, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &errs.TransportError{Op: op, URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.TransportError{Op: op, URL: target, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &errs.TransportError{Op: op, URL: target,
			Err: fmt.Errorf("status %d: invalid envelope: %w", resp.StatusCode, err)}
	}
	if env.Code != 0 {
		msg := ""
		if env.Error != nil {
			msg = env.Error.Message
		}
		return nil, &errs.RemoteError{Code: env.Code, Message: msg}
	}
	if resp.StatusCode >= 300 {
		return nil, &errs.TransportError{Op: op, URL: target, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return env.Data, nil
}

// do is call plus decoding of the payload into out (when non-nil).
func (c *Client) do(ctx context.Context, method, base, path string, body, out any) error {
	data, err := c.call(ctx, method, base, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &errs.TransportError{Op: method + " " + path, URL: base + path, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, c.relayURL, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, c.relayURL, path, body, out)
}

// txHash posts body and returns the transaction hash the relay reports.
func (c *Client) txHash(ctx context.Context, path string, body any) (string, error) {
	var out struct {
		TxHash string `json:"txHash"`
	}
	if err := c.post(ctx, path, body, &out); err != nil {
		return "", err
	}
	return out.TxHash, nil
}

// ── Chain / ledger ────────────────────────────────────────────────────────────

// ChainID returns the side chain id. The first successful answer is cached.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	cached := c.chainID
	c.mu.Unlock()
	if cached != nil {
		return new(big.Int).Set(cached), nil
	}

	var out struct {
		ChainID Int `json:"chainId"`
	}
	if err := c.get(ctx, "/v1/chain/side/id", &out); err != nil {
		return nil, err
	}
	id := out.ChainID.Big()

	c.mu.Lock()
	c.chainID = id
	c.mu.Unlock()
	return new(big.Int).Set(id), nil
}

// LedgerNonce returns the next nonce of account on the ledger contract.
func (c *Client) LedgerNonce(ctx context.Context, account string) (*big.Int, error) {
	return c.nonce(ctx, "/v1/ledger/nonce/"+seg(account))
}

// ShopNonce returns the next nonce of account on the shop contract.
func (c *Client) ShopNonce(ctx context.Context, account string) (*big.Int, error) {
	return c.nonce(ctx, "/v1/shop/nonce/"+seg(account))
}

func (c *Client) nonce(ctx context.Context, path string) (*big.Int, error) {
	var out struct {
		Nonce Int `json:"nonce"`
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Nonce.Big(), nil
}

// BalanceOfAccount returns the point and token balance of a wallet.
func (c *Client) BalanceOfAccount(ctx context.Context, account string) (*UserBalance, error) {
	var out UserBalance
	if err := c.get(ctx, "/v1/ledger/balance/account/"+seg(account), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BalanceOfPhoneHash returns the balance held under a phone hash.
func (c *Client) BalanceOfPhoneHash(ctx context.Context, phoneHash string) (*UserBalance, error) {
	var out UserBalance
	if err := c.get(ctx, "/v1/ledger/balance/phoneHash/"+seg(phoneHash), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
