package relay

import (
	"context"
	"fmt"
	"math/big"
	"net/url"

	"github.com/0gfoundation/0g-points-relay/internal/errs"
)

// Chain selects the main chain or the side chain the ledger runs on.
type Chain string

const (
	MainChain Chain = "main"
	SideChain Chain = "side"
)

func (ch Chain) valid() bool { return ch == MainChain || ch == SideChain }

// ChainNetwork describes one chain and its transfer fees.
type ChainNetwork struct {
	Name               string `json:"name"`
	ChainID            Int    `json:"chainId"`
	ENSAddress         string `json:"ensAddress"`
	ChainTransferFee   Int    `json:"chainTransferFee"`
	ChainBridgeFee     Int    `json:"chainBridgeFee"`
	LoyaltyTransferFee Int    `json:"loyaltyTransferFee"`
	LoyaltyBridgeFee   Int    `json:"loyaltyBridgeFee"`
}

// ChainContracts are the token and bridge addresses of one chain.
type ChainContracts struct {
	Token         string `json:"token"`
	ChainBridge   string `json:"chainBridge"`
	LoyaltyBridge string `json:"loyaltyBridge"`
}

// ChainInfo is the relay's description of a chain.
type ChainInfo struct {
	URL      string         `json:"url"`
	Network  ChainNetwork   `json:"network"`
	Contract ChainContracts `json:"contract"`
}

// ChainInfo returns the description of ch. The first successful answer per
// chain is cached.
func (c *Client) ChainInfo(ctx context.Context, ch Chain) (*ChainInfo, error) {
	if !ch.valid() {
		return nil, errs.Protocol("chain info", "unknown chain %q", ch)
	}
	c.mu.Lock()
	cached := c.chainInfo[ch]
	c.mu.Unlock()
	if cached != nil {
		out := *cached
		return &out, nil
	}

	var info ChainInfo
	if err := c.get(ctx, "/v1/chain/"+string(ch)+"/info", &info); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.chainInfo == nil {
		c.chainInfo = make(map[Chain]*ChainInfo)
	}
	c.chainInfo[ch] = &info
	c.mu.Unlock()
	out := info
	return &out, nil
}

// TokenNonce returns the next token nonce of account on ch.
func (c *Client) TokenNonce(ctx context.Context, ch Chain, account string) (*big.Int, error) {
	if !ch.valid() {
		return nil, errs.Protocol("token nonce", "unknown chain %q", ch)
	}
	return c.nonce(ctx, "/v1/token/"+string(ch)+"/nonce/"+seg(account))
}

// TokenBalance returns the token balance of account on ch.
func (c *Client) TokenBalance(ctx context.Context, ch Chain, account string) (*big.Int, error) {
	if !ch.valid() {
		return nil, errs.Protocol("token balance", "unknown chain %q", ch)
	}
	var out struct {
		Balance Int `json:"balance"`
	}
	if err := c.get(ctx, "/v1/token/"+string(ch)+"/balance/"+seg(account), &out); err != nil {
		return nil, err
	}
	return out.Balance.Big(), nil
}

// Convert converts amt between currencies (e.g. "point", "token", "krw")
// at the relay's current rate.
func (c *Client) Convert(ctx context.Context, amt *big.Int, from, to string) (*big.Int, error) {
	if amt == nil || amt.Sign() < 0 {
		return nil, errs.Protocol("convert", "amount must be non-negative")
	}
	q := url.Values{}
	q.Set("amount", amt.String())
	q.Set("from", from)
	q.Set("to", to)
	var out struct {
		Amount Int `json:"amount"`
	}
	if err := c.get(ctx, "/v1/currency/convert?"+q.Encode(), &out); err != nil {
		return nil, fmt.Errorf("convert %s %s to %s: %w", amt, from, to, err)
	}
	return out.Amount.Big(), nil
}

// WithdrawViaBridge moves side chain tokens of the request account to the
// main chain through the loyalty bridge.
func (c *Client) WithdrawViaBridge(ctx context.Context, req WithdrawRequest) (string, error) {
	return c.txHash(ctx, "/v1/ledger/withdraw_via_bridge", req)
}
