// Package provider implements the point provider: registering an agent that
// may provide on the provider's behalf, and providing points to a wallet
// address or a phone hash.
package provider

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/0gfoundation/0g-points-relay/internal/auth"
	"github.com/0gfoundation/0g-points-relay/internal/message"
	"github.com/0gfoundation/0g-points-relay/internal/relay"
)

// Ledger is the part of the relay client a provider uses.
type Ledger interface {
	relay.ChainIDSource
	relay.NonceSource
	IsProvider(ctx context.Context, account string) (bool, error)
	RegisterAssistant(ctx context.Context, req relay.RegisterAssistantRequest) (string, error)
	Assistant(ctx context.Context, provider string) (string, error)
	ProvideToAccount(ctx context.Context, req relay.ProvideRequest) (string, error)
	ProvideToPhoneHash(ctx context.Context, req relay.ProvideRequest) (string, error)
}

var _ Ledger = (*relay.Client)(nil)

// Client signs with either the provider's key or its registered agent's key.
// Signed operations use the ledger nonce of the signing wallet.
type Client struct {
	ledger Ledger
	signer *auth.Signer
	log    *zap.Logger
}

func NewClient(ledger Ledger, signer *auth.Signer, log *zap.Logger) *Client {
	return &Client{ledger: ledger, signer: signer, log: log}
}

// Address is the signing wallet.
func (c *Client) Address() string { return c.signer.Address().Hex() }

func (c *Client) IsProvider(ctx context.Context, account string) (bool, error) {
	return c.ledger.IsProvider(ctx, account)
}

// RegisterAgent lets agent provide points for the signing wallet. The agent
// cannot deposit or withdraw.
func (c *Client) RegisterAgent(ctx context.Context, agent string) (string, error) {
	provider := c.Address()
	chainID, nonce, err := c.ledgerNonce(ctx)
	if err != nil {
		return "", err
	}
	msg, err := message.RegisterAgent(provider, agent, chainID, nonce)
	if err != nil {
		return "", err
	}
	sig, err := c.signer.SignHex(msg.Digest())
	if err != nil {
		return "", err
	}
	tx, err := c.ledger.RegisterAssistant(ctx, relay.RegisterAssistantRequest{
		Provider:  provider,
		Assistant: agent,
		Signature: sig,
	})
	if err != nil {
		return "", fmt.Errorf("register agent %s: %w", agent, err)
	}
	c.log.Info("agent registered", zap.String("provider", provider), zap.String("agent", agent))
	return tx, nil
}

// Agent returns the agent registered for provider, or for the signing wallet
// when provider is empty.
func (c *Client) Agent(ctx context.Context, provider string) (string, error) {
	if provider == "" {
		provider = c.Address()
	}
	return c.ledger.Assistant(ctx, provider)
}

// ProvideToAddress grants amt points of provider to receiver.
func (c *Client) ProvideToAddress(ctx context.Context, provider, receiver string, amt *big.Int) (string, error) {
	chainID, nonce, err := c.ledgerNonce(ctx)
	if err != nil {
		return "", err
	}
	msg, err := message.ProvideToAddress(provider, receiver, amt, chainID, nonce)
	if err != nil {
		return "", err
	}
	return c.provide(ctx, msg, relay.ProvideRequest{Provider: provider, Receiver: receiver, Amount: amt.String()},
		c.ledger.ProvideToAccount)
}

// ProvideToPhone grants amt points of provider to a phone number, which must
// already be in international notation.
func (c *Client) ProvideToPhone(ctx context.Context, provider, phone string, amt *big.Int) (string, error) {
	chainID, nonce, err := c.ledgerNonce(ctx)
	if err != nil {
		return "", err
	}
	phoneHash := message.PhoneHash(phone).Hex()
	msg, err := message.ProvideToPhone(provider, phoneHash, amt, chainID, nonce)
	if err != nil {
		return "", err
	}
	return c.provide(ctx, msg, relay.ProvideRequest{Provider: provider, Receiver: phoneHash, Amount: amt.String()},
		c.ledger.ProvideToPhoneHash)
}

func (c *Client) provide(ctx context.Context, msg message.Message, req relay.ProvideRequest,
	submit func(context.Context, relay.ProvideRequest) (string, error)) (string, error) {
	sig, err := c.signer.SignHex(msg.Digest())
	if err != nil {
		return "", err
	}
	req.Signature = sig
	tx, err := submit(ctx, req)
	if err != nil {
		return "", fmt.Errorf("provide %s to %s: %w", req.Amount, req.Receiver, err)
	}
	c.log.Info("points provided",
		zap.String("provider", req.Provider), zap.String("receiver", req.Receiver), zap.String("amount", req.Amount))
	return tx, nil
}

func (c *Client) ledgerNonce(ctx context.Context) (*big.Int, *big.Int, error) {
	chainID, err := c.ledger.ChainID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := c.ledger.LedgerNonce(ctx, c.Address())
	if err != nil {
		return nil, nil, fmt.Errorf("nonce of %s: %w", c.Address(), err)
	}
	return chainID, nonce, nil
}
