// Package settlement implements the shop owner and settlement manager
// operations: collecting settled amounts from client shops, refunds and
// delegation of settlement to a manager shop.
package settlement

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0gfoundation/0g-points-relay/internal/amount"
	"github.com/0gfoundation/0g-points-relay/internal/auth"
	"github.com/0gfoundation/0g-points-relay/internal/errs"
	"github.com/0gfoundation/0g-points-relay/internal/message"
	"github.com/0gfoundation/0g-points-relay/internal/relay"
)

// Ledger is the part of the relay client the settlement manager uses.
type Ledger interface {
	relay.ChainIDSource
	relay.NonceSource
	SettlementClientLength(ctx context.Context, shopID string) (int, error)
	SettlementClientList(ctx context.Context, shopID string, start, end int) ([]string, error)
	CollectSettlement(ctx context.Context, req relay.CollectSettlementRequest) (string, error)
	ShopInfo(ctx context.Context, shopID string) (*relay.ShopInfo, error)
	Refundable(ctx context.Context, shopID string) (*relay.Refundable, error)
	Refund(ctx context.Context, req relay.RefundRequest) (string, error)
	SetSettlementManager(ctx context.Context, req relay.SettlementManagerRequest) (string, error)
	RemoveSettlementManager(ctx context.Context, req relay.SettlementManagerRequest) (string, error)
	SettlementManager(ctx context.Context, shopID string) (string, error)
	ChainInfo(ctx context.Context, ch relay.Chain) (*relay.ChainInfo, error)
	WithdrawViaBridge(ctx context.Context, req relay.WithdrawRequest) (string, error)
}

// WithdrawTTL is how long a signed withdrawal stays valid.
const WithdrawTTL = 30 * time.Minute

var _ Ledger = (*relay.Client)(nil)

// Manager acts for one shop, signing with the shop owner's (or its
// agent's) key. All signed operations use the shop nonce.
type Manager struct {
	ledger Ledger
	signer *auth.Signer
	shopID string
	log    *zap.Logger
	now    func() time.Time
}

func NewManager(ledger Ledger, signer *auth.Signer, shopID string, log *zap.Logger) *Manager {
	return &Manager{ledger: ledger, signer: signer, shopID: shopID, log: log, now: time.Now}
}

func (m *Manager) ShopID() string { return m.shopID }

func (m *Manager) account() string { return m.signer.Address().Hex() }

// ClientLength is the number of shops that delegated settlement to this one.
func (m *Manager) ClientLength(ctx context.Context) (int, error) {
	return m.ledger.SettlementClientLength(ctx, m.shopID)
}

// ClientList returns client shop ids with index in [start, end).
func (m *Manager) ClientList(ctx context.Context, start, end int) ([]string, error) {
	return m.ledger.SettlementClientList(ctx, m.shopID, start, end)
}

// CollectMultiClient moves the settled amounts of clients to this shop.
func (m *Manager) CollectMultiClient(ctx context.Context, clients []string) (string, error) {
	chainID, nonce, err := m.shopNonce(ctx)
	if err != nil {
		return "", err
	}
	msg, err := message.CollectSettlement(m.shopID, clients, nonce, chainID)
	if err != nil {
		return "", err
	}
	sig, err := m.signer.SignHex(msg.Digest())
	if err != nil {
		return "", err
	}
	tx, err := m.ledger.CollectSettlement(ctx, relay.CollectSettlementRequest{
		ShopID:    m.shopID,
		Account:   m.account(),
		Clients:   strings.Join(clients, ","),
		Signature: sig,
	})
	if err != nil {
		return "", fmt.Errorf("collect settlement of %d clients: %w", len(clients), err)
	}
	m.log.Info("settlement collected", zap.String("shop", m.shopID), zap.Int("clients", len(clients)), zap.String("tx", tx))
	return tx, nil
}

// ShopInfo is the ledger's shop record plus the derived settled amount.
type ShopInfo struct {
	relay.ShopInfo
	SettledAmount *big.Int
}

func (m *Manager) ShopInfo(ctx context.Context) (*ShopInfo, error) {
	info, err := m.ledger.ShopInfo(ctx, m.shopID)
	if err != nil {
		return nil, err
	}
	return &ShopInfo{ShopInfo: *info, SettledAmount: Settled(info)}, nil
}

// Settled is max(0, collected + used - provided).
func Settled(info *relay.ShopInfo) *big.Int {
	s := new(big.Int).Add(info.CollectedAmount.Big(), info.UsedAmount.Big())
	s.Sub(s, info.ProvidedAmount.Big())
	if s.Sign() < 0 {
		return new(big.Int)
	}
	return s
}

func (m *Manager) Refundable(ctx context.Context) (*relay.Refundable, error) {
	return m.ledger.Refundable(ctx, m.shopID)
}

// Refund converts settled points of the shop. amt is floored to whole gwei
// before signing.
func (m *Manager) Refund(ctx context.Context, amt *big.Int) (string, error) {
	if err := checkAmount(message.ActionShopRefund, amt); err != nil {
		return "", err
	}
	adjusted := amount.FloorGwei(amt)
	chainID, nonce, err := m.shopNonce(ctx)
	if err != nil {
		return "", err
	}
	msg, err := message.ShopRefund(m.shopID, adjusted, chainID, nonce)
	if err != nil {
		return "", err
	}
	sig, err := m.signer.SignHex(msg.Digest())
	if err != nil {
		return "", err
	}
	tx, err := m.ledger.Refund(ctx, relay.RefundRequest{
		ShopID:    m.shopID,
		Account:   m.account(),
		Amount:    adjusted.String(),
		Signature: sig,
	})
	if err != nil {
		return "", fmt.Errorf("refund %s: %w", adjusted, err)
	}
	m.log.Info("shop refunded", zap.String("shop", m.shopID), zap.String("amount", adjusted.String()), zap.String("tx", tx))
	return tx, nil
}

// AccountOfShopOwner is the wallet registered as owner of the shop.
func (m *Manager) AccountOfShopOwner(ctx context.Context) (string, error) {
	info, err := m.ledger.ShopInfo(ctx, m.shopID)
	if err != nil {
		return "", err
	}
	return info.Account, nil
}

// Withdraw moves amt of the shop owner's side chain tokens to the main chain.
// The signed transfer goes to the side chain's loyalty bridge, uses the
// signer's ledger nonce and expires after WithdrawTTL. amt is floored to
// whole gwei.
func (m *Manager) Withdraw(ctx context.Context, amt *big.Int) (string, error) {
	if err := checkAmount(message.ActionTransfer, amt); err != nil {
		return "", err
	}
	adjusted := amount.FloorGwei(amt)

	owner, err := m.AccountOfShopOwner(ctx)
	if err != nil {
		return "", fmt.Errorf("shop owner: %w", err)
	}
	side, err := m.ledger.ChainInfo(ctx, relay.SideChain)
	if err != nil {
		return "", fmt.Errorf("side chain info: %w", err)
	}
	nonce, err := m.ledger.LedgerNonce(ctx, m.account())
	if err != nil {
		return "", fmt.Errorf("ledger nonce of %s: %w", m.account(), err)
	}
	expiry := m.now().Add(WithdrawTTL).Unix()

	msg, err := message.Transfer(side.Network.ChainID.Big(), side.Contract.Token, owner,
		side.Contract.LoyaltyBridge, adjusted, nonce, big.NewInt(expiry))
	if err != nil {
		return "", err
	}
	sig, err := m.signer.SignHex(msg.Digest())
	if err != nil {
		return "", err
	}
	tx, err := m.ledger.WithdrawViaBridge(ctx, relay.WithdrawRequest{
		Account:   owner,
		Amount:    adjusted.String(),
		Expiry:    expiry,
		Signature: sig,
	})
	if err != nil {
		return "", fmt.Errorf("withdraw %s: %w", adjusted, err)
	}
	m.log.Info("shop withdrew via bridge", zap.String("shop", m.shopID), zap.String("account", owner),
		zap.String("amount", adjusted.String()), zap.String("tx", tx))
	return tx, nil
}

func checkAmount(op string, amt *big.Int) error {
	if amt == nil {
		return errs.Protocol(op, "amount is missing")
	}
	if amt.Sign() < 0 {
		return errs.Protocol(op, "amount is negative: %s", amt)
	}
	return nil
}

// SetManager delegates settlement of this shop to managerID.
func (m *Manager) SetManager(ctx context.Context, managerID string) (string, error) {
	chainID, nonce, err := m.shopNonce(ctx)
	if err != nil {
		return "", err
	}
	msg, err := message.SetSettlementManager(m.shopID, managerID, chainID, nonce)
	if err != nil {
		return "", err
	}
	sig, err := m.signer.SignHex(msg.Digest())
	if err != nil {
		return "", err
	}
	tx, err := m.ledger.SetSettlementManager(ctx, relay.SettlementManagerRequest{
		ShopID:    m.shopID,
		Account:   m.account(),
		ManagerID: managerID,
		Signature: sig,
	})
	if err != nil {
		return "", fmt.Errorf("set settlement manager: %w", err)
	}
	m.log.Info("settlement manager set", zap.String("shop", m.shopID), zap.String("manager", managerID))
	return tx, nil
}

// RemoveManager revokes the delegation.
func (m *Manager) RemoveManager(ctx context.Context) (string, error) {
	chainID, nonce, err := m.shopNonce(ctx)
	if err != nil {
		return "", err
	}
	msg, err := message.RemoveSettlementManager(m.shopID, chainID, nonce)
	if err != nil {
		return "", err
	}
	sig, err := m.signer.SignHex(msg.Digest())
	if err != nil {
		return "", err
	}
	tx, err := m.ledger.RemoveSettlementManager(ctx, relay.SettlementManagerRequest{
		ShopID:    m.shopID,
		Account:   m.account(),
		Signature: sig,
	})
	if err != nil {
		return "", fmt.Errorf("remove settlement manager: %w", err)
	}
	m.log.Info("settlement manager removed", zap.String("shop", m.shopID))
	return tx, nil
}

// GetManager returns the manager shop id, the zero id when none is set.
func (m *Manager) GetManager(ctx context.Context) (string, error) {
	return m.ledger.SettlementManager(ctx, m.shopID)
}

func (m *Manager) shopNonce(ctx context.Context) (*big.Int, *big.Int, error) {
	chainID, err := m.ledger.ChainID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := m.ledger.ShopNonce(ctx, m.account())
	if err != nil {
		return nil, nil, fmt.Errorf("shop nonce of %s: %w", m.account(), err)
	}
	return chainID, nonce, nil
}
