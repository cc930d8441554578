package purchase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-points-relay/internal/amount"
	"github.com/0gfoundation/0g-points-relay/internal/auth"
	"github.com/0gfoundation/0g-points-relay/internal/errs"
	"github.com/0gfoundation/0g-points-relay/internal/message"
	"github.com/0gfoundation/0g-points-relay/internal/relay"
)

// Saver is the part of the relay client the purchase reporter uses.
type Saver interface {
	relay.ChainIDSource
	SaveNewPurchase(ctx context.Context, req relay.SaveNewPurchaseRequest) error
	SaveCancelPurchase(ctx context.Context, req relay.SaveCancelPurchaseRequest) error
}

// Item is a purchased product as entered by the shop: amount and percent are
// decimal text.
type Item struct {
	ProductID      string
	Amount         string
	ProvidePercent string
}

// NewPurchase is a purchase as reported by a shop terminal. Amounts are
// decimal text in whole currency units. UserPhone must already be in
// international notation; it may be empty.
type NewPurchase struct {
	ID          string
	Timestamp   int64
	Waiting     int64
	TotalAmount string
	CashAmount  string
	Currency    string
	ShopID      string
	UserAccount string
	UserPhone   string
	Details     []Item
}

// Client signs purchase records with the reporter's key on behalf of the
// asset owner (sender).
type Client struct {
	saver    Saver
	signer   *auth.Signer
	sender   common.Address
	registry *Registry
	log      *zap.Logger
}

func NewClient(saver Saver, signer *auth.Signer, sender common.Address, log *zap.Logger) *Client {
	return &Client{saver: saver, signer: signer, sender: sender, registry: NewRegistry(), log: log}
}

// Registry exposes the lifecycle state of purchases sent by this client.
func (c *Client) Registry() *Registry { return c.registry }

// SaveNew computes the loyalty of p, signs and submits the record.
func (c *Client) SaveNew(ctx context.Context, p NewPurchase) (*relay.SaveNewPurchaseRequest, error) {
	if err := c.registry.checkSave(p.ID); err != nil {
		return nil, err
	}
	req, err := c.build(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := c.saver.SaveNewPurchase(ctx, *req); err != nil {
		return nil, fmt.Errorf("save purchase %s: %w", p.ID, err)
	}
	c.registry.set(p.ID, StateSaved)
	c.log.Info("purchase saved",
		zap.String("purchase", p.ID), zap.String("loyalty", req.Purchase.Loyalty))
	return req, nil
}

func (c *Client) build(ctx context.Context, p NewPurchase) (*relay.SaveNewPurchaseRequest, error) {
	cash, err := amount.Parse(p.CashAmount, amount.DefaultDecimals)
	if err != nil {
		return nil, err
	}
	total, err := amount.Parse(p.TotalAmount, amount.DefaultDecimals)
	if err != nil {
		return nil, err
	}

	details := make([]Detail, len(p.Details))
	saveDetails := make([]relay.SaveDetail, len(p.Details))
	for i, it := range p.Details {
		amt, err := amount.Parse(it.Amount, amount.DefaultDecimals)
		if err != nil {
			return nil, err
		}
		bp, err := BasisPoints(it.ProvidePercent)
		if err != nil {
			return nil, err
		}
		details[i] = Detail{ProductID: it.ProductID, Amount: amt.Value(), ProvideBP: bp}
		saveDetails[i] = relay.SaveDetail{ProductID: it.ProductID, Amount: amt.String(), ProvidePercent: bp.String()}
	}
	loyalty := Loyalty(cash.Value(), total.Value(), details)

	account := strings.TrimSpace(p.UserAccount)
	if account == "" {
		account = common.Address{}.Hex()
	} else if !common.IsHexAddress(account) {
		return nil, errs.Format(p.UserAccount, "not a wallet address")
	}
	phoneHash := message.PhoneHash(strings.TrimSpace(p.UserPhone)).Hex()

	chainID, err := c.saver.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	msg, err := message.SaveNewPurchase(message.NewPurchase{
		PurchaseID:    p.ID,
		CashAmount:    cash.Value(),
		Loyalty:       loyalty,
		Currency:      p.Currency,
		ShopID:        p.ShopID,
		UserAccount:   account,
		UserPhoneHash: phoneHash,
		Sender:        c.sender.Hex(),
	}, chainID)
	if err != nil {
		return nil, err
	}
	sig, err := c.signer.SignHex(msg.Digest())
	if err != nil {
		return nil, err
	}

	return &relay.SaveNewPurchaseRequest{
		Purchase: relay.SavePurchase{
			PurchaseID:        p.ID,
			CashAmount:        cash.String(),
			Loyalty:           loyalty.String(),
			Currency:          p.Currency,
			ShopID:            p.ShopID,
			UserAccount:       account,
			UserPhoneHash:     phoneHash,
			Sender:            c.sender.Hex(),
			PurchaseSignature: sig,
		},
		Others: relay.SaveOthers{
			TotalAmount: total.String(),
			Timestamp:   p.Timestamp,
			Waiting:     p.Waiting,
		},
		Details: saveDetails,
	}, nil
}

// Cancel voids a saved purchase.
func (c *Client) Cancel(ctx context.Context, purchaseID string, timestamp, waiting int64) error {
	if err := c.registry.checkCancel(purchaseID); err != nil {
		return err
	}
	chainID, err := c.saver.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	msg, err := message.CancelPurchase(purchaseID, c.sender.Hex(), chainID)
	if err != nil {
		return err
	}
	sig, err := c.signer.SignHex(msg.Digest())
	if err != nil {
		return err
	}
	err = c.saver.SaveCancelPurchase(ctx, relay.SaveCancelPurchaseRequest{
		Purchase: relay.CancelPurchase{PurchaseID: purchaseID, Sender: c.sender.Hex(), PurchaseSignature: sig},
		Others:   relay.SaveOthers{Timestamp: timestamp, Waiting: waiting},
	})
	if err != nil {
		return fmt.Errorf("cancel purchase %s: %w", purchaseID, err)
	}
	c.registry.set(purchaseID, StateCancelled)
	c.log.Info("purchase cancelled", zap.String("purchase", purchaseID))
	return nil
}

var _ Saver = (*relay.Client)(nil)
