package payment

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/0gfoundation/0g-points-relay/internal/auth"
	"github.com/0gfoundation/0g-points-relay/internal/message"
	"github.com/0gfoundation/0g-points-relay/internal/relay"
)

// ItemSource looks up the relay's current record of a payment.
type ItemSource interface {
	PaymentItem(ctx context.Context, paymentID string) (*relay.PaymentTaskItem, error)
}

// ServiceLedger is the part of the relay the payment service uses.
type ServiceLedger interface {
	ItemSource
	OpenNewPayment(ctx context.Context, req relay.OpenNewPaymentRequest) (*relay.PaymentTaskItem, error)
	CloseNewPayment(ctx context.Context, req relay.ClosePaymentRequest) (*relay.PaymentTaskItem, error)
	OpenCancelPayment(ctx context.Context, req relay.OpenCancelPaymentRequest) (*relay.PaymentTaskItem, error)
	CloseCancelPayment(ctx context.Context, req relay.ClosePaymentRequest) (*relay.PaymentTaskItem, error)
}

// PayerLedger is the part of the relay a payer uses.
type PayerLedger interface {
	ItemSource
	relay.ChainIDSource
	relay.NonceSource
	TemporaryAccount(ctx context.Context, req relay.TemporaryAccountRequest) (string, error)
	ApproveNewPayment(ctx context.Context, req relay.ApprovalRequest) (*relay.PaymentTaskItem, error)
}

// ShopLedger is the part of the relay a shop uses.
type ShopLedger interface {
	ItemSource
	relay.ChainIDSource
	relay.NonceSource
	ApproveCancelPayment(ctx context.Context, req relay.ApprovalRequest) (*relay.PaymentTaskItem, error)
}

// syncItem loads the relay's record into the tracker when the payment is not
// tracked yet.
func syncItem(ctx context.Context, src ItemSource, t *Tracker, paymentID string) error {
	known, err := t.Known(ctx, paymentID)
	if err != nil || known {
		return err
	}
	item, err := src.PaymentItem(ctx, paymentID)
	if err != nil {
		return err
	}
	_, err = t.Observe(ctx, item)
	return err
}

// record stores the outcome of a submitted action. The relay's status wins
// when it is at least as far along as the phase the action implies.
func record(ctx context.Context, t *Tracker, item *relay.PaymentTaskItem, next Phase) error {
	p, ok := PhaseOf(item.PaymentStatus)
	if !ok || p.rank() < next.rank() {
		p = next
	}
	_, err := t.Advance(ctx, item.PaymentID, item.PurchaseID, p, item.PaymentStatus)
	return err
}

// ── Payment service ───────────────────────────────────────────────────────────

// Relay is the payment-service actor: it opens and closes payments and
// cancellations on behalf of a shop terminal.
type Relay struct {
	ledger  ServiceLedger
	signer  *auth.Signer
	tracker *Tracker
	log     *zap.Logger
}

func NewRelay(ledger ServiceLedger, signer *auth.Signer, tracker *Tracker, log *zap.Logger) *Relay {
	return &Relay{ledger: ledger, signer: signer, tracker: tracker, log: log}
}

// OpenNewRequest describes a new payment.
type OpenNewRequest struct {
	PurchaseID string
	Account    string // user wallet or temporary account
	Amount     *big.Int
	Currency   string
	ShopID     string
	TerminalID string
}

// OpenNew opens a payment and returns the relay's item with its paymentId.
func (r *Relay) OpenNew(ctx context.Context, req OpenNewRequest) (*relay.PaymentTaskItem, error) {
	next, err := Next(PhaseNone, ActionOpenNew, false)
	if err != nil {
		return nil, err
	}
	msg, err := message.OpenNewPayment(req.PurchaseID, req.Amount, req.Currency, req.ShopID, req.Account, req.TerminalID)
	if err != nil {
		return nil, err
	}
	sig, err := r.signer.SignHex(msg.Digest())
	if err != nil {
		return nil, err
	}
	item, err := r.ledger.OpenNewPayment(ctx, relay.OpenNewPaymentRequest{
		PurchaseID: req.PurchaseID,
		Amount:     req.Amount.String(),
		Currency:   req.Currency,
		ShopID:     req.ShopID,
		Account:    req.Account,
		TerminalID: req.TerminalID,
		Signature:  sig,
	})
	if err != nil {
		return nil, fmt.Errorf("open new payment %s: %w", req.PurchaseID, err)
	}
	if err := record(ctx, r.tracker, item, next); err != nil {
		return nil, err
	}
	r.log.Info("payment opened", zap.String("payment", item.PaymentID), zap.String("purchase", item.PurchaseID))
	return item, nil
}

// CloseNew completes (confirm) or abandons a payment after the payer answered.
func (r *Relay) CloseNew(ctx context.Context, paymentID string, confirm bool) (*relay.PaymentTaskItem, error) {
	next, err := r.check(ctx, paymentID, ActionCloseNew, confirm)
	if err != nil {
		return nil, err
	}
	msg, err := message.CloseNewPayment(paymentID, confirm)
	if err != nil {
		return nil, err
	}
	sig, err := r.signer.SignHex(msg.Digest())
	if err != nil {
		return nil, err
	}
	item, err := r.ledger.CloseNewPayment(ctx, relay.ClosePaymentRequest{PaymentID: paymentID, Confirm: confirm, Signature: sig})
	if err != nil {
		return nil, fmt.Errorf("close new payment %s: %w", paymentID, err)
	}
	if err := record(ctx, r.tracker, item, next); err != nil {
		return nil, err
	}
	r.log.Info("payment closed", zap.String("payment", paymentID), zap.Bool("confirm", confirm))
	return item, nil
}

// OpenCancel starts cancelling a confirmed payment.
func (r *Relay) OpenCancel(ctx context.Context, paymentID, terminalID string) (*relay.PaymentTaskItem, error) {
	next, err := r.check(ctx, paymentID, ActionOpenCancel, false)
	if err != nil {
		return nil, err
	}
	msg, err := message.OpenCancelPayment(paymentID, terminalID)
	if err != nil {
		return nil, err
	}
	sig, err := r.signer.SignHex(msg.Digest())
	if err != nil {
		return nil, err
	}
	item, err := r.ledger.OpenCancelPayment(ctx, relay.OpenCancelPaymentRequest{PaymentID: paymentID, TerminalID: terminalID, Signature: sig})
	if err != nil {
		return nil, fmt.Errorf("open cancel payment %s: %w", paymentID, err)
	}
	if err := record(ctx, r.tracker, item, next); err != nil {
		return nil, err
	}
	r.log.Info("cancel opened", zap.String("payment", paymentID))
	return item, nil
}

// CloseCancel completes or abandons a cancellation after the shop answered.
func (r *Relay) CloseCancel(ctx context.Context, paymentID string, confirm bool) (*relay.PaymentTaskItem, error) {
	next, err := r.check(ctx, paymentID, ActionCloseCancel, confirm)
	if err != nil {
		return nil, err
	}
	msg, err := message.CloseCancelPayment(paymentID, confirm)
	if err != nil {
		return nil, err
	}
	sig, err := r.signer.SignHex(msg.Digest())
	if err != nil {
		return nil, err
	}
	item, err := r.ledger.CloseCancelPayment(ctx, relay.ClosePaymentRequest{PaymentID: paymentID, Confirm: confirm, Signature: sig})
	if err != nil {
		return nil, fmt.Errorf("close cancel payment %s: %w", paymentID, err)
	}
	if err := record(ctx, r.tracker, item, next); err != nil {
		return nil, err
	}
	r.log.Info("cancel closed", zap.String("payment", paymentID), zap.Bool("confirm", confirm))
	return item, nil
}

// Item refreshes a payment from the relay and feeds it to the tracker.
func (r *Relay) Item(ctx context.Context, paymentID string) (*relay.PaymentTaskItem, error) {
	item, err := r.ledger.PaymentItem(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := r.tracker.Observe(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *Relay) check(ctx context.Context, paymentID string, a Action, flag bool) (Phase, error) {
	if err := syncItem(ctx, r.ledger, r.tracker, paymentID); err != nil {
		return PhaseNone, err
	}
	return r.tracker.Check(ctx, paymentID, a, flag)
}

// ── Payer ─────────────────────────────────────────────────────────────────────

// Payer is the paying user's actor.
type Payer struct {
	ledger  PayerLedger
	signer  *auth.Signer
	tracker *Tracker
	log     *zap.Logger
}

func NewPayer(ledger PayerLedger, signer *auth.Signer, tracker *Tracker, log *zap.Logger) *Payer {
	return &Payer{ledger: ledger, signer: signer, tracker: tracker, log: log}
}

// Address is the payer's account.
func (p *Payer) Address() string { return p.signer.Address().Hex() }

// TemporaryAccount asks the relay for a short-lived account the payer can
// hand to a shop terminal instead of the wallet address.
func (p *Payer) TemporaryAccount(ctx context.Context) (string, error) {
	account := p.Address()
	chainID, nonce, err := freshNonce(ctx, p.ledger, account)
	if err != nil {
		return "", err
	}
	msg, err := message.TemporaryAccount(account, chainID, nonce)
	if err != nil {
		return "", err
	}
	sig, err := p.signer.SignHex(msg.Digest())
	if err != nil {
		return "", err
	}
	return p.ledger.TemporaryAccount(ctx, relay.TemporaryAccountRequest{Account: account, Signature: sig})
}

// ApproveNew answers an opened payment. The signed fields are taken from the
// relay's record so both sides hash the same tuple.
func (p *Payer) ApproveNew(ctx context.Context, paymentID string, approve bool) (*relay.PaymentTaskItem, error) {
	current, err := p.ledger.PaymentItem(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := p.tracker.Observe(ctx, current); err != nil {
		return nil, err
	}
	next, err := p.tracker.Check(ctx, paymentID, ActionApproveNew, approve)
	if err != nil {
		return nil, err
	}

	account := p.Address()
	chainID, nonce, err := freshNonce(ctx, p.ledger, account)
	if err != nil {
		return nil, err
	}
	msg, err := message.ApproveNewPayment(paymentID, current.PurchaseID, current.Amount.Big(),
		current.Currency, current.ShopID, account, chainID, nonce)
	if err != nil {
		return nil, err
	}
	sig, err := p.signer.SignHex(msg.Digest())
	if err != nil {
		return nil, err
	}
	item, err := p.ledger.ApproveNewPayment(ctx, relay.ApprovalRequest{PaymentID: paymentID, Approval: approve, Signature: sig})
	if err != nil {
		return nil, fmt.Errorf("approve new payment %s: %w", paymentID, err)
	}
	if err := record(ctx, p.tracker, item, next); err != nil {
		return nil, err
	}
	p.log.Info("payment answered", zap.String("payment", paymentID), zap.Bool("approve", approve))
	return item, nil
}

// ── Shop ──────────────────────────────────────────────────────────────────────

// Shop is the shop owner's actor for cancellations.
type Shop struct {
	ledger  ShopLedger
	signer  *auth.Signer
	tracker *Tracker
	log     *zap.Logger
}

func NewShop(ledger ShopLedger, signer *auth.Signer, tracker *Tracker, log *zap.Logger) *Shop {
	return &Shop{ledger: ledger, signer: signer, tracker: tracker, log: log}
}

// ApproveCancel answers an opened cancellation.
func (s *Shop) ApproveCancel(ctx context.Context, paymentID string, approve bool) (*relay.PaymentTaskItem, error) {
	current, err := s.ledger.PaymentItem(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.tracker.Observe(ctx, current); err != nil {
		return nil, err
	}
	next, err := s.tracker.Check(ctx, paymentID, ActionApproveCancel, approve)
	if err != nil {
		return nil, err
	}

	account := s.signer.Address().Hex()
	chainID, nonce, err := freshNonce(ctx, s.ledger, account)
	if err != nil {
		return nil, err
	}
	msg, err := message.ApproveCancelPayment(paymentID, current.PurchaseID, account, chainID, nonce)
	if err != nil {
		return nil, err
	}
	sig, err := s.signer.SignHex(msg.Digest())
	if err != nil {
		return nil, err
	}
	item, err := s.ledger.ApproveCancelPayment(ctx, relay.ApprovalRequest{PaymentID: paymentID, Approval: approve, Signature: sig})
	if err != nil {
		return nil, fmt.Errorf("approve cancel payment %s: %w", paymentID, err)
	}
	if err := record(ctx, s.tracker, item, next); err != nil {
		return nil, err
	}
	s.log.Info("cancel answered", zap.String("payment", paymentID), zap.Bool("approve", approve))
	return item, nil
}

type chainNonce interface {
	relay.ChainIDSource
	relay.NonceSource
}

// freshNonce reads the chain id and the account's current ledger nonce. The
// nonce is never cached: every signature uses a value read just before it.
func freshNonce(ctx context.Context, src chainNonce, account string) (*big.Int, *big.Int, error) {
	chainID, err := src.ChainID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := src.LedgerNonce(ctx, account)
	if err != nil {
		return nil, nil, fmt.Errorf("nonce of %s: %w", account, err)
	}
	return chainID, nonce, nil
}
