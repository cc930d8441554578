package relay

import (
	"fmt"
	"math/big"
	"strings"
)

// Int is a big integer that decodes from either a JSON string or a JSON
// number. The relay sends monetary values as decimal strings.
type Int struct {
	big.Int
}

// NewInt copies v.
func NewInt(v *big.Int) Int {
	var i Int
	if v != nil {
		i.Set(v)
	}
	return i
}

func (i *Int) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		i.SetInt64(0)
		return nil
	}
	if _, ok := i.SetString(s, 10); !ok {
		return fmt.Errorf("invalid integer %q", s)
	}
	return nil
}

// Big returns a copy as *big.Int.
func (i *Int) Big() *big.Int { return new(big.Int).Set(&i.Int) }

// PaymentTaskItem is the relay's record of one payment.
type PaymentTaskItem struct {
	PaymentID     string `json:"paymentId"`
	PurchaseID    string `json:"purchaseId"`
	Amount        Int    `json:"amount"`
	Currency      string `json:"currency"`
	ShopID        string `json:"shopId"`
	Account       string `json:"account"`
	PaidPoint     Int    `json:"paidPoint"`
	PaidValue     Int    `json:"paidValue"`
	FeePoint      Int    `json:"feePoint"`
	FeeValue      Int    `json:"feeValue"`
	TotalPoint    Int    `json:"totalPoint"`
	TotalValue    Int    `json:"totalValue"`
	TerminalID    string `json:"terminalId"`
	PaymentStatus int    `json:"paymentStatus"`
}

// ShopTaskItem is the relay's record of a shop metadata change.
type ShopTaskItem struct {
	TaskID     string `json:"taskId"`
	ShopID     string `json:"shopId"`
	Name       string `json:"name"`
	Currency   string `json:"currency"`
	Status     int    `json:"status"`
	Account    string `json:"account"`
	TerminalID string `json:"terminalId"`
	TaskStatus int    `json:"taskStatus"`
}

// Task types carrying a PaymentTaskItem. Every other type carries a
// ShopTaskItem.
const (
	TaskPayNew    = "pay_new"
	TaskPayCancel = "pay_cancel"
)

// Task is one entry of the relay's task event list. At most one of Payment
// and Shop is set; neither is when the entry had no payload.
type Task struct {
	Sequence uint64
	Type     string
	Code     int
	Message  string
	Payment  *PaymentTaskItem
	Shop     *ShopTaskItem
}

// IsPayment reports whether tasks of this type carry a payment item.
func IsPayment(taskType string) bool {
	return taskType == TaskPayNew || taskType == TaskPayCancel
}

// PaymentInfo is the relay's quote for paying amount with points.
type PaymentInfo struct {
	Account      string `json:"account"`
	Amount       Int    `json:"amount"`
	Currency     string `json:"currency"`
	Balance      Int    `json:"balance"`
	BalanceValue Int    `json:"balanceValue"`
	PaidPoint    Int    `json:"paidPoint"`
	PaidValue    Int    `json:"paidValue"`
	FeePoint     Int    `json:"feePoint"`
	FeeValue     Int    `json:"feeValue"`
	TotalPoint   Int    `json:"totalPoint"`
	TotalValue   Int    `json:"totalValue"`
}

// Balance is a holding and its value in the account's currency.
type Balance struct {
	Balance Int `json:"balance"`
	Value   Int `json:"value"`
}

// UserBalance holds point and token balances of one account.
type UserBalance struct {
	Point Balance `json:"point"`
	Token Balance `json:"token"`
}

// ShopInfo is the ledger's view of a shop.
type ShopInfo struct {
	ShopID          string `json:"shopId"`
	Name            string `json:"name"`
	Currency        string `json:"currency"`
	Account         string `json:"account"`
	Delegator       string `json:"delegator"`
	ProvidedAmount  Int    `json:"providedAmount"`
	UsedAmount      Int    `json:"usedAmount"`
	CollectedAmount Int    `json:"collectedAmount"`
	RefundedAmount  Int    `json:"refundedAmount"`
	Status          int    `json:"status"`
}

// Refundable is what a shop can currently refund.
type Refundable struct {
	RefundableAmount Int `json:"refundableAmount"`
	RefundableToken  Int `json:"refundableToken"`
}

// ── Request bodies ────────────────────────────────────────────────────────────

type OpenNewPaymentRequest struct {
	PurchaseID string `json:"purchaseId"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	ShopID     string `json:"shopId"`
	Account    string `json:"account"`
	TerminalID string `json:"terminalId"`
	Signature  string `json:"signature"`
}

type ClosePaymentRequest struct {
	PaymentID string `json:"paymentId"`
	Confirm   bool   `json:"confirm"`
	Signature string `json:"signature"`
}

type OpenCancelPaymentRequest struct {
	PaymentID  string `json:"paymentId"`
	TerminalID string `json:"terminalId"`
	Signature  string `json:"signature"`
}

type ApprovalRequest struct {
	PaymentID string `json:"paymentId"`
	Approval  bool   `json:"approval"`
	Signature string `json:"signature"`
}

type TemporaryAccountRequest struct {
	Account   string `json:"account"`
	Signature string `json:"signature"`
}

// SavePurchase is the signed part of a purchase record.
type SavePurchase struct {
	PurchaseID        string `json:"purchaseId"`
	CashAmount        string `json:"cashAmount"`
	Loyalty           string `json:"loyalty"`
	Currency          string `json:"currency"`
	ShopID            string `json:"shopId"`
	UserAccount       string `json:"userAccount"`
	UserPhoneHash     string `json:"userPhoneHash"`
	Sender            string `json:"sender"`
	PurchaseSignature string `json:"purchaseSignature"`
}

type SaveOthers struct {
	TotalAmount string `json:"totalAmount,omitempty"`
	Timestamp   int64  `json:"timestamp"`
	Waiting     int64  `json:"waiting"`
}

type SaveDetail struct {
	ProductID      string `json:"productId"`
	Amount         string `json:"amount"`
	ProvidePercent string `json:"providePercent"`
}

type SaveNewPurchaseRequest struct {
	Purchase SavePurchase `json:"purchase"`
	Others   SaveOthers   `json:"others"`
	Details  []SaveDetail `json:"details"`
}

type CancelPurchase struct {
	PurchaseID        string `json:"purchaseId"`
	Sender            string `json:"sender"`
	PurchaseSignature string `json:"purchaseSignature"`
}

type SaveCancelPurchaseRequest struct {
	Purchase CancelPurchase `json:"purchase"`
	Others   SaveOthers     `json:"others"`
}

type CollectSettlementRequest struct {
	ShopID    string `json:"shopId"`
	Account   string `json:"account"`
	Clients   string `json:"clients"`
	Signature string `json:"signature"`
}

type RefundRequest struct {
	ShopID    string `json:"shopId"`
	Account   string `json:"account"`
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

type SettlementManagerRequest struct {
	ShopID    string `json:"shopId"`
	Account   string `json:"account"`
	ManagerID string `json:"managerId,omitempty"`
	Signature string `json:"signature"`
}

type RegisterAssistantRequest struct {
	Provider  string `json:"provider"`
	Assistant string `json:"assistant"`
	Signature string `json:"signature"`
}

type ProvideRequest struct {
	Provider  string `json:"provider"`
	Receiver  string `json:"receiver"`
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

type WithdrawRequest struct {
	Account   string `json:"account"`
	Amount    string `json:"amount"`
	Expiry    int64  `json:"expiry"`
	Signature string `json:"signature"`
}
