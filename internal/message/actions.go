package message

import (
	"math/big"
	"strings"
)

// Action names. The first four double as the string tag packed into the
// message itself.
const (
	ActionOpenNewPayment          = "OpenNewPayment"
	ActionCloseNewPayment         = "CloseNewPayment"
	ActionOpenCancelPayment       = "OpenCancelPayment"
	ActionCloseCancelPayment      = "CloseCancelPayment"
	ActionApproveNewPayment       = "ApproveNewPayment"
	ActionApproveCancelPayment    = "ApproveCancelPayment"
	ActionTemporaryAccount        = "TemporaryAccount"
	ActionSaveNewPurchase         = "SaveNewPurchase"
	ActionCancelPurchase          = "CancelPurchase"
	ActionCollectSettlement       = "CollectSettlementAmountMultiClient"
	ActionShopRefund              = "ShopRefund"
	ActionSetSettlementManager    = "SetSettlementManager"
	ActionRemoveSettlementManager = "RemoveSettlementManager"
	ActionRegisterAgent           = "RegisterAgent"
	ActionProvideToAddress        = "ProvideToAddress"
	ActionProvideToPhone          = "ProvideToPhone"
	ActionTransfer                = "Transfer"
)

var (
	openNewPaymentArgs   = arguments(tString, tString, tUint256, tString, tBytes32, tAddress, tString)
	closePaymentArgs     = arguments(tString, tString, tUint256)
	openCancelArgs       = arguments(tString, tString, tString)
	approveNewArgs       = arguments(tBytes32, tString, tUint256, tString, tBytes32, tAddress, tUint256, tUint256)
	approveCancelArgs    = arguments(tBytes32, tString, tAddress, tUint256, tUint256)
	accountArgs          = arguments(tAddress, tUint256, tUint256)
	saveNewPurchaseArgs  = arguments(tString, tUint256, tUint256, tString, tBytes32, tAddress, tBytes32, tAddress, tUint256)
	cancelPurchaseArgs   = arguments(tString, tAddress, tUint256)
	collectArgs          = arguments(tString, tBytes32, tBytes32Array, tUint256, tUint256)
	shopRefundArgs       = arguments(tBytes32, tUint256, tUint256, tUint256)
	settlementMgrArgs    = arguments(tString, tBytes32, tBytes32, tUint256, tUint256)
	registerAgentArgs    = arguments(tAddress, tAddress, tUint256, tUint256)
	provideToAddressArgs = arguments(tAddress, tAddress, tUint256, tUint256, tUint256)
	provideToPhoneArgs   = arguments(tAddress, tBytes32, tUint256, tUint256, tUint256)
	transferArgs         = arguments(tUint256, tAddress, tAddress, tAddress, tUint256, tUint256, tUint256)
)

// ── Payment (relay / payment-service actor) ───────────────────────────────────

// OpenNewPayment is signed by the payment service when it opens a payment.
func OpenNewPayment(purchaseID string, amt *big.Int, currency, shopID, account, terminalID string) (Message, error) {
	f := fields{op: ActionOpenNewPayment}
	a := f.uint("amount", amt)
	shop := f.bytes32("shopId", shopID)
	acc := f.address("account", account)
	return f.pack(openNewPaymentArgs, ActionOpenNewPayment, purchaseID, a, currency, shop, acc, terminalID)
}

// CloseNewPayment is signed by the payment service when it closes a payment.
func CloseNewPayment(paymentID string, confirm bool) (Message, error) {
	f := fields{op: ActionCloseNewPayment}
	return f.pack(closePaymentArgs, ActionCloseNewPayment, paymentID, f.flag(confirm))
}

// OpenCancelPayment is signed by the payment service to start a cancellation.
func OpenCancelPayment(paymentID, terminalID string) (Message, error) {
	f := fields{op: ActionOpenCancelPayment}
	return f.pack(openCancelArgs, ActionOpenCancelPayment, paymentID, terminalID)
}

// CloseCancelPayment is signed by the payment service to finish a cancellation.
func CloseCancelPayment(paymentID string, confirm bool) (Message, error) {
	f := fields{op: ActionCloseCancelPayment}
	return f.pack(closePaymentArgs, ActionCloseCancelPayment, paymentID, f.flag(confirm))
}

// ── Payment (payer / shop actors) ─────────────────────────────────────────────

// ApproveNewPayment is signed by the payer. account is the payer's own address.
func ApproveNewPayment(paymentID, purchaseID string, amt *big.Int, currency, shopID, account string, chainID, nonce *big.Int) (Message, error) {
	f := fields{op: ActionApproveNewPayment}
	pid := f.bytes32("paymentId", paymentID)
	a := f.uint("amount", amt)
	shop := f.bytes32("shopId", shopID)
	acc := f.address("account", account)
	cid := f.uint("chainId", chainID)
	n := f.uint("nonce", nonce)
	return f.pack(approveNewArgs, pid, purchaseID, a, currency, shop, acc, cid, n)
}

// ApproveCancelPayment is signed by the shop. account is the shop's address.
func ApproveCancelPayment(paymentID, purchaseID, account string, chainID, nonce *big.Int) (Message, error) {
	f := fields{op: ActionApproveCancelPayment}
	pid := f.bytes32("paymentId", paymentID)
	acc := f.address("account", account)
	cid := f.uint("chainId", chainID)
	n := f.uint("nonce", nonce)
	return f.pack(approveCancelArgs, pid, purchaseID, acc, cid, n)
}

// TemporaryAccount authorizes the relay to issue a temporary account.
func TemporaryAccount(account string, chainID, nonce *big.Int) (Message, error) {
	f := fields{op: ActionTemporaryAccount}
	acc := f.address("account", account)
	cid := f.uint("chainId", chainID)
	n := f.uint("nonce", nonce)
	return f.pack(accountArgs, acc, cid, n)
}

// ── Purchase records ──────────────────────────────────────────────────────────

// NewPurchase carries the signed fields of a purchase record.
type NewPurchase struct {
	PurchaseID    string
	CashAmount    *big.Int
	Loyalty       *big.Int
	Currency      string
	ShopID        string
	UserAccount   string
	UserPhoneHash string
	Sender        string
}

// SaveNewPurchase is signed by the collector that reports a purchase.
func SaveNewPurchase(p NewPurchase, chainID *big.Int) (Message, error) {
	f := fields{op: ActionSaveNewPurchase}
	cash := f.uint("cashAmount", p.CashAmount)
	loyalty := f.uint("loyalty", p.Loyalty)
	shop := f.bytes32("shopId", p.ShopID)
	user := f.address("userAccount", p.UserAccount)
	phone := f.bytes32("userPhoneHash", p.UserPhoneHash)
	sender := f.address("sender", p.Sender)
	cid := f.uint("chainId", chainID)
	return f.pack(saveNewPurchaseArgs, p.PurchaseID, cash, loyalty, p.Currency, shop, user, phone, sender, cid)
}

// CancelPurchase is signed by the collector to void a saved purchase.
func CancelPurchase(purchaseID, sender string, chainID *big.Int) (Message, error) {
	f := fields{op: ActionCancelPurchase}
	s := f.address("sender", sender)
	cid := f.uint("chainId", chainID)
	return f.pack(cancelPurchaseArgs, purchaseID, s, cid)
}

// ── Settlement ────────────────────────────────────────────────────────────────

// CollectSettlement is signed by the settlement manager. Note the nonce
// precedes the chain id in this tuple.
func CollectSettlement(managerShopID string, clientShopIDs []string, nonce, chainID *big.Int) (Message, error) {
	f := fields{op: ActionCollectSettlement}
	manager := f.bytes32("managerShopId", managerShopID)
	clients := make([][32]byte, len(clientShopIDs))
	for i, id := range clientShopIDs {
		clients[i] = f.bytes32("clientShopId", id)
	}
	n := f.uint("nonce", nonce)
	cid := f.uint("chainId", chainID)
	return f.pack(collectArgs, ActionCollectSettlement, manager, clients, n, cid)
}

// ShopRefund is signed by the shop owner to convert settled points.
func ShopRefund(shopID string, amt, chainID, nonce *big.Int) (Message, error) {
	f := fields{op: ActionShopRefund}
	shop := f.bytes32("shopId", shopID)
	a := f.uint("amount", amt)
	cid := f.uint("chainId", chainID)
	n := f.uint("nonce", nonce)
	return f.pack(shopRefundArgs, shop, a, cid, n)
}

// SetSettlementManager delegates settlement of shopID to managerID.
func SetSettlementManager(shopID, managerID string, chainID, nonce *big.Int) (Message, error) {
	return settlementManager(ActionSetSettlementManager, shopID, managerID, chainID, nonce)
}

// RemoveSettlementManager revokes a settlement delegation. The manager
// slot is signed as the zero id.
func RemoveSettlementManager(shopID string, chainID, nonce *big.Int) (Message, error) {
	return settlementManager(ActionRemoveSettlementManager, shopID, zeroID, chainID, nonce)
}

var zeroID = "0x" + strings.Repeat("00", 32)

func settlementManager(tag, shopID, managerID string, chainID, nonce *big.Int) (Message, error) {
	f := fields{op: tag}
	shop := f.bytes32("shopId", shopID)
	manager := f.bytes32("managerId", managerID)
	cid := f.uint("chainId", chainID)
	n := f.uint("nonce", nonce)
	return f.pack(settlementMgrArgs, tag, shop, manager, cid, n)
}

// Transfer authorizes moving amt of token from one account to another before
// expiry (unix seconds). A withdrawal is a transfer to the loyalty bridge.
// The chain id leads this tuple.
func Transfer(chainID *big.Int, token, from, to string, amt, nonce, expiry *big.Int) (Message, error) {
	f := fields{op: ActionTransfer}
	cid := f.uint("chainId", chainID)
	tk := f.address("token", token)
	fr := f.address("from", from)
	t := f.address("to", to)
	a := f.uint("amount", amt)
	n := f.uint("nonce", nonce)
	e := f.uint("expiry", expiry)
	return f.pack(transferArgs, cid, tk, fr, t, a, n, e)
}

// ── Provider ──────────────────────────────────────────────────────────────────

// RegisterAgent lets provider delegate point provision to assistant.
func RegisterAgent(provider, assistant string, chainID, nonce *big.Int) (Message, error) {
	f := fields{op: ActionRegisterAgent}
	p := f.address("provider", provider)
	a := f.address("assistant", assistant)
	cid := f.uint("chainId", chainID)
	n := f.uint("nonce", nonce)
	return f.pack(registerAgentArgs, p, a, cid, n)
}

// ProvideToAddress grants points to a wallet address.
func ProvideToAddress(provider, receiver string, amt, chainID, nonce *big.Int) (Message, error) {
	f := fields{op: ActionProvideToAddress}
	p := f.address("provider", provider)
	r := f.address("receiver", receiver)
	a := f.uint("amount", amt)
	cid := f.uint("chainId", chainID)
	n := f.uint("nonce", nonce)
	return f.pack(provideToAddressArgs, p, r, a, cid, n)
}

// ProvideToPhone grants points to a phone hash.
func ProvideToPhone(provider, phoneHash string, amt, chainID, nonce *big.Int) (Message, error) {
	f := fields{op: ActionProvideToPhone}
	p := f.address("provider", provider)
	h := f.bytes32("phoneHash", phoneHash)
	a := f.uint("amount", amt)
	cid := f.uint("chainId", chainID)
	n := f.uint("nonce", nonce)
	return f.pack(provideToPhoneArgs, p, h, a, cid, n)
}
