package purchase

import (
	"context"
	"errors"
	"math/big"
	"math/rand/v2"
	"regexp"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-points-relay/internal/amount"
	"github.com/0gfoundation/0g-points-relay/internal/auth"
	"github.com/0gfoundation/0g-points-relay/internal/errs"
	"github.com/0gfoundation/0g-points-relay/internal/message"
	"github.com/0gfoundation/0g-points-relay/internal/relay"
)

const (
	testShopID   = "0x0001000000000000000000000000000000000000000000000000000000000000"
	reporterKey  = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAssetHex = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func points(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestLoyalty_TenPercent(t *testing.T) {
	details := []Detail{{ProductID: "A", Amount: points(10000), ProvideBP: big.NewInt(1000)}}
	got := Loyalty(points(10000), points(10000), details)
	if got.Cmp(points(1000)) != 0 {
		t.Errorf("loyalty: got %s want %s", got, points(1000))
	}
}

func TestLoyalty_PartialCash(t *testing.T) {
	// half paid in cash earns half the points
	details := []Detail{
		{ProductID: "A", Amount: points(6000), ProvideBP: big.NewInt(1000)},
		{ProductID: "B", Amount: points(4000), ProvideBP: big.NewInt(500)},
	}
	got := Loyalty(points(5000), points(10000), details)
	want := points(400) // (600 + 200) / 2
	if got.Cmp(want) != 0 {
		t.Errorf("loyalty: got %s want %s", got, want)
	}
}

func TestLoyalty_ZeroGuards(t *testing.T) {
	details := []Detail{{ProductID: "A", Amount: points(10000), ProvideBP: big.NewInt(1000)}}
	if got := Loyalty(big.NewInt(0), points(10000), details); got.Sign() != 0 {
		t.Errorf("zero cash: got %s", got)
	}
	if got := Loyalty(points(10000), big.NewInt(0), details); got.Sign() != 0 {
		t.Errorf("zero total: got %s", got)
	}
}

func TestLoyalty_FlooredToGwei(t *testing.T) {
	details := []Detail{{ProductID: "A", Amount: big.NewInt(123_456_789_123), ProvideBP: big.NewInt(10000)}}
	got := Loyalty(big.NewInt(1), big.NewInt(1), details)
	if got.Cmp(big.NewInt(123_000_000_000)) != 0 {
		t.Errorf("got %s", got)
	}
}

func TestBasisPoints(t *testing.T) {
	cases := map[string]int64{"10": 1000, "2.5": 250, "2.555": 255, "0": 0, "100": 10000}
	for in, want := range cases {
		got, err := BasisPoints(in)
		if err != nil {
			t.Fatalf("BasisPoints(%q): %v", in, err)
		}
		if got.Int64() != want {
			t.Errorf("BasisPoints(%q): got %s want %d", in, got, want)
		}
	}
	if _, err := BasisPoints("ten"); err == nil {
		t.Error("expected error for non-numeric percent")
	}
}

func TestIDGenerator(t *testing.T) {
	g := NewIDGenerator(42, rand.New(rand.NewPCG(1, 2)))
	re := regexp.MustCompile(`^P\d{10}\d{4}$`)
	a, b := g.Next(), g.Next()
	if !re.MatchString(a) || !re.MatchString(b) {
		t.Fatalf("bad ids %q %q", a, b)
	}
	if a[:11] != "P0000000042" || b[:11] != "P0000000043" {
		t.Errorf("counter: %q %q", a, b)
	}
}

func TestIDGenerator_Independent(t *testing.T) {
	g1 := NewIDGenerator(1, nil)
	g2 := NewIDGenerator(1, nil)
	if g1.Next()[:11] != g2.Next()[:11] {
		t.Error("generators must not share a counter")
	}
}

// fakeSaver records requests and checks signatures.
type fakeSaver struct {
	mu      sync.Mutex
	signer  common.Address
	saved   []relay.SaveNewPurchaseRequest
	cancels []relay.SaveCancelPurchaseRequest
	err     error
}

func (f *fakeSaver) ChainID(context.Context) (*big.Int, error) { return big.NewInt(215115), nil }

func (f *fakeSaver) SaveNewPurchase(_ context.Context, req relay.SaveNewPurchaseRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, req)
	return nil
}

func (f *fakeSaver) SaveCancelPurchase(_ context.Context, req relay.SaveCancelPurchaseRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.cancels = append(f.cancels, req)
	return nil
}

func newTestClient(t *testing.T) (*Client, *fakeSaver) {
	t.Helper()
	s, err := auth.NewSigner(reporterKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	saver := &fakeSaver{signer: s.Address()}
	return NewClient(saver, s, common.HexToAddress(testAssetHex), zap.NewNop()), saver
}

func samplePurchase(id string) NewPurchase {
	return NewPurchase{
		ID:          id,
		Timestamp:   1700000000,
		Waiting:     0,
		TotalAmount: "10000",
		CashAmount:  "10000",
		Currency:    "php",
		ShopID:      testShopID,
		UserPhone:   "+82 10-1000-2000",
		Details:     []Item{{ProductID: "2020051310000000", Amount: "10000", ProvidePercent: "10"}},
	}
}

func TestClient_SaveNew(t *testing.T) {
	c, saver := newTestClient(t)
	req, err := c.SaveNew(context.Background(), samplePurchase("P0000000001"))
	if err != nil {
		t.Fatalf("SaveNew: %v", err)
	}
	if len(saver.saved) != 1 {
		t.Fatalf("saved %d records", len(saver.saved))
	}
	p := req.Purchase
	if p.Loyalty != points(1000).String() {
		t.Errorf("loyalty: %s", p.Loyalty)
	}
	if p.UserAccount != (common.Address{}).Hex() {
		t.Errorf("empty account should become the zero address, got %s", p.UserAccount)
	}
	if req.Details[0].ProvidePercent != "1000" {
		t.Errorf("percent should be sent in basis points, got %s", req.Details[0].ProvidePercent)
	}
	if req.Others.TotalAmount != points(10000).String() {
		t.Errorf("total: %s", req.Others.TotalAmount)
	}

	msg, err := message.SaveNewPurchase(message.NewPurchase{
		PurchaseID:    p.PurchaseID,
		CashAmount:    points(10000),
		Loyalty:       points(1000),
		Currency:      p.Currency,
		ShopID:        p.ShopID,
		UserAccount:   p.UserAccount,
		UserPhoneHash: message.PhoneHash("+82 10-1000-2000").Hex(),
		Sender:        testAssetHex,
	}, big.NewInt(215115))
	if err != nil {
		t.Fatalf("rebuild message: %v", err)
	}
	sig, _ := hexutil.Decode(p.PurchaseSignature)
	if !auth.VerifyDigest(msg.Digest(), sig, saver.signer) {
		t.Error("signature does not cover the submitted fields")
	}
	if c.Registry().State("P0000000001") != StateSaved {
		t.Error("purchase should be marked saved")
	}
}

func TestClient_SaveTwiceRejected(t *testing.T) {
	c, saver := newTestClient(t)
	ctx := context.Background()
	c.SaveNew(ctx, samplePurchase("P1"))
	_, err := c.SaveNew(ctx, samplePurchase("P1"))
	var pe *errs.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if len(saver.saved) != 1 {
		t.Error("duplicate purchase reached the save server")
	}
}

func TestClient_InvalidAccount(t *testing.T) {
	c, _ := newTestClient(t)
	p := samplePurchase("P2")
	p.UserAccount = "not-an-address"
	_, err := c.SaveNew(context.Background(), p)
	var fe *errs.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestClient_InvalidAmount(t *testing.T) {
	c, _ := newTestClient(t)
	p := samplePurchase("P3")
	p.CashAmount = "12x"
	_, err := c.SaveNew(context.Background(), p)
	var fe *errs.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestClient_Cancel(t *testing.T) {
	c, saver := newTestClient(t)
	ctx := context.Background()
	c.SaveNew(ctx, samplePurchase("P4"))
	if err := c.Cancel(ctx, "P4", 1700000100, 0); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(saver.cancels) != 1 || saver.cancels[0].Purchase.Sender != testAssetHex {
		t.Fatalf("cancels: %+v", saver.cancels)
	}
	if c.Registry().State("P4") != StateCancelled {
		t.Error("purchase should be cancelled")
	}
	err := c.Cancel(ctx, "P4", 1700000200, 0)
	var pe *errs.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("second cancel: expected ProtocolError, got %v", err)
	}
}

func TestClient_RemoteFailureKeepsState(t *testing.T) {
	c, saver := newTestClient(t)
	saver.err = &errs.RemoteError{Code: 2001, Message: "denied"}
	_, err := c.SaveNew(context.Background(), samplePurchase("P5"))
	var re *errs.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if c.Registry().State("P5") != StateNone {
		t.Error("failed save must not change state")
	}
}

func TestClient_DecimalAmounts(t *testing.T) {
	c, _ := newTestClient(t)
	p := samplePurchase("P6")
	p.CashAmount = "1,000.5"
	p.TotalAmount = "1,000.5"
	p.Details = []Item{{ProductID: "X", Amount: "1000.5", ProvidePercent: "1"}}
	req, err := c.SaveNew(context.Background(), p)
	if err != nil {
		t.Fatalf("SaveNew: %v", err)
	}
	want := amount.MustParse("10.005", amount.DefaultDecimals).Value()
	if req.Purchase.Loyalty != amount.FloorGwei(want).String() {
		t.Errorf("loyalty: got %s want %s", req.Purchase.Loyalty, want)
	}
}
