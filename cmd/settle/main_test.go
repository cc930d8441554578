package main

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/0gfoundation/0g-points-relay/internal/relay"
	"github.com/0gfoundation/0g-points-relay/internal/settlement"
)

type fakeShop struct {
	clients  []string
	refunded *big.Int
	withdrew *big.Int
	collect  []string
}

func (f *fakeShop) ShopInfo(ctx context.Context) (*settlement.ShopInfo, error) {
	return &settlement.ShopInfo{
		ShopInfo:      relay.ShopInfo{Name: "Shop 1", Currency: "php"},
		SettledAmount: new(big.Int).Mul(big.NewInt(20), big.NewInt(1e18)),
	}, nil
}

func (f *fakeShop) Refundable(ctx context.Context) (*relay.Refundable, error) {
	return &relay.Refundable{
		RefundableAmount: relay.NewInt(big.NewInt(5e17)),
		RefundableToken:  relay.NewInt(big.NewInt(0)),
	}, nil
}

func (f *fakeShop) Refund(ctx context.Context, amt *big.Int) (string, error) {
	f.refunded = amt
	return "0x4ef0d", nil
}

func (f *fakeShop) AccountOfShopOwner(ctx context.Context) (string, error) {
	return "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", nil
}

func (f *fakeShop) Withdraw(ctx context.Context, amt *big.Int) (string, error) {
	f.withdrew = amt
	return "0xb41d6e", nil
}

func (f *fakeShop) ClientLength(ctx context.Context) (int, error) { return len(f.clients), nil }

func (f *fakeShop) ClientList(ctx context.Context, start, end int) ([]string, error) {
	if start != 0 || end != len(f.clients) {
		return nil, errors.New("bad range")
	}
	return f.clients, nil
}

func (f *fakeShop) CollectMultiClient(ctx context.Context, clients []string) (string, error) {
	f.collect = clients
	return "0xc011ec7", nil
}

func TestRun_Info(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &fakeShop{}, "info", "", &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{"Shop 1 (php)", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "settled:    20\n", "refundable: 0.5 (token 0)"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestRun_RefundAndWithdrawScaleAmount(t *testing.T) {
	f := &fakeShop{}
	var out bytes.Buffer
	if err := run(context.Background(), f, "refund", "12.5", &out); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if f.refunded.String() != "12500000000000000000" {
		t.Errorf("refunded: %s", f.refunded)
	}
	if err := run(context.Background(), f, "withdraw", "1,000", &out); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if f.withdrew.String() != "1000000000000000000000" {
		t.Errorf("withdrew: %s", f.withdrew)
	}
	if !strings.Contains(out.String(), "✓ withdraw 1000: 0xb41d6e") {
		t.Errorf("output: %s", out.String())
	}
}

func TestRun_Collect(t *testing.T) {
	f := &fakeShop{clients: []string{"0x02", "0x03"}}
	var out bytes.Buffer
	if err := run(context.Background(), f, "collect", "", &out); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(f.collect) != 2 {
		t.Errorf("collected: %v", f.collect)
	}

	empty := &fakeShop{}
	out.Reset()
	if err := run(context.Background(), empty, "collect", "", &out); err != nil {
		t.Fatalf("collect: %v", err)
	}
	if empty.collect != nil || !strings.Contains(out.String(), "no client shops") {
		t.Errorf("empty collect should not sign: %v %s", empty.collect, out.String())
	}
}

func TestRun_BadInput(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	if err := run(ctx, &fakeShop{}, "refund", "", &out); err == nil {
		t.Error("refund without amount should fail")
	}
	if err := run(ctx, &fakeShop{}, "withdraw", "1.2.3", &out); err == nil {
		t.Error("malformed amount should fail")
	}
	if err := run(ctx, &fakeShop{}, "burn", "", &out); err == nil {
		t.Error("unknown action should fail")
	}
}
