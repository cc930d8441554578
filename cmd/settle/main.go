// cmd/settle/main.go runs the signed settlement operations of one shop with
// the key in PAYMENT_PRIVATE_KEY.
//
// Usage examples:
//
//	# show the shop and what it can refund
//	go run ./cmd/settle/ --shop 0x<shop id> --action info
//
//	# refund 12.5 points worth of tokens
//	go run ./cmd/settle/ --shop 0x<shop id> --action refund --amount 12.5
//
//	# collect from every client shop, then bridge tokens to the main chain
//	go run ./cmd/settle/ --shop 0x<shop id> --action collect
//	go run ./cmd/settle/ --shop 0x<shop id> --action withdraw --amount 100
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/0gfoundation/0g-points-relay/internal/amount"
	"github.com/0gfoundation/0g-points-relay/internal/auth"
	"github.com/0gfoundation/0g-points-relay/internal/config"
	"github.com/0gfoundation/0g-points-relay/internal/relay"
	"github.com/0gfoundation/0g-points-relay/internal/settlement"
)

// shopOps is what the tool needs from settlement.Manager.
type shopOps interface {
	ShopInfo(ctx context.Context) (*settlement.ShopInfo, error)
	Refundable(ctx context.Context) (*relay.Refundable, error)
	Refund(ctx context.Context, amt *big.Int) (string, error)
	AccountOfShopOwner(ctx context.Context) (string, error)
	Withdraw(ctx context.Context, amt *big.Int) (string, error)
	ClientLength(ctx context.Context) (int, error)
	ClientList(ctx context.Context, start, end int) ([]string, error)
	CollectMultiClient(ctx context.Context, clients []string) (string, error)
}

var _ shopOps = (*settlement.Manager)(nil)

func main() {
	shopID := flag.String("shop", "", "shop id (hex, required)")
	action := flag.String("action", "info", "info | refund | withdraw | collect")
	amountText := flag.String("amount", "", "decimal token amount for refund and withdraw")
	flag.Parse()

	if *shopID == "" {
		fmt.Fprintln(os.Stderr, "error: --shop is required")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.RequireSigner(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	signer, err := auth.NewSigner(cfg.Signer.PrivateKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "signer: %v\n", err)
		os.Exit(1)
	}

	log, _ := zap.NewProduction()
	defer log.Sync()

	client := relay.NewClient(cfg.Relay.URL, cfg.Relay.SaveURL,
		relay.WithTimeout(time.Duration(cfg.Relay.TimeoutMs)*time.Millisecond))
	m := settlement.NewManager(client, signer, *shopID, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Printf("signer: %s\n", signer.Address().Hex())
	if err := run(ctx, m, *action, *amountText, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "\n✗ %s failed: %v\n", *action, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, m shopOps, action, amountText string, out io.Writer) error {
	switch action {
	case "info":
		info, err := m.ShopInfo(ctx)
		if err != nil {
			return err
		}
		owner, err := m.AccountOfShopOwner(ctx)
		if err != nil {
			return err
		}
		r, err := m.Refundable(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "shop:       %s (%s)\n", info.Name, info.Currency)
		fmt.Fprintf(out, "owner:      %s\n", owner)
		fmt.Fprintf(out, "settled:    %s\n", display(info.SettledAmount))
		fmt.Fprintf(out, "refundable: %s (token %s)\n", display(r.RefundableAmount.Big()), display(r.RefundableToken.Big()))
		return nil

	case "refund", "withdraw":
		if amountText == "" {
			return fmt.Errorf("--amount is required for %s", action)
		}
		a, err := amount.Parse(amountText, amount.DefaultDecimals)
		if err != nil {
			return err
		}
		var tx string
		if action == "refund" {
			tx, err = m.Refund(ctx, a.Value())
		} else {
			tx, err = m.Withdraw(ctx, a.Value())
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ %s %s: %s\n", action, a.DisplayString(-1), tx)
		return nil

	case "collect":
		n, err := m.ClientLength(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintln(out, "no client shops to collect from")
			return nil
		}
		clients, err := m.ClientList(ctx, 0, n)
		if err != nil {
			return err
		}
		tx, err := m.CollectMultiClient(ctx, clients)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ collected from %d client shops: %s\n", len(clients), tx)
		return nil
	}
	return fmt.Errorf("unknown action %q", action)
}

func display(v *big.Int) string {
	a, err := amount.New(v, amount.DefaultDecimals)
	if err != nil {
		return v.String()
	}
	return a.DisplayString(4)
}
