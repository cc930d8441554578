// cmd/checkbal/main.go prints the point and token balances and both nonces of
// an account, or the balances held under a phone number.
//
//	go run ./cmd/checkbal/ --account 0x...
//	go run ./cmd/checkbal/ --phone +82 10-1000-2000
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0gfoundation/0g-points-relay/internal/amount"
	"github.com/0gfoundation/0g-points-relay/internal/config"
	"github.com/0gfoundation/0g-points-relay/internal/message"
	"github.com/0gfoundation/0g-points-relay/internal/relay"
)

func main() {
	account := flag.String("account", "", "wallet address")
	phone := flag.String("phone", "", "phone number (balance only)")
	flag.Parse()

	if (*account == "") == (*phone == "") {
		fmt.Fprintln(os.Stderr, "error: exactly one of --account or --phone is required")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	client := relay.NewClient(cfg.Relay.URL, cfg.Relay.SaveURL,
		relay.WithTimeout(time.Duration(cfg.Relay.TimeoutMs)*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *phone != "" {
		hash := message.PhoneHash(*phone).Hex()
		bal, err := client.BalanceOfPhoneHash(ctx, hash)
		if err != nil {
			fmt.Fprintf(os.Stderr, "balance: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("phone hash:  %s\n", hash)
		printBalance(bal)
		return
	}

	if !common.IsHexAddress(*account) {
		fmt.Fprintf(os.Stderr, "invalid account %q\n", *account)
		os.Exit(1)
	}
	addr := common.HexToAddress(*account).Hex()
	bal, err := client.BalanceOfAccount(ctx, addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "balance: %v\n", err)
		os.Exit(1)
	}
	ledgerNonce, err := client.LedgerNonce(ctx, addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger nonce: %v\n", err)
		os.Exit(1)
	}
	shopNonce, err := client.ShopNonce(ctx, addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shop nonce: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("account:      %s\n", addr)
	printBalance(bal)
	fmt.Printf("ledger nonce: %s\n", ledgerNonce)
	fmt.Printf("shop nonce:   %s\n", shopNonce)
}

func printBalance(bal *relay.UserBalance) {
	fmt.Printf("point:        %s (value %s)\n", display(bal.Point.Balance.Big()), display(bal.Point.Value.Big()))
	fmt.Printf("token:        %s (value %s)\n", display(bal.Token.Balance.Big()), display(bal.Token.Value.Big()))
}

// display renders v at 18 decimals, or raw when it is not a valid amount.
func display(v *big.Int) string {
	a, err := amount.New(v, amount.DefaultDecimals)
	if err != nil {
		return v.String()
	}
	return a.DisplayString(4)
}
