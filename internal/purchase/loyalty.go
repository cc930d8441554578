// Package purchase reports purchases to the save server: it computes the
// loyalty points a purchase earns, signs the record and tracks which
// purchase ids this process has saved or cancelled.
package purchase

import (
	"math/big"

	"github.com/0gfoundation/0g-points-relay/internal/amount"
)

// Detail is one purchased product with its fixed-point amount and the share
// of it provided as points, in basis points.
type Detail struct {
	ProductID string
	Amount    *big.Int
	ProvideBP *big.Int
}

var bpScale = big.NewInt(10000)

// Loyalty is the number of points a purchase earns:
// floorGwei(sum(amount * bp) * cash / total / 10000).
// It is zero when cash or total is zero.
func Loyalty(cash, total *big.Int, details []Detail) *big.Int {
	if total == nil || total.Sign() == 0 || cash == nil || cash.Sign() == 0 {
		return new(big.Int)
	}
	sum := new(big.Int)
	for _, d := range details {
		sum.Add(sum, new(big.Int).Mul(d.Amount, d.ProvideBP))
	}
	sum.Mul(sum, cash)
	sum.Quo(sum, total)
	sum.Quo(sum, bpScale)
	return amount.FloorGwei(sum)
}

// BasisPoints converts a percent text such as "10" or "2.55" to basis
// points. Digits past the second decimal are dropped.
func BasisPoints(percent string) (*big.Int, error) {
	a, err := amount.Parse(percent, 2)
	if err != nil {
		return nil, err
	}
	return a.Value(), nil
}
