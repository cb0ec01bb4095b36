package amm

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	ErrEmptyPool      = errors.New("liquidity supply is zero")
	ErrZeroLiquidity  = errors.New("withdraw amount is zero")
	ErrShareTruncated = errors.New("withdraw share does not fit in 64 bits")
)

// shareOf computes floor(amount * reserve / supply) in 256 bits.
func shareOf(amount uint64, reserve uint64, supply uint64) (uint64, error) {
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(amount), uint256.NewInt(reserve))
	if overflow {
		return 0, ErrShareTruncated
	}
	share := product.Div(product, uint256.NewInt(supply))
	if !share.IsUint64() {
		return 0, ErrShareTruncated
	}
	return share.Uint64(), nil
}

// CalculateWithdrawAmounts returns the reserves owed for burning amount of a
// supply of LP tokens. Both sides round down, so dust stays in the pool.
func CalculateWithdrawAmounts(amount uint64, reserveA uint64, reserveB uint64, supply uint64) (uint64, uint64, error) {
	if amount == 0 {
		return 0, 0, ErrZeroLiquidity
	}
	if supply == 0 {
		return 0, 0, ErrEmptyPool
	}

	outA, err := shareOf(amount, reserveA, supply)
	if err != nil {
		return 0, 0, err
	}
	outB, err := shareOf(amount, reserveB, supply)
	if err != nil {
		return 0, 0, err
	}
	return outA, outB, nil
}
