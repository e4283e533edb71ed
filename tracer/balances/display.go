package balances

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// HumanAmount renders an integer amount scaled down by the denom exponent,
// e.g. 1500000 with exponent 6 becomes "1.5".
func HumanAmount(amount *uint256.Int, exponent int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount.ToBig(), -exponent).String()
}
