package domain

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the number of fractional digits of the chain's native
// unit (ether = 10^18 wei).
const NativeDecimals = 18

// NativeSymbol is shown next to amounts in ledger descriptions.
const NativeSymbol = "ETH"

// plainAmountRegex accepts unsigned decimal notation only. Exponents are
// rejected so a short input cannot expand into a huge number.
var plainAmountRegex = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// ParseAmount parses a user-entered amount in native units. Zero, negative,
// unparseable and over-precise values are rejected.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is empty", ErrInvalidAmount)
	}

	if !plainAmountRegex.MatchString(raw) {
		return decimal.Zero, fmt.Errorf("%w: %q is not a plain decimal number", ErrInvalidAmount, raw)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}

	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	if !amount.Equal(amount.Truncate(NativeDecimals)) {
		return decimal.Zero, fmt.Errorf("%w: at most %d decimal places", ErrAmountPrecision, NativeDecimals)
	}

	return amount, nil
}

// ToWei converts a native amount to its smallest unit.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(NativeDecimals).BigInt()
}

// FromWei converts a smallest-unit amount to native units.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -NativeDecimals)
}
