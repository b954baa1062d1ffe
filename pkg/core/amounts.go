package core

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// RawPerNano is the fixed scale between the ledger's indivisible raw unit
// and the nano display unit: 1 nano = 10^30 raw.
var RawPerNano = new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)

const nanoExponent = 30

// RawToNano converts a raw amount to its exact nano representation. The
// conversion is a pure decimal shift, so it is lossless for any input.
func RawToNano(raw *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -nanoExponent)
}

// NanoToRaw converts a nano amount to raw. Negative amounts and amounts
// with a fraction finer than one raw are rejected.
func NanoToRaw(nano decimal.Decimal) (*big.Int, error) {
	if nano.IsNegative() {
		return nil, NewError(KindInvalidAmount, "negative amounts are not allowed: %s", nano)
	}
	shifted := nano.Shift(nanoExponent)
	if !shifted.IsInteger() {
		return nil, NewError(KindInvalidAmount, "amount %s is finer than 1 raw", nano)
	}
	return shifted.BigInt(), nil
}

// ParseNanoAmount parses a decimal string in nano units into raw.
func ParseNanoAmount(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, NewError(KindInvalidAmount, "invalid amount %q: %v", s, err)
	}
	return NanoToRaw(d)
}

// ParseRawAmount parses a non-negative integer raw amount string.
func ParseRawAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, NewError(KindInvalidAmount, "invalid raw amount %q", s)
	}
	if v.Sign() < 0 {
		return nil, NewError(KindInvalidAmount, "negative amounts are not allowed: %s", s)
	}
	return v, nil
}
