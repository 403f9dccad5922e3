package rates

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// BpsDenominator is the denominator shared by every basis-point percentage in
// the platform configuration.
const BpsDenominator = 10_000

// CanonicalDecimals is the decimal scale all cross-token math is performed in.
const CanonicalDecimals = uint8(18)

var (
	// ErrBpsOutOfRange indicates a basis-point value above the denominator.
	ErrBpsOutOfRange = errors.New("rates: bps out of range")
	// ErrNegativeAmount indicates a negative input amount.
	ErrNegativeAmount = errors.New("rates: amount must be non-negative")
)

// CalculateRate returns amount*bps/10_000 with truncation toward zero. The
// result is always ≤ amount for bps ≤ 10_000 and equals amount at 10_000.
func CalculateRate(bps uint32, amount *big.Int) (*big.Int, error) {
	if bps > BpsDenominator {
		return nil, ErrBpsOutOfRange
	}
	if amount == nil {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(bps)))
	return out.Quo(out, big.NewInt(BpsDenominator)), nil
}

// CalculateFee mirrors CalculateRate but floors the result to one base unit
// when truncation would zero out a fee on a positive amount with a positive
// rate. Platform fees on dust-sized amounts therefore never round to free.
func CalculateFee(bps uint32, amount *big.Int) (*big.Int, error) {
	out, err := CalculateRate(bps, amount)
	if err != nil {
		return nil, err
	}
	if out.Sign() == 0 && bps > 0 && amount != nil && amount.Sign() > 0 {
		return big.NewInt(1), nil
	}
	return out, nil
}

// Standardize converts an amount expressed in the token's native decimal scale
// into the canonical 18-decimal scale. Tokens with more than 18 decimals are
// scaled down with truncation.
func Standardize(decimals uint8, amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	out := new(big.Int).Set(amount)
	switch {
	case decimals == CanonicalDecimals:
		return out, nil
	case decimals < CanonicalDecimals:
		return out.Mul(out, pow10(CanonicalDecimals-decimals)), nil
	default:
		return out.Quo(out, pow10(decimals-CanonicalDecimals)), nil
	}
}

// Unstandardize converts a canonical-scale amount back into the token's native
// decimal scale, truncating any precision the token cannot represent.
func Unstandardize(decimals uint8, amount *big.Int) (*big.Int, error) {
	if amount == nil {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	out := new(big.Int).Set(amount)
	switch {
	case decimals == CanonicalDecimals:
		return out, nil
	case decimals < CanonicalDecimals:
		return out.Quo(out, pow10(CanonicalDecimals-decimals)), nil
	default:
		return out.Mul(out, pow10(decimals-CanonicalDecimals)), nil
	}
}

// Convert reprices a canonical-scale amount of one currency into another using
// the supplied canonical-scale price (units of quote per one base unit).
func Convert(amount, price *big.Int) (*big.Int, error) {
	if amount == nil || price == nil {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 || price.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	if price.Sign() == 0 {
		return nil, fmt.Errorf("rates: price must be positive")
	}
	out := new(big.Int).Mul(amount, price)
	return out.Quo(out, pow10(CanonicalDecimals)), nil
}

// Invert reprices a canonical-scale amount of the quote currency back into the
// base currency for the same price quote.
func Invert(amount, price *big.Int) (*big.Int, error) {
	if amount == nil || price == nil {
		return big.NewInt(0), nil
	}
	if amount.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	if price == nil || price.Sign() <= 0 {
		return nil, fmt.Errorf("rates: price must be positive")
	}
	out := new(big.Int).Mul(amount, pow10(CanonicalDecimals))
	return out.Quo(out, price), nil
}

// VenueID derives the deterministic identifier shared by the venue-credit and
// promoter-credit ledgers for a venue address.
func VenueID(venue [20]byte) [32]byte {
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256(venue[:]))
	return id
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
