package dexswap

import (
	"errors"
	"math/big"
	"time"
)

// DexType selects which exchange back end executes a swap.
type DexType uint8

const (
	// DexClassic routes through the pair-style router that derives its pool
	// from an encoded token path.
	DexClassic DexType = iota
	// DexHooked routes through the pool-key router that carries auxiliary
	// hook data alongside the swap.
	DexHooked
)

// Valid reports whether the dex type is within the supported range.
func (d DexType) Valid() bool {
	switch d {
	case DexClassic, DexHooked:
		return true
	default:
		return false
	}
}

// Direction states which currency is sold in a swap.
type Direction uint8

const (
	// SellUSD converts the USD token into LONG.
	SellUSD Direction = iota
	// SellLong converts LONG into the USD token.
	SellLong
)

// Valid reports whether the direction is within the supported range.
func (d Direction) Valid() bool {
	return d == SellUSD || d == SellLong
}

func (d Direction) String() string {
	if d == SellUSD {
		return "sell_usd"
	}
	return "sell_long"
}

// TokenInfo describes one side of the trading pair.
type TokenInfo struct {
	Address  [20]byte
	Decimals uint8
}

// SlippageDenominator is the fixed-point ceiling for slippage bounds: a value
// of 1e27 represents 100% tolerated deviation and is therefore invalid.
var SlippageDenominator = func() *big.Int {
	out, _ := new(big.Int).SetString("1000000000000000000000000000", 10)
	return out
}()

// PaymentsInfo is the swap-relevant slice of the global payment
// configuration. It is replaced atomically by the engine owner.
type PaymentsInfo struct {
	DexType           DexType
	SlippageBps       *big.Int
	Router            [20]byte
	USDToken          TokenInfo
	Long              TokenInfo
	MaxPriceFeedDelay time.Duration
	PoolKey           []byte
	HookData          []byte
}

// Clone returns a deep copy so stored configuration cannot be mutated through
// a retained reference.
func (p PaymentsInfo) Clone() PaymentsInfo {
	clone := p
	if p.SlippageBps != nil {
		clone.SlippageBps = new(big.Int).Set(p.SlippageBps)
	}
	clone.PoolKey = append([]byte(nil), p.PoolKey...)
	clone.HookData = append([]byte(nil), p.HookData...)
	return clone
}

// Validate checks the structural invariants of the configuration.
func (p PaymentsInfo) Validate() error {
	if !p.DexType.Valid() {
		return ErrUnknownDexType
	}
	if p.SlippageBps == nil || p.SlippageBps.Sign() < 0 || p.SlippageBps.Cmp(SlippageDenominator) >= 0 {
		return ErrSlippageTooHigh
	}
	if p.USDToken.Address == ([20]byte{}) || p.Long.Address == ([20]byte{}) {
		return errors.New("dexswap: token addresses required")
	}
	return nil
}

// RouteRequest is the normalized swap-exact-in call handed to a router.
type RouteRequest struct {
	TokenIn      [20]byte
	TokenOut     [20]byte
	AmountIn     *big.Int
	MinAmountOut *big.Int
	Recipient    [20]byte
	Deadline     int64
	PoolKey      []byte
	HookData     []byte
}

// Router is the external exchange surface consumed by the swapper. Both back
// ends expose the same logical swap-exact-in entry point; the per-dex
// strategies differ only in how they encode the pool key and auxiliary data.
type Router interface {
	SwapExactIn(req RouteRequest) (*big.Int, error)
}
