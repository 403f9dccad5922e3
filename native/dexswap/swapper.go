package dexswap

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/holiman/uint256"

	"belongchain/core/events"
	"belongchain/core/types"
	"belongchain/native/rates"
)

var (
	// ErrUnknownDexType indicates a dex type outside the two supported back ends.
	ErrUnknownDexType = errors.New("dexswap: unknown dex type")
	// ErrSlippageTooHigh indicates a slippage bound at or above the 1e27 ceiling.
	ErrSlippageTooHigh = errors.New("dexswap: slippage bps too high")
	// ErrSlippageExceeded indicates the realized output fell below the bound.
	ErrSlippageExceeded = errors.New("dexswap: output below slippage bound")
	// ErrRouterNotConfigured indicates no router is wired for the dex type.
	ErrRouterNotConfigured = errors.New("dexswap: router not configured")

	errAmountNotPositive = errors.New("dexswap: amount must be positive")
)

// EventTypeSwapped is emitted after every successful conversion.
const EventTypeSwapped = "swap.executed"

// routerDeadline bounds how long a routed swap stays valid once submitted.
const routerDeadline = 2 * time.Minute

type swapEvent struct {
	evt *types.Event
}

func (e swapEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e swapEvent) Event() *types.Event { return e.evt }

// Swapper executes slippage-bounded conversions between the USD token and
// LONG through one of two exchange back ends. The back end is selected by the
// stored configuration, never by the caller.
type Swapper struct {
	classic Router
	hooked  Router
	feed    rates.PriceFeed
	emitter events.Emitter
	nowFn   func() time.Time
}

// NewSwapper wires the two router strategies and the price feed used to
// anchor the minimum-out bound.
func NewSwapper(classic, hooked Router, feed rates.PriceFeed) *Swapper {
	return &Swapper{
		classic: classic,
		hooked:  hooked,
		feed:    feed,
		emitter: events.NoopEmitter{},
		nowFn:   time.Now,
	}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (s *Swapper) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// SetNowFunc overrides the clock, primarily for deterministic testing.
func (s *Swapper) SetNowFunc(now func() time.Time) {
	if now == nil {
		s.nowFn = time.Now
		return
	}
	s.nowFn = now
}

func (s *Swapper) emit(evt *types.Event) {
	if s == nil || s.emitter == nil || evt == nil {
		return
	}
	s.emitter.Emit(swapEvent{evt: evt})
}

// ExpectedOut prices amountIn through the feed without touching a router.
// The result is expressed in the output token's native decimals.
func (s *Swapper) ExpectedOut(cfg PaymentsInfo, amountIn *big.Int, direction Direction) (*big.Int, error) {
	if s == nil || s.feed == nil {
		return nil, errors.New("dexswap: price feed not configured")
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, errAmountNotPositive
	}
	if !direction.Valid() {
		return nil, fmt.Errorf("dexswap: invalid direction %d", direction)
	}
	price, err := rates.GetStandardizedPrice(s.feed, cfg.MaxPriceFeedDelay, s.nowFn())
	if err != nil {
		return nil, err
	}
	var (
		inDecimals  = cfg.USDToken.Decimals
		outDecimals = cfg.Long.Decimals
	)
	if direction == SellLong {
		inDecimals, outDecimals = cfg.Long.Decimals, cfg.USDToken.Decimals
	}
	std, err := rates.Standardize(inDecimals, amountIn)
	if err != nil {
		return nil, err
	}
	var out *big.Int
	if direction == SellLong {
		// The feed quotes USD per LONG.
		out, err = rates.Convert(std, price)
	} else {
		out, err = rates.Invert(std, price)
	}
	if err != nil {
		return nil, err
	}
	return rates.Unstandardize(outDecimals, out)
}

// minimumOut applies the configured slippage bound to the expected output
// using 1e27 fixed-point arithmetic.
func minimumOut(expected, slippageBps *big.Int) (*big.Int, error) {
	if slippageBps == nil || slippageBps.Sign() < 0 || slippageBps.Cmp(SlippageDenominator) >= 0 {
		return nil, ErrSlippageTooHigh
	}
	exp, overflow := uint256.FromBig(expected)
	if overflow {
		return nil, fmt.Errorf("dexswap: expected output overflows uint256")
	}
	slip, _ := uint256.FromBig(slippageBps)
	denom, _ := uint256.FromBig(SlippageDenominator)
	keep := new(uint256.Int).Sub(denom, slip)
	min := new(uint256.Int).Mul(exp, keep)
	min.Div(min, denom)
	return min.ToBig(), nil
}

// Swap converts amountIn in the given direction, crediting the output to
// recipient. The realized output must meet the slippage-bounded minimum or
// the whole call fails with no transfer committed.
func (s *Swapper) Swap(cfg PaymentsInfo, amountIn *big.Int, direction Direction, recipient [20]byte) (*big.Int, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	expected, err := s.ExpectedOut(cfg, amountIn, direction)
	if err != nil {
		return nil, err
	}
	minOut, err := minimumOut(expected, cfg.SlippageBps)
	if err != nil {
		return nil, err
	}

	tokenIn, tokenOut := cfg.USDToken.Address, cfg.Long.Address
	if direction == SellLong {
		tokenIn, tokenOut = cfg.Long.Address, cfg.USDToken.Address
	}
	req := RouteRequest{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     new(big.Int).Set(amountIn),
		MinAmountOut: minOut,
		Recipient:    recipient,
		Deadline:     s.nowFn().Add(routerDeadline).Unix(),
	}

	var router Router
	switch cfg.DexType {
	case DexClassic:
		// The classic back end derives its pool from the token path.
		req.PoolKey = append(append([]byte(nil), tokenIn[:]...), tokenOut[:]...)
		router = s.classic
	case DexHooked:
		req.PoolKey = append([]byte(nil), cfg.PoolKey...)
		req.HookData = append([]byte(nil), cfg.HookData...)
		router = s.hooked
	default:
		return nil, ErrUnknownDexType
	}
	if router == nil {
		return nil, ErrRouterNotConfigured
	}

	amountOut, err := router.SwapExactIn(req)
	if err != nil {
		return nil, err
	}
	if amountOut == nil || amountOut.Cmp(minOut) < 0 {
		return nil, ErrSlippageExceeded
	}

	s.emit(&types.Event{Type: EventTypeSwapped, Attributes: map[string]string{
		"amountIn":  amountIn.String(),
		"amountOut": amountOut.String(),
		"direction": direction.String(),
		"dexType":   fmt.Sprintf("%d", cfg.DexType),
	}})
	return new(big.Int).Set(amountOut), nil
}
