package dexswap

import (
	"errors"
	"math/big"
	"time"

	"belongchain/native/rates"
)

var (
	// ErrDeadlineExceeded indicates the routed request expired before execution.
	ErrDeadlineExceeded = errors.New("dexswap: route deadline exceeded")
	// ErrUnknownToken indicates a route over a token pair the router does not hold.
	ErrUnknownToken = errors.New("dexswap: unknown token in route")
)

// PaperTokenLedger is the transfer surface the paper router settles against.
type PaperTokenLedger interface {
	BalanceOf(addr [20]byte) (*big.Int, error)
	Transfer(from, to [20]byte, amount *big.Int) error
}

// PaperRouter executes routed swaps at the reference feed price against a
// designated liquidity account instead of an external exchange. It backs
// single-node deployments and tests where no real venue exists; the slippage
// and deadline semantics match the live routers.
type PaperRouter struct {
	cfg       PaymentsInfo
	usd, long PaperTokenLedger
	payer     [20]byte
	liquidity [20]byte
	feed      rates.PriceFeed
	nowFn     func() time.Time
}

// NewPaperRouter wires a paper router that pulls input from payer and settles
// against the liquidity account.
func NewPaperRouter(cfg PaymentsInfo, usd, long PaperTokenLedger, payer, liquidity [20]byte, feed rates.PriceFeed) *PaperRouter {
	return &PaperRouter{
		cfg:       cfg.Clone(),
		usd:       usd,
		long:      long,
		payer:     payer,
		liquidity: liquidity,
		feed:      feed,
		nowFn:     time.Now,
	}
}

// SetNowFunc overrides the clock, primarily for deterministic testing.
func (r *PaperRouter) SetNowFunc(now func() time.Time) {
	if now == nil {
		r.nowFn = time.Now
		return
	}
	r.nowFn = now
}

var _ Router = (*PaperRouter)(nil)

// SwapExactIn implements Router. Output is priced through the feed, so a
// healthy feed fills exactly at the expected amount and the caller's slippage
// bound passes; a stale feed fails the whole route.
func (r *PaperRouter) SwapExactIn(req RouteRequest) (*big.Int, error) {
	if req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, errAmountNotPositive
	}
	now := r.nowFn()
	if req.Deadline > 0 && now.Unix() > req.Deadline {
		return nil, ErrDeadlineExceeded
	}

	var (
		direction Direction
		inLedger  PaperTokenLedger
		outLedger PaperTokenLedger
	)
	switch {
	case req.TokenIn == r.cfg.USDToken.Address && req.TokenOut == r.cfg.Long.Address:
		direction, inLedger, outLedger = SellUSD, r.usd, r.long
	case req.TokenIn == r.cfg.Long.Address && req.TokenOut == r.cfg.USDToken.Address:
		direction, inLedger, outLedger = SellLong, r.long, r.usd
	default:
		return nil, ErrUnknownToken
	}

	out, err := r.quote(req.AmountIn, direction, now)
	if err != nil {
		return nil, err
	}
	if req.MinAmountOut != nil && out.Cmp(req.MinAmountOut) < 0 {
		return nil, ErrSlippageExceeded
	}
	if err := inLedger.Transfer(r.payer, r.liquidity, req.AmountIn); err != nil {
		return nil, err
	}
	if err := outLedger.Transfer(r.liquidity, req.Recipient, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PaperRouter) quote(amountIn *big.Int, direction Direction, now time.Time) (*big.Int, error) {
	price, err := rates.GetStandardizedPrice(r.feed, r.cfg.MaxPriceFeedDelay, now)
	if err != nil {
		return nil, err
	}
	inDecimals, outDecimals := r.cfg.USDToken.Decimals, r.cfg.Long.Decimals
	if direction == SellLong {
		inDecimals, outDecimals = r.cfg.Long.Decimals, r.cfg.USDToken.Decimals
	}
	std, err := rates.Standardize(inDecimals, amountIn)
	if err != nil {
		return nil, err
	}
	var out *big.Int
	if direction == SellLong {
		out, err = rates.Convert(std, price)
	} else {
		out, err = rates.Invert(std, price)
	}
	if err != nil {
		return nil, err
	}
	return rates.Unstandardize(outDecimals, out)
}
