package dexswap

import (
	"bytes"
	"errors"
	"math/big"
	"testing"
	"time"

	"belongchain/core/events"
	"belongchain/native/rates"
)

type stubFeed struct {
	reading  rates.FeedReading
	decimals uint8
}

func (s stubFeed) LatestRoundData() (rates.FeedReading, error) { return s.reading, nil }
func (s stubFeed) Decimals() (uint8, error)                    { return s.decimals, nil }

type stubRouter struct {
	lastReq RouteRequest
	out     *big.Int
	err     error
	called  bool
}

func (r *stubRouter) SwapExactIn(req RouteRequest) (*big.Int, error) {
	r.called = true
	r.lastReq = req
	if r.err != nil {
		return nil, r.err
	}
	if r.out != nil {
		return new(big.Int).Set(r.out), nil
	}
	return new(big.Int).Set(req.MinAmountOut), nil
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

func testConfig() PaymentsInfo {
	cfg := PaymentsInfo{
		DexType: DexClassic,
		// 1% tolerated deviation.
		SlippageBps:       new(big.Int).Quo(SlippageDenominator, big.NewInt(100)),
		MaxPriceFeedDelay: time.Minute,
		USDToken:          TokenInfo{Decimals: 6},
		Long:              TokenInfo{Decimals: 18},
		PoolKey:           []byte{0xAA, 0xBB},
		HookData:          []byte{0x01},
	}
	cfg.USDToken.Address[19] = 0x01
	cfg.Long.Address[19] = 0x02
	return cfg
}

// The feed quotes 0.25 USD per LONG at 8 feed decimals.
func testFeed(now time.Time) stubFeed {
	return stubFeed{
		reading:  rates.FeedReading{RoundID: 9, Answer: big.NewInt(25_000_000), UpdatedAt: now.Unix()},
		decimals: 8,
	}
}

func TestSwapSellUSDThroughClassicRouter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	classic := &stubRouter{}
	hooked := &stubRouter{}
	s := NewSwapper(classic, hooked, testFeed(now))
	s.SetNowFunc(func() time.Time { return now })
	rec := &events.Recorder{}
	s.SetEmitter(rec)

	cfg := testConfig()
	var recipient [20]byte
	recipient[0] = 0x77

	// 5 USD at 6 decimals buys 20 LONG at 0.25 USD/LONG.
	amountIn := big.NewInt(5_000_000)
	out, err := s.Swap(cfg, amountIn, SellUSD, recipient)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if hooked.called {
		t.Fatalf("hooked router must not be consulted for the classic dex type")
	}
	wantExpected := new(big.Int).Mul(big.NewInt(20), pow10(18))
	wantMin := new(big.Int).Quo(new(big.Int).Mul(wantExpected, big.NewInt(99)), big.NewInt(100))
	if classic.lastReq.MinAmountOut.Cmp(wantMin) != 0 {
		t.Fatalf("min out: got %s want %s", classic.lastReq.MinAmountOut, wantMin)
	}
	if out.Cmp(wantMin) != 0 {
		t.Fatalf("realized out: got %s want %s", out, wantMin)
	}
	wantPath := append(append([]byte(nil), cfg.USDToken.Address[:]...), cfg.Long.Address[:]...)
	if !bytes.Equal(classic.lastReq.PoolKey, wantPath) {
		t.Fatalf("classic pool key must encode the token path")
	}
	if len(classic.lastReq.HookData) != 0 {
		t.Fatalf("classic route must not carry hook data")
	}
	if classic.lastReq.Recipient != recipient {
		t.Fatalf("recipient not forwarded")
	}
	if classic.lastReq.Deadline <= now.Unix() {
		t.Fatalf("router deadline must be in the future")
	}
	evts := rec.Events()
	if len(evts) != 1 || evts[0].EventType() != EventTypeSwapped {
		t.Fatalf("expected one %s event, got %v", EventTypeSwapped, evts)
	}
}

func TestSwapSellLongThroughHookedRouter(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	classic := &stubRouter{}
	hooked := &stubRouter{}
	s := NewSwapper(classic, hooked, testFeed(now))
	s.SetNowFunc(func() time.Time { return now })

	cfg := testConfig()
	cfg.DexType = DexHooked

	// 20 LONG sells for 5 USD.
	amountIn := new(big.Int).Mul(big.NewInt(20), pow10(18))
	out, err := s.Swap(cfg, amountIn, SellLong, [20]byte{0x55})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if classic.called {
		t.Fatalf("classic router must not be consulted for the hooked dex type")
	}
	wantMin := big.NewInt(4_950_000)
	if out.Cmp(wantMin) != 0 {
		t.Fatalf("realized out: got %s want %s", out, wantMin)
	}
	if !bytes.Equal(hooked.lastReq.PoolKey, cfg.PoolKey) {
		t.Fatalf("hooked route must carry the configured pool key")
	}
	if !bytes.Equal(hooked.lastReq.HookData, cfg.HookData) {
		t.Fatalf("hooked route must carry the configured hook data")
	}
	if hooked.lastReq.TokenIn != cfg.Long.Address || hooked.lastReq.TokenOut != cfg.USDToken.Address {
		t.Fatalf("direction must control the token ordering")
	}
}

func TestSwapRejectsOutputBelowBound(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	classic := &stubRouter{out: big.NewInt(1)}
	s := NewSwapper(classic, nil, testFeed(now))
	s.SetNowFunc(func() time.Time { return now })
	rec := &events.Recorder{}
	s.SetEmitter(rec)

	_, err := s.Swap(testConfig(), big.NewInt(5_000_000), SellUSD, [20]byte{})
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Fatalf("failed swap must not emit events")
	}
}

func TestSwapFailsBeforeRouterOnStaleFeed(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	classic := &stubRouter{}
	stale := testFeed(now)
	stale.reading.UpdatedAt = now.Add(-time.Hour).Unix()
	s := NewSwapper(classic, nil, stale)
	s.SetNowFunc(func() time.Time { return now })

	_, err := s.Swap(testConfig(), big.NewInt(5_000_000), SellUSD, [20]byte{})
	if !errors.Is(err, rates.ErrIncorrectLatestUpdatedTimestamp) {
		t.Fatalf("expected stale feed rejection, got %v", err)
	}
	if classic.called {
		t.Fatalf("router must not be invoked when the feed is stale")
	}
}

func TestSwapValidatesSlippageCeiling(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewSwapper(&stubRouter{}, nil, testFeed(now))
	s.SetNowFunc(func() time.Time { return now })

	cfg := testConfig()
	cfg.SlippageBps = new(big.Int).Set(SlippageDenominator)
	if _, err := s.Swap(cfg, big.NewInt(1), SellUSD, [20]byte{}); !errors.Is(err, ErrSlippageTooHigh) {
		t.Fatalf("expected ErrSlippageTooHigh, got %v", err)
	}

	cfg = testConfig()
	cfg.DexType = DexType(9)
	if _, err := s.Swap(cfg, big.NewInt(1), SellUSD, [20]byte{}); !errors.Is(err, ErrUnknownDexType) {
		t.Fatalf("expected ErrUnknownDexType, got %v", err)
	}
}

func TestSwapRouterFailureAborts(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	boom := errors.New("router down")
	s := NewSwapper(&stubRouter{err: boom}, nil, testFeed(now))
	s.SetNowFunc(func() time.Time { return now })

	if _, err := s.Swap(testConfig(), big.NewInt(5_000_000), SellUSD, [20]byte{}); !errors.Is(err, boom) {
		t.Fatalf("router failure must surface, got %v", err)
	}
}
