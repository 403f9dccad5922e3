package rates

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestCalculateRateBounds(t *testing.T) {
	amount := big.NewInt(123_456_789)
	for _, bps := range []uint32{0, 1, 250, 5000, 9999, 10_000} {
		out, err := CalculateRate(bps, amount)
		if err != nil {
			t.Fatalf("bps %d: %v", bps, err)
		}
		if out.Cmp(amount) > 0 {
			t.Fatalf("bps %d: rate %s exceeds amount %s", bps, out, amount)
		}
	}
	full, err := CalculateRate(10_000, amount)
	if err != nil {
		t.Fatalf("full rate: %v", err)
	}
	if full.Cmp(amount) != 0 {
		t.Fatalf("expected identity at 10000 bps, got %s", full)
	}
	if _, err := CalculateRate(10_001, amount); !errors.Is(err, ErrBpsOutOfRange) {
		t.Fatalf("expected ErrBpsOutOfRange, got %v", err)
	}
}

func TestCalculateRateTruncates(t *testing.T) {
	out, err := CalculateRate(250, big.NewInt(39))
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	// 39 * 250 / 10000 = 0.975 truncates to zero.
	if out.Sign() != 0 {
		t.Fatalf("expected truncation to zero, got %s", out)
	}
}

func TestCalculateFeeFloorsToNonzero(t *testing.T) {
	fee, err := CalculateFee(250, big.NewInt(39))
	if err != nil {
		t.Fatalf("fee: %v", err)
	}
	if fee.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected floored fee of 1, got %s", fee)
	}
	fee, err = CalculateFee(250, big.NewInt(0))
	if err != nil {
		t.Fatalf("fee: %v", err)
	}
	if fee.Sign() != 0 {
		t.Fatalf("zero amount must carry zero fee, got %s", fee)
	}
	fee, err = CalculateFee(0, big.NewInt(1_000))
	if err != nil {
		t.Fatalf("fee: %v", err)
	}
	if fee.Sign() != 0 {
		t.Fatalf("zero bps must carry zero fee, got %s", fee)
	}
}

func TestStandardizeRoundTrip(t *testing.T) {
	cases := []struct {
		decimals uint8
		amount   *big.Int
	}{
		{6, big.NewInt(5_000_000)},
		{8, big.NewInt(42)},
		{18, new(big.Int).Mul(big.NewInt(7), pow10(18))},
	}
	for _, tc := range cases {
		std, err := Standardize(tc.decimals, tc.amount)
		if err != nil {
			t.Fatalf("standardize(%d): %v", tc.decimals, err)
		}
		back, err := Unstandardize(tc.decimals, std)
		if err != nil {
			t.Fatalf("unstandardize(%d): %v", tc.decimals, err)
		}
		if back.Cmp(tc.amount) != 0 {
			t.Fatalf("round trip with %d decimals: got %s want %s", tc.decimals, back, tc.amount)
		}
	}
}

func TestStandardizeScalesUp(t *testing.T) {
	std, err := Standardize(6, big.NewInt(1))
	if err != nil {
		t.Fatalf("standardize: %v", err)
	}
	if std.Cmp(pow10(12)) != 0 {
		t.Fatalf("expected 1e12, got %s", std)
	}
}

func TestConvertInvertRoundTrip(t *testing.T) {
	// 1 LONG = 0.25 USD in canonical scale.
	price := new(big.Int).Quo(pow10(18), big.NewInt(4))
	amount := new(big.Int).Mul(big.NewInt(1000), pow10(18))
	usd, err := Convert(amount, price)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(250), pow10(18))
	if usd.Cmp(want) != 0 {
		t.Fatalf("convert: got %s want %s", usd, want)
	}
	back, err := Invert(usd, price)
	if err != nil {
		t.Fatalf("invert: %v", err)
	}
	if back.Cmp(amount) != 0 {
		t.Fatalf("invert: got %s want %s", back, amount)
	}
}

func TestVenueIDDeterministic(t *testing.T) {
	var venue [20]byte
	venue[19] = 0xAB
	first := VenueID(venue)
	second := VenueID(venue)
	if first != second {
		t.Fatalf("venue id must be deterministic")
	}
	var other [20]byte
	other[19] = 0xAC
	if VenueID(other) == first {
		t.Fatalf("distinct venues must derive distinct ids")
	}
}

type stubFeed struct {
	reading  FeedReading
	decimals uint8
	err      error
}

func (s stubFeed) LatestRoundData() (FeedReading, error) { return s.reading, s.err }
func (s stubFeed) Decimals() (uint8, error)              { return s.decimals, nil }

func TestGetPriceValidation(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	healthy := FeedReading{RoundID: 7, Answer: big.NewInt(25_000_000), UpdatedAt: now.Unix() - 30}

	if _, err := GetPrice(stubFeed{reading: healthy}, time.Minute, now); err != nil {
		t.Fatalf("healthy reading rejected: %v", err)
	}

	bad := healthy
	bad.RoundID = 0
	if _, err := GetPrice(stubFeed{reading: bad}, time.Minute, now); !errors.Is(err, ErrIncorrectRoundID) {
		t.Fatalf("expected ErrIncorrectRoundID, got %v", err)
	}

	bad = healthy
	bad.UpdatedAt = 0
	if _, err := GetPrice(stubFeed{reading: bad}, time.Minute, now); !errors.Is(err, ErrIncorrectLatestUpdatedTimestamp) {
		t.Fatalf("expected ErrIncorrectLatestUpdatedTimestamp, got %v", err)
	}

	bad = healthy
	bad.UpdatedAt = now.Unix() - 120
	if _, err := GetPrice(stubFeed{reading: bad}, time.Minute, now); !errors.Is(err, ErrIncorrectLatestUpdatedTimestamp) {
		t.Fatalf("expected staleness rejection, got %v", err)
	}

	bad = healthy
	bad.Answer = big.NewInt(0)
	if _, err := GetPrice(stubFeed{reading: bad}, time.Minute, now); !errors.Is(err, ErrIncorrectAnswer) {
		t.Fatalf("expected ErrIncorrectAnswer, got %v", err)
	}
}

func TestGetStandardizedPrice(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	feed := stubFeed{
		reading:  FeedReading{RoundID: 3, Answer: big.NewInt(25_000_000), UpdatedAt: now.Unix()},
		decimals: 8,
	}
	price, err := GetStandardizedPrice(feed, time.Minute, now)
	if err != nil {
		t.Fatalf("standardized price: %v", err)
	}
	want := new(big.Int).Mul(big.NewInt(25_000_000), pow10(10))
	if price.Cmp(want) != 0 {
		t.Fatalf("got %s want %s", price, want)
	}
}
