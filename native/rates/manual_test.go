package rates

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestManualFeedLifecycle(t *testing.T) {
	feed := NewManualFeed(8)
	now := time.Unix(1_700_000_000, 0)

	if _, err := GetPrice(feed, time.Hour, now); err == nil {
		t.Fatal("expected error before first answer")
	}
	if err := feed.Set(big.NewInt(0), now); !errors.Is(err, ErrIncorrectAnswer) {
		t.Fatalf("expected ErrIncorrectAnswer, got %v", err)
	}

	if err := feed.Set(big.NewInt(25_000_000), now); err != nil {
		t.Fatalf("set: %v", err)
	}
	price, err := GetPrice(feed, time.Hour, now)
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if price.Int64() != 25_000_000 {
		t.Fatalf("price = %d, want 25000000", price.Int64())
	}

	// An old answer goes stale against a later clock.
	if _, err := GetPrice(feed, time.Minute, now.Add(2*time.Minute)); err == nil {
		t.Fatal("expected staleness error")
	}

	// A fresh update advances the round and clears staleness.
	later := now.Add(10 * time.Minute)
	if err := feed.Set(big.NewInt(30_000_000), later); err != nil {
		t.Fatalf("set: %v", err)
	}
	reading, err := feed.LatestRoundData()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if reading.RoundID != 2 || reading.AnsweredInRound != 2 {
		t.Fatalf("round = %d/%d, want 2/2", reading.RoundID, reading.AnsweredInRound)
	}
	if _, err := GetPrice(feed, time.Minute, later); err != nil {
		t.Fatalf("get price after update: %v", err)
	}
}
