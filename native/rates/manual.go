package rates

import (
	"errors"
	"math/big"
	"sync"
	"time"
)

// ManualFeed is a PriceFeed fed by operator updates instead of an external
// oracle network. Each update advances the round so the staleness checks in
// GetPrice apply unchanged.
type ManualFeed struct {
	mu        sync.RWMutex
	decimals  uint8
	round     uint64
	answer    *big.Int
	startedAt int64
	updatedAt int64
}

// NewManualFeed creates an empty feed quoting with the given decimals. The
// feed reports an error until the first Set.
func NewManualFeed(decimals uint8) *ManualFeed {
	return &ManualFeed{decimals: decimals}
}

// Set records a new answer observed at the given time and advances the round.
func (f *ManualFeed) Set(answer *big.Int, at time.Time) error {
	if answer == nil || answer.Sign() <= 0 {
		return ErrIncorrectAnswer
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.round++
	f.answer = new(big.Int).Set(answer)
	f.startedAt = at.Unix()
	f.updatedAt = at.Unix()
	return nil
}

// LatestRoundData implements PriceFeed.
func (f *ManualFeed) LatestRoundData() (FeedReading, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.round == 0 {
		return FeedReading{}, errors.New("rates: manual feed has no answer yet")
	}
	return FeedReading{
		RoundID:         f.round,
		Answer:          new(big.Int).Set(f.answer),
		StartedAt:       f.startedAt,
		UpdatedAt:       f.updatedAt,
		AnsweredInRound: f.round,
	}, nil
}

// Decimals implements PriceFeed.
func (f *ManualFeed) Decimals() (uint8, error) {
	return f.decimals, nil
}
