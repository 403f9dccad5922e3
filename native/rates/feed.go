package rates

import (
	"errors"
	"math/big"
	"time"
)

var (
	// ErrIncorrectRoundID indicates the feed reported a zero round identifier.
	ErrIncorrectRoundID = errors.New("rates: incorrect round id")
	// ErrIncorrectLatestUpdatedTimestamp indicates a missing or stale feed update.
	ErrIncorrectLatestUpdatedTimestamp = errors.New("rates: incorrect latest updated timestamp")
	// ErrIncorrectAnswer indicates the feed reported a non-positive price.
	ErrIncorrectAnswer = errors.New("rates: incorrect answer")
)

// FeedReading mirrors the round data surface of an external price feed.
type FeedReading struct {
	RoundID         uint64
	Answer          *big.Int
	StartedAt       int64
	UpdatedAt       int64
	AnsweredInRound uint64
}

// PriceFeed is the read surface the engine consumes from an external oracle.
type PriceFeed interface {
	LatestRoundData() (FeedReading, error)
	Decimals() (uint8, error)
}

// GetPrice reads and validates the latest feed round. The answer is returned
// in the feed's native decimal scale. A reading older than maxDelay relative
// to now is rejected rather than silently tolerated.
func GetPrice(feed PriceFeed, maxDelay time.Duration, now time.Time) (*big.Int, error) {
	if feed == nil {
		return nil, errors.New("rates: price feed not configured")
	}
	reading, err := feed.LatestRoundData()
	if err != nil {
		return nil, err
	}
	if reading.RoundID == 0 {
		return nil, ErrIncorrectRoundID
	}
	if reading.UpdatedAt == 0 {
		return nil, ErrIncorrectLatestUpdatedTimestamp
	}
	if maxDelay > 0 {
		updated := time.Unix(reading.UpdatedAt, 0)
		if now.Sub(updated) > maxDelay {
			return nil, ErrIncorrectLatestUpdatedTimestamp
		}
	}
	if reading.Answer == nil || reading.Answer.Sign() <= 0 {
		return nil, ErrIncorrectAnswer
	}
	return new(big.Int).Set(reading.Answer), nil
}

// GetStandardizedPrice reads, validates and rescales the latest feed answer to
// the canonical 18-decimal scale.
func GetStandardizedPrice(feed PriceFeed, maxDelay time.Duration, now time.Time) (*big.Int, error) {
	answer, err := GetPrice(feed, maxDelay, now)
	if err != nil {
		return nil, err
	}
	decimals, err := feed.Decimals()
	if err != nil {
		return nil, err
	}
	return Standardize(decimals, answer)
}
