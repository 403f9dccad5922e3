package checkin

import "errors"

var (
	// ErrWrongPaymentType indicates an unsupported or disabled payment type.
	ErrWrongPaymentType = errors.New("checkin: wrong payment type provided")
	// ErrWrongReferralCode indicates an unknown referral code or a promoter
	// mismatch against the code's registered owner.
	ErrWrongReferralCode = errors.New("checkin: wrong referral code")
	// ErrNotAVenue indicates the caller has never completed a deposit.
	ErrNotAVenue = errors.New("checkin: not a venue")
	// ErrNotEnoughBalance indicates insufficient venue-credit for the bounty.
	ErrNotEnoughBalance = errors.New("checkin: not enough balance")
	// ErrNotEnoughPromoterBalance indicates a distribution request above the
	// promoter's credit balance.
	ErrNotEnoughPromoterBalance = errors.New("checkin: not enough promoter balance")
	// ErrIncorrectAmountSent indicates the payer cannot fund the requested
	// amount plus fees.
	ErrIncorrectAmountSent = errors.New("checkin: incorrect amount sent")
	// ErrBPSTooHigh indicates a slippage bound at or above the fixed-point
	// ceiling.
	ErrBPSTooHigh = errors.New("checkin: bps too high")
	// ErrRoyaltySumExceeded indicates combined percentage cuts above 100%.
	ErrRoyaltySumExceeded = errors.New("checkin: royalty sum exceeded")
	// ErrNotOwner gates the configuration setters.
	ErrNotOwner = errors.New("checkin: caller is not the owner")
	// ErrNotManager gates the emergency and registry operations.
	ErrNotManager = errors.New("checkin: caller is not the manager")
	// ErrAmountNotPositive indicates a zero or negative request amount.
	ErrAmountNotPositive = errors.New("checkin: amount must be positive")

	errNilState     = errors.New("checkin: state not configured")
	errNilContracts = errors.New("checkin: contracts not configured")
)
