package checkin

import (
	"math/big"

	"belongchain/native/dexswap"
	"belongchain/native/rates"
	"belongchain/native/sigauth"
)

// VenueDeposit processes a signed venue deposit: it pulls the principal plus
// the tier convenience fee (and, once the venue's free-deposit allowance is
// spent, the tier-adjusted platform commission), swaps the fee portion into
// LONG, escrows principal and swap output under the venue, and mints
// venue-credit equal to the principal. The first deposit registers the venue.
func (e *Engine) VenueDeposit(info VenueInfo, p sigauth.Protection) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.contracts.validate(); err != nil {
		return err
	}
	if err := e.auth.Verify(info.Hash(), p, info.Venue); err != nil {
		return err
	}
	principal, err := clonePositive(info.Amount)
	if err != nil {
		return err
	}
	if !info.Rules.Valid() {
		return ErrWrongPaymentType
	}

	existing, registered, err := e.state.CheckInVenue(info.Venue)
	if err != nil {
		return err
	}
	if registered && !existing.Rules.PaymentType.CanTransitionTo(info.Rules.PaymentType) {
		return ErrWrongPaymentType
	}
	promoter, err := e.resolveReferral(info.ReferralCode)
	if err != nil {
		return err
	}

	staked, err := e.contracts.Staking.BalanceOf(info.Venue)
	if err != nil {
		return err
	}
	rewards := e.rewardsFor(e.tierFor(staked))
	fees := e.params.Fees

	convenienceFee := big.NewInt(0)
	if rewards.VenueStakingInfo.ConvenienceFeeAmount != nil {
		convenienceFee = new(big.Int).Set(rewards.VenueStakingInfo.ConvenienceFeeAmount)
	}
	referralCut := big.NewInt(0)
	if promoter != ([20]byte{}) {
		if referralCut, err = rates.CalculateRate(fees.AffiliatePercentage, principal); err != nil {
			return err
		}
	}
	commission := big.NewInt(0)
	buybackPart := big.NewInt(0)
	billed := registered && existing.RemainingCredits == 0
	if billed {
		if commission, err = rates.CalculateFee(rewards.VenueStakingInfo.DepositFeePercentage, principal); err != nil {
			return err
		}
		if buybackPart, err = rates.CalculateRate(fees.BuybackBurnPercentage, commission); err != nil {
			return err
		}
	}
	treasuryPart := new(big.Int).Sub(commission, buybackPart)

	totalPull := new(big.Int).Set(principal)
	totalPull.Add(totalPull, convenienceFee)
	totalPull.Add(totalPull, referralCut)
	totalPull.Add(totalPull, commission)
	if err := e.requireFunds(e.contracts.USDToken, info.Venue, totalPull); err != nil {
		return err
	}
	if err := e.contracts.USDToken.Transfer(info.Venue, e.address, totalPull); err != nil {
		return err
	}

	longOut := big.NewInt(0)
	if convenienceFee.Sign() > 0 {
		if longOut, err = e.contracts.Swapper.Swap(e.params.Payments, convenienceFee, dexswap.SellUSD, e.address); err != nil {
			return err
		}
	}
	if err := e.contracts.Escrow.RecordDeposit(e.address, info.Venue, principal, longOut); err != nil {
		return err
	}
	if err := e.contracts.VenueCredit.Mint(info.Venue, rates.VenueID(info.Venue), principal); err != nil {
		return err
	}
	if referralCut.Sign() > 0 {
		if err := e.contracts.USDToken.Transfer(e.address, promoter, referralCut); err != nil {
			return err
		}
	}
	if treasuryPart.Sign() > 0 {
		if err := e.contracts.USDToken.Transfer(e.address, e.params.Treasury, treasuryPart); err != nil {
			return err
		}
	}
	if buybackPart.Sign() > 0 {
		burnOut, err := e.contracts.Swapper.Swap(e.params.Payments, buybackPart, dexswap.SellUSD, e.address)
		if err != nil {
			return err
		}
		if err := e.burnLong("deposit_commission", buybackPart, burnOut); err != nil {
			return err
		}
	}

	record := existing
	if !registered {
		record = &GeneralVenueInfo{RemainingCredits: fees.ReferralCreditsAmount}
	} else {
		record = record.Clone()
	}
	record.Rules = info.Rules
	if record.RemainingCredits > 0 {
		record.RemainingCredits--
	}
	if err := e.state.PutCheckInVenue(info.Venue, record); err != nil {
		return err
	}

	e.emit(newVenuePaidDepositEvent(info.Venue, principal, convenienceFee, longOut, record.RemainingCredits))
	e.emit(newVenueRulesSetEvent(info.Venue, record.Rules))
	return nil
}

// UpdateVenueRules rewrites a registered venue's rules. Only payment-type
// transitions permitted by CanTransitionTo are accepted; the remaining rule
// fields change freely.
func (e *Engine) UpdateVenueRules(caller [20]byte, rules VenueRules) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !rules.Valid() {
		return ErrWrongPaymentType
	}
	record, registered, err := e.state.CheckInVenue(caller)
	if err != nil {
		return err
	}
	if !registered {
		return ErrNotAVenue
	}
	if !record.Rules.PaymentType.CanTransitionTo(rules.PaymentType) {
		return ErrWrongPaymentType
	}
	record = record.Clone()
	record.Rules = rules
	if err := e.state.PutCheckInVenue(caller, record); err != nil {
		return err
	}
	e.emit(newVenueRulesSetEvent(caller, rules))
	return nil
}
