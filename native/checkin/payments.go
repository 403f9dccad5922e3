package checkin

import (
	"math/big"

	"belongchain/native/dexswap"
	"belongchain/native/rates"
	"belongchain/native/sigauth"
)

// PayToVenue processes a signed customer payment. LONG payments earn the
// customer a discount and draw a platform subsidy out of the venue's escrow;
// USD payments transfer directly. Both paths move the promoter bounty from
// venue-credit to promoter-credit when a referral applies.
func (e *Engine) PayToVenue(info CustomerInfo, p sigauth.Protection) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.contracts.validate(); err != nil {
		return err
	}
	if err := e.auth.Verify(info.Hash(), p, info.Customer); err != nil {
		return err
	}
	amount, err := clonePositive(info.Amount)
	if err != nil {
		return err
	}
	if !info.Currency.Valid() {
		return ErrWrongPaymentType
	}
	record, registered, err := e.state.CheckInVenue(info.Venue)
	if err != nil {
		return err
	}
	if !registered {
		return ErrNotAVenue
	}
	rules := record.Rules
	if info.Currency == CurrencyUSD && !rules.PaymentType.AcceptsUSD() {
		return ErrWrongPaymentType
	}
	if info.Currency == CurrencyLong && !rules.PaymentType.AcceptsLong() {
		return ErrWrongPaymentType
	}
	promoter, err := e.resolveReferral(info.ReferralCode)
	if err != nil {
		return err
	}

	if info.Currency == CurrencyUSD {
		return e.payInUSD(info, rules, amount, promoter)
	}
	return e.payInLong(info, rules, amount, promoter)
}

func (e *Engine) payInUSD(info CustomerInfo, rules VenueRules, amount *big.Int, promoter [20]byte) error {
	bounty, err := e.bountyFor(rules, promoter, amount, big.NewInt(0))
	if err != nil {
		return err
	}
	if err := e.requireFunds(e.contracts.USDToken, info.Customer, amount); err != nil {
		return err
	}
	if err := e.checkVenueCredit(info.Venue, bounty); err != nil {
		return err
	}
	if err := e.contracts.USDToken.Transfer(info.Customer, info.Venue, amount); err != nil {
		return err
	}
	if err := e.moveBounty(info.Venue, promoter, bounty); err != nil {
		return err
	}
	e.emit(newCustomerPaidEvent(info.Customer, info.Venue, promoter, amount, big.NewInt(0), bounty))
	return nil
}

func (e *Engine) payInLong(info CustomerInfo, rules VenueRules, amount *big.Int, promoter [20]byte) error {
	fees := e.params.Fees
	subsidy, err := rates.CalculateRate(fees.PlatformSubsidyPercentage, amount)
	if err != nil {
		return err
	}
	processing := big.NewInt(0)
	if subsidy.Sign() > 0 {
		if processing, err = rates.CalculateFee(fees.ProcessingFeePercentage, subsidy); err != nil {
			return err
		}
	}
	buyback, err := rates.CalculateRate(fees.BuybackBurnPercentage, processing)
	if err != nil {
		return err
	}
	discount, err := rates.CalculateRate(fees.LongCustomerDiscountPercentage, amount)
	if err != nil {
		return err
	}
	fromEscrowToVenue := new(big.Int).Sub(subsidy, processing)
	fromCustomerToVenue := new(big.Int).Sub(amount, discount)

	// Bounty credits are USD-equivalent, so a LONG payment is repriced
	// through the feed before the percentage applies.
	bountyBase, err := e.usdEquivalent(fromCustomerToVenue)
	if err != nil {
		return err
	}
	bountyDiscount := big.NewInt(0)
	if rules.BountyAllocationType == BountyAllocationGross {
		if bountyBase, err = e.usdEquivalent(amount); err != nil {
			return err
		}
	}
	bounty, err := e.bountyFor(rules, promoter, bountyBase, bountyDiscount)
	if err != nil {
		return err
	}

	// Every funding source is checked before the first transfer so a failing
	// leg cannot strand a partial payment.
	if err := e.requireFunds(e.contracts.LongToken, info.Customer, fromCustomerToVenue); err != nil {
		return err
	}
	if subsidy.Sign() > 0 {
		escrowed, err := e.contracts.Escrow.Balance(info.Venue)
		if err != nil {
			return err
		}
		if escrowed.LongDeposits.Cmp(subsidy) < 0 {
			return ErrNotEnoughBalance
		}
	}
	if err := e.checkVenueCredit(info.Venue, bounty); err != nil {
		return err
	}

	if subsidy.Sign() > 0 {
		if err := e.contracts.Escrow.Debit(e.address, info.Venue, big.NewInt(0), subsidy, e.address); err != nil {
			return err
		}
	}
	if fromCustomerToVenue.Sign() > 0 {
		if err := e.contracts.LongToken.Transfer(info.Customer, e.address, fromCustomerToVenue); err != nil {
			return err
		}
	}

	venueTotal := new(big.Int).Add(fromEscrowToVenue, fromCustomerToVenue)
	if venueTotal.Sign() > 0 {
		switch rules.LongPaymentType {
		case LongPaymentDirect:
			if err := e.contracts.LongToken.Transfer(e.address, info.Venue, venueTotal); err != nil {
				return err
			}
		case LongPaymentAutoStake:
			if err := e.contracts.Staking.Deposit(e.address, venueTotal, info.Venue); err != nil {
				return err
			}
		case LongPaymentAutoConvert:
			if _, err := e.contracts.Swapper.Swap(e.params.Payments, venueTotal, dexswap.SellLong, info.Venue); err != nil {
				return err
			}
		default:
			return ErrWrongPaymentType
		}
	}

	treasuryCut := new(big.Int).Sub(processing, buyback)
	if treasuryCut.Sign() > 0 {
		if err := e.contracts.LongToken.Transfer(e.address, e.params.Treasury, treasuryCut); err != nil {
			return err
		}
	}
	if err := e.burnLong("payment_processing", nil, buyback); err != nil {
		return err
	}
	if err := e.moveBounty(info.Venue, promoter, bounty); err != nil {
		return err
	}
	e.emit(newCustomerPaidEvent(info.Customer, info.Venue, promoter, amount, discount, bounty))
	return nil
}

// DistributePromoterPayments cashes out promoter-credit earned from a venue.
// The caller must be the promoter bound to the referral code. The platform
// keeps the tier-dependent cut; the remainder settles to the promoter in the
// requested currency.
func (e *Engine) DistributePromoterPayments(info PromoterInfo, p sigauth.Protection) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.contracts.validate(); err != nil {
		return err
	}
	if err := e.auth.Verify(info.Hash(), p, info.Promoter); err != nil {
		return err
	}
	amount, err := clonePositive(info.Amount)
	if err != nil {
		return err
	}
	registered, err := e.resolveReferral(info.ReferralCode)
	if err != nil {
		return err
	}
	if registered == ([20]byte{}) || registered != info.Promoter {
		return ErrWrongReferralCode
	}

	venueID := rates.VenueID(info.Venue)
	balance, err := e.contracts.PromoterCredit.BalanceOf(info.Promoter, venueID)
	if err != nil {
		return err
	}
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrNotEnoughPromoterBalance
	}

	staked, err := e.contracts.Staking.BalanceOf(info.Promoter)
	if err != nil {
		return err
	}
	rewards := e.rewardsFor(e.tierFor(staked))

	payout := new(big.Int).Set(amount)
	cutBps := rewards.PromoterStakingInfo.USDTokenPercentage
	ledger := e.contracts.USDToken
	debitUSD, debitLong := payout, big.NewInt(0)
	if !info.InUSD {
		// Credits are USD-equivalent; reprice through the feed when settling
		// in LONG.
		if payout, err = e.longEquivalent(amount); err != nil {
			return err
		}
		cutBps = rewards.PromoterStakingInfo.LongPercentage
		ledger = e.contracts.LongToken
		debitUSD, debitLong = big.NewInt(0), payout
	}
	cut, err := rates.CalculateFee(cutBps, payout)
	if err != nil {
		return err
	}

	escrowed, err := e.contracts.Escrow.Balance(info.Venue)
	if err != nil {
		return err
	}
	if escrowed.USDTokenDeposits.Cmp(debitUSD) < 0 || escrowed.LongDeposits.Cmp(debitLong) < 0 {
		return ErrNotEnoughBalance
	}

	// The credit burn commits before funds leave the vault so a recipient
	// callback can never observe spendable credit alongside received funds.
	if err := e.contracts.PromoterCredit.Burn(info.Promoter, venueID, amount); err != nil {
		return err
	}
	if err := e.contracts.Escrow.Debit(e.address, info.Venue, debitUSD, debitLong, e.address); err != nil {
		return err
	}
	if cut.Sign() > 0 {
		if err := ledger.Transfer(e.address, e.params.Treasury, cut); err != nil {
			return err
		}
	}
	remainder := new(big.Int).Sub(payout, cut)
	if remainder.Sign() > 0 {
		if err := ledger.Transfer(e.address, info.Promoter, remainder); err != nil {
			return err
		}
	}
	e.emit(newPromoterDistributedEvent(info.Promoter, info.Venue, amount, info.InUSD))
	return nil
}

// EmergencyCancelPayment reverses a promoter's outstanding credit for a venue
// back into venue-credit. Manager only.
func (e *Engine) EmergencyCancelPayment(caller, venue, promoter [20]byte) error {
	if e == nil {
		return errNilState
	}
	if caller != e.manager {
		return ErrNotManager
	}
	if err := e.contracts.validate(); err != nil {
		return err
	}
	venueID := rates.VenueID(venue)
	balance, err := e.contracts.PromoterCredit.BalanceOf(promoter, venueID)
	if err != nil {
		return err
	}
	if balance == nil || balance.Sign() == 0 {
		return ErrNotEnoughPromoterBalance
	}
	if err := e.contracts.PromoterCredit.Burn(promoter, venueID, balance); err != nil {
		return err
	}
	if err := e.contracts.VenueCredit.Mint(venue, venueID, balance); err != nil {
		return err
	}
	e.emit(newPromoterPaymentCancelledEvent(venue, promoter, balance))
	return nil
}

// --- helpers ---

func (e *Engine) bountyFor(rules VenueRules, promoter [20]byte, base, discount *big.Int) (*big.Int, error) {
	if promoter == ([20]byte{}) || rules.BountyType == BountyNone {
		return big.NewInt(0), nil
	}
	fees := e.params.Fees
	total := big.NewInt(0)
	if rules.BountyType.HasFlat() {
		total.Add(total, new(big.Int).SetUint64(fees.ReferralCreditsAmount))
	}
	if rules.BountyType.HasPercentage() {
		pctBase := new(big.Int).Set(base)
		if rules.BountyAllocationType == BountyAllocationNet {
			pctBase.Sub(pctBase, discount)
			if pctBase.Sign() < 0 {
				pctBase.SetInt64(0)
			}
		}
		pct, err := rates.CalculateRate(fees.AffiliatePercentage, pctBase)
		if err != nil {
			return nil, err
		}
		total.Add(total, pct)
	}
	return total, nil
}

func (e *Engine) checkVenueCredit(venue [20]byte, bounty *big.Int) error {
	if bounty.Sign() == 0 {
		return nil
	}
	balance, err := e.contracts.VenueCredit.BalanceOf(venue, rates.VenueID(venue))
	if err != nil {
		return err
	}
	if balance == nil || balance.Cmp(bounty) < 0 {
		return ErrNotEnoughBalance
	}
	return nil
}

func (e *Engine) moveBounty(venue, promoter [20]byte, bounty *big.Int) error {
	if bounty.Sign() == 0 {
		return nil
	}
	venueID := rates.VenueID(venue)
	if err := e.contracts.VenueCredit.Burn(venue, venueID, bounty); err != nil {
		return err
	}
	return e.contracts.PromoterCredit.Mint(promoter, venueID, bounty)
}

// usdEquivalent reprices a LONG amount into USD-token native units.
func (e *Engine) usdEquivalent(longAmount *big.Int) (*big.Int, error) {
	if longAmount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	price, err := rates.GetStandardizedPrice(e.contracts.PriceFeed, e.params.Payments.MaxPriceFeedDelay, e.nowFn())
	if err != nil {
		return nil, err
	}
	std, err := rates.Standardize(e.params.Payments.Long.Decimals, longAmount)
	if err != nil {
		return nil, err
	}
	usdStd, err := rates.Convert(std, price)
	if err != nil {
		return nil, err
	}
	return rates.Unstandardize(e.params.Payments.USDToken.Decimals, usdStd)
}

// longEquivalent reprices a USD-token amount into LONG native units.
func (e *Engine) longEquivalent(usdAmount *big.Int) (*big.Int, error) {
	if usdAmount.Sign() == 0 {
		return big.NewInt(0), nil
	}
	price, err := rates.GetStandardizedPrice(e.contracts.PriceFeed, e.params.Payments.MaxPriceFeedDelay, e.nowFn())
	if err != nil {
		return nil, err
	}
	std, err := rates.Standardize(e.params.Payments.USDToken.Decimals, usdAmount)
	if err != nil {
		return nil, err
	}
	longStd, err := rates.Invert(std, price)
	if err != nil {
		return nil, err
	}
	return rates.Unstandardize(e.params.Payments.Long.Decimals, longStd)
}
