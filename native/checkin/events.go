package checkin

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"belongchain/core/types"
)

const (
	EventTypeVenuePaidDeposit         = "checkin.venue_deposit"
	EventTypeVenueRulesSet            = "checkin.venue_rules_set"
	EventTypeCustomerPaid             = "checkin.customer_paid"
	EventTypePromoterDistributed      = "checkin.promoter_distributed"
	EventTypePromoterPaymentCancelled = "checkin.promoter_payment_cancelled"
	EventTypeRevenueBuybackBurn       = "checkin.buyback_burn"
	EventTypeBurnedTokens             = "checkin.tokens_burned"
	EventTypeReferralRegistered       = "checkin.referral_registered"
	EventTypeParametersSet            = "checkin.parameters_set"
)

func addr(a [20]byte) string {
	return hex.EncodeToString(a[:])
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newVenuePaidDepositEvent(venue [20]byte, principal, fee, longOut *big.Int, remainingCredits uint64) *types.Event {
	return &types.Event{Type: EventTypeVenuePaidDeposit, Attributes: map[string]string{
		"venue":            addr(venue),
		"principal":        amount(principal),
		"convenienceFee":   amount(fee),
		"longEscrowed":     amount(longOut),
		"remainingCredits": strconv.FormatUint(remainingCredits, 10),
	}}
}

func newVenueRulesSetEvent(venue [20]byte, rules VenueRules) *types.Event {
	return &types.Event{Type: EventTypeVenueRulesSet, Attributes: map[string]string{
		"venue":                addr(venue),
		"paymentType":          strconv.FormatUint(uint64(rules.PaymentType), 10),
		"bountyType":           strconv.FormatUint(uint64(rules.BountyType), 10),
		"bountyAllocationType": strconv.FormatUint(uint64(rules.BountyAllocationType), 10),
		"longPaymentType":      strconv.FormatUint(uint64(rules.LongPaymentType), 10),
	}}
}

func newCustomerPaidEvent(customer, venue, promoter [20]byte, paid, toCustomer, toPromoter *big.Int) *types.Event {
	return &types.Event{Type: EventTypeCustomerPaid, Attributes: map[string]string{
		"customer":   addr(customer),
		"venue":      addr(venue),
		"promoter":   addr(promoter),
		"amount":     amount(paid),
		"toCustomer": amount(toCustomer),
		"toPromoter": amount(toPromoter),
	}}
}

func newPromoterDistributedEvent(promoter, venue [20]byte, credits *big.Int, inUSD bool) *types.Event {
	return &types.Event{Type: EventTypePromoterDistributed, Attributes: map[string]string{
		"promoter": addr(promoter),
		"venue":    addr(venue),
		"amount":   amount(credits),
		"inUSD":    strconv.FormatBool(inUSD),
	}}
}

func newPromoterPaymentCancelledEvent(venue, promoter [20]byte, credits *big.Int) *types.Event {
	return &types.Event{Type: EventTypePromoterPaymentCancelled, Attributes: map[string]string{
		"venue":    addr(venue),
		"promoter": addr(promoter),
		"amount":   amount(credits),
	}}
}

func newRevenueBuybackBurnEvent(source string, usdIn, longBurned *big.Int) *types.Event {
	return &types.Event{Type: EventTypeRevenueBuybackBurn, Attributes: map[string]string{
		"source":     source,
		"usdIn":      amount(usdIn),
		"longBurned": amount(longBurned),
	}}
}

func newBurnedTokensEvent(longBurned *big.Int) *types.Event {
	return &types.Event{Type: EventTypeBurnedTokens, Attributes: map[string]string{
		"long": amount(longBurned),
	}}
}

func newReferralRegisteredEvent(code string, promoter [20]byte) *types.Event {
	return &types.Event{Type: EventTypeReferralRegistered, Attributes: map[string]string{
		"code":     code,
		"promoter": addr(promoter),
	}}
}

func newParametersSetEvent() *types.Event {
	return &types.Event{Type: EventTypeParametersSet, Attributes: map[string]string{}}
}
