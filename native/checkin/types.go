package checkin

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"belongchain/native/dexswap"
)

// PaymentType enumerates which currencies a venue accepts from customers.
type PaymentType uint8

const (
	PaymentTypeUSD PaymentType = iota
	PaymentTypeLong
	PaymentTypeBoth
)

// Valid reports whether the payment type is within the supported range.
func (p PaymentType) Valid() bool {
	switch p {
	case PaymentTypeUSD, PaymentTypeLong, PaymentTypeBoth:
		return true
	default:
		return false
	}
}

// AcceptsUSD reports whether USD-token payments are enabled.
func (p PaymentType) AcceptsUSD() bool {
	return p == PaymentTypeUSD || p == PaymentTypeBoth
}

// AcceptsLong reports whether LONG payments are enabled.
func (p PaymentType) AcceptsLong() bool {
	return p == PaymentTypeLong || p == PaymentTypeBoth
}

// CanTransitionTo enumerates the permitted payment-type changes: a venue may
// keep its mode or widen to both currencies, but never drop a currency its
// customers already rely on, and never flip directly between the two
// single-currency modes.
func (p PaymentType) CanTransitionTo(next PaymentType) bool {
	if !p.Valid() || !next.Valid() {
		return false
	}
	if p == next {
		return true
	}
	return next == PaymentTypeBoth
}

// BountyType enumerates how the promoter bounty on customer payments is
// computed.
type BountyType uint8

const (
	BountyNone BountyType = iota
	BountyFlat
	BountyPercentage
	BountyFlatAndPercentage
)

// Valid reports whether the bounty type is within the supported range.
func (b BountyType) Valid() bool {
	return b <= BountyFlatAndPercentage
}

// HasFlat reports whether the flat bounty component applies.
func (b BountyType) HasFlat() bool {
	return b == BountyFlat || b == BountyFlatAndPercentage
}

// HasPercentage reports whether the percentage bounty component applies.
func (b BountyType) HasPercentage() bool {
	return b == BountyPercentage || b == BountyFlatAndPercentage
}

// BountyAllocationType selects the base amount the percentage bounty is
// computed against.
type BountyAllocationType uint8

const (
	// BountyAllocationGross computes the bounty on the full payment amount.
	BountyAllocationGross BountyAllocationType = iota
	// BountyAllocationNet computes the bounty on the amount after the
	// customer discount.
	BountyAllocationNet
)

// Valid reports whether the allocation type is within the supported range.
func (b BountyAllocationType) Valid() bool {
	return b == BountyAllocationGross || b == BountyAllocationNet
}

// LongPaymentType selects how LONG owed to a venue is delivered.
type LongPaymentType uint8

const (
	// LongPaymentDirect transfers LONG straight to the venue.
	LongPaymentDirect LongPaymentType = iota
	// LongPaymentAutoStake stakes the venue's LONG proceeds on its behalf.
	LongPaymentAutoStake
	// LongPaymentAutoConvert swaps the venue's LONG proceeds into USD.
	LongPaymentAutoConvert
)

// Valid reports whether the long payment type is within the supported range.
func (l LongPaymentType) Valid() bool {
	return l <= LongPaymentAutoConvert
}

// VenueRules is the per-venue configuration merged on deposits and updated
// through UpdateVenueRules.
type VenueRules struct {
	PaymentType          PaymentType          `json:"paymentType"`
	BountyType           BountyType           `json:"bountyType"`
	BountyAllocationType BountyAllocationType `json:"bountyAllocationType"`
	LongPaymentType      LongPaymentType      `json:"longPaymentType"`
}

// Valid reports whether every enum field is within range.
func (r VenueRules) Valid() bool {
	return r.PaymentType.Valid() && r.BountyType.Valid() &&
		r.BountyAllocationType.Valid() && r.LongPaymentType.Valid()
}

// GeneralVenueInfo is the persisted record for a registered venue.
// RemainingCredits only ever decreases; once it reaches zero every further
// deposit pays the tier-adjusted platform commission.
type GeneralVenueInfo struct {
	Rules            VenueRules `json:"rules"`
	RemainingCredits uint64     `json:"remainingCredits"`
}

// Clone returns a copy of the record.
func (g *GeneralVenueInfo) Clone() *GeneralVenueInfo {
	if g == nil {
		return nil
	}
	clone := *g
	return &clone
}

// Fees is the global fee configuration, replaced atomically by the owner.
// All percentage fields are basis points of 10 000. ReferralCreditsAmount
// doubles as the commission-free deposit allowance seeded into new venues and
// the flat component of the promoter bounty.
type Fees struct {
	ReferralCreditsAmount          uint64 `json:"referralCreditsAmount"`
	AffiliatePercentage            uint32 `json:"affiliatePercentage"`
	LongCustomerDiscountPercentage uint32 `json:"longCustomerDiscountPercentage"`
	PlatformSubsidyPercentage      uint32 `json:"platformSubsidyPercentage"`
	ProcessingFeePercentage        uint32 `json:"processingFeePercentage"`
	BuybackBurnPercentage          uint32 `json:"buybackBurnPercentage"`
}

// Tier is a staking bracket controlling fee discounts and platform cuts.
type Tier uint8

const (
	TierNone Tier = iota
	TierBronze
	TierSilver
	TierGold
	TierPlatinum
)

// TierCount is the fixed size of the rewards table.
const TierCount = 5

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierBronze:
		return "bronze"
	case TierSilver:
		return "silver"
	case TierGold:
		return "gold"
	case TierPlatinum:
		return "platinum"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// VenueStakingInfo carries the deposit-side terms for one tier.
type VenueStakingInfo struct {
	DepositFeePercentage uint32   `json:"depositFeePercentage"`
	ConvenienceFeeAmount *big.Int `json:"convenienceFeeAmount"`
}

// PromoterStakingInfo carries the distribution-side platform cuts for one
// tier, per settlement currency.
type PromoterStakingInfo struct {
	USDTokenPercentage uint32 `json:"usdTokenPercentage"`
	LongPercentage     uint32 `json:"longPercentage"`
}

// RewardsInfo is one row of the five-entry tier table.
type RewardsInfo struct {
	VenueStakingInfo    VenueStakingInfo    `json:"venueStakingInfo"`
	PromoterStakingInfo PromoterStakingInfo `json:"promoterStakingInfo"`
}

// Clone returns a copy with duplicated big.Int values.
func (r RewardsInfo) Clone() RewardsInfo {
	clone := r
	if r.VenueStakingInfo.ConvenienceFeeAmount != nil {
		clone.VenueStakingInfo.ConvenienceFeeAmount = new(big.Int).Set(r.VenueStakingInfo.ConvenienceFeeAmount)
	}
	return clone
}

// Params is the engine's global configuration, replaced as one unit by
// SetParameters after full validation.
type Params struct {
	Fees           Fees
	Payments       dexswap.PaymentsInfo
	Rewards        [TierCount]RewardsInfo
	TierThresholds [TierCount]*big.Int
	Treasury       [20]byte
	BurnAddress    [20]byte
}

// Clone returns a deep copy of the parameter set.
func (p Params) Clone() Params {
	clone := p
	clone.Payments = p.Payments.Clone()
	for i := range p.Rewards {
		clone.Rewards[i] = p.Rewards[i].Clone()
	}
	for i, threshold := range p.TierThresholds {
		if threshold != nil {
			clone.TierThresholds[i] = new(big.Int).Set(threshold)
		}
	}
	return clone
}

// --- Signed request payloads ---
//
// The payloads below are transient: they exist only inside one authorized
// call and are never persisted beyond nonce consumption. Each renders a
// canonical message digest binding every field, mirroring the protection
// envelope the off-chain issuer signs over.

// VenueInfo is the signed venue deposit request.
type VenueInfo struct {
	Venue        [20]byte
	Amount       *big.Int
	Rules        VenueRules
	ReferralCode string
}

// Hash reconstructs the canonical digest covered by the deposit signature.
func (v VenueInfo) Hash() [32]byte {
	amount := "0"
	if v.Amount != nil {
		amount = v.Amount.String()
	}
	payload := fmt.Sprintf("deposit|venue=%s|amount=%s|rules=%d/%d/%d/%d|ref=%s",
		hex.EncodeToString(v.Venue[:]),
		amount,
		v.Rules.PaymentType, v.Rules.BountyType, v.Rules.BountyAllocationType, v.Rules.LongPaymentType,
		strings.TrimSpace(v.ReferralCode),
	)
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256([]byte(payload)))
	return out
}

// PaymentCurrency selects the currency of a customer payment.
type PaymentCurrency uint8

const (
	CurrencyUSD PaymentCurrency = iota
	CurrencyLong
)

// Valid reports whether the currency is within the supported range.
func (c PaymentCurrency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyLong
}

// CustomerInfo is the signed customer payment request.
type CustomerInfo struct {
	Customer     [20]byte
	Venue        [20]byte
	Amount       *big.Int
	Currency     PaymentCurrency
	ReferralCode string
}

// Hash reconstructs the canonical digest covered by the payment signature.
func (c CustomerInfo) Hash() [32]byte {
	amount := "0"
	if c.Amount != nil {
		amount = c.Amount.String()
	}
	payload := fmt.Sprintf("payment|customer=%s|venue=%s|amount=%s|currency=%d|ref=%s",
		hex.EncodeToString(c.Customer[:]),
		hex.EncodeToString(c.Venue[:]),
		amount,
		c.Currency,
		strings.TrimSpace(c.ReferralCode),
	)
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256([]byte(payload)))
	return out
}

// PromoterInfo is the signed promoter distribution request.
type PromoterInfo struct {
	Promoter     [20]byte
	Venue        [20]byte
	Amount       *big.Int
	InUSD        bool
	ReferralCode string
}

// Hash reconstructs the canonical digest covered by the distribution
// signature.
func (p PromoterInfo) Hash() [32]byte {
	amount := "0"
	if p.Amount != nil {
		amount = p.Amount.String()
	}
	payload := fmt.Sprintf("distribution|promoter=%s|venue=%s|amount=%s|inUSD=%t|ref=%s",
		hex.EncodeToString(p.Promoter[:]),
		hex.EncodeToString(p.Venue[:]),
		amount,
		p.InUSD,
		strings.TrimSpace(p.ReferralCode),
	)
	var out [32]byte
	copy(out[:], ethcrypto.Keccak256([]byte(payload)))
	return out
}
