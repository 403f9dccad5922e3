package checkin

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"belongchain/core/events"
	"belongchain/core/types"
	"belongchain/native/dexswap"
	"belongchain/native/escrow"
	"belongchain/native/rates"
	"belongchain/native/sigauth"
)

// State is the persistence surface the engine requires: venue records and the
// referral code registry. Venue records are created on first deposit and
// never deleted.
type State interface {
	CheckInVenue(venue [20]byte) (*GeneralVenueInfo, bool, error)
	PutCheckInVenue(venue [20]byte, info *GeneralVenueInfo) error
	ReferralPromoter(code string) ([20]byte, bool, error)
	PutReferralCode(code string, promoter [20]byte) error
}

// TokenLedger is the fungible token surface consumed per currency.
type TokenLedger interface {
	BalanceOf(addr [20]byte) (*big.Int, error)
	Transfer(from, to [20]byte, amount *big.Int) error
}

// CreditLedger is the semi-fungible per-venue credit surface, keyed by
// (holder, venueID).
type CreditLedger interface {
	BalanceOf(holder [20]byte, venueID [32]byte) (*big.Int, error)
	Mint(holder [20]byte, venueID [32]byte, amount *big.Int) error
	Burn(holder [20]byte, venueID [32]byte, amount *big.Int) error
}

// StakingLedger exposes the tier lookup and the auto-stake path.
type StakingLedger interface {
	BalanceOf(addr [20]byte) (*big.Int, error)
	Deposit(from [20]byte, amount *big.Int, onBehalfOf [20]byte) error
}

// EscrowLedger is the custodial ledger mutated only by this engine.
type EscrowLedger interface {
	RecordDeposit(caller, venue [20]byte, usdAmount, longAmount *big.Int) error
	Debit(caller, venue [20]byte, usdAmount, longAmount *big.Int, recipient [20]byte) error
	Balance(venue [20]byte) (*escrow.VenueDeposit, error)
}

// SwapExecutor is the slippage-bounded conversion surface.
type SwapExecutor interface {
	Swap(cfg dexswap.PaymentsInfo, amountIn *big.Int, direction dexswap.Direction, recipient [20]byte) (*big.Int, error)
}

// Authorizer verifies off-chain-issued request signatures and consumes their
// nonces.
type Authorizer interface {
	Verify(payloadHash [32]byte, p sigauth.Protection, expectedSigner [20]byte) error
}

// Contracts bundles the external collaborators, replaced atomically through
// SetContracts.
type Contracts struct {
	Escrow         EscrowLedger
	USDToken       TokenLedger
	LongToken      TokenLedger
	VenueCredit    CreditLedger
	PromoterCredit CreditLedger
	Staking        StakingLedger
	PriceFeed      rates.PriceFeed
	Swapper        SwapExecutor
}

func (c Contracts) validate() error {
	if c.Escrow == nil || c.USDToken == nil || c.LongToken == nil ||
		c.VenueCredit == nil || c.PromoterCredit == nil || c.Staking == nil ||
		c.PriceFeed == nil || c.Swapper == nil {
		return errNilContracts
	}
	return nil
}

type checkinEvent struct {
	evt *types.Event
}

func (e checkinEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e checkinEvent) Event() *types.Event { return e.evt }

// Engine orchestrates venue deposits, customer payments and promoter
// distributions over the escrow, credit, staking and swap collaborators.
type Engine struct {
	state     State
	auth      Authorizer
	contracts Contracts
	params    Params
	address   [20]byte
	owner     [20]byte
	manager   [20]byte
	emitter   events.Emitter
	nowFn     func() time.Time
}

// NewEngine constructs an engine bound to its own working address and the
// owner/manager role holders.
func NewEngine(state State, auth Authorizer, address, owner, manager [20]byte) *Engine {
	return &Engine{
		state:   state,
		auth:    auth,
		address: address,
		owner:   owner,
		manager: manager,
		emitter: events.NoopEmitter{},
		nowFn:   time.Now,
	}
}

// Address returns the engine's working address.
func (e *Engine) Address() [20]byte { return e.address }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock, primarily for deterministic testing.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(checkinEvent{evt: evt})
}

// --- Configuration ---

// SetContracts atomically replaces the collaborator registry. Owner only.
func (e *Engine) SetContracts(caller [20]byte, contracts Contracts) error {
	if caller != e.owner {
		return ErrNotOwner
	}
	if err := contracts.validate(); err != nil {
		return err
	}
	e.contracts = contracts
	return nil
}

// SetParameters atomically replaces the global configuration. Every field is
// validated before any write lands. Owner only.
func (e *Engine) SetParameters(caller [20]byte, params Params) error {
	if caller != e.owner {
		return ErrNotOwner
	}
	if err := ValidateParams(params); err != nil {
		return err
	}
	e.params = params.Clone()
	e.emit(newParametersSetEvent())
	return nil
}

// ValidateParams checks every configuration invariant: the slippage
// fixed-point ceiling, basis-point ranges, the subsidy/discount sum cap,
// strictly ordered tier thresholds and the role addresses.
func ValidateParams(params Params) error {
	if params.Payments.SlippageBps == nil ||
		params.Payments.SlippageBps.Sign() < 0 ||
		params.Payments.SlippageBps.Cmp(dexswap.SlippageDenominator) >= 0 {
		return ErrBPSTooHigh
	}
	if err := params.Payments.Validate(); err != nil {
		return err
	}
	fees := params.Fees
	for _, bps := range []uint32{
		fees.AffiliatePercentage,
		fees.LongCustomerDiscountPercentage,
		fees.PlatformSubsidyPercentage,
		fees.ProcessingFeePercentage,
		fees.BuybackBurnPercentage,
	} {
		if bps > rates.BpsDenominator {
			return fmt.Errorf("%w: fee bps %d", ErrRoyaltySumExceeded, bps)
		}
	}
	if fees.LongCustomerDiscountPercentage+fees.PlatformSubsidyPercentage > rates.BpsDenominator {
		return ErrRoyaltySumExceeded
	}
	for i, row := range params.Rewards {
		if row.VenueStakingInfo.DepositFeePercentage > rates.BpsDenominator ||
			row.PromoterStakingInfo.USDTokenPercentage > rates.BpsDenominator ||
			row.PromoterStakingInfo.LongPercentage > rates.BpsDenominator {
			return fmt.Errorf("%w: tier %d", ErrRoyaltySumExceeded, i)
		}
		if row.VenueStakingInfo.ConvenienceFeeAmount != nil && row.VenueStakingInfo.ConvenienceFeeAmount.Sign() < 0 {
			return fmt.Errorf("checkin: tier %d convenience fee negative", i)
		}
	}
	for i := 1; i < TierCount; i++ {
		prev, cur := params.TierThresholds[i-1], params.TierThresholds[i]
		if cur == nil || (prev != nil && cur.Cmp(prev) <= 0) {
			return fmt.Errorf("checkin: tier thresholds must be strictly increasing")
		}
	}
	if params.Treasury == ([20]byte{}) || params.BurnAddress == ([20]byte{}) {
		return fmt.Errorf("checkin: treasury and burn addresses required")
	}
	return nil
}

// RegisterReferralCode binds a referral code to a promoter. Manager only.
func (e *Engine) RegisterReferralCode(caller [20]byte, code string, promoter [20]byte) error {
	if caller != e.manager {
		return ErrNotManager
	}
	if e.state == nil {
		return errNilState
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return fmt.Errorf("checkin: referral code required")
	}
	if promoter == ([20]byte{}) {
		return fmt.Errorf("checkin: promoter address required")
	}
	if err := e.state.PutReferralCode(trimmed, promoter); err != nil {
		return err
	}
	e.emit(newReferralRegisteredEvent(trimmed, promoter))
	return nil
}

// --- Getters ---

// VenueInfoOf returns the stored record for a venue.
func (e *Engine) VenueInfoOf(venue [20]byte) (*GeneralVenueInfo, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, errNilState
	}
	info, ok, err := e.state.CheckInVenue(venue)
	if err != nil || !ok {
		return nil, ok, err
	}
	return info.Clone(), true, nil
}

// FeesConfig returns the current fee configuration.
func (e *Engine) FeesConfig() Fees { return e.params.Fees }

// PaymentsConfig returns the current payments configuration.
func (e *Engine) PaymentsConfig() dexswap.PaymentsInfo { return e.params.Payments.Clone() }

// RewardsTable returns a copy of the five-entry tier table.
func (e *Engine) RewardsTable() [TierCount]RewardsInfo {
	var out [TierCount]RewardsInfo
	for i, row := range e.params.Rewards {
		out[i] = row.Clone()
	}
	return out
}

// TierOf resolves the staking tier for an address. An amount one unit below a
// tier's floor resolves to the tier beneath it.
func (e *Engine) TierOf(addr [20]byte) (Tier, error) {
	if err := e.contracts.validate(); err != nil {
		return TierNone, err
	}
	staked, err := e.contracts.Staking.BalanceOf(addr)
	if err != nil {
		return TierNone, err
	}
	return e.tierFor(staked), nil
}

func (e *Engine) tierFor(staked *big.Int) Tier {
	if staked == nil {
		return TierNone
	}
	tier := TierNone
	for i := 1; i < TierCount; i++ {
		threshold := e.params.TierThresholds[i]
		if threshold == nil {
			break
		}
		if staked.Cmp(threshold) >= 0 {
			tier = Tier(i)
		}
	}
	return tier
}

func (e *Engine) rewardsFor(tier Tier) RewardsInfo {
	if int(tier) >= TierCount {
		tier = TierNone
	}
	return e.params.Rewards[tier].Clone()
}

// resolveReferral maps an optional referral code to its promoter. An empty
// code resolves to the zero address; an unknown code fails.
func (e *Engine) resolveReferral(code string) ([20]byte, error) {
	var zero [20]byte
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return zero, nil
	}
	promoter, ok, err := e.state.ReferralPromoter(trimmed)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, ErrWrongReferralCode
	}
	return promoter, nil
}

func clonePositive(v *big.Int) (*big.Int, error) {
	if v == nil || v.Sign() <= 0 {
		return nil, ErrAmountNotPositive
	}
	return new(big.Int).Set(v), nil
}

func (e *Engine) requireFunds(ledger TokenLedger, addr [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	balance, err := ledger.BalanceOf(addr)
	if err != nil {
		return err
	}
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrIncorrectAmountSent
	}
	return nil
}

// burnLong retires LONG held by the engine and reports the buyback.
func (e *Engine) burnLong(source string, usdIn, longAmount *big.Int) error {
	if longAmount.Sign() == 0 {
		return nil
	}
	if err := e.contracts.LongToken.Transfer(e.address, e.params.BurnAddress, longAmount); err != nil {
		return err
	}
	e.emit(newRevenueBuybackBurnEvent(source, usdIn, longAmount))
	e.emit(newBurnedTokensEvent(longAmount))
	return nil
}
