package escrow

import (
	"encoding/hex"
	"errors"
	"math/big"

	"belongchain/core/events"
	"belongchain/core/types"
)

var (
	// ErrNotEnoughBalance indicates a debit would push a venue balance negative.
	ErrNotEnoughBalance = errors.New("escrow: not enough balance")
	// ErrUnauthorizedCaller indicates a mutation attempt from a non-engine address.
	ErrUnauthorizedCaller = errors.New("escrow: caller is not the engine")

	errNilState       = errors.New("escrow: state not configured")
	errNegativeAmount = errors.New("escrow: negative amount")
)

// EventTypeVenueDepositsUpdated is emitted on every balance mutation.
const EventTypeVenueDepositsUpdated = "escrow.venue_deposits_updated"

// VenueDeposit is the custodial balance pair held for a single venue.
type VenueDeposit struct {
	USDTokenDeposits *big.Int `json:"usdTokenDeposits"`
	LongDeposits     *big.Int `json:"longDeposits"`
}

// Ensure initialises unset fields to zero.
func (d *VenueDeposit) Ensure() *VenueDeposit {
	if d == nil {
		return &VenueDeposit{USDTokenDeposits: big.NewInt(0), LongDeposits: big.NewInt(0)}
	}
	if d.USDTokenDeposits == nil {
		d.USDTokenDeposits = big.NewInt(0)
	}
	if d.LongDeposits == nil {
		d.LongDeposits = big.NewInt(0)
	}
	return d
}

// Clone returns a deep copy of the deposit record.
func (d *VenueDeposit) Clone() *VenueDeposit {
	out := (&VenueDeposit{}).Ensure()
	if d == nil {
		return out
	}
	if d.USDTokenDeposits != nil {
		out.USDTokenDeposits = new(big.Int).Set(d.USDTokenDeposits)
	}
	if d.LongDeposits != nil {
		out.LongDeposits = new(big.Int).Set(d.LongDeposits)
	}
	return out
}

// State is the persistence surface the ledger requires. Balances are created
// implicitly at zero on first access.
type State interface {
	EscrowVenueDeposit(venue [20]byte) (*VenueDeposit, error)
	PutEscrowVenueDeposit(venue [20]byte, deposit *VenueDeposit) error
}

// TokenLedger is the fungible transfer surface the escrow moves funds
// through. One instance per currency.
type TokenLedger interface {
	BalanceOf(addr [20]byte) (*big.Int, error)
	Transfer(from, to [20]byte, amount *big.Int) error
}

// Ledger is the per-venue custodial store. It carries no business logic
// beyond bookkeeping and transfer so an engine bug can only reach funds via
// engine-initiated calls.
type Ledger struct {
	state   State
	usd     TokenLedger
	long    TokenLedger
	engine  [20]byte
	vault   [20]byte
	emitter events.Emitter
}

// NewLedger constructs the escrow ledger. Only the registered engine address
// may mutate balances; the vault address custodies the pooled funds.
func NewLedger(state State, usd, long TokenLedger, engine, vault [20]byte) *Ledger {
	return &Ledger{
		state:   state,
		usd:     usd,
		long:    long,
		engine:  engine,
		vault:   vault,
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

func (l *Ledger) emitUpdated(venue [20]byte, deposit *VenueDeposit, op string) {
	if l == nil || l.emitter == nil {
		return
	}
	deposit = deposit.Ensure()
	l.emitter.Emit(escrowEvent{evt: &types.Event{Type: EventTypeVenueDepositsUpdated, Attributes: map[string]string{
		"venue": addrHex(venue),
		"usd":   deposit.USDTokenDeposits.String(),
		"long":  deposit.LongDeposits.String(),
		"op":    op,
	}}})
}

// Vault returns the custodial address holding the pooled deposits.
func (l *Ledger) Vault() [20]byte { return l.vault }

// Balance returns a copy of the stored deposit pair for the venue.
func (l *Ledger) Balance(venue [20]byte) (*VenueDeposit, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	deposit, err := l.state.EscrowVenueDeposit(venue)
	if err != nil {
		return nil, err
	}
	return deposit.Clone(), nil
}

// RecordDeposit pulls the supplied amounts from the caller into the vault and
// increments the venue's custodial balances. Caller must be the engine.
func (l *Ledger) RecordDeposit(caller, venue [20]byte, usdAmount, longAmount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if caller != l.engine {
		return ErrUnauthorizedCaller
	}
	usdAmount, longAmount = cloneAmount(usdAmount), cloneAmount(longAmount)
	if usdAmount.Sign() < 0 || longAmount.Sign() < 0 {
		return errNegativeAmount
	}
	// Check both source balances before moving anything so a failing second
	// leg cannot leave a half-applied deposit.
	if err := l.requireBalance(l.usd, caller, usdAmount); err != nil {
		return err
	}
	if err := l.requireBalance(l.long, caller, longAmount); err != nil {
		return err
	}
	if err := l.transfer(l.usd, caller, l.vault, usdAmount); err != nil {
		return err
	}
	if err := l.transfer(l.long, caller, l.vault, longAmount); err != nil {
		return err
	}
	deposit, err := l.state.EscrowVenueDeposit(venue)
	if err != nil {
		return err
	}
	deposit = deposit.Clone()
	deposit.USDTokenDeposits.Add(deposit.USDTokenDeposits, usdAmount)
	deposit.LongDeposits.Add(deposit.LongDeposits, longAmount)
	if err := l.state.PutEscrowVenueDeposit(venue, deposit); err != nil {
		return err
	}
	l.emitUpdated(venue, deposit, "deposit")
	return nil
}

// Debit decrements the venue's custodial balances and pays the amounts out of
// the vault to the recipient. Either balance going negative fails the whole
// call with no mutation. Bookkeeping commits before the outbound transfers.
func (l *Ledger) Debit(caller, venue [20]byte, usdAmount, longAmount *big.Int, recipient [20]byte) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if caller != l.engine {
		return ErrUnauthorizedCaller
	}
	usdAmount, longAmount = cloneAmount(usdAmount), cloneAmount(longAmount)
	if usdAmount.Sign() < 0 || longAmount.Sign() < 0 {
		return errNegativeAmount
	}
	deposit, err := l.state.EscrowVenueDeposit(venue)
	if err != nil {
		return err
	}
	deposit = deposit.Clone()
	if deposit.USDTokenDeposits.Cmp(usdAmount) < 0 || deposit.LongDeposits.Cmp(longAmount) < 0 {
		return ErrNotEnoughBalance
	}
	deposit.USDTokenDeposits.Sub(deposit.USDTokenDeposits, usdAmount)
	deposit.LongDeposits.Sub(deposit.LongDeposits, longAmount)
	if err := l.state.PutEscrowVenueDeposit(venue, deposit); err != nil {
		return err
	}
	if err := l.transfer(l.usd, l.vault, recipient, usdAmount); err != nil {
		return err
	}
	if err := l.transfer(l.long, l.vault, recipient, longAmount); err != nil {
		return err
	}
	l.emitUpdated(venue, deposit, "debit")
	return nil
}

func (l *Ledger) requireBalance(ledger TokenLedger, addr [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if ledger == nil {
		return errors.New("escrow: token ledger not configured")
	}
	balance, err := ledger.BalanceOf(addr)
	if err != nil {
		return err
	}
	if balance == nil || balance.Cmp(amount) < 0 {
		return ErrNotEnoughBalance
	}
	return nil
}

func (l *Ledger) transfer(ledger TokenLedger, from, to [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if ledger == nil {
		return errors.New("escrow: token ledger not configured")
	}
	return ledger.Transfer(from, to, amount)
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func addrHex(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}
