package escrow

import (
	"errors"
	"math/big"
	"testing"

	"belongchain/core/events"
)

type memState struct {
	deposits map[[20]byte]*VenueDeposit
}

func newMemState() *memState {
	return &memState{deposits: make(map[[20]byte]*VenueDeposit)}
}

func (s *memState) EscrowVenueDeposit(venue [20]byte) (*VenueDeposit, error) {
	return s.deposits[venue].Clone(), nil
}

func (s *memState) PutEscrowVenueDeposit(venue [20]byte, deposit *VenueDeposit) error {
	s.deposits[venue] = deposit.Clone()
	return nil
}

type memToken struct {
	balances map[[20]byte]*big.Int
}

func newMemToken() *memToken {
	return &memToken{balances: make(map[[20]byte]*big.Int)}
}

func (t *memToken) setBalance(addr [20]byte, amount int64) {
	t.balances[addr] = big.NewInt(amount)
}

func (t *memToken) BalanceOf(addr [20]byte) (*big.Int, error) {
	if bal, ok := t.balances[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (t *memToken) Transfer(from, to [20]byte, amount *big.Int) error {
	fromBal, _ := t.BalanceOf(from)
	if fromBal.Cmp(amount) < 0 {
		return errors.New("token: insufficient balance")
	}
	toBal, _ := t.BalanceOf(to)
	t.balances[from] = fromBal.Sub(fromBal, amount)
	t.balances[to] = toBal.Add(toBal, amount)
	return nil
}

var (
	engineAddr = [20]byte{0xE1}
	vaultAddr  = [20]byte{0xFA}
	venueAddr  = [20]byte{0x01}
	otherAddr  = [20]byte{0x02}
)

func testLedger(t *testing.T) (*Ledger, *memState, *memToken, *memToken, *events.Recorder) {
	t.Helper()
	state := newMemState()
	usd := newMemToken()
	long := newMemToken()
	ledger := NewLedger(state, usd, long, engineAddr, vaultAddr)
	rec := &events.Recorder{}
	ledger.SetEmitter(rec)
	return ledger, state, usd, long, rec
}

func TestRecordDepositAndBalance(t *testing.T) {
	ledger, _, usd, long, rec := testLedger(t)
	usd.setBalance(engineAddr, 100)
	long.setBalance(engineAddr, 40)

	if err := ledger.RecordDeposit(engineAddr, venueAddr, big.NewInt(100), big.NewInt(40)); err != nil {
		t.Fatalf("record deposit: %v", err)
	}
	deposit, err := ledger.Balance(venueAddr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if deposit.USDTokenDeposits.Cmp(big.NewInt(100)) != 0 || deposit.LongDeposits.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("unexpected deposit %s/%s", deposit.USDTokenDeposits, deposit.LongDeposits)
	}
	vaultUSD, _ := usd.BalanceOf(vaultAddr)
	if vaultUSD.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("vault did not receive the usd leg: %s", vaultUSD)
	}
	evts := rec.Events()
	if len(evts) != 1 || evts[0].EventType() != EventTypeVenueDepositsUpdated {
		t.Fatalf("expected one deposits-updated event, got %v", evts)
	}
}

func TestRecordDepositRejectsForeignCaller(t *testing.T) {
	ledger, _, usd, _, _ := testLedger(t)
	usd.setBalance(otherAddr, 100)
	err := ledger.RecordDeposit(otherAddr, venueAddr, big.NewInt(100), big.NewInt(0))
	if !errors.Is(err, ErrUnauthorizedCaller) {
		t.Fatalf("expected ErrUnauthorizedCaller, got %v", err)
	}
}

func TestRecordDepositAtomicAcrossLegs(t *testing.T) {
	ledger, state, usd, _, _ := testLedger(t)
	// Engine can fund the usd leg but not the long leg.
	usd.setBalance(engineAddr, 100)
	err := ledger.RecordDeposit(engineAddr, venueAddr, big.NewInt(100), big.NewInt(40))
	if !errors.Is(err, ErrNotEnoughBalance) {
		t.Fatalf("expected ErrNotEnoughBalance, got %v", err)
	}
	engineUSD, _ := usd.BalanceOf(engineAddr)
	if engineUSD.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("usd leg must not move when the long leg cannot: %s", engineUSD)
	}
	if stored := state.deposits[venueAddr]; stored != nil {
		t.Fatalf("no bookkeeping may land on failure")
	}
}

func TestDebitEnforcesNonNegativeBalances(t *testing.T) {
	ledger, state, usd, long, _ := testLedger(t)
	usd.setBalance(engineAddr, 100)
	long.setBalance(engineAddr, 40)
	if err := ledger.RecordDeposit(engineAddr, venueAddr, big.NewInt(100), big.NewInt(40)); err != nil {
		t.Fatalf("record deposit: %v", err)
	}

	err := ledger.Debit(engineAddr, venueAddr, big.NewInt(101), big.NewInt(0), otherAddr)
	if !errors.Is(err, ErrNotEnoughBalance) {
		t.Fatalf("expected ErrNotEnoughBalance for usd over-debit, got %v", err)
	}
	err = ledger.Debit(engineAddr, venueAddr, big.NewInt(0), big.NewInt(41), otherAddr)
	if !errors.Is(err, ErrNotEnoughBalance) {
		t.Fatalf("expected ErrNotEnoughBalance for long over-debit, got %v", err)
	}
	// Failed debits must not mutate state.
	stored := state.deposits[venueAddr]
	if stored.USDTokenDeposits.Cmp(big.NewInt(100)) != 0 || stored.LongDeposits.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("failed debit mutated balances: %s/%s", stored.USDTokenDeposits, stored.LongDeposits)
	}

	if err := ledger.Debit(engineAddr, venueAddr, big.NewInt(60), big.NewInt(40), otherAddr); err != nil {
		t.Fatalf("debit: %v", err)
	}
	deposit, _ := ledger.Balance(venueAddr)
	if deposit.USDTokenDeposits.Cmp(big.NewInt(40)) != 0 || deposit.LongDeposits.Sign() != 0 {
		t.Fatalf("unexpected post-debit balances %s/%s", deposit.USDTokenDeposits, deposit.LongDeposits)
	}
	gotUSD, _ := usd.BalanceOf(otherAddr)
	gotLong, _ := long.BalanceOf(otherAddr)
	if gotUSD.Cmp(big.NewInt(60)) != 0 || gotLong.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("recipient did not receive the debited funds: %s/%s", gotUSD, gotLong)
	}
}

func TestDebitRejectsForeignCaller(t *testing.T) {
	ledger, _, _, _, _ := testLedger(t)
	err := ledger.Debit(otherAddr, venueAddr, big.NewInt(1), big.NewInt(0), otherAddr)
	if !errors.Is(err, ErrUnauthorizedCaller) {
		t.Fatalf("expected ErrUnauthorizedCaller, got %v", err)
	}
}

func TestBalanceImplicitlyZero(t *testing.T) {
	ledger, _, _, _, _ := testLedger(t)
	deposit, err := ledger.Balance(venueAddr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if deposit.USDTokenDeposits.Sign() != 0 || deposit.LongDeposits.Sign() != 0 {
		t.Fatalf("fresh venue must start at zero")
	}
}
