package state

import (
	"errors"
	"math/big"
	"testing"

	"belongchain/native/checkin"
	"belongchain/native/escrow"
	"belongchain/storage"
)

func testAddr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func testNonce(b byte) [32]byte {
	var out [32]byte
	out[31] = b
	return out
}

func TestVenueRecordRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	venue := testAddr(0x01)

	if _, ok, err := m.CheckInVenue(venue); err != nil || ok {
		t.Fatalf("expected absent venue, ok=%v err=%v", ok, err)
	}

	record := &checkin.GeneralVenueInfo{
		Rules:            checkin.VenueRules{PaymentType: checkin.PaymentTypeBoth, BountyType: checkin.BountyFlat},
		RemainingCredits: 3,
	}
	if err := m.PutCheckInVenue(venue, record); err != nil {
		t.Fatalf("put venue: %v", err)
	}
	got, ok, err := m.CheckInVenue(venue)
	if err != nil || !ok {
		t.Fatalf("load venue: ok=%v err=%v", ok, err)
	}
	if *got != *record {
		t.Fatalf("got %+v, want %+v", got, record)
	}
}

func TestReferralCodeRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	promoter := testAddr(0x02)

	if _, ok, err := m.ReferralPromoter("VIP"); err != nil || ok {
		t.Fatalf("expected absent code, ok=%v err=%v", ok, err)
	}
	if err := m.PutReferralCode("VIP", promoter); err != nil {
		t.Fatalf("put code: %v", err)
	}
	got, ok, err := m.ReferralPromoter("VIP")
	if err != nil || !ok {
		t.Fatalf("load code: ok=%v err=%v", ok, err)
	}
	if got != promoter {
		t.Fatalf("got %x, want %x", got, promoter)
	}
}

func TestEscrowDepositReadsZeroWhenAbsent(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	venue := testAddr(0x03)

	deposit, err := m.EscrowVenueDeposit(venue)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if deposit.USDTokenDeposits.Sign() != 0 || deposit.LongDeposits.Sign() != 0 {
		t.Fatalf("expected zero deposit, got %+v", deposit)
	}

	deposit = &escrow.VenueDeposit{USDTokenDeposits: big.NewInt(100), LongDeposits: big.NewInt(20)}
	if err := m.PutEscrowVenueDeposit(venue, deposit); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := m.EscrowVenueDeposit(venue)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.USDTokenDeposits.Int64() != 100 || got.LongDeposits.Int64() != 20 {
		t.Fatalf("got %+v", got)
	}
}

func TestSigNonceConsumption(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	signer, other := testAddr(0x04), testAddr(0x05)
	nonce := testNonce(0x01)

	used, err := m.SigNonceUsed(signer, nonce)
	if err != nil || used {
		t.Fatalf("fresh nonce: used=%v err=%v", used, err)
	}
	if err := m.MarkSigNonceUsed(signer, nonce); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if used, _ := m.SigNonceUsed(signer, nonce); !used {
		t.Fatal("nonce not consumed")
	}
	// Nonces are scoped per signer.
	if used, _ := m.SigNonceUsed(other, nonce); used {
		t.Fatal("nonce leaked across signers")
	}
}

func TestTokenLedgerTransfer(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	usd := NewTokenLedger(m, TokenUSD)
	long := NewTokenLedger(m, TokenLong)
	alice, bob := testAddr(0x06), testAddr(0x07)

	if err := usd.Mint(alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := usd.Transfer(alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if bal, _ := usd.BalanceOf(alice); bal.Int64() != 60 {
		t.Fatalf("alice usd = %d, want 60", bal.Int64())
	}
	if bal, _ := usd.BalanceOf(bob); bal.Int64() != 40 {
		t.Fatalf("bob usd = %d, want 40", bal.Int64())
	}
	// The LONG column is independent.
	if bal, _ := long.BalanceOf(alice); bal.Sign() != 0 {
		t.Fatalf("alice long = %d, want 0", bal.Int64())
	}

	err := usd.Transfer(alice, bob, big.NewInt(61))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if bal, _ := usd.BalanceOf(alice); bal.Int64() != 60 {
		t.Fatal("failed transfer mutated balance")
	}
}

func TestCreditLedgerClassesAreIsolated(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	venueCredit := NewCreditLedger(m, "venue")
	promoterCredit := NewCreditLedger(m, "promoter")
	holder := testAddr(0x08)
	var venueID [32]byte
	venueID[0] = 0xAA

	if err := venueCredit.Mint(holder, venueID, big.NewInt(50)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if bal, _ := promoterCredit.BalanceOf(holder, venueID); bal.Sign() != 0 {
		t.Fatal("credit classes share storage")
	}
	if err := venueCredit.Burn(holder, venueID, big.NewInt(20)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if bal, _ := venueCredit.BalanceOf(holder, venueID); bal.Int64() != 30 {
		t.Fatalf("balance = %d, want 30", bal.Int64())
	}
	if err := venueCredit.Burn(holder, venueID, big.NewInt(31)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestStakingDepositLocksLong(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	long := NewTokenLedger(m, TokenLong)
	staking := NewStakingLedger(m)
	payer, venue := testAddr(0x09), testAddr(0x0A)

	if err := long.Mint(payer, big.NewInt(1_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := staking.Deposit(payer, big.NewInt(400), venue); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if bal, _ := long.BalanceOf(payer); bal.Int64() != 600 {
		t.Fatalf("payer long = %d, want 600", bal.Int64())
	}
	if staked, _ := staking.BalanceOf(venue); staked.Int64() != 400 {
		t.Fatalf("venue stake = %d, want 400", staked.Int64())
	}

	// Self-stake mutates one record twice without losing either leg.
	if err := staking.Deposit(payer, big.NewInt(100), payer); err != nil {
		t.Fatalf("self deposit: %v", err)
	}
	if bal, _ := long.BalanceOf(payer); bal.Int64() != 500 {
		t.Fatalf("payer long = %d, want 500", bal.Int64())
	}
	if staked, _ := staking.BalanceOf(payer); staked.Int64() != 100 {
		t.Fatalf("payer stake = %d, want 100", staked.Int64())
	}

	if err := staking.Deposit(payer, big.NewInt(501), payer); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestStateSurvivesManagerRestart(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	venue := testAddr(0x0B)
	if err := m.PutCheckInVenue(venue, &checkin.GeneralVenueInfo{RemainingCredits: 7}); err != nil {
		t.Fatalf("put: %v", err)
	}

	reopened := NewManager(db)
	got, ok, err := reopened.CheckInVenue(venue)
	if err != nil || !ok {
		t.Fatalf("reload: ok=%v err=%v", ok, err)
	}
	if got.RemainingCredits != 7 {
		t.Fatalf("remaining credits = %d, want 7", got.RemainingCredits)
	}
}
