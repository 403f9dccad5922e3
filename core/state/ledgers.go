package state

import (
	"errors"
	"fmt"
	"math/big"

	"belongchain/core/types"
	"belongchain/native/checkin"
	"belongchain/native/escrow"
	"belongchain/storage"
)

var (
	// ErrInsufficientBalance indicates a transfer, burn or stake exceeding
	// the stored balance.
	ErrInsufficientBalance = errors.New("state: insufficient balance")

	errNegativeAmount = errors.New("state: negative amount")
	errNilManager     = errors.New("state: manager not configured")
)

// Token selects which account balance a TokenLedger operates on.
type Token uint8

const (
	// TokenUSD is the USD-pegged settlement token.
	TokenUSD Token = iota
	// TokenLong is the LONG utility token.
	TokenLong
)

// TokenLedger exposes one account balance column as a fungible token surface.
type TokenLedger struct {
	manager *Manager
	token   Token
}

// NewTokenLedger creates a ledger over the manager for the selected token.
func NewTokenLedger(manager *Manager, token Token) *TokenLedger {
	return &TokenLedger{manager: manager, token: token}
}

var (
	_ checkin.TokenLedger = (*TokenLedger)(nil)
	_ escrow.TokenLedger  = (*TokenLedger)(nil)
)

func (l *TokenLedger) pick(account *types.Account) *big.Int {
	if l.token == TokenLong {
		return account.BalanceLONG
	}
	return account.BalanceUSD
}

// BalanceOf returns the stored balance for the address.
func (l *TokenLedger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.manager == nil {
		return nil, errNilManager
	}
	account, err := l.manager.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return l.pick(account), nil
}

// Transfer moves the amount between two accounts under the manager lock so
// both sides commit together.
func (l *TokenLedger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.manager == nil {
		return errNilManager
	}
	if amount == nil || amount.Sign() < 0 {
		return errNegativeAmount
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	m := l.manager
	m.mu.Lock()
	defer m.mu.Unlock()
	source, err := m.loadAccount(from)
	if err != nil {
		return err
	}
	dest, err := m.loadAccount(to)
	if err != nil {
		return err
	}
	srcBal, dstBal := l.pick(source), l.pick(dest)
	if srcBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	srcBal.Sub(srcBal, amount)
	dstBal.Add(dstBal, amount)
	if err := m.storeAccount(from, source); err != nil {
		return err
	}
	return m.storeAccount(to, dest)
}

// Mint credits newly issued tokens to the address. Used for genesis funding
// and by the faucet tooling.
func (l *TokenLedger) Mint(addr [20]byte, amount *big.Int) error {
	if l == nil || l.manager == nil {
		return errNilManager
	}
	if amount == nil || amount.Sign() < 0 {
		return errNegativeAmount
	}
	m := l.manager
	m.mu.Lock()
	defer m.mu.Unlock()
	account, err := m.loadAccount(addr)
	if err != nil {
		return err
	}
	bal := l.pick(account)
	bal.Add(bal, amount)
	return m.storeAccount(addr, account)
}

// CreditLedger is the semi-fungible per-venue credit store. One instance per
// credit class (venue-credit, promoter-credit) sharing the same manager.
type CreditLedger struct {
	manager *Manager
	class   string
}

// NewCreditLedger creates a ledger for the named credit class.
func NewCreditLedger(manager *Manager, class string) *CreditLedger {
	return &CreditLedger{manager: manager, class: class}
}

var _ checkin.CreditLedger = (*CreditLedger)(nil)

func (l *CreditLedger) load(holder [20]byte, venueID [32]byte) (*big.Int, error) {
	data, err := l.manager.db.Get(creditKey(l.class, holder, venueID))
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	out, ok := new(big.Int).SetString(string(data), 10)
	if !ok {
		return nil, fmt.Errorf("state: malformed credit record for class %q", l.class)
	}
	return out, nil
}

func (l *CreditLedger) store(holder [20]byte, venueID [32]byte, amount *big.Int) error {
	return l.manager.db.Put(creditKey(l.class, holder, venueID), []byte(amount.Text(10)))
}

// BalanceOf returns the holder's credit balance for the venue.
func (l *CreditLedger) BalanceOf(holder [20]byte, venueID [32]byte) (*big.Int, error) {
	if l == nil || l.manager == nil {
		return nil, errNilManager
	}
	l.manager.mu.RLock()
	defer l.manager.mu.RUnlock()
	return l.load(holder, venueID)
}

// Mint issues credits to the holder for the venue.
func (l *CreditLedger) Mint(holder [20]byte, venueID [32]byte, amount *big.Int) error {
	if l == nil || l.manager == nil {
		return errNilManager
	}
	if amount == nil || amount.Sign() < 0 {
		return errNegativeAmount
	}
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()
	balance, err := l.load(holder, venueID)
	if err != nil {
		return err
	}
	return l.store(holder, venueID, balance.Add(balance, amount))
}

// Burn retires credits held by the holder for the venue.
func (l *CreditLedger) Burn(holder [20]byte, venueID [32]byte, amount *big.Int) error {
	if l == nil || l.manager == nil {
		return errNilManager
	}
	if amount == nil || amount.Sign() < 0 {
		return errNegativeAmount
	}
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()
	balance, err := l.load(holder, venueID)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	return l.store(holder, venueID, balance.Sub(balance, amount))
}

// StakingLedger locks LONG into the stake column of an account. Staked
// balances drive tier resolution and never leave through this ledger; the
// unbonding path is a separate concern.
type StakingLedger struct {
	manager *Manager
}

// NewStakingLedger creates a staking ledger over the manager.
func NewStakingLedger(manager *Manager) *StakingLedger {
	return &StakingLedger{manager: manager}
}

var _ checkin.StakingLedger = (*StakingLedger)(nil)

// BalanceOf returns the staked LONG for the address.
func (l *StakingLedger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.manager == nil {
		return nil, errNilManager
	}
	account, err := l.manager.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return account.Stake, nil
}

// Deposit moves liquid LONG from the payer into the beneficiary's stake.
func (l *StakingLedger) Deposit(from [20]byte, amount *big.Int, onBehalfOf [20]byte) error {
	if l == nil || l.manager == nil {
		return errNilManager
	}
	if amount == nil || amount.Sign() < 0 {
		return errNegativeAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	m := l.manager
	m.mu.Lock()
	defer m.mu.Unlock()
	payer, err := m.loadAccount(from)
	if err != nil {
		return err
	}
	if payer.BalanceLONG.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	payer.BalanceLONG.Sub(payer.BalanceLONG, amount)
	if from == onBehalfOf {
		payer.Stake.Add(payer.Stake, amount)
		return m.storeAccount(from, payer)
	}
	beneficiary, err := m.loadAccount(onBehalfOf)
	if err != nil {
		return err
	}
	beneficiary.Stake.Add(beneficiary.Stake, amount)
	if err := m.storeAccount(from, payer); err != nil {
		return err
	}
	return m.storeAccount(onBehalfOf, beneficiary)
}
