package types

import "math/big"

// Account holds the fungible balances tracked for a single address: the USD
// settlement token, the LONG utility token, and LONG locked in staking.
type Account struct {
	BalanceUSD  *big.Int `json:"balanceUSD"`
	BalanceLONG *big.Int `json:"balanceLONG"`
	Stake       *big.Int `json:"stake"`
}

// Ensure initialises unset balance fields to zero so callers can operate on
// the values without nil checks.
func (a *Account) Ensure() *Account {
	if a == nil {
		return &Account{BalanceUSD: big.NewInt(0), BalanceLONG: big.NewInt(0), Stake: big.NewInt(0)}
	}
	if a.BalanceUSD == nil {
		a.BalanceUSD = big.NewInt(0)
	}
	if a.BalanceLONG == nil {
		a.BalanceLONG = big.NewInt(0)
	}
	if a.Stake == nil {
		a.Stake = big.NewInt(0)
	}
	return a
}

// Clone returns a deep copy of the account so callers can safely mutate the
// copy without affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return (&Account{}).Ensure()
	}
	clone := &Account{}
	if a.BalanceUSD != nil {
		clone.BalanceUSD = new(big.Int).Set(a.BalanceUSD)
	}
	if a.BalanceLONG != nil {
		clone.BalanceLONG = new(big.Int).Set(a.BalanceLONG)
	}
	if a.Stake != nil {
		clone.Stake = new(big.Int).Set(a.Stake)
	}
	return clone.Ensure()
}
