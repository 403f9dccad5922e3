package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"belongchain/core/types"
	"belongchain/native/checkin"
	"belongchain/native/escrow"
	"belongchain/native/sigauth"
	"belongchain/storage"
)

// Manager persists engine state as JSON records in a key-value store. It is
// the single durable surface behind the check-in engine, the escrow ledger and
// the signature nonce registry, so one backend swap (memory in tests, LevelDB
// in production) covers the whole system.
type Manager struct {
	mu sync.RWMutex
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	_ checkin.State      = (*Manager)(nil)
	_ escrow.State       = (*Manager)(nil)
	_ sigauth.NonceStore = (*Manager)(nil)
)

func (m *Manager) getJSON(key []byte, out any) (bool, error) {
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, data)
}

// --- checkin.State ---

// CheckInVenue loads the persisted record for a venue.
func (m *Manager) CheckInVenue(venue [20]byte) (*checkin.GeneralVenueInfo, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info := new(checkin.GeneralVenueInfo)
	ok, err := m.getJSON(checkinVenueKey(venue), info)
	if err != nil || !ok {
		return nil, false, err
	}
	return info, true, nil
}

// PutCheckInVenue stores the record for a venue.
func (m *Manager) PutCheckInVenue(venue [20]byte, info *checkin.GeneralVenueInfo) error {
	if info == nil {
		return errors.New("state: nil venue record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(checkinVenueKey(venue), info)
}

// ReferralPromoter resolves a referral code to its registered promoter.
func (m *Manager) ReferralPromoter(code string) ([20]byte, bool, error) {
	var out [20]byte
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, err := m.db.Get(checkinReferralKey(code))
	if errors.Is(err, storage.ErrNotFound) {
		return out, false, nil
	}
	if err != nil {
		return out, false, err
	}
	if len(data) != len(out) {
		return out, false, fmt.Errorf("state: malformed referral record for %q", code)
	}
	copy(out[:], data)
	return out, true, nil
}

// PutReferralCode binds a referral code to a promoter address.
func (m *Manager) PutReferralCode(code string, promoter [20]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put(checkinReferralKey(code), promoter[:])
}

// --- escrow.State ---

// EscrowVenueDeposit loads the custodial balances for a venue. Absent records
// read as zero.
func (m *Manager) EscrowVenueDeposit(venue [20]byte) (*escrow.VenueDeposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	deposit := new(escrow.VenueDeposit)
	if _, err := m.getJSON(escrowVenueKey(venue), deposit); err != nil {
		return nil, err
	}
	return deposit.Ensure(), nil
}

// PutEscrowVenueDeposit stores the custodial balances for a venue.
func (m *Manager) PutEscrowVenueDeposit(venue [20]byte, deposit *escrow.VenueDeposit) error {
	if deposit == nil {
		return errors.New("state: nil escrow record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(escrowVenueKey(venue), deposit.Ensure())
}

// --- sigauth.NonceStore ---

// SigNonceUsed reports whether the nonce was already consumed by the signer.
func (m *Manager) SigNonceUsed(signer [20]byte, nonce [32]byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db.Has(sigNonceKey(signer, nonce))
}

// MarkSigNonceUsed permanently consumes the nonce for the signer.
func (m *Manager) MarkSigNonceUsed(signer [20]byte, nonce [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put(sigNonceKey(signer, nonce), []byte{1})
}

// --- accounts ---

// GetAccount loads the balance record for an address. Absent accounts read as
// all-zero.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadAccount(addr)
}

// PutAccount stores the balance record for an address.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return errors.New("state: nil account")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(accountKey(addr), account.Ensure())
}

func (m *Manager) loadAccount(addr [20]byte) (*types.Account, error) {
	account := new(types.Account)
	if _, err := m.getJSON(accountKey(addr), account); err != nil {
		return nil, err
	}
	return account.Ensure(), nil
}

func (m *Manager) storeAccount(addr [20]byte, account *types.Account) error {
	return m.putJSON(accountKey(addr), account.Ensure())
}
