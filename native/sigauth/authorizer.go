package sigauth

import (
	"encoding/binary"
	"errors"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"belongchain/crypto"
)

// AuthorizationDomainV1 is the domain separator mixed into every signed
// authorization digest.
const AuthorizationDomainV1 = "BELONG_CHECKIN_AUTH_V1"

var (
	// ErrExpired indicates the authorization deadline has passed.
	ErrExpired = errors.New("sigauth: authorization expired")
	// ErrNonceUsed indicates the nonce was already consumed for this signer.
	ErrNonceUsed = errors.New("sigauth: nonce already used")
	// ErrInvalidSignature indicates the recovered signer did not match.
	ErrInvalidSignature = errors.New("sigauth: invalid signature")

	errNilStore = errors.New("sigauth: nonce store not configured")
)

// Protection carries the replay-protection envelope attached to every signed
// request payload.
type Protection struct {
	Nonce     [32]byte
	Deadline  int64
	Signature []byte
}

// NonceStore persists consumed nonces per signer domain. A nonce is single
// use: once marked, any later authorization carrying it must be rejected.
type NonceStore interface {
	SigNonceUsed(signer [20]byte, nonce [32]byte) (bool, error)
	MarkSigNonceUsed(signer [20]byte, nonce [32]byte) error
}

// Authorizer validates off-chain-issued authorizations against an expected
// signer. Every money-moving entry point shares one authorizer instance so
// nonces are consumed from a single registry.
type Authorizer struct {
	store   NonceStore
	engine  [20]byte
	chainID uint64
	nowFn   func() time.Time
}

// NewAuthorizer constructs an authorizer bound to the engine address and chain
// identifier that scope the signature domain.
func NewAuthorizer(store NonceStore, engine [20]byte, chainID uint64) *Authorizer {
	return &Authorizer{
		store:   store,
		engine:  engine,
		chainID: chainID,
		nowFn:   time.Now,
	}
}

// SetNowFunc overrides the clock, primarily for deterministic testing.
func (a *Authorizer) SetNowFunc(now func() time.Time) {
	if a == nil {
		return
	}
	if now == nil {
		a.nowFn = time.Now
		return
	}
	a.nowFn = now
}

// Digest computes the domain-separated digest covering the payload hash and
// its protection envelope. Signers and the verifier must agree byte for byte.
func (a *Authorizer) Digest(payloadHash [32]byte, p Protection) []byte {
	var deadline [8]byte
	binary.BigEndian.PutUint64(deadline[:], uint64(p.Deadline))
	var chain [8]byte
	binary.BigEndian.PutUint64(chain[:], a.chainID)
	return ethcrypto.Keccak256(
		[]byte(AuthorizationDomainV1),
		a.engine[:],
		chain[:],
		p.Nonce[:],
		deadline[:],
		payloadHash[:],
	)
}

// Verify checks the authorization in order: deadline, nonce freshness, then
// signature recovery. The nonce is consumed in the same call, before control
// returns to the caller, so no second authorization with the same nonce can
// pass regardless of payload. A nonce is only burned by a fully valid
// authorization; invalid signatures leave it unused.
func (a *Authorizer) Verify(payloadHash [32]byte, p Protection, expectedSigner [20]byte) error {
	if a == nil || a.store == nil {
		return errNilStore
	}
	now := a.nowFn()
	if p.Deadline <= 0 || now.Unix() > p.Deadline {
		return ErrExpired
	}
	used, err := a.store.SigNonceUsed(expectedSigner, p.Nonce)
	if err != nil {
		return err
	}
	if used {
		return ErrNonceUsed
	}
	if len(p.Signature) != 65 {
		return ErrInvalidSignature
	}
	digest := a.Digest(payloadHash, p)
	pubKey, err := ethcrypto.SigToPub(digest, p.Signature)
	if err != nil {
		return ErrInvalidSignature
	}
	recovered := ethcrypto.PubkeyToAddress(*pubKey)
	if recovered != ethcommon.BytesToAddress(expectedSigner[:]) {
		return ErrInvalidSignature
	}
	return a.store.MarkSigNonceUsed(expectedSigner, p.Nonce)
}

// Sign produces the protection signature for the payload hash using the
// supplied key. It is the counterpart of Verify used by the off-chain issuer
// and by tests.
func (a *Authorizer) Sign(key *crypto.PrivateKey, payloadHash [32]byte, p Protection) ([]byte, error) {
	if a == nil {
		return nil, errNilStore
	}
	digest := a.Digest(payloadHash, p)
	return ethcrypto.Sign(digest, key.PrivateKey)
}
