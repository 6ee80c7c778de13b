package wallet

import (
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
)

// Signer abstracts the wallet-signing provider. Connected reports whether
// a public key is bound; SignTransaction may still refuse with
// ErrSignerUnavailable for watch-only wallets.
type Signer interface {
	Connected() bool
	PublicKey() solanago.PublicKey
	SignTransaction(tx *solanago.Transaction) (*solanago.Transaction, error)
}

// LocalSigner signs with an in-process private key. This is the CLI/server
// equivalent of a connected browser wallet.
type LocalSigner struct {
	key solanago.PrivateKey
}

// NewLocalSigner wraps a private key in a Signer.
func NewLocalSigner(key solanago.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// NewLocalSignerFromFile loads a Solana keygen file (the JSON byte-array
// format written by solana-keygen) and wraps it in a Signer.
func NewLocalSignerFromFile(path string) (*LocalSigner, error) {
	key, err := solanago.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	return &LocalSigner{key: key}, nil
}

func (s *LocalSigner) Connected() bool {
	return s != nil && len(s.key) > 0
}

func (s *LocalSigner) PublicKey() solanago.PublicKey {
	return s.key.PublicKey()
}

func (s *LocalSigner) SignTransaction(tx *solanago.Transaction) (*solanago.Transaction, error) {
	pub := s.key.PublicKey()
	_, err := tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		if key.Equals(pub) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}

// WatchOnlySigner holds a public key but cannot sign. Reads and airdrops
// work; transfers are refused before submission.
type WatchOnlySigner struct {
	pub solanago.PublicKey
}

// NewWatchOnlySigner wraps a bare public key.
func NewWatchOnlySigner(pub solanago.PublicKey) *WatchOnlySigner {
	return &WatchOnlySigner{pub: pub}
}

func (s *WatchOnlySigner) Connected() bool {
	return s != nil && !s.pub.IsZero()
}

func (s *WatchOnlySigner) PublicKey() solanago.PublicKey {
	return s.pub
}

func (s *WatchOnlySigner) SignTransaction(tx *solanago.Transaction) (*solanago.Transaction, error) {
	return nil, ErrSignerUnavailable
}

// DisconnectedSigner is the not-connected state.
type DisconnectedSigner struct{}

func (DisconnectedSigner) Connected() bool               { return false }
func (DisconnectedSigner) PublicKey() solanago.PublicKey { return solanago.PublicKey{} }
func (DisconnectedSigner) SignTransaction(tx *solanago.Transaction) (*solanago.Transaction, error) {
	return nil, ErrSignerUnavailable
}
