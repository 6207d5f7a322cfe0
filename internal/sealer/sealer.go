// Package sealer encrypts private key material before it reaches the store.
// The registry owns the plaintext; everything past it sees only sealed bytes.
package sealer

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeyLength is the required master key size in bytes.
const KeyLength = chacha20poly1305.KeySize

var (
	// ErrInvalidKey is returned when the master key has the wrong length.
	ErrInvalidKey = errors.New("sealer: master key must be 32 bytes")

	// ErrCorrupt is returned when sealed bytes fail authentication or are
	// too short to contain a nonce.
	ErrCorrupt = errors.New("sealer: sealed data corrupt")
)

// Sealer seals and opens byte slices with ChaCha20-Poly1305.
type Sealer struct {
	aead cipher.AEAD
}

// New creates a Sealer from a 32-byte master key.
func New(masterKey []byte) (*Sealer, error) {
	if len(masterKey) != KeyLength {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidKey, len(masterKey))
	}
	aead, err := chacha20poly1305.New(masterKey)
	if err != nil {
		return nil, fmt.Errorf("sealer: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plain and returns nonce||ciphertext.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("sealer: nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

// Open decrypts sealed bytes produced by Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, ErrCorrupt
	}
	nonce, ct := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return plain, nil
}
