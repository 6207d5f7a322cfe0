package keys

import (
	"crypto/rsa"
	"time"
)

// Algorithm is the only signing algorithm the service issues or verifies.
const Algorithm = "RS256"

// KeyRecord is the unit of the key lifecycle. Material and identifier are
// immutable once created; the only mutation a record ever sees is Active
// flipping to false on retirement.
type KeyRecord struct {
	KID       string
	Private   *rsa.PrivateKey
	Public    *rsa.PublicKey
	CreatedAt time.Time
	Active    bool
}

// storedRecord is the wire encoding persisted in the store. Private material
// is sealed before it gets here.
type storedRecord struct {
	KID           string    `json:"kid"`
	PrivateSealed []byte    `json:"private_sealed"`
	PublicDER     []byte    `json:"public_der"`
	CreatedAt     time.Time `json:"created_at"`
	Active        bool      `json:"active"`
}
