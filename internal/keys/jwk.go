package keys

import (
	"encoding/base64"
	"math/big"
)

// JWK represents a public verification key (RFC 7517)
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS represents the published key set (RFC 7517)
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// ExportJWK derives the publishable entry for a record. Only public
// material leaves through here.
func ExportJWK(rec *KeyRecord) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: Algorithm,
		Kid: rec.KID,
		N:   base64.RawURLEncoding.EncodeToString(rec.Public.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(rec.Public.E)).Bytes()),
	}
}
