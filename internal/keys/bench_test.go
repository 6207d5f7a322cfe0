package keys

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/creatorhub/signet/internal/sealer"
	"github.com/creatorhub/signet/internal/store/memory"
)

func BenchmarkDeriveKeyID(b *testing.B) {
	priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DeriveKeyID(&priv.PublicKey)
	}
}

func BenchmarkManager_Verify(b *testing.B) {
	ctx := context.Background()

	sl, err := sealer.New(bytes.Repeat([]byte{7}, sealer.KeyLength))
	if err != nil {
		b.Fatal(err)
	}
	reg := NewRegistry(memory.New(), sl)
	policy := Policy{
		Lifetime:        30 * 24 * time.Hour,
		RotationBuffer:  7 * 24 * time.Hour,
		MinRetainedKeys: 2,
	}
	m := NewManager(reg, NewFactory(), policy, &recordingAudit{})
	if err := m.Initialize(ctx); err != nil {
		b.Fatal(err)
	}

	rec, err := m.CurrentSigningKey(ctx)
	if err != nil {
		b.Fatal(err)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "bench",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	tok.Header["kid"] = rec.KID
	signed, err := tok.SignedString(rec.Private)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Verify(ctx, signed); err != nil {
			b.Fatal(err)
		}
	}
}
