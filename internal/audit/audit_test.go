package audit

import (
	"testing"
)

// TestPurpose: Validates that sensitive metadata keys are identified as
// secrets so they are redacted before reaching the log stream.
// Scope: Unit Test
// Security: Data Masking and Leakage Prevention (CWE-532)
// Expected: Returns true for keys naming tokens, private material or
// credentials, and false for ordinary metadata keys.
func TestAudit_IsSecret(t *testing.T) {
	tests := []struct {
		key      string
		isSecret bool
	}{
		{"password", true},
		{"Password", true},
		{"token", true},
		{"access_token", true},
		{"secret", true},
		{"client_secret", true},
		{"private_key", true},
		{"master_key", true},
		{"SEALER_MASTER_KEY", true},
		{"authorization", true},
		{"credential", true},
		{"kid", false},
		{"jti", false},
		{"algorithm", false},
		{"created_at", false},
		{"reason", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := isSecret(tt.key); got != tt.isSecret {
				t.Errorf("isSecret(%q) = %v, want %v", tt.key, got, tt.isSecret)
			}
		})
	}
}
