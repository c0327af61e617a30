package webhook

import (
	"strings"
	"testing"
)

func TestVerifySignature(t *testing.T) {
	secret := "test-secret-key"
	body := []byte(`{"message_id":"m1","from":"+1000000001","to":"+1000000002","ts":"2025-01-15T10:00:00Z"}`)

	expectedSig := Sign(secret, body)

	tests := []struct {
		name      string
		body      []byte
		signature string
		secret    string
		want      bool
	}{
		{
			name:      "valid signature - plain hex",
			body:      body,
			signature: expectedSig,
			secret:    secret,
			want:      true,
		},
		{
			name:      "valid signature - sha256 prefix",
			body:      body,
			signature: "sha256=" + expectedSig,
			secret:    secret,
			want:      true,
		},
		{
			name:      "valid signature - uppercase hex",
			body:      body,
			signature: strings.ToUpper(expectedSig),
			secret:    secret,
			want:      true,
		},
		{
			name:      "invalid signature - wrong signature",
			body:      body,
			signature: strings.Repeat("0", 64),
			secret:    secret,
			want:      false,
		},
		{
			name:      "invalid signature - tampered body",
			body:      []byte(`{"message_id":"m2"}`),
			signature: expectedSig,
			secret:    secret,
			want:      false,
		},
		{
			name:      "invalid signature - wrong secret",
			body:      body,
			signature: expectedSig,
			secret:    "wrong-secret",
			want:      false,
		},
		{
			name:      "invalid signature - empty signature",
			body:      body,
			signature: "",
			secret:    secret,
			want:      false,
		},
		{
			name:      "invalid signature - empty secret",
			body:      body,
			signature: expectedSig,
			secret:    "",
			want:      false,
		},
		{
			name:      "invalid signature - malformed hex",
			body:      body,
			signature: "not-valid-hex",
			secret:    secret,
			want:      false,
		},
		{
			name:      "invalid signature - truncated",
			body:      body,
			signature: expectedSig[:32],
			secret:    secret,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.secret, tt.body, tt.signature); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSign(t *testing.T) {
	body := []byte("test payload")
	secret := "test-secret"

	sig := Sign(secret, body)

	// SHA256 = 32 bytes = 64 hex chars
	if len(sig) != 64 {
		t.Errorf("signature length = %d, want 64", len(sig))
	}
	if sig != strings.ToLower(sig) {
		t.Errorf("signature should be lowercase hex, got %s", sig)
	}
	if sig2 := Sign(secret, body); sig != sig2 {
		t.Error("signature should be deterministic")
	}
	if sig3 := Sign(secret, []byte("different")); sig == sig3 {
		t.Error("different body should produce different signature")
	}
}

func TestSignKnownVector(t *testing.T) {
	// RFC 4231 test case 2.
	got := Sign("Jefe", []byte("what do ya want for nothing?"))
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}
}
