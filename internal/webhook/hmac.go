package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// VerifySignature reports whether signature is the hex HMAC-SHA256 of
// body under secret.
//
// The comparison is constant-time (crypto/subtle). An empty secret, an
// empty or non-hex signature and a mismatch all return false; callers
// get no hint which one it was.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}

	actualMAC, err := parseSignature(signature)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(computeMAC(secret, body), actualMAC) == 1
}

// Sign returns the lowercase hex HMAC-SHA256 of body, the value senders
// put in the signature header.
func Sign(secret string, body []byte) string {
	return hex.EncodeToString(computeMAC(secret, body))
}

func computeMAC(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// parseSignature decodes "<hex>" or the GitHub-style "sha256=<hex>".
func parseSignature(signature string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
}
