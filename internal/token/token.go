// Package token derives and verifies the capability tokens embedded in
// assessment, dashboard and report links. Raw tokens are deterministic
// (HMAC of purpose+id under a server secret) so links can be re-derived
// for resends; only SHA-256 hashes of raw tokens are ever persisted.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Purposes namespace the HMAC input so a token minted for one surface
// can never double as another.
const (
	PurposeAssessment = "assessment"
	PurposeDashboard  = "dashboard"
	PurposeReport     = "report"
)

// Derive produces the raw hex token for (purpose, id) under secret.
func Derive(purpose, id, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(purpose + ":" + id))
	return hex.EncodeToString(mac.Sum(nil))
}

// Hash returns the hex SHA-256 of a raw token, the only form stored.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether raw hashes to expectedHash, in constant time.
func Verify(raw, expectedHash string) bool {
	actual := Hash(raw)
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHash)) == 1
}
