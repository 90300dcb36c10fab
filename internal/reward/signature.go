package reward

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ComputeSignature returns the TheoremReach authentication tag: the
// lowercase hex SHA-256 digest of userID || transactionID || revenueText ||
// secret. revenueText must be the provider's own decimal rendering of the
// revenue; re-formatting a parsed float can change the text and break the
// match.
func ComputeSignature(userID, transactionID, revenueText, secret string) string {
	sum := sha256.Sum256([]byte(userID + transactionID + revenueText + secret))
	return hex.EncodeToString(sum[:])
}

// VerifySignature reports whether the supplied tag matches the recomputed
// one. The construction is public; security rests entirely on the secret.
func VerifySignature(userID, transactionID, revenueText, secret, supplied string) bool {
	return ComputeSignature(userID, transactionID, revenueText, secret) == strings.ToLower(supplied)
}
