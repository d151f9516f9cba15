package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the header App Store Connect signs webhook deliveries with.
const SignatureHeader = "X-Apple-Signature"

const signaturePrefix = "hmacsha256="

// VerifySignature checks an inbound webhook's HMAC-SHA256 signature over the
// raw request body. The header value may carry an optional "hmacsha256="
// prefix and hex digits in either case. A missing header fails closed.
// Callers that have no secret configured should skip verification entirely.
func VerifySignature(rawBody []byte, secret, header string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}

	if len(header) >= len(signaturePrefix) && strings.EqualFold(header[:len(signaturePrefix)], signaturePrefix) {
		header = strings.TrimSpace(header[len(signaturePrefix):])
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(header)))
}
