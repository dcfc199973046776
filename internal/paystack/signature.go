package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// VerifySignature checks the x-paystack-signature header: an HMAC-SHA512
// hex digest of the raw request body under the account secret key.
//
// It must be fed the exact bytes received on the wire. Re-serialized JSON
// has different whitespace and key order and will not hash to the same
// value. Returns false, never an error, when the secret or signature is
// absent.
func VerifySignature(rawBody []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(rawBody)
	computed := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(signature))
}
