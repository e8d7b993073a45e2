package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// signaturePayload is the exact string the provider signs for checkout
// callbacks: "<provider order id>|<provider payment id>".
func signaturePayload(providerIntentID, providerPaymentID string) string {
	return providerIntentID + "|" + providerPaymentID
}

// VerifySignature checks the callback signature in constant time.
func VerifySignature(secret, providerIntentID, providerPaymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signaturePayload(providerIntentID, providerPaymentID)))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}
