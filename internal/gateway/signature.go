package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// sign computes the hex HMAC-SHA256 of the message with the given secret.
func sign(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaymentSignature checks the client-submitted verification triple.
// The gateway signs "orderRef|paymentRef" with the key secret. Comparison is
// constant-time.
func VerifyPaymentSignature(gatewayOrderRef, gatewayPaymentRef, signature, secret string) bool {
	expected := sign([]byte(gatewayOrderRef+"|"+gatewayPaymentRef), secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// VerifyWebhookSignature checks a webhook signature against the raw request
// body. The body must be verified exactly as received, before any parsing.
func VerifyWebhookSignature(rawBody []byte, signature, webhookSecret string) bool {
	expected := sign(rawBody, webhookSecret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
