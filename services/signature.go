package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// ExpectedSignature returns hex(HMAC-SHA256(secret, orderID + "|" + paymentID)),
// the value the gateway hands to the checkout widget on a completed payment.
func ExpectedSignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares the supplied signature with the recomputed one in
// constant time.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	expected := ExpectedSignature(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
