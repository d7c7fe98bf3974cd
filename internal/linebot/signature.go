package linebot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Sign returns the base64 HMAC-SHA256 of body keyed by the channel secret,
// the value LINE sends in the X-Line-Signature header.
func Sign(body []byte, channelSecret string) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func VerifySignature(body []byte, signature, channelSecret string) bool {
	if signature == "" || channelSecret == "" {
		return false
	}
	expected := Sign(body, channelSecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
