package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

// TimestampUnit pins the unit of the x-webhook-timestamp header.
// Cashfree sends epoch milliseconds; this is a contract decision, not a
// per-request guess, because magnitude-based detection is a latent bug
// near unit boundaries.
const TimestampUnit = time.Millisecond

// VerifySignature checks the webhook signature: base64 of an
// HMAC-SHA256 over timestamp + raw body using the shared secret. The
// raw body must be the exact bytes received; re-serializing parsed JSON
// does not produce a stable signature.
func (c *Client) VerifySignature(rawBody []byte, signature, timestamp string) bool {
	return ValidSignature(c.secretKey, rawBody, signature, timestamp)
}

// ValidSignature computes and constant-time-compares the webhook
// signature.
func ValidSignature(secret string, rawBody []byte, signature, timestamp string) bool {
	if signature == "" || timestamp == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(rawBody)
	computed := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(signature))
}

// FreshTimestamp reports whether a webhook timestamp falls inside the
// replay window: at most maxAge in the past, at most forwardSlack in
// the future. A malformed timestamp is never fresh.
func FreshTimestamp(timestamp string, now time.Time, maxAge, forwardSlack time.Duration) bool {
	epoch, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	ts := time.Unix(0, epoch*int64(TimestampUnit))
	age := now.Sub(ts)
	return age <= maxAge && age >= -forwardSlack
}
