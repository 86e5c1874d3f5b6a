package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "cf_test_secret_key"

// signedTimestamp computes the header pair the gateway would send:
// base64 HMAC-SHA256 over timestamp + body.
func signedTimestamp(t *testing.T, body []byte, ts time.Time) (string, string) {
	t.Helper()
	timestamp := strconv.FormatInt(ts.UnixMilli(), 10)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), timestamp
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"order_123"}}}`)
	sig, timestamp := signedTimestamp(t, body, time.Now())

	assert.True(t, ValidSignature(testSecret, body, sig, timestamp))
}

func TestValidSignature_TamperedBody(t *testing.T) {
	body := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"order_123"}}}`)
	sig, timestamp := signedTimestamp(t, body, time.Now())

	// Any single changed byte must break verification.
	for _, i := range []int{0, 10, len(body) / 2, len(body) - 1} {
		tampered := make([]byte, len(body))
		copy(tampered, body)
		tampered[i] ^= 0x01
		assert.False(t, ValidSignature(testSecret, tampered, sig, timestamp),
			"tampered byte at %d should fail verification", i)
	}
}

func TestValidSignature_WrongSecret(t *testing.T) {
	body := []byte(`{"data":{}}`)
	sig, timestamp := signedTimestamp(t, body, time.Now())

	assert.False(t, ValidSignature("other_secret", body, sig, timestamp))
}

func TestValidSignature_WrongTimestamp(t *testing.T) {
	body := []byte(`{"data":{}}`)
	sig, _ := signedTimestamp(t, body, time.Now())

	assert.False(t, ValidSignature(testSecret, body, sig, "1700000000000"))
}

func TestValidSignature_MissingParts(t *testing.T) {
	body := []byte(`{"data":{}}`)
	assert.False(t, ValidSignature(testSecret, body, "", "1700000000000"))
	assert.False(t, ValidSignature(testSecret, body, "c2ln", ""))
}

func TestFreshTimestamp(t *testing.T) {
	now := time.Now()
	maxAge := 10 * time.Minute
	slack := 60 * time.Second

	fresh := func(ts time.Time) bool {
		return FreshTimestamp(strconv.FormatInt(ts.UnixMilli(), 10), now, maxAge, slack)
	}

	assert.True(t, fresh(now))
	assert.True(t, fresh(now.Add(-9*time.Minute)))
	assert.True(t, fresh(now.Add(30*time.Second)), "forward slack absorbs clock drift")

	assert.False(t, fresh(now.Add(-11*time.Minute)), "stale timestamp must be rejected")
	assert.False(t, fresh(now.Add(2*time.Minute)), "timestamps beyond forward slack must be rejected")
}

func TestFreshTimestamp_Malformed(t *testing.T) {
	now := time.Now()
	assert.False(t, FreshTimestamp("", now, time.Minute, time.Second))
	assert.False(t, FreshTimestamp("not-a-number", now, time.Minute, time.Second))
}

func TestFreshTimestamp_PinnedMillisecondUnit(t *testing.T) {
	now := time.Now()
	// A seconds-unit timestamp for "now" reads as 1970 under the pinned
	// millisecond contract and must be rejected, never reinterpreted.
	seconds := strconv.FormatInt(now.Unix(), 10)
	assert.False(t, FreshTimestamp(seconds, now, 10*time.Minute, time.Minute))
}
