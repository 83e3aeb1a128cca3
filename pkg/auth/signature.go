package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

var (
	ErrSignatureMismatch = errors.New("auth: signature mismatch")
	ErrStaleTimestamp    = errors.New("auth: stale timestamp")
	ErrBadTimestamp      = errors.New("auth: unparseable timestamp")
)

// DefaultSkewWindow bounds how far a request timestamp may drift from server
// time before it is treated as a replay.
const DefaultSkewWindow = 5 * time.Minute

// Sign computes the hex HMAC-SHA256 of projectID+timestamp under the
// project's secret. The same function signs outbound webhook bodies, with the
// body standing in for projectID+timestamp.
func Sign(secret []byte, parts ...string) string {
	mac := hmac.New(sha256.New, secret)
	for _, p := range parts {
		mac.Write([]byte(p))
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyRequest checks a widget request's signature and timestamp freshness.
// The comparison is constant-time. timestamp is unix milliseconds as sent by
// the widget.
func VerifyRequest(secret []byte, projectID, timestamp, signature string, now time.Time, window time.Duration) error {
	ms, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadTimestamp
	}
	if window <= 0 {
		window = DefaultSkewWindow
	}
	sent := time.UnixMilli(ms)
	drift := now.Sub(sent)
	if drift < 0 {
		drift = -drift
	}
	if drift > window {
		return ErrStaleTimestamp
	}

	want := Sign(secret, projectID, timestamp)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}
