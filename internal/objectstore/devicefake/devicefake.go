// Package devicefake provides a test double for objectstore.DeviceOracle:
// a real HMAC-SHA1 device secret held in memory, with switches to simulate
// an absent device or a touch timeout. No USB HID transport is modeled —
// that boundary is external per spec.md §1.
package devicefake

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // device protocol mandates SHA1, per spec.md §4.3
	"errors"
)

// Oracle is a deterministic, in-memory stand-in for a hardware
// challenge-response device.
type Oracle struct {
	secret  []byte
	absent  bool
	timeout bool
}

// New builds an Oracle keyed by secret.
func New(secret []byte) *Oracle {
	return &Oracle{secret: append([]byte(nil), secret...)}
}

// SetAbsent simulates the device being unplugged.
func (o *Oracle) SetAbsent(absent bool) { o.absent = absent }

// SetTimeout simulates the user not touching the device in time.
func (o *Oracle) SetTimeout(timeout bool) { o.timeout = timeout }

// ChallengeResponseHMAC implements objectstore.DeviceOracle.
func (o *Oracle) ChallengeResponseHMAC(_ context.Context, challenge [64]byte) ([20]byte, error) {
	var resp [20]byte
	if o.absent {
		return resp, errors.New("device absent")
	}
	if o.timeout {
		return resp, errors.New("touch timeout")
	}
	mac := hmac.New(sha1.New, o.secret)
	mac.Write(challenge[:])
	copy(resp[:], mac.Sum(nil))
	return resp, nil
}
