// Package ticket implements single-use, signed authorization tickets for
// the relay action: minting and decoding (Codec), the expiring live-ticket
// registry (Store), and the issue/redeem lifecycle (Issuer, Redeemer).
//
// A ticket's signature proves authenticity only. Whether a standard ticket
// is still unused is known solely to the Store, which every service
// instance shares.
package ticket

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation marks a malformed action request or TTL.
var ErrValidation = errors.New("ticket: invalid request")

// ActionRequest is the relay action a ticket authorizes.
type ActionRequest struct {
	Message       string `json:"message"`
	To            string `json:"to"`
	From          string `json:"from"`
	TimeToLiveSec int64  `json:"timeToLiveSec"`
}

// Validate reports which mandatory field is missing or out of range.
func (r ActionRequest) Validate() error {
	switch {
	case r.Message == "":
		return fmt.Errorf("%w: message is required", ErrValidation)
	case r.To == "":
		return fmt.Errorf("%w: to is required", ErrValidation)
	case r.From == "":
		return fmt.Errorf("%w: from is required", ErrValidation)
	case r.TimeToLiveSec <= 0:
		return fmt.Errorf("%w: timeToLiveSec must be positive", ErrValidation)
	}
	return nil
}

// TTL is the ticket validity window.
func (r ActionRequest) TTL() time.Duration {
	return time.Duration(r.TimeToLiveSec) * time.Second
}

// wholeSeconds rejects TTLs that cannot be expressed as a positive number
// of seconds, which is the resolution of both JWT expiry and Redis EX.
func wholeSeconds(ttl time.Duration) (int64, error) {
	if ttl < time.Second || ttl%time.Second != 0 {
		return 0, fmt.Errorf("%w: ttl %v is not a positive whole number of seconds", ErrValidation, ttl)
	}
	return int64(ttl / time.Second), nil
}
