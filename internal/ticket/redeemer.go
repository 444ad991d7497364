package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Reason classifies a denied redemption.
type Reason int

const (
	ReasonUnauthorized Reason = iota
	ReasonMissingTicketID
	ReasonInvalidOrExpired
	ReasonStoreUnavailable
)

func (r Reason) String() string {
	switch r {
	case ReasonUnauthorized:
		return "unauthorized"
	case ReasonMissingTicketID:
		return "missing_ticket_id"
	case ReasonInvalidOrExpired:
		return "invalid_or_expired"
	case ReasonStoreUnavailable:
		return "store_unavailable"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// DenyError is returned by Redeem for every refused ticket.
type DenyError struct {
	Reason Reason
	Err    error
}

func (e *DenyError) Error() string {
	if e.Err == nil {
		return "ticket denied: " + e.Reason.String()
	}
	return fmt.Sprintf("ticket denied: %s: %v", e.Reason, e.Err)
}

func (e *DenyError) Unwrap() error { return e.Err }

// ErrNotLive is the cause of ReasonInvalidOrExpired: the Store had no entry.
var ErrNotLive = errors.New("ticket: unknown, already used or expired")

// Redeemer admits a presented ticket at most once.
type Redeemer struct {
	codec        *Codec
	store        Store
	storeTimeout time.Duration
	log          *zap.Logger
}

func NewRedeemer(codec *Codec, store Store, storeTimeout time.Duration, log *zap.Logger) *Redeemer {
	return &Redeemer{codec: codec, store: store, storeTimeout: storeTimeout, log: log}
}

// Redeem decodes raw and, for standard tickets, consumes its Store entry.
// Any failure, including a Store error or timeout, is a *DenyError.
func (r *Redeemer) Redeem(ctx context.Context, raw string) (Claims, error) {
	claims, err := r.codec.Decode(raw)
	if errors.Is(err, ErrMissingTicketID) {
		return nil, r.deny(ReasonMissingTicketID, err)
	}
	if err != nil {
		return nil, r.deny(ReasonUnauthorized, err)
	}

	switch cl := claims.(type) {
	case BypassClaims:
		r.log.Debug("bypass ticket admitted", zap.String("issuer", cl.Issuer))
		return cl, nil
	case StandardClaims:
		if r.storeTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.storeTimeout)
			defer cancel()
		}
		consumed, err := r.store.Consume(ctx, cl.TicketID)
		if err != nil {
			r.log.Error("ticket consume failed", zap.String("ticket_id", cl.TicketID), zap.Error(err))
			return nil, r.deny(ReasonStoreUnavailable, err)
		}
		if !consumed {
			return nil, r.deny(ReasonInvalidOrExpired, ErrNotLive)
		}
		return cl, nil
	default:
		return nil, r.deny(ReasonUnauthorized, fmt.Errorf("%w: unexpected claims %T", ErrMalformed, claims))
	}
}

func (r *Redeemer) deny(reason Reason, err error) *DenyError {
	r.log.Warn("ticket denied", zap.Stringer("reason", reason), zap.Error(err))
	return &DenyError{Reason: reason, Err: err}
}
