package ticket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultIssuer is the issuer claim of ordinary, single-use tickets.
const DefaultIssuer = "standard"

// Issuer mints standard tickets and registers them in the Store.
type Issuer struct {
	codec *Codec
	store Store
	name  string
	newID func() (string, error)
	log   *zap.Logger

	// storeTimeout bounds Register; zero leaves it to the caller's context.
	storeTimeout time.Duration
}

func NewIssuer(codec *Codec, store Store, name string, storeTimeout time.Duration, log *zap.Logger) *Issuer {
	if name == "" {
		name = DefaultIssuer
	}
	return &Issuer{
		codec: codec,
		store: store,
		name:  name,
		newID: newTicketID,
		log:   log,

		storeTimeout: storeTimeout,
	}
}

// newTicketID returns a random (version 4) UUID read from crypto/rand.
func newTicketID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Issue validates req, mints a ticket valid for req.TimeToLiveSec and
// registers its id. The ticket is returned only once its Store entry exists.
func (i *Issuer) Issue(ctx context.Context, req ActionRequest) (*Ticket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	ticketID, err := i.newID()
	if err != nil {
		return nil, fmt.Errorf("generate ticket id: %w", err)
	}

	t, err := i.codec.Mint(StandardClaims{Action: req, TicketID: ticketID, Issuer: i.name}, req.TTL())
	if err != nil {
		return nil, fmt.Errorf("mint ticket: %w", err)
	}
	if i.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.storeTimeout)
		defer cancel()
	}
	if err := i.store.Register(ctx, ticketID, req.TTL()); err != nil {
		i.log.Error("ticket register failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, err
	}

	i.log.Debug("ticket issued",
		zap.String("ticket_id", ticketID),
		zap.String("to", req.To),
		zap.Int64("ttl_sec", req.TimeToLiveSec),
	)
	return t, nil
}
