package ticket

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Errors returned by Codec. The Redeemer treats the decode errors alike;
// they stay distinct for logs and diagnostics.
var (
	ErrEncoding         = errors.New("ticket: signing key misconfigured")
	ErrMalformed        = errors.New("ticket: malformed")
	ErrInvalidSignature = errors.New("ticket: invalid signature")
	ErrExpired          = errors.New("ticket: expired")
	ErrMissingTicketID  = errors.New("ticket: missing jti")
)

// DefaultBypassIssuer is the issuer value of reusable bypass tickets.
const DefaultBypassIssuer = "super-token"

const bearerScheme = "bearer "

// wireClaims is the JWT payload. Claim names are shared with tickets
// minted by earlier deployments of the service.
type wireClaims struct {
	Message       string `json:"message,omitempty"`
	To            string `json:"to,omitempty"`
	From          string `json:"from,omitempty"`
	TimeToLiveSec int64  `json:"timeToLiveSec,omitempty"`
	// Read-only alias; older tickets spell it this way.
	TimeToLifeSec int64 `json:"timeToLifeSec,omitempty"`
	jwt.RegisteredClaims
}

// Codec mints and verifies HS256-signed tickets.
type Codec struct {
	key          []byte
	bypassIssuer string
	now          func() time.Time
	parser       *jwt.Parser
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithClock replaces time.Now for minting and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns ErrEncoding when the key or bypass issuer is empty.
// Callers should treat that as fatal at startup.
func NewCodec(key []byte, bypassIssuer string, opts ...CodecOption) (*Codec, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty signing key", ErrEncoding)
	}
	if bypassIssuer == "" {
		return nil, fmt.Errorf("%w: empty bypass issuer", ErrEncoding)
	}
	c := &Codec{
		key:          append([]byte(nil), key...),
		bypassIssuer: bypassIssuer,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// BypassIssuer is the issuer value exempt from single-use enforcement.
func (c *Codec) BypassIssuer() string { return c.bypassIssuer }

// Mint signs claims with expiry now+ttl. The ExpiresAt of the passed
// claims is ignored and set on the returned Ticket's Claims.
func (c *Codec) Mint(claims Claims, ttl time.Duration) (*Ticket, error) {
	if _, err := wholeSeconds(ttl); err != nil {
		return nil, err
	}
	issuedAt := c.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	var (
		action ActionRequest
		wire   wireClaims
	)
	switch cl := claims.(type) {
	case StandardClaims:
		if cl.TicketID == "" {
			return nil, fmt.Errorf("%w: standard ticket without ticket id", ErrValidation)
		}
		if cl.Issuer == c.bypassIssuer {
			return nil, fmt.Errorf("%w: standard ticket cannot use the bypass issuer", ErrValidation)
		}
		action = cl.Action
		wire.ID = cl.TicketID
		wire.Issuer = cl.Issuer
		cl.ExpiresAt = expiresAt
		claims = cl
	case BypassClaims:
		action = cl.Action
		wire.Issuer = c.bypassIssuer
		cl.Issuer = c.bypassIssuer
		cl.ExpiresAt = expiresAt
		claims = cl
	default:
		return nil, fmt.Errorf("%w: unsupported claims %T", ErrValidation, claims)
	}

	wire.Message = action.Message
	wire.To = action.To
	wire.From = action.From
	wire.TimeToLiveSec = action.TimeToLiveSec
	wire.IssuedAt = jwt.NewNumericDate(issuedAt)
	wire.ExpiresAt = jwt.NewNumericDate(expiresAt)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return &Ticket{Raw: raw, ExpiresAt: expiresAt, Claims: claims}, nil
}

// Decode verifies the signature and expiry of raw and returns its claims.
func (c *Codec) Decode(raw string) (Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty ticket", ErrMalformed)
	}
	var wire wireClaims
	if _, err := c.parser.ParseWithClaims(raw, &wire, c.keyFunc); err != nil {
		return nil, classify(err)
	}

	action := ActionRequest{
		Message:       wire.Message,
		To:            wire.To,
		From:          wire.From,
		TimeToLiveSec: wire.TimeToLiveSec,
	}
	if action.TimeToLiveSec == 0 {
		action.TimeToLiveSec = wire.TimeToLifeSec
	}
	expiresAt := wire.ExpiresAt.Time

	if wire.Issuer == c.bypassIssuer {
		return BypassClaims{Action: action, Issuer: wire.Issuer, ExpiresAt: expiresAt}, nil
	}
	if wire.ID == "" {
		return nil, ErrMissingTicketID
	}
	return StandardClaims{
		Action:    action,
		TicketID:  wire.ID,
		Issuer:    wire.Issuer,
		ExpiresAt: expiresAt,
	}, nil
}

func (c *Codec) keyFunc(*jwt.Token) (any, error) {
	return c.key, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// StripScheme removes an optional "Bearer " prefix from a ticket header.
func StripScheme(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= len(bearerScheme) && strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		return strings.TrimSpace(header[len(bearerScheme):])
	}
	return header
}

// WithScheme formats a ticket for the response header.
func WithScheme(raw string) string {
	return "Bearer " + raw
}
