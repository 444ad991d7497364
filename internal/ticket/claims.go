package ticket

import "time"

// Claims is the decoded content of a ticket. It is either StandardClaims
// or BypassClaims; callers branch with a type switch.
type Claims interface {
	Request() ActionRequest
	IssuedBy() string
	Expiry() time.Time

	isClaims()
}

// StandardClaims are subject to single-use enforcement through the Store.
// A StandardClaims value returned by Codec.Decode always has a TicketID.
type StandardClaims struct {
	Action    ActionRequest
	TicketID  string
	Issuer    string
	ExpiresAt time.Time
}

// BypassClaims are minted only by holders of the signing key for trusted
// internal callers. They are admitted without touching the Store, so the
// signature is the entire trust boundary for them.
type BypassClaims struct {
	Action    ActionRequest
	Issuer    string
	ExpiresAt time.Time
}

func (c StandardClaims) Request() ActionRequest { return c.Action }
func (c StandardClaims) IssuedBy() string       { return c.Issuer }
func (c StandardClaims) Expiry() time.Time      { return c.ExpiresAt }
func (StandardClaims) isClaims()                {}

func (c BypassClaims) Request() ActionRequest { return c.Action }
func (c BypassClaims) IssuedBy() string       { return c.Issuer }
func (c BypassClaims) Expiry() time.Time      { return c.ExpiresAt }
func (BypassClaims) isClaims()                {}

// Ticket is a minted, signed ticket ready for transport.
type Ticket struct {
	Raw       string
	ExpiresAt time.Time
	Claims    Claims
}
