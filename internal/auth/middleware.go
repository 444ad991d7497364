package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-relay-gate/internal/ticket"
)

// Header names shared with existing callers.
const (
	APIKeyHeader = "X-Parse-REST-API-Key"
	TicketHeader = "X-JWT-KWY"
)

const claimsKey = "ticket_claims"

// Redeemer is satisfied by ticket.Redeemer.
type Redeemer interface {
	Redeem(ctx context.Context, raw string) (ticket.Claims, error)
}

// APIKey rejects requests whose shared-secret header does not match.
func APIKey(secret string) gin.HandlerFunc {
	want := []byte(secret)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(APIKeyHeader))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			c.String(http.StatusForbidden, "Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Ticket redeems the ticket carried in X-JWT-KWY ("Bearer " optional)
// and stores the admitted claims in the context.
func Ticket(r Redeemer, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ticket.StripScheme(c.GetHeader(TicketHeader))

		claims, err := r.Redeem(c.Request.Context(), raw)
		if err != nil {
			var deny *ticket.DenyError
			if !errors.As(err, &deny) {
				log.Error("ticket redeem: unexpected error", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			switch deny.Reason {
			case ticket.ReasonMissingTicketID:
				c.String(http.StatusBadRequest, "Missing jti")
				c.Abort()
			case ticket.ReasonInvalidOrExpired:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			case ticket.ReasonStoreUnavailable:
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "ticket store unavailable"})
			default:
				c.String(http.StatusUnauthorized, "Unauthorized: "+reasonText(deny))
				c.Abort()
			}
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims admitted by Ticket for this request.
func ClaimsFrom(c *gin.Context) (ticket.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(ticket.Claims)
	return claims, ok
}

func reasonText(deny *ticket.DenyError) string {
	switch {
	case errors.Is(deny, ticket.ErrExpired):
		return "ticket expired"
	case errors.Is(deny, ticket.ErrInvalidSignature):
		return "invalid signature"
	case errors.Is(deny, ticket.ErrMalformed):
		return "invalid token"
	default:
		return deny.Reason.String()
	}
}
