package commands

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/0gfoundation/0g-relay-gate/internal/ticket"
)

type inspection struct {
	Kind      string               `json:"kind"`
	Issuer    string               `json:"issuer"`
	TicketID  string               `json:"ticket_id,omitempty"`
	ExpiresAt time.Time            `json:"expires_at"`
	Action    ticket.ActionRequest `json:"action"`
}

func describe(claims ticket.Claims) inspection {
	in := inspection{
		Issuer:    claims.IssuedBy(),
		ExpiresAt: claims.Expiry().UTC(),
		Action:    claims.Request(),
	}
	switch c := claims.(type) {
	case ticket.StandardClaims:
		in.Kind = "standard"
		in.TicketID = c.TicketID
	case ticket.BypassClaims:
		in.Kind = "bypass"
	}
	return in
}

// inspect <ticket>: verify signature and expiry and print the claims.
// The store is not consulted, so a spent ticket still inspects cleanly.
func inspectCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <ticket>",
		Short: "Decode a ticket and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := g.codec()
			if err != nil {
				return err
			}
			claims, err := codec.Decode(ticket.StripScheme(args[0]))
			if err != nil {
				return err
			}
			out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(describe(claims), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
