package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0gfoundation/0g-relay-gate/internal/ticket"
)

// redeem <ticket>: spend a ticket the way the gate would.
func redeemCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <ticket>",
		Short: "Redeem a ticket against redis (a standard ticket is spent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := g.codec()
			if err != nil {
				return err
			}
			rdb := g.redis()
			defer rdb.Close()

			red := ticket.NewRedeemer(codec, ticket.NewRedisStore(rdb, g.keyPrefix), g.storeTimeout, g.logger())
			claims, err := red.Redeem(cmd.Context(), ticket.StripScheme(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "admitted: issuer=%s to=%s\n", claims.IssuedBy(), claims.Request().To)
			return nil
		},
	}
}
