package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0gfoundation/0g-relay-gate/internal/ticket"
)

// issue: mint and register a standard single-use ticket, as the service does.
func issueCmd(g *globals) *cobra.Command {
	var (
		action actionFlags
		ttlSec int64
		issuer string
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a single-use ticket and register it in redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec, err := g.codec()
			if err != nil {
				return err
			}
			rdb := g.redis()
			defer rdb.Close()

			iss := ticket.NewIssuer(codec, ticket.NewRedisStore(rdb, g.keyPrefix), issuer, g.storeTimeout, g.logger())
			tk, err := iss.Issue(cmd.Context(), action.request(ttlSec))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ticket.WithScheme(tk.Raw))
			return nil
		},
	}
	action.register(cmd)
	cmd.Flags().Int64Var(&ttlSec, "ttl", 45, "validity window in seconds")
	cmd.Flags().StringVar(&issuer, "issuer", g.defaults.Ticket.Issuer, "issuer claim")
	return cmd
}
