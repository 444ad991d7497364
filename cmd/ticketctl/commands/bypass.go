package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/0gfoundation/0g-relay-gate/internal/ticket"
)

// bypass: mint a reusable ticket. Never registered in the store.
func bypassCmd(g *globals) *cobra.Command {
	var (
		action actionFlags
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "bypass",
		Short: "Mint a bypass ticket (reusable until it expires)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			codec, err := g.codec()
			if err != nil {
				return err
			}
			tk, err := codec.Mint(ticket.BypassClaims{Action: action.request(int64(ttl / time.Second))}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ticket.WithScheme(tk.Raw))
			return nil
		},
	}
	action.register(cmd)
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "validity window (whole seconds)")
	return cmd
}
