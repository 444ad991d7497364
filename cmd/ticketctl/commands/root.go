package commands

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0gfoundation/0g-relay-gate/internal/config"
	"github.com/0gfoundation/0g-relay-gate/internal/ticket"
)

// globals holds the persistent flags shared by every subcommand. Their
// defaults come from the service configuration (env and config.yaml).
type globals struct {
	defaults *config.Config

	secret        string
	redisAddr     string
	redisPassword string
	bypassIssuer  string
	keyPrefix     string
	storeTimeout  time.Duration
	verbose       bool
}

func (g *globals) codec() (*ticket.Codec, error) {
	if g.secret == "" {
		return nil, fmt.Errorf("signing key required (--secret or JWT_SECRET)")
	}
	return ticket.NewCodec([]byte(g.secret), g.bypassIssuer)
}

func (g *globals) redis() *redis.Client {
	return ticket.NewRedisClient(g.redisAddr, g.redisPassword)
}

func (g *globals) logger() *zap.Logger {
	if !g.verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func Execute() error {
	root, err := newRootCmd()
	if err != nil {
		return err
	}
	return root.Execute()
}

func newRootCmd() (*cobra.Command, error) {
	defaults, err := config.LoadUnvalidated()
	if err != nil {
		return nil, err
	}
	g := &globals{defaults: defaults}
	root := &cobra.Command{
		Use:          "ticketctl",
		Short:        "Mint, inspect and redeem relay tickets",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.secret, "secret", defaults.Ticket.Secret, "ticket signing key (default from JWT_SECRET)")
	pf.StringVar(&g.redisAddr, "redis", defaults.Redis.Addr, "redis address")
	pf.StringVar(&g.redisPassword, "redis-password", defaults.Redis.Password, "redis password")
	pf.StringVar(&g.bypassIssuer, "bypass-issuer", defaults.Ticket.BypassIssuer, "issuer value of bypass tickets")
	pf.StringVar(&g.keyPrefix, "key-prefix", defaults.Ticket.KeyPrefix, "redis key prefix of live tickets")
	pf.DurationVar(&g.storeTimeout, "store-timeout", defaults.Ticket.StoreTimeout(), "bound on each redis round trip")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log store activity to stderr")

	root.AddCommand(bypassCmd(g), issueCmd(g), inspectCmd(g), redeemCmd(g))
	return root, nil
}

// actionFlags are the request fields carried by minted tickets.
type actionFlags struct {
	message string
	to      string
	from    string
}

func (a *actionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.message, "message", "", "message the ticket authorizes")
	cmd.Flags().StringVar(&a.to, "to", "", "recipient")
	cmd.Flags().StringVar(&a.from, "from", "", "sender")
	_ = cmd.MarkFlagRequired("message")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("from")
}

func (a *actionFlags) request(ttlSec int64) ticket.ActionRequest {
	return ticket.ActionRequest{Message: a.message, To: a.to, From: a.from, TimeToLiveSec: ttlSec}
}
