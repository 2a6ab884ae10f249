/*
Package options contains a set of common CLI options and helper functions to use them.
*/
package options

import (
	"context"
	"time"

	"github.com/evr-dev/evr-go/pkg/config"
	"github.com/evr-dev/evr-go/pkg/rpcclient"
	"github.com/urfave/cli"
)

// DefaultTimeout is the default timeout used for RPC requests.
const DefaultTimeout = 10 * time.Second

// RPCEndpointFlag is a long flag name for an RPC endpoint. It can be used to
// check for flag presence in the context.
const RPCEndpointFlag = "rpc-endpoint"

// RPC is a set of flags used for RPC connections (endpoint, credentials and
// timeout).
var RPC = []cli.Flag{
	cli.StringFlag{
		Name:  RPCEndpointFlag + ", r",
		Usage: "RPC node address (defaults to the resolved node configuration)",
	},
	cli.StringFlag{
		Name:  "rpc-user, u",
		Usage: "RPC basic auth user",
	},
	cli.StringFlag{
		Name:  "rpc-password, p",
		Usage: "RPC basic auth password",
	},
	cli.StringFlag{
		Name:  "datadir, d",
		Usage: "Node data directory to resolve evrmore.conf from",
	},
	cli.BoolFlag{
		Name:  "testnet, t",
		Usage: "Use testnet defaults",
	},
	cli.DurationFlag{
		Name:  "timeout, s",
		Value: DefaultTimeout,
		Usage: "Timeout for the operation",
	},
}

// GetTimeoutContext returns a context with the flag-specified timeout.
func GetTimeoutContext(ctx *cli.Context) (context.Context, func()) {
	timeout := ctx.Duration("timeout")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// GetConfig resolves the client configuration from the RPC flag set.
func GetConfig(ctx *cli.Context) (config.Config, error) {
	var opts []config.Option
	if ctx.Bool("testnet") {
		opts = append(opts, config.WithTestnet())
	}
	if u := ctx.String("rpc-user"); u != "" {
		opts = append(opts, config.WithCredentials(u, ctx.String("rpc-password")))
	}
	return config.Resolve(ctx.String("datadir"), opts...)
}

// GetRPCClient returns an RPC client instance for the given flags.
func GetRPCClient(gctx context.Context, ctx *cli.Context) (*rpcclient.Client, error) {
	cfg, err := GetConfig(ctx)
	if err != nil {
		return nil, err
	}
	if ep := ctx.String(RPCEndpointFlag); ep != "" {
		return rpcclient.New(gctx, ep, rpcclient.Options{
			User:     cfg.User,
			Password: cfg.Password,
		})
	}
	return rpcclient.NewFromConfig(gctx, cfg, rpcclient.Options{})
}
