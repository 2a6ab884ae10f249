package query

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/evr-dev/evr-go/cli/options"
	"github.com/urfave/cli"
)

// NewCommands returns 'query' command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:  "query",
		Usage: "query node data via RPC",
		Subcommands: []cli.Command{
			{
				Name:   "height",
				Usage:  "query the current chain height",
				Action: queryHeight,
				Flags:  options.RPC,
			},
			{
				Name:      "call",
				Usage:     "invoke an arbitrary RPC method with positional parameters",
				ArgsUsage: "<method> [param...]",
				Action:    queryCall,
				Flags:     options.RPC,
			},
		},
	}}
}

func queryHeight(ctx *cli.Context) error {
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, err := options.GetRPCClient(gctx, ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer c.Close()

	count, err := c.GetBlockCount(gctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, count)
	return nil
}

func queryCall(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) == 0 {
		return cli.NewExitError("RPC method name is missing", 1)
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, err := options.GetRPCClient(gctx, ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer c.Close()

	raw, err := c.Call(gctx, args[0], parseParams(args[1:])...).Await(gctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return cli.NewExitError(err, 1)
	}
	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, string(pretty))
	return nil
}

// parseParams maps CLI arguments onto JSON parameter types: numbers and
// booleans are passed as such, everything else stays a string.
func parseParams(args []string) []any {
	params := make([]any, 0, len(args))
	for _, a := range args {
		switch {
		case a == "true":
			params = append(params, true)
		case a == "false":
			params = append(params, false)
		default:
			if n, err := strconv.ParseInt(a, 10, 64); err == nil {
				params = append(params, n)
				continue
			}
			params = append(params, a)
		}
	}
	return params
}
