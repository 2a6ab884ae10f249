package watch

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/evr-dev/evr-go/cli/options"
	"github.com/evr-dev/evr-go/pkg/notify"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// NewCommands returns 'watch' command.
func NewCommands() []cli.Command {
	flags := append([]cli.Flag{
		cli.StringFlag{
			Name:  "zmq-endpoint, z",
			Usage: "Node notification publisher address (defaults to the resolved node configuration)",
		},
		cli.BoolFlag{
			Name:  "websocket, w",
			Usage: "Treat the endpoint as a websocket bridge instead of ZMQ",
		},
	}, options.RPC...)
	return []cli.Command{{
		Name:      "watch",
		Usage:     "stream node notifications to stdout",
		ArgsUsage: "[topic...]",
		Action:    run,
		Flags:     flags,
	}}
}

func run(ctx *cli.Context) error {
	cfg, err := options.GetConfig(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	endpoint := ctx.String("zmq-endpoint")
	if endpoint == "" {
		endpoint = cfg.ZMQEndpoint
	}

	topics := notify.DefaultTopics()
	if args := ctx.Args(); len(args) > 0 {
		topics = topics[:0]
		for _, a := range args {
			topics = append(topics, notify.Topic(a))
		}
	}

	log, err := zap.NewProduction()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer log.Sync()

	var transport notify.Transport
	if ctx.Bool("websocket") {
		transport = notify.NewWSTransport(endpoint)
	} else {
		transport = notify.NewZMQTransport(endpoint)
	}
	c := notify.New(transport, notify.WithLogger(log), notify.WithTopics(topics...))
	for _, tp := range topics {
		tp := tp
		c.On(tp, func(n notify.Notification) {
			fmt.Fprintf(ctx.App.Writer, "%s %s #%d %s\n",
				n.Received.Format("15:04:05.000"), tp, n.Sequence, n.Hex())
		})
	}
	if err := c.Start(); err != nil {
		return cli.NewExitError(err, 1)
	}
	defer c.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
