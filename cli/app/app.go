package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/evr-dev/evr-go/cli/query"
	"github.com/evr-dev/evr-go/cli/watch"
	"github.com/urfave/cli"
)

// Version is set at build time.
var Version = "dev"

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "evr-go\nVersion: %s\nGoVersion: %s\n",
		Version,
		runtime.Version(),
	)
}

// New creates an evr-go instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "evr-go"
	ctl.Version = Version
	ctl.Usage = "Evrmore node client"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, query.NewCommands()...)
	ctl.Commands = append(ctl.Commands, watch.NewCommands()...)
	return ctl
}
