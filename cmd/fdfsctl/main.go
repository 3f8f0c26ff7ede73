// fdfsctl is a command-line driver for the client library: uploads,
// downloads, appender operations, metadata, and cluster listing.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"fdfs"
	"fdfs/config"
	"fdfs/types"
)

var (
	okf   = color.New(color.FgGreen).FprintfFunc()
	errf  = color.New(color.FgRed).FprintfFunc()
	boldf = color.New(color.Bold).FprintfFunc()
)

var commands []*cli.Command

// register hooks a subcommand in from its file's init.
func register(cmd *cli.Command) {
	commands = append(commands, cmd)
}

// newClient builds the client from --conf, or from --tracker flags
// when given.
func newClient(ctx *cli.Context) (*fdfs.Client, error) {
	if trackers := ctx.StringSlice("tracker"); len(trackers) > 0 {
		cfg := &config.Config{
			ConnectTimeout: time.Duration(ctx.Int("timeout")) * time.Second,
			NetworkTimeout: time.Duration(ctx.Int("timeout")) * time.Second,
		}
		for _, t := range trackers {
			ep, err := types.ParseEndpoint(t)
			if err != nil {
				return nil, err
			}
			cfg.TrackerServers = append(cfg.TrackerServers, ep)
		}
		return fdfs.New(cfg)
	}
	return fdfs.NewFromFile(ctx.String("conf"))
}

func main() {
	app := &cli.App{
		Name:  "fdfsctl",
		Usage: "talk to a FastDFS-style tracker/storage cluster",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "conf",
				Aliases: []string{"c"},
				Usage:   "client.conf path",
				Value:   "/etc/fdfs/client.conf",
				EnvVars: []string{"FDFS_CLIENT_CONF"},
			},
			&cli.StringSliceFlag{
				Name:    "tracker",
				Aliases: []string{"t"},
				Usage:   "tracker endpoint host:port, repeatable; overrides --conf",
				EnvVars: []string{"FDFS_TRACKERS"},
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "connect/network timeout in seconds with --tracker",
				Value: 30,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "debug logging",
			},
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("verbose") {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
		Commands: commands,
	}
	if err := app.Run(os.Args); err != nil {
		errf(os.Stderr, "fdfsctl: %v\n", err)
		if code := types.ResponseCode(err); code > 0 {
			fmt.Fprintf(os.Stderr, "server status code: %d\n", code)
		}
		os.Exit(1)
	}
}
