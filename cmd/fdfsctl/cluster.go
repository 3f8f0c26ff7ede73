package main

import (
	"fmt"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/urfave/cli/v2"

	"fdfs/types"
)

func init() {
	register(groupsCmd)
	register(serversCmd)
	register(pingCmd)
}

func mb(n uint64) string {
	return (datasize.ByteSize(n) * datasize.MB).HumanReadable()
}

func printGroup(ctx *cli.Context, g *types.GroupStat) {
	boldf(ctx.App.Writer, "%s\n", g.GroupName)
	fmt.Fprintf(ctx.App.Writer, "  capacity: %s free of %s (trunk free %s)\n",
		mb(g.FreeMB), mb(g.TotalMB), mb(g.TrunkFreeMB))
	fmt.Fprintf(ctx.App.Writer, "  servers:  %d (%d active), storage port %d\n",
		g.ServerCount, g.ActiveCount, g.StoragePort)
	fmt.Fprintf(ctx.App.Writer, "  paths:    %d store paths, %d subdirs each\n",
		g.StorePathCount, g.SubdirCountPerPath)
}

var groupsCmd = &cli.Command{
	Name:      "groups",
	Usage:     "list all groups, or one group's detail",
	ArgsUsage: "[group]",
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		if ctx.NArg() == 1 {
			g, err := c.ListOneGroup(ctx.Args().First())
			if err != nil {
				return err
			}
			printGroup(ctx, g)
			return nil
		}
		groups, err := c.ListAllGroups()
		if err != nil {
			return err
		}
		for i := range groups {
			printGroup(ctx, &groups[i])
		}
		return nil
	},
}

var serversCmd = &cli.Command{
	Name:      "servers",
	Usage:     "list the storage servers of a group",
	ArgsUsage: "<group> [storage-ip]",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() < 1 {
			return cli.Exit("servers needs a group name", 2)
		}
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		stats, err := c.ListServers(ctx.Args().Get(0), ctx.Args().Get(1))
		if err != nil {
			return err
		}
		for i := range stats {
			s := &stats[i]
			boldf(ctx.App.Writer, "%s:%d\n", s.IPAddr, s.StoragePort)
			fmt.Fprintf(ctx.App.Writer, "  version %s, status %d, src %s\n", s.Version, s.Status, s.SrcIPAddr)
			fmt.Fprintf(ctx.App.Writer, "  capacity: %s free of %s\n", mb(s.FreeMB), mb(s.TotalMB))
			fmt.Fprintf(ctx.App.Writer, "  uploads: %d/%d ok, downloads: %d/%d ok, deletes: %d/%d ok\n",
				s.SuccessUploadCount, s.TotalUploadCount,
				s.SuccessDownloadCount, s.TotalDownloadCount,
				s.SuccessDeleteCount, s.TotalDeleteCount)
		}
		return nil
	},
}

var pingCmd = &cli.Command{
	Name:  "ping",
	Usage: "check that a tracker answers the active-test command",
	Action: func(ctx *cli.Context) error {
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		start := time.Now()
		if err := c.ActiveTest(); err != nil {
			return err
		}
		okf(ctx.App.Writer, "tracker alive (%v)\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}
