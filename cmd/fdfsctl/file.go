package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"fdfs"
	"fdfs/types"
)

func init() {
	register(uploadCmd)
	register(downloadCmd)
	register(deleteCmd)
	register(appendCmd)
	register(modifyCmd)
	register(truncateCmd)
	register(metaCmd)
}

// parseMeta turns repeated k=v flags into a metadata map.
func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, types.NewDataError("metadata flag %q is not key=value", p)
		}
		meta[k] = v
	}
	return meta, nil
}

var uploadCmd = &cli.Command{
	Name:      "upload",
	Usage:     "upload a local file (or a slave next to an existing master)",
	ArgsUsage: "<local-file>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "appender", Usage: "create an appender file"},
		&cli.StringFlag{Name: "master", Usage: "master file id for a slave upload"},
		&cli.StringFlag{Name: "prefix", Usage: "slave filename prefix"},
		&cli.StringSliceFlag{Name: "meta", Aliases: []string{"M"}, Usage: "metadata key=value, repeatable"},
	},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.Exit("upload needs exactly one local file", 2)
		}
		meta, err := parseMeta(ctx.StringSlice("meta"))
		if err != nil {
			return err
		}
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		local := ctx.Args().First()
		var res *types.UploadResult
		switch {
		case ctx.String("master") != "":
			res, err = c.UploadSlaveByFilename(local, ctx.String("master"), ctx.String("prefix"), meta)
		case ctx.Bool("appender"):
			res, err = c.UploadAppenderByFilename(local, meta)
		default:
			res, err = c.UploadByFilename(local, meta)
		}
		if err != nil {
			return err
		}
		okf(ctx.App.Writer, "uploaded %s (%d bytes) via %s\n", local, res.FileSize, res.StorageIP)
		boldf(ctx.App.Writer, "%s\n", res.RemoteFileID())
		return nil
	},
}

var downloadCmd = &cli.Command{
	Name:      "download",
	Usage:     "download a file, whole or a byte range",
	ArgsUsage: "<file-id>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "local output path (default: basename of the remote file)"},
		&cli.Int64Flag{Name: "offset", Usage: "range start"},
		&cli.Int64Flag{Name: "length", Usage: "range length, 0 means to the end"},
	},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.Exit("download needs exactly one file id", 2)
		}
		fileID := ctx.Args().First()
		out := ctx.String("out")
		if out == "" {
			id, err := types.SplitRemoteFileID(fileID)
			if err != nil {
				return err
			}
			parts := strings.Split(id.Filename, "/")
			out = parts[len(parts)-1]
		}
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		res, err := c.DownloadToFile(out, fileID, ctx.Int64("offset"), ctx.Int64("length"))
		if err != nil {
			return err
		}
		okf(ctx.App.Writer, "downloaded %d bytes from %s to %s\n", res.DownloadSize, res.StorageIP, out)
		return nil
	},
}

var deleteCmd = &cli.Command{
	Name:      "delete",
	Usage:     "delete a remote file",
	ArgsUsage: "<file-id>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.Exit("delete needs exactly one file id", 2)
		}
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		res, err := c.DeleteFile(ctx.Args().First())
		if err != nil {
			return err
		}
		okf(ctx.App.Writer, "deleted %s (server %s)\n", res.RemoteFileID, res.StorageIP)
		return nil
	},
}

var appendCmd = &cli.Command{
	Name:      "append",
	Usage:     "append a local file to a remote appender file",
	ArgsUsage: "<appender-file-id> <local-file>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return cli.Exit("append needs a file id and a local file", 2)
		}
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		res, err := c.AppendByFilename(ctx.Args().Get(1), ctx.Args().Get(0))
		if err != nil {
			return err
		}
		okf(ctx.App.Writer, "appended to %s (server %s)\n", res.RemoteFileID, res.StorageIP)
		return nil
	},
}

var modifyCmd = &cli.Command{
	Name:      "modify",
	Usage:     "overwrite a byte range of a remote appender file",
	ArgsUsage: "<appender-file-id> <local-file>",
	Flags: []cli.Flag{
		&cli.Int64Flag{Name: "offset", Usage: "range start", Required: true},
	},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return cli.Exit("modify needs a file id and a local file", 2)
		}
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		res, err := c.ModifyByFilename(ctx.Args().Get(1), ctx.Args().Get(0), ctx.Int64("offset"))
		if err != nil {
			return err
		}
		okf(ctx.App.Writer, "modified %s at offset %d (server %s)\n", res.RemoteFileID, ctx.Int64("offset"), res.StorageIP)
		return nil
	},
}

var truncateCmd = &cli.Command{
	Name:      "truncate",
	Usage:     "truncate a remote appender file",
	ArgsUsage: "<appender-file-id> <size>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return cli.Exit("truncate needs a file id and a size", 2)
		}
		size, err := strconv.ParseInt(ctx.Args().Get(1), 10, 64)
		if err != nil || size < 0 {
			return cli.Exit("size must be a non-negative integer", 2)
		}
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		defer c.Close()
		res, err := c.TruncateFile(size, ctx.Args().Get(0))
		if err != nil {
			return err
		}
		okf(ctx.App.Writer, "truncated %s to %d bytes (server %s)\n", res.RemoteFileID, size, res.StorageIP)
		return nil
	},
}

var metaCmd = &cli.Command{
	Name:  "meta",
	Usage: "get or set file metadata",
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			ArgsUsage: "<file-id>",
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() != 1 {
					return cli.Exit("meta get needs exactly one file id", 2)
				}
				c, err := newClient(ctx)
				if err != nil {
					return err
				}
				defer c.Close()
				meta, err := c.GetMetadata(ctx.Args().First())
				if err != nil {
					return err
				}
				for k, v := range meta {
					boldf(os.Stdout, "%s", k)
					okf(os.Stdout, "=%s\n", v)
				}
				return nil
			},
		},
		{
			Name:      "set",
			ArgsUsage: "<file-id> key=value...",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "merge", Usage: "merge with existing keys instead of overwriting"},
			},
			Action: func(ctx *cli.Context) error {
				if ctx.NArg() < 2 {
					return cli.Exit("meta set needs a file id and at least one key=value", 2)
				}
				meta, err := parseMeta(ctx.Args().Slice()[1:])
				if err != nil {
					return err
				}
				flag := byte(fdfs.MetadataOverwrite)
				if ctx.Bool("merge") {
					flag = fdfs.MetadataMerge
				}
				c, err := newClient(ctx)
				if err != nil {
					return err
				}
				defer c.Close()
				res, err := c.SetMetadata(ctx.Args().First(), meta, flag)
				if err != nil {
					return err
				}
				okf(ctx.App.Writer, "metadata set on %s (server %s)\n", res.RemoteFileID, res.StorageIP)
				return nil
			},
		},
	},
}
