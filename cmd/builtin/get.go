package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mwantia/lvfs/cmd"
	"github.com/spf13/pflag"
)

type GetCommand struct {
	// Create opens the local target file (default: os.Create)
	Create func(name string) (io.WriteCloser, error)
}

func (g *GetCommand) Name() string {
	return "get"
}

func (g *GetCommand) Description() string {
	return "write the content of a file to a local file or standard output"
}

func (g *GetCommand) Usage() string {
	return "get <path> [local]"
}

func (g *GetCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) < 1 || len(args.Args) > 2 {
		return cmd.ExitUsage, fmt.Errorf("usage: %s", g.Usage())
	}

	source := args.Args[0]

	// Missing paths and empty files both read as zero chunks
	meta, ok, err := api.Stat(ctx, source)
	if err != nil {
		return cmd.ExitError, err
	}
	if !ok {
		return cmd.ExitError, fmt.Errorf("get '%s': no such file", source)
	}
	if meta.IsDir {
		return cmd.ExitError, fmt.Errorf("get '%s': is a directory", source)
	}

	local := args.Arg(1, "-")
	if local == "-" {
		if err := g.copy(ctx, api, source, meta.Size, writer); err != nil {
			return cmd.ExitError, err
		}
		return cmd.ExitOK, nil
	}

	create := g.Create
	if create == nil {
		create = func(name string) (io.WriteCloser, error) {
			return os.Create(name)
		}
	}

	f, err := create(local)
	if err != nil {
		return cmd.ExitError, err
	}

	// A failed close may lose buffered content
	if err := errors.Join(g.copy(ctx, api, source, meta.Size, f), f.Close()); err != nil {
		return cmd.ExitError, err
	}

	return cmd.ExitOK, nil
}

func (g *GetCommand) copy(ctx context.Context, api cmd.API, source string, size int64, out io.Writer) error {
	var written int64
	err := api.ReadFile(ctx, source, func(chunk []byte, index, total int) error {
		n, err := out.Write(chunk)
		written += int64(n)
		return err
	})
	if err != nil {
		return err
	}

	if written != size {
		return fmt.Errorf("get '%s': read %d of %d bytes", source, written, size)
	}

	return nil
}

func (g *GetCommand) GetFlags() *pflag.FlagSet {
	return nil
}
