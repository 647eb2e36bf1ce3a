package builtin

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/lvfs/cmd"
	"github.com/spf13/pflag"
)

type PutCommand struct {
	// Stdin is read when the local path is "-"
	Stdin io.Reader
}

func (p *PutCommand) Name() string {
	return "put"
}

func (p *PutCommand) Description() string {
	return "store a local file, '-' reads standard input"
}

func (p *PutCommand) Usage() string {
	return "put <local> <path>"
}

func (p *PutCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) != 2 {
		return cmd.ExitUsage, fmt.Errorf("usage: %s", p.Usage())
	}

	local, target := args.Args[0], args.Args[1]

	var r io.Reader
	if local == "-" {
		r = p.Stdin
		if r == nil {
			r = os.Stdin
		}
	} else {
		f, err := os.Open(local)
		if err != nil {
			return cmd.ExitError, err
		}
		defer f.Close()
		r = f
	}

	meta, err := api.WriteFile(ctx, target, r)
	if err != nil {
		return cmd.ExitError, err
	}

	if quiet, _ := args.Flags.GetBool("quiet"); !quiet {
		fmt.Fprintf(writer, "%s: stored %s\n", meta.Path, humanize.IBytes(uint64(meta.Size)))
	}
	return cmd.ExitOK, nil
}

func (p *PutCommand) GetFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet(p.Name(), pflag.ContinueOnError)
	flags.BoolP("quiet", "q", false, "do not print a summary")
	return flags
}
