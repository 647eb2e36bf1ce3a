package builtin

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/lvfs/cmd"
	"github.com/spf13/pflag"
)

type LsCommand struct {
}

// Name returns the command identifier
func (ls *LsCommand) Name() string {
	return "ls"
}

// Description returns human-readable help text
func (ls *LsCommand) Description() string {
	return "list the direct children of a directory"
}

// Usage returns a usage string for help (e.g. "ls -al [path]")
func (ls *LsCommand) Usage() string {
	return "ls [-l] [path]"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (ls *LsCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	long, _ := args.Flags.GetBool("long")
	raw, _ := args.Flags.GetBool("bytes")

	children, err := api.ListDir(ctx, args.Arg(0, "/"))
	if err != nil {
		return cmd.ExitError, err
	}

	for _, child := range children {
		name := path.Base(child.Path)
		if child.IsDir {
			name += "/"
		}

		if !long {
			fmt.Fprintln(writer, name)
			continue
		}

		size := humanize.IBytes(uint64(child.Size))
		if raw {
			size = fmt.Sprintf("%d", child.Size)
		}

		fmt.Fprintf(writer, "%s %10s  %s  %s\n", mode(child.IsDir, child.ReadOnly), size,
			child.ModTime.Local().Format("2006-01-02 15:04"), name)
	}

	return cmd.ExitOK, nil
}

// GetFlags returns the flag set for this command (this is optional)
func (ls *LsCommand) GetFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet(ls.Name(), pflag.ContinueOnError)
	flags.BoolP("long", "l", false, "show type, size and modification time")
	flags.BoolP("bytes", "b", false, "show sizes in bytes")
	return flags
}

func mode(isDir, readOnly bool) string {
	m := []byte("-rw")
	if isDir {
		m[0] = 'd'
	}
	if readOnly {
		m[2] = '-'
	}
	return string(m)
}
