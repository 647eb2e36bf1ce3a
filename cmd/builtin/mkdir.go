package builtin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mwantia/lvfs/cmd"
	"github.com/spf13/pflag"
)

type MkdirCommand struct {
}

func (m *MkdirCommand) Name() string {
	return "mkdir"
}

func (m *MkdirCommand) Description() string {
	return "create directory records"
}

func (m *MkdirCommand) Usage() string {
	return "mkdir [-p] <path>..."
}

func (m *MkdirCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) == 0 {
		return cmd.ExitUsage, fmt.Errorf("usage: %s", m.Usage())
	}

	parents, _ := args.Flags.GetBool("parents")
	verbose, _ := args.Flags.GetBool("verbose")

	for _, path := range args.Args {
		targets := []string{path}
		if parents {
			targets = ancestors(path)
		}

		for _, target := range targets {
			meta, err := api.Mkdir(ctx, target)
			if err != nil {
				return cmd.ExitError, err
			}
			if !meta.IsDir {
				fmt.Fprintf(writer, "mkdir: '%s' exists and is a file\n", target)
				continue
			}
			if verbose {
				fmt.Fprintf(writer, "mkdir: '%s'\n", target)
			}
		}
	}

	return cmd.ExitOK, nil
}

func (m *MkdirCommand) GetFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet(m.Name(), pflag.ContinueOnError)
	flags.BoolP("parents", "p", false, "create every missing ancestor as well")
	flags.BoolP("verbose", "v", false, "print each directory")
	return flags
}

// ancestors returns every prefix directory of path, path included,
// starting closest to the root: "/a/b" yields "/a" and "/a/b".
func ancestors(path string) []string {
	path = strings.TrimRight(path, "/")

	var result []string
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			result = append(result, path[:i])
		}
	}

	if path != "" {
		result = append(result, path)
	}
	return result
}
