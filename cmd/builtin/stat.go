package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/lvfs/cmd"
	"github.com/mwantia/lvfs/data"
	"github.com/spf13/pflag"
)

type StatCommand struct {
}

func (s *StatCommand) Name() string {
	return "stat"
}

func (s *StatCommand) Description() string {
	return "show the metadata record of a path"
}

func (s *StatCommand) Usage() string {
	return "stat [--json] <path>"
}

func (s *StatCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) != 1 {
		return cmd.ExitUsage, fmt.Errorf("usage: %s", s.Usage())
	}

	meta, ok, err := api.Stat(ctx, args.Args[0])
	if err != nil {
		return cmd.ExitError, err
	}
	if !ok {
		return cmd.ExitError, fmt.Errorf("stat '%s': no such file or directory", args.Args[0])
	}

	if asJSON, _ := args.Flags.GetBool("json"); asJSON {
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		return cmd.ExitOK, encoder.Encode(meta)
	}

	printMeta(writer, meta)
	return cmd.ExitOK, nil
}

func (s *StatCommand) GetFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet(s.Name(), pflag.ContinueOnError)
	flags.Bool("json", false, "print the record as JSON")
	return flags
}

func printMeta(writer io.Writer, meta *data.FileMeta) {
	kind := "file"
	if meta.IsDir {
		kind = "directory"
	}

	fmt.Fprintf(writer, "  Path: %s\n", meta.Path)
	fmt.Fprintf(writer, "  Type: %s\n", kind)
	fmt.Fprintf(writer, "  Size: %s (%d bytes, %d chunks)\n",
		humanize.IBytes(uint64(meta.Size)), meta.Size, data.ChunkCount(meta.Size))
	fmt.Fprintf(writer, "Modify: %s (%s)\n", meta.ModTime.Local().Format(time.RFC3339), humanize.Time(meta.ModTime))
	fmt.Fprintf(writer, "  Mode: %s\n", mode(meta.IsDir, meta.ReadOnly))
	fmt.Fprintf(writer, "    ID: %s\n", meta.ID)
}
