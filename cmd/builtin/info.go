package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/lvfs/backend"
	"github.com/mwantia/lvfs/cmd"
	"github.com/mwantia/lvfs/data"
	"github.com/spf13/pflag"
)

type InfoCommand struct {
}

func (i *InfoCommand) Name() string {
	return "info"
}

func (i *InfoCommand) Description() string {
	return "show backend details and record counts"
}

func (i *InfoCommand) Usage() string {
	return "info"
}

func (i *InfoCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	storage := api.Backend()
	caps := storage.GetCapabilities()

	fmt.Fprintf(writer, "Backend:      %s\n", storage.Name())
	fmt.Fprintf(writer, "Schema:       %d\n", backend.SchemaVersion)
	fmt.Fprintf(writer, "Capabilities: %v\n", caps.Capabilities)
	if caps.MaxRecordSize > 0 {
		fmt.Fprintf(writer, "Record limit: %s\n", humanize.IBytes(uint64(caps.MaxRecordSize)))
	}
	fmt.Fprintf(writer, "Chunk size:   %s\n", humanize.IBytes(data.ChunkSize))

	var files, dirs, size int64
	err := storage.ScanAll(ctx, backend.TableMeta, func(key backend.Key, value []byte) error {
		meta, err := data.DecodeMeta(value)
		if err != nil {
			return err
		}

		if meta.IsDir {
			dirs++
		} else {
			files++
			size += meta.Size
		}
		return nil
	})
	if err != nil {
		return cmd.ExitError, data.NewStorageError("info", backend.TableMeta.String(), "", err)
	}

	var chunks, stored int64
	err = storage.ScanAll(ctx, backend.TableData, func(key backend.Key, value []byte) error {
		chunks++
		stored += int64(len(value))
		return nil
	})
	if err != nil {
		return cmd.ExitError, data.NewStorageError("info", backend.TableData.String(), "", err)
	}

	fmt.Fprintf(writer, "Directories:  %s\n", humanize.Comma(dirs))
	fmt.Fprintf(writer, "Files:        %s (%s)\n", humanize.Comma(files), humanize.IBytes(uint64(size)))
	fmt.Fprintf(writer, "Chunks:       %s (%s stored)\n", humanize.Comma(chunks), humanize.IBytes(uint64(stored)))

	return cmd.ExitOK, nil
}

func (i *InfoCommand) GetFlags() *pflag.FlagSet {
	return nil
}
