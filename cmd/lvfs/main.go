// lvfs is a command line client for file systems stored in any of the
// supported backends.
//
//	lvfs [--config lvfs.yaml] <command> [flags] [args]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mwantia/lvfs/cmd"
	"github.com/mwantia/lvfs/cmd/builtin"
	"github.com/mwantia/lvfs/config"
	"github.com/mwantia/lvfs/log"
	"github.com/spf13/pflag"
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var configFile string
	var backendType string
	var logLevel string
	var printConfig bool

	flagSet := pflag.NewFlagSet("lvfs", pflag.ContinueOnError)
	flagSet.StringVarP(&configFile, "config", "c", os.Getenv(config.EnvConfigFile), "path to the YAML configuration (env "+config.EnvConfigFile+")")
	flagSet.StringVar(&backendType, "backend", "", "override backend.type from the configuration")
	flagSet.StringVar(&logLevel, "log-level", "", "override log.level from the configuration")
	flagSet.BoolVar(&printConfig, "print-config", false, "print the effective configuration and exit")
	flagSet.BoolP("help", "h", false, "show help")
	// Everything after the command name belongs to the command
	flagSet.SetInterspersed(false)

	registry, err := cmd.NewRegistry(builtin.Commands()...)
	if err != nil {
		return cmd.ExitError, err
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet, registry)
			return cmd.ExitOK, nil
		}
		return cmd.ExitUsage, err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet, registry)
		return cmd.ExitOK, nil
	}

	cfg := config.Default()
	if configFile != "" {
		if cfg, err = config.Load(configFile); err != nil {
			return cmd.ExitError, err
		}
	}
	if backendType != "" {
		cfg.Backend.Type = backendType
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cmd.ExitUsage, err
	}

	if printConfig {
		raw, err := cfg.Marshal()
		if err != nil {
			return cmd.ExitError, err
		}
		os.Stdout.Write(raw)
		return cmd.ExitOK, nil
	}

	if flagSet.NArg() == 0 {
		printHelp(flagSet, registry)
		return cmd.ExitUsage, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Keep stdout clean for command output
	var logger *log.Logger
	if cfg.Log.File != "" {
		cfg.Log.NoTerminal = true
		logger = cfg.NewLogger("lvfs")
	} else {
		level, _ := log.Parse(cfg.Log.Level)
		logger = log.NewWriterLogger("lvfs", level, os.Stderr)
		logger.JSON = cfg.Log.JSON
	}

	fs, err := cfg.Open(ctx, logger)
	if err != nil {
		return cmd.ExitError, err
	}
	defer fs.Close(context.Background())

	return registry.Execute(ctx, fs, os.Stdout, flagSet.Args()...)
}

func printHelp(flagSet *pflag.FlagSet, registry *cmd.Registry) {
	fmt.Fprintf(os.Stderr, "Usage: lvfs [flags] <command> [args]\n\nCommands:\n")
	registry.PrintUsage(os.Stderr)
	fmt.Fprintf(os.Stderr, "\nFlags:\n%s", flagSet.FlagUsages())
}
