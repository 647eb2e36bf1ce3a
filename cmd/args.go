package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Exit codes returned by commands
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// CommandArgs contains parsed command arguments
type CommandArgs struct {
	// Positional arguments (command-specific)
	Args []string

	// Parsed flags; never nil
	Flags *pflag.FlagSet

	// Raw unparsed arguments (for custom parsing)
	Raw []string
}

// Parse parses raw against the flags of command. Commands without flags
// receive an empty flag set, so every dash-prefixed argument is rejected.
func Parse(command Command, raw []string) (*CommandArgs, error) {
	flags := command.GetFlags()
	if flags == nil {
		flags = pflag.NewFlagSet(command.Name(), pflag.ContinueOnError)
	}

	if err := flags.Parse(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", command.Name(), err)
	}

	return &CommandArgs{
		Args:  flags.Args(),
		Flags: flags,
		Raw:   raw,
	}, nil
}

// Arg returns the positional argument at index or fallback if it is missing.
func (ca *CommandArgs) Arg(index int, fallback string) string {
	if index < len(ca.Args) {
		return ca.Args[index]
	}
	return fallback
}
