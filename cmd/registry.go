package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// Registry maps command names to commands.
type Registry struct {
	mu   sync.RWMutex
	cmds map[string]Command
}

func NewRegistry(commands ...Command) (*Registry, error) {
	r := &Registry{
		cmds: make(map[string]Command),
	}

	for _, command := range commands {
		if err := r.Register(command); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Register adds command. Names must be unique.
func (r *Registry) Register(command Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := command.Name()
	if name == "" || strings.ContainsAny(name, " \t") {
		return fmt.Errorf("invalid command name '%s'", name)
	}
	if _, exists := r.cmds[name]; exists {
		return fmt.Errorf("command '%s' already registered", name)
	}

	r.cmds[name] = command
	return nil
}

func (r *Registry) Lookup(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	command, ok := r.cmds[name]
	return command, ok
}

// Commands returns every registered command sorted by name.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	commands := make([]Command, 0, len(r.cmds))
	for _, command := range r.cmds {
		commands = append(commands, command)
	}

	slices.SortFunc(commands, func(a, b Command) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return commands
}

// Execute runs the command named by args[0] with the remaining arguments,
// writing output to writer.
func (r *Registry) Execute(ctx context.Context, api API, writer io.Writer, args ...string) (int, error) {
	if len(args) == 0 {
		return ExitUsage, fmt.Errorf("no command given")
	}

	command, ok := r.Lookup(args[0])
	if !ok {
		return ExitUsage, fmt.Errorf("unknown command '%s'", args[0])
	}

	parsed, err := Parse(command, args[1:])
	if err != nil {
		return ExitUsage, err
	}

	return command.Execute(ctx, api, parsed, writer)
}

// PrintUsage writes a one-line summary of every command.
func (r *Registry) PrintUsage(writer io.Writer) {
	for _, command := range r.Commands() {
		fmt.Fprintf(writer, "  %-28s %s\n", command.Usage(), command.Description())
	}
}
