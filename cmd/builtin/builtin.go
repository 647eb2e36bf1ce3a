// Package builtin contains the commands shipped with the lvfs binary.
package builtin

import "github.com/mwantia/lvfs/cmd"

// Commands returns a new instance of every builtin command.
func Commands() []cmd.Command {
	return []cmd.Command{
		&InfoCommand{},
		&StatCommand{},
		&LsCommand{},
		&MkdirCommand{},
		&PutCommand{},
		&GetCommand{},
	}
}
