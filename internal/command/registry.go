package command

import (
	"fmt"
	"sort"
)

// Registry holds the available commands by name.
type Registry struct {
	commands map[string]Command
	aliases  map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		aliases:  make(map[string]string),
	}
}

// Register adds cmd, replacing any command of the same name. Aliases resolve
// to cmd in Get but are not listed.
func (r *Registry) Register(cmd Command, aliases ...string) {
	r.commands[cmd.Name()] = cmd
	for _, a := range aliases {
		r.aliases[a] = cmd.Name()
	}
}

// Get returns the command registered under name or one of its aliases.
func (r *Registry) Get(name string) (Command, error) {
	if cmd, ok := r.commands[name]; ok {
		return cmd, nil
	}
	if target, ok := r.aliases[name]; ok {
		if cmd, ok := r.commands[target]; ok {
			return cmd, nil
		}
	}
	return nil, fmt.Errorf("command not found: %s", name)
}

// List returns the registered command names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
