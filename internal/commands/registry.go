// Package commands parses bot-directed chat messages and dispatches them to
// named handlers.
package commands

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// ErrNoSuchThing makes the processor answer with the command's help.
var ErrNoSuchThing = errors.New("no such thing")

// Request is one parsed invocation.
type Request struct {
	Sender string
	Args   []string
	Direct bool
}

// Handler runs a command. Empty output is acknowledged generically.
type Handler func(ctx context.Context, req Request) ([]string, error)

// Command is a named handler plus its help text.
type Command struct {
	Name        string
	Usage       string
	Summary     string
	Subcommands []string
	// Private commands always reply by direct message.
	Private bool
	Run     Handler
}

// Registry is the fixed command table, built once at startup.
type Registry struct {
	prefix string
	cmds   map[string]Command
}

// NewRegistry builds the table; "help" is always present.
func NewRegistry(prefix string, cmds ...Command) *Registry {
	r := &Registry{prefix: prefix, cmds: make(map[string]Command, len(cmds)+1)}
	for _, c := range cmds {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || c.Run == nil {
			continue
		}
		c.Name = name
		r.cmds[name] = c
	}
	r.cmds["help"] = Command{
		Name:    "help",
		Usage:   "help [command]",
		Summary: "list commands, or show usage for one",
		Private: true,
		Run:     r.runHelp,
	}
	return r
}

// Lookup finds a command by case-insensitive name.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.cmds[strings.ToLower(name)]
	return c, ok
}

// Names returns the sorted command names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.cmds))
	for n := range r.cmds {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Help returns the usage lines for one command.
func (r *Registry) Help(name string) []string {
	c, ok := r.Lookup(name)
	if !ok {
		return []string{"no such command: " + name}
	}
	lines := []string{"usage: " + r.prefix + " " + c.Usage + " :: " + c.Summary}
	if len(c.Subcommands) > 0 {
		lines = append(lines, "subcommands: "+strings.Join(c.Subcommands, ", "))
	}
	if c.Private {
		lines = append(lines, "replies by direct message")
	}
	return lines
}

func (r *Registry) runHelp(_ context.Context, req Request) ([]string, error) {
	if len(req.Args) > 0 {
		return r.Help(req.Args[0]), nil
	}
	lines := []string{"commands: " + strings.Join(r.Names(), ", ")}
	for _, n := range r.Names() {
		c := r.cmds[n]
		lines = append(lines, r.prefix+" "+c.Usage+" :: "+c.Summary)
	}
	return lines, nil
}
