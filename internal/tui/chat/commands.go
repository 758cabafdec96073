package chat

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Command represents a slash command.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
}

// RequiresArg reports whether the usage string has a <required> argument.
func (c *Command) RequiresArg() bool {
	return strings.Contains(c.Usage, "<") && strings.Contains(c.Usage, ">")
}

// CommandRegistry manages slash commands.
type CommandRegistry struct {
	commands map[string]*Command
	aliases  map[string]string
	names    []string
}

// NewCommandRegistry creates a registry with the chat commands.
func NewCommandRegistry() *CommandRegistry {
	r := &CommandRegistry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}

	r.Register(&Command{
		Name:        "help",
		Aliases:     []string{"h", "?"},
		Description: "Show available commands",
		Usage:       "/help [command]",
	})
	r.Register(&Command{
		Name:        "sample",
		Aliases:     []string{"s"},
		Description: "Put sample query N into the input (or alt+N)",
		Usage:       "/sample <n>",
	})
	r.Register(&Command{
		Name:        "copy",
		Aliases:     []string{"cp", "y"},
		Description: "Copy the last answer to the clipboard",
		Usage:       "/copy",
	})
	r.Register(&Command{
		Name:        "export",
		Aliases:     []string{"save"},
		Description: "Write the conversation to a markdown file",
		Usage:       "/export <path>",
	})
	r.Register(&Command{
		Name:        "clear",
		Aliases:     []string{"cls"},
		Description: "Clear conversation history",
		Usage:       "/clear",
	})
	r.Register(&Command{
		Name:        "quit",
		Aliases:     []string{"q", "exit"},
		Description: "Exit chat mode",
		Usage:       "/quit",
	})

	return r
}

// Register adds a command to the registry.
func (r *CommandRegistry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	r.names = append(r.names, cmd.Name)
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd.Name
	}
}

// Parse splits "/name args..." into its command and arguments.
func (r *CommandRegistry) Parse(input string) (*Command, []string, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil, nil, false
	}
	parts := strings.Fields(input[1:])
	if len(parts) == 0 {
		return nil, nil, false
	}
	cmd := r.Get(strings.ToLower(parts[0]))
	if cmd == nil {
		return nil, nil, false
	}
	return cmd, parts[1:], true
}

// Suggest returns command names fuzzily matching partial input.
func (r *CommandRegistry) Suggest(partial string) []string {
	partial = strings.ToLower(strings.TrimPrefix(partial, "/"))
	if partial == "" {
		out := append([]string(nil), r.names...)
		sort.Strings(out)
		return out
	}

	all := make([]string, 0, len(r.names)+len(r.aliases))
	all = append(all, r.names...)
	for alias := range r.aliases {
		all = append(all, alias)
	}

	seen := make(map[string]bool)
	var out []string
	for _, match := range fuzzy.Find(partial, all) {
		name := match.Str
		if target, ok := r.aliases[name]; ok {
			name = target
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Get returns a command by name or alias.
func (r *CommandRegistry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if target, ok := r.aliases[name]; ok {
		return r.commands[target]
	}
	return nil
}

// Help returns help for one command, or for all when name is empty.
func (r *CommandRegistry) Help(name string) string {
	if name != "" {
		cmd := r.Get(strings.TrimPrefix(name, "/"))
		if cmd == nil {
			return "Unknown command: " + name
		}
		return formatCommandHelp(cmd)
	}

	names := append([]string(nil), r.names...)
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Available commands:\n\n")
	for _, n := range names {
		cmd := r.commands[n]
		sb.WriteString("  ")
		sb.WriteString(cmd.Usage)
		sb.WriteString(" - ")
		sb.WriteString(cmd.Description)
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatCommandHelp(cmd *Command) string {
	var sb strings.Builder
	sb.WriteString(cmd.Usage)
	if len(cmd.Aliases) > 0 {
		sb.WriteString(" (aliases: ")
		sb.WriteString(strings.Join(cmd.Aliases, ", "))
		sb.WriteString(")")
	}
	sb.WriteString("\n")
	sb.WriteString(cmd.Description)
	return sb.String()
}
