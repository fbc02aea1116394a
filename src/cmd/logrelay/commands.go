// FILE: logrelay/src/cmd/logrelay/commands.go
package main

import (
	"fmt"
	"os"

	"logrelay/src/internal/config"
	"logrelay/src/internal/version"
)

// CommandRouter handles subcommands before the relay starts
type CommandRouter struct {
	commands map[string]CommandHandler
}

type CommandHandler interface {
	Execute(args []string) error
	Description() string
}

func NewCommandRouter() *CommandRouter {
	router := &CommandRouter{
		commands: make(map[string]CommandHandler),
	}

	router.commands["version"] = &versionCommand{}
	router.commands["help"] = &helpCommand{}
	router.commands["init-config"] = &initConfigCommand{}

	return router
}

// Route runs a subcommand and exits, or returns when args hold none
func (r *CommandRouter) Route(args []string) {
	if len(args) < 2 {
		return
	}

	for _, arg := range args[1:] {
		if arg == "-h" || arg == "--help" {
			r.commands["help"].Execute(nil)
			os.Exit(0)
		}
		if arg == "-v" || arg == "--version" {
			r.commands["version"].Execute(nil)
			os.Exit(0)
		}
	}

	cmdName := args[1]
	if handler, exists := r.commands[cmdName]; exists {
		if err := handler.Execute(args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Anything else that is not a flag is a mistyped command
	if cmdName[0] != '-' {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmdName)
		fmt.Fprintln(os.Stderr, "\nAvailable commands:")
		r.ShowCommands()
		os.Exit(1)
	}
}

func (r *CommandRouter) ShowCommands() {
	for _, name := range []string{"init-config", "version", "help"} {
		fmt.Fprintf(os.Stderr, "  %-12s %s\n", name, r.commands[name].Description())
	}
}

type helpCommand struct{}

func (c *helpCommand) Execute(args []string) error {
	fmt.Print(helpText)
	return nil
}

func (c *helpCommand) Description() string {
	return "Display help information"
}

type versionCommand struct{}

func (c *versionCommand) Execute(args []string) error {
	fmt.Println(version.String())
	return nil
}

func (c *versionCommand) Description() string {
	return "Show version information"
}

// initConfigCommand writes the built-in defaults as a starting config.toml
type initConfigCommand struct{}

func (c *initConfigCommand) Execute(args []string) error {
	path := config.DefaultConfigFile
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	if err := config.Defaults().SaveToFile(path); err != nil {
		return err
	}
	Print("Wrote default configuration to %s\n", path)
	Print("Set relay_output_url before starting the relay\n")
	return nil
}

func (c *initConfigCommand) Description() string {
	return "Write a default configuration file"
}
