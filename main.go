package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/library/internal/cli"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entrypoint"
)

// Set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commands = []command{
	{"serve", "Start the HTTP server (default if no command given)", runServe},
	{"seed", "Populate the catalogue from a list of ISBNs", runSeed},
	{"hash-password", "Read a password on stdin and print its bcrypt hash for BASIC_PASS_HASH", runHashPassword},
	{"version", "Print the build version", func([]string) error {
		fmt.Printf("%s (%s)\n", Version, Commit)
		return nil
	}},
}

func main() {
	name, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		name, args = os.Args[1], os.Args[2:]
	}

	switch name {
	case "-h", "--help", "help":
		printUsage()
		return
	}

	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		if err := cmd.run(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
	printUsage()
	os.Exit(1)
}

func runServe([]string) error {
	entrypoint.Run(config.NewConfig(), Version)
	return nil
}

func runSeed(args []string) error {
	cmd := cli.NewSeedCommand()
	if err := cmd.ParseFlags(args); err != nil {
		return err
	}
	return cmd.Run()
}

func runHashPassword(args []string) error {
	cmd := cli.NewHashPasswordCommand()
	if err := cmd.ParseFlags(args); err != nil {
		return err
	}
	return cmd.RunInteractive(os.Stdin, os.Stdout)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\nCommands:\n", os.Args[0])
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(os.Stderr, "\nRun '%s <command> -h' for command options.\n", os.Args[0])
}
