package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/mrlokans/library/internal/auth"
)

type HashPasswordCommand struct {
	Cost int
}

func NewHashPasswordCommand() *HashPasswordCommand {
	return &HashPasswordCommand{}
}

func (cmd *HashPasswordCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("hash-password", flag.ExitOnError)

	fs.IntVar(&cmd.Cost, "cost", bcrypt.DefaultCost, "bcrypt cost factor")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s hash-password [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Prompts for a password (or reads the first line of piped stdin) and prints its bcrypt hash.\n")
		fmt.Fprintf(os.Stderr, "Set the output as BASIC_PASS_HASH.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Cost < bcrypt.MinCost || cmd.Cost > bcrypt.MaxCost {
		return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// Run hashes the first line read from in.
func (cmd *HashPasswordCommand) Run(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read password: %w", err)
	}
	return cmd.print(strings.TrimRight(line, "\r\n"), out)
}

// RunInteractive prompts without echo when stdin is a terminal and falls
// back to Run for piped input.
func (cmd *HashPasswordCommand) RunInteractive(stdin *os.File, out io.Writer) error {
	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		return cmd.Run(stdin, out)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	return cmd.print(string(password), out)
}

func (cmd *HashPasswordCommand) print(password string, out io.Writer) error {
	hash, err := auth.HashPassword(password, cmd.Cost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
