package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
)

// errFailed signals a non-zero exit whose cause was already reported.
var errFailed = errors.New("failed")

type command struct {
	Flags *flag.FlagSet
	Usage string
	Short string
	Exec  func(ctx context.Context, stdout, stderr io.Writer, args []string) error
}

func (c *command) name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

func (c *command) printHelp(w io.Writer) {
	fmt.Fprintf(w, "Usage: postctl %s\n\n%s\n", c.Usage, c.Short)
	if c.Flags.HasFlags() {
		fmt.Fprintf(w, "\nFlags:\n%s", c.Flags.FlagUsages())
	}
}

func (c *command) run(ctx context.Context, stdout, stderr io.Writer, args []string) int {
	c.Flags.SetOutput(io.Discard)
	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.printHelp(stdout)
			return 0
		}
		fmt.Fprintln(stderr, "error:", err)
		c.printHelp(stderr)
		return 2
	}

	if err := c.Exec(ctx, stdout, stderr, c.Flags.Args()); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(stderr, "error:", err)
		}
		return 1
	}
	return 0
}

func commands() []*command {
	return []*command{parseCmd(), checkCmd(), buildCmd()}
}

func printUsage(w io.Writer, cmds []*command) {
	fmt.Fprintln(w, "Usage: postctl <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range cmds {
		fmt.Fprintf(w, "  %-24s %s\n", c.Usage, c.Short)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmds := commands()
	if len(args) == 0 {
		printUsage(stderr, cmds)
		return 2
	}
	switch args[0] {
	case "-h", "--help", "help":
		printUsage(stdout, cmds)
		return 0
	}

	for _, c := range cmds {
		if c.name() == args[0] {
			return c.run(ctx, stdout, stderr, args[1:])
		}
	}
	fmt.Fprintf(stderr, "error: unknown command %q\n\n", args[0])
	printUsage(stderr, cmds)
	return 2
}
