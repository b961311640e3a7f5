// The rbxlx-sanitize command repairs a Roblox XML file without decoding it.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/robloxapi/rbxrojo/errors"
	"github.com/robloxapi/rbxrojo/internal/config"
	"github.com/robloxapi/rbxrojo/rbxlx"
	"github.com/robloxapi/rbxrojo/sanitize"
	"github.com/robloxapi/rbxrojo/xml"
)

const usage = `usage: rbxlx-sanitize [flags] [INPUT] [OUTPUT]

Reads a RBXLX or RBXMX file from INPUT, and writes to OUTPUT the same file with
characters that are illegal in XML removed, character references to such
characters removed, and unparsable numbers such as NaN replaced. The content of
BinaryString and SharedString elements is copied unchanged.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Changes are
logged to stderr.

`

// repair sanitizes the document read from r, writing the result to w.
func repair(w io.Writer, r io.Reader, s sanitize.Sanitizer) (sanitize.Changes, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return sanitize.Changes{}, fmt.Errorf("read input: %w", err)
	}
	s.Markup = true
	f, changes := s.Sanitize(xml.Split(data, rbxlx.Schema{}))
	if _, err := f.WriteTo(w); err != nil {
		return changes, fmt.Errorf("write output: %w", err)
	}
	return changes, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := flag.NewFlagSet("rbxlx-sanitize", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}
	flags.StringVar(&cfg.NumericReplacement, "replacement", cfg.NumericReplacement, "`number` replacing NaN and infinite values")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log `level`: trace, debug, info, warn, or error")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "rbxlx-sanitize",
		Level:  cfg.Level(),
		Output: stderr,
	})

	input, output := stdin, stdout
	if flags.NArg() >= 1 && flags.Arg(0) != "-" {
		in, err := os.Open(flags.Arg(0))
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer in.Close()
		input = in
	}
	if flags.NArg() >= 2 && flags.Arg(1) != "-" {
		out, err := os.Create(flags.Arg(1))
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer out.Close()
		output = out
	}

	changes, err := repair(output, input, cfg.Sanitizer())
	if err != nil {
		return err
	}
	if changes.Zero() {
		logger.Info("document unchanged")
		return nil
	}
	logger.Warn("document repaired",
		"chars", changes.Chars,
		"literals", changes.Literals,
		"charrefs", changes.CharRefs)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, fmt.Errorf("rbxlx-sanitize: %w", err))
		os.Exit(1)
	}
}
