// The rbxlx-to-rojo command converts a Roblox place or model file into a Rojo
// project.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/robloxapi/rbxrojo"
	"github.com/robloxapi/rbxrojo/errors"
	"github.com/robloxapi/rbxrojo/internal/config"
	"github.com/robloxapi/rbxrojo/rbxl"
	"github.com/robloxapi/rbxrojo/rbxlx"
	"github.com/robloxapi/rbxrojo/rojo"
)

const usage = `usage: rbxlx-to-rojo [flags] INPUT [OUTPUT]

Reads a RBXL, RBXM, RBXLX, or RBXMX file from INPUT, and writes a Rojo project
to OUTPUT/<name of INPUT>. If OUTPUT is unspecified, the directory containing
INPUT is used. A log is written to stderr and to a file in OUTPUT.

Instance names that cannot be used as file names are renamed, and the renames
are logged. Characters that cannot appear in XML are removed from model files.

Flags may also be set with RBXROJO_* environment variables.

`

// format describes how an input file is decoded.
type format struct {
	xml   bool
	model bool
}

var extensions = map[string]format{
	".rbxl":  {xml: false, model: false},
	".rbxm":  {xml: false, model: true},
	".rbxlx": {xml: true, model: false},
	".rbxmx": {xml: true, model: true},
}

// decode reads a file. Files with an unknown extension are detected by
// content.
func decode(r io.Reader, ext string, cfg *config.Config, forceModel bool) (root *rbxrojo.Root, model bool, warn, err error) {
	xmlDecoder := rbxlx.Decoder{Sanitizer: cfg.Sanitizer()}
	f, known := extensions[strings.ToLower(ext)]
	model = f.model || forceModel
	if known && f.xml {
		root, warn, err = xmlDecoder.Decode(r)
		return root, model, warn, err
	}
	mode := rbxl.Place
	if model {
		mode = rbxl.Model
	}
	root, warn, err = rbxl.Decoder{Mode: mode, XML: xmlDecoder}.Decode(r)
	return root, model, warn, err
}

func run(args []string, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	flags := flag.NewFlagSet("rbxlx-to-rojo", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprint(flags.Output(), usage)
		flags.PrintDefaults()
	}
	flags.StringVar(&cfg.Policy, "policy", cfg.Policy, "file naming `policy`: windows, posix, portable, or host")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log `level`: trace, debug, info, warn, or error")
	flags.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log `file` within OUTPUT; empty disables")
	flags.StringVar(&cfg.NumericReplacement, "replacement", cfg.NumericReplacement, "`number` replacing NaN and infinite values")
	flags.StringVar(&cfg.SourceDir, "src", cfg.SourceDir, "source `directory` within the project")
	forceModel := flags.Bool("model", false, "treat INPUT as a model")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() < 1 || flags.NArg() > 2 {
		flags.Usage()
		return errors.New("expected INPUT and optional OUTPUT")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, _ := cfg.PathPolicy()

	input := flags.Arg(0)
	output := filepath.Dir(input)
	if flags.NArg() == 2 {
		output = flags.Arg(1)
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	logOutput := stderr
	if cfg.LogFile != "" {
		logFile, err := os.Create(filepath.Join(output, cfg.LogFile))
		if err != nil {
			return fmt.Errorf("create log file: %w", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(stderr, logFile)
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "rbxlx-to-rojo",
		Level:  cfg.Level(),
		Output: logOutput,
	})

	logger.Info("opening place file", "path", input)
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	ext := filepath.Ext(input)
	logger.Info("decoding place file")
	root, model, warn, err := decode(bytes.NewReader(data), ext, cfg, *forceModel)
	for _, w := range errors.Errors(nil).Append(warn) {
		logger.Warn("decode", "warning", w)
	}
	if err != nil {
		return fmt.Errorf("decode input: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(input), ext)
	opts := []rojo.Option{
		rojo.WithLogger(logger.Named("rojo")),
		rojo.WithPolicy(policy),
		rojo.WithSanitizer(cfg.Sanitizer()),
		rojo.WithName(name),
		rojo.WithSourceDir(cfg.SourceDir),
	}
	if model {
		opts = append(opts, rojo.WithModel())
	}
	logger.Info("planning project", "name", name, "model", model)
	project, err := rojo.Plan(root, opts...)
	if err != nil {
		return fmt.Errorf("plan project: %w", err)
	}
	if !project.Changes.Zero() {
		logger.Warn("sanitized model files",
			"chars", project.Changes.Chars,
			"literals", project.Changes.Literals,
			"charrefs", project.Changes.CharRefs)
	}

	dir := filepath.Join(output, name)
	stats, err := rojo.Write(dir, project, opts...)
	if err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	logger.Info("done", "dir", dir, "written", stats.Written, "unchanged", stats.Unchanged, "renames", len(project.Renames))
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, fmt.Errorf("rbxlx-to-rojo: %w", err))
		os.Exit(1)
	}
}
