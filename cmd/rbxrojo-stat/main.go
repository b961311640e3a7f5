// The rbxrojo-stat command summarizes the content of a Roblox file, along
// with the Rojo project it converts to.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/goccy/go-json"

	"github.com/robloxapi/rbxrojo"
	"github.com/robloxapi/rbxrojo/errors"
	"github.com/robloxapi/rbxrojo/internal/config"
	"github.com/robloxapi/rbxrojo/rbxl"
	"github.com/robloxapi/rbxrojo/rbxlx"
	"github.com/robloxapi/rbxrojo/rojo"
)

const usage = `usage: rbxrojo-stat [INPUT] [OUTPUT]

Decodes the place or model at INPUT and writes a JSON summary to OUTPUT: counts
of instances, classes, and property types, the largest properties, and the
instances renamed by conversion to a Rojo project.

Either path may be "-" or omitted to use stdin and stdout. Diagnostics go to
stderr.
`

// maxLargest limits the number of properties listed as largest.
const maxLargest = 20

// PropLen locates a property with a variable size.
type PropLen struct {
	Class    string
	Property string
	Type     string
	Length   int
}

func (p PropLen) String() string {
	return fmt.Sprintf("%s.%s:%s(%d)", p.Class, p.Property, p.Type, p.Length)
}

// PropLenCount counts the occurrences of each PropLen. It encodes as the
// largest entries, ordered by descending length.
type PropLenCount map[PropLen]int

func (p PropLenCount) MarshalJSON() ([]byte, error) {
	keys := make([]PropLen, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b PropLen) int { return b.Length - a.Length })
	return json.Marshal(keys[:min(len(keys), maxLargest)])
}

type Stats struct {
	InstanceCount int
	PropertyCount int

	ClassCount map[string]int
	TypeCount  map[string]int

	LargestProperties PropLenCount `json:",omitempty"`

	// FileCount is the number of files in the converted project.
	FileCount int
	Renames   []rojo.Rename `json:",omitempty"`
}

// size returns the length of values with variable size.
func size(v rbxrojo.Value) (int, bool) {
	switch v := v.(type) {
	case rbxrojo.ValueString:
		return len(v), true
	case rbxrojo.ValueBinaryString:
		return len(v), true
	case rbxrojo.ValueProtectedString:
		return len(v), true
	case rbxrojo.ValueContent:
		return len(v), true
	case rbxrojo.ValueSharedString:
		return len(v), true
	case rbxrojo.ValueNumberSequence:
		return len(v), true
	case rbxrojo.ValueColorSequence:
		return len(v), true
	}
	return 0, false
}

// Fill counts the instances and properties of root.
func (s *Stats) Fill(root *rbxrojo.Root) {
	s.ClassCount = make(map[string]int)
	s.TypeCount = make(map[string]int)
	s.LargestProperties = make(PropLenCount)
	if root == nil {
		return
	}
	root.Descendants(func(inst *rbxrojo.Instance) bool {
		s.InstanceCount++
		s.ClassCount[inst.ClassName]++
		for name, v := range inst.Properties {
			typ := v.Type().String()
			s.PropertyCount++
			s.TypeCount[typ]++
			if n, ok := size(v); ok {
				s.LargestProperties[PropLen{Class: inst.ClassName, Property: name, Type: typ, Length: n}]++
			}
		}
		return true
	})
}

// Plan fills the project stats of root without writing anything.
func (s *Stats) Plan(root *rbxrojo.Root, opts ...rojo.Option) error {
	project, err := rojo.Plan(root, opts...)
	if err != nil {
		return err
	}
	s.FileCount, s.Renames = len(project.Files), project.Renames
	return nil
}

// openArgs returns the input and output named by args, with "-" or a missing
// argument selecting stdin or stdout. release closes any opened files.
func openArgs(args []string, stdin io.Reader, stdout io.Writer) (in io.Reader, out io.Writer, release func(), err error) {
	var files []*os.File
	release = func() {
		for _, f := range files {
			f.Close()
		}
	}
	in, out = stdin, stdout
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, nil, release, fmt.Errorf("open input: %w", err)
		}
		files = append(files, f)
		in = f
	}
	if len(args) > 1 && args[1] != "-" {
		f, err := os.Create(args[1])
		if err != nil {
			return nil, nil, release, fmt.Errorf("create output: %w", err)
		}
		files = append(files, f)
		out = f
	}
	return in, out, release, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("rbxrojo-stat", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { fmt.Fprint(flags.Output(), usage) }
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, _ := cfg.PathPolicy()

	in, out, closeFiles, err := openArgs(flags.Args(), stdin, stdout)
	defer closeFiles()
	if err != nil {
		return err
	}

	root, warn, err := rbxl.Decoder{XML: rbxlx.Decoder{Sanitizer: cfg.Sanitizer()}}.Decode(in)
	if warn != nil {
		fmt.Fprintf(stderr, "decode warning: %v\n", warn)
	}
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	var stats Stats
	stats.Fill(root)
	if err := stats.Plan(root, rojo.WithPolicy(policy), rojo.WithSanitizer(cfg.Sanitizer())); err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "\t")
	if err := enc.Encode(stats); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
