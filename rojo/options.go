package rojo

import (
	"errors"

	"github.com/hashicorp/go-hclog"

	"github.com/robloxapi/rbxrojo/pathname"
	"github.com/robloxapi/rbxrojo/sanitize"
)

// getOpts - iterate the inbound Options and return a struct.
func getOpts(opt ...Option) (*options, error) {
	opts := getDefaultOptions()
	for _, o := range opt {
		if o != nil {
			if err := o(opts); err != nil {
				return nil, err
			}
		}
	}
	return opts, nil
}

// Option - how Options are passed as arguments.
type Option func(*options) error

type options struct {
	withLogger    hclog.Logger
	withPolicy    pathname.Policy
	withSanitizer sanitize.Sanitizer
	withName      string
	withSourceDir string
	withModel     bool
}

func getDefaultOptions() *options {
	return &options{
		withLogger:    hclog.NewNullLogger(),
		withPolicy:    pathname.Portable,
		withName:      "project",
		withSourceDir: "src",
	}
}

// WithLogger sets the logger that receives renames, warnings, and progress.
func WithLogger(l hclog.Logger) Option {
	return func(o *options) error {
		if l == nil {
			return errors.New("nil logger")
		}
		o.withLogger = l
		return nil
	}
}

// WithPolicy sets the policy used to normalize instance names into path
// segments. The reserved name "init" is always added.
func WithPolicy(p pathname.Policy) Option {
	return func(o *options) error {
		o.withPolicy = p
		return nil
	}
}

// WithSanitizer sets the sanitizer applied to model files.
func WithSanitizer(s sanitize.Sanitizer) Option {
	return func(o *options) error {
		o.withSanitizer = s
		return nil
	}
}

// WithName sets the name of the project.
func WithName(name string) Option {
	return func(o *options) error {
		if name == "" {
			return errors.New("empty project name")
		}
		o.withName = name
		return nil
	}
}

// WithSourceDir sets the directory, relative to the project, that holds the
// instance tree.
func WithSourceDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.New("empty source directory")
		}
		o.withSourceDir = dir
		return nil
	}
}

// WithModel plans the root as a model rather than a place.
func WithModel() Option {
	return func(o *options) error {
		o.withModel = true
		return nil
	}
}
