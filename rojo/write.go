package rojo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/xxh3"

	"github.com/robloxapi/rbxrojo/errors"
)

// Stats summarizes the work done by Write.
type Stats struct {
	// Dirs is the number of directories created or confirmed.
	Dirs int
	// Written is the number of files written.
	Written int
	// Unchanged is the number of files skipped because their content on
	// disk already matched.
	Unchanged int
}

// Write materializes project within dir. Files that already exist with the
// same content are left untouched.
func Write(dir string, project *Project, opt ...Option) (Stats, error) {
	var stats Stats
	if project == nil {
		return stats, errors.New("nil project")
	}
	opts, err := getOpts(opt...)
	if err != nil {
		return stats, err
	}
	log := opts.withLogger

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stats, err
	}
	for _, d := range project.Dirs {
		name, err := localPath(dir, d)
		if err != nil {
			return stats, err
		}
		if err := os.MkdirAll(name, 0o755); err != nil {
			return stats, err
		}
		stats.Dirs++
	}
	for _, f := range project.Files {
		name, err := localPath(dir, f.Path)
		if err != nil {
			return stats, err
		}
		written, err := writeFile(name, f.Data)
		if err != nil {
			return stats, err
		}
		if written {
			stats.Written++
			log.Trace("wrote file", "path", f.Path)
		} else {
			stats.Unchanged++
			log.Trace("unchanged file", "path", f.Path)
		}
	}
	log.Info("wrote project", "dir", dir, "written", stats.Written, "unchanged", stats.Unchanged)
	return stats, nil
}

// localPath joins a slash-separated project path to dir, rejecting paths that
// would leave dir.
func localPath(dir, p string) (string, error) {
	rel := filepath.FromSlash(p)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("path %q is outside of the project", p)
	}
	return filepath.Join(dir, rel), nil
}

// writeFile writes data to name unless the file already holds the same
// content. Returns whether the file was written.
func writeFile(name string, data []byte) (bool, error) {
	if old, err := os.ReadFile(name); err == nil {
		if len(old) == len(data) && xxh3.Hash(old) == xxh3.Hash(data) {
			return false, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
