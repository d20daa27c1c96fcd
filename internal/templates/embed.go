// Package templates holds the starter project written by 'contentgraph init':
// a dimension configuration and a small set of node types.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed site
var siteFiles embed.FS

// ErrFileExists is returned by WriteSite when a target file exists and
// overwriting was not requested.
var ErrFileExists = errors.New("file already exists")

// SiteFS returns the starter project rooted at its top directory.
func SiteFS() fs.FS {
	sub, err := fs.Sub(siteFiles, "site")
	if err != nil {
		panic(err) // the directory is embedded above
	}
	return sub
}

// WriteSite copies the starter project into dir and returns the written
// paths. Unless overwrite is set, nothing is written when any target exists.
func WriteSite(dir string, overwrite bool) ([]string, error) {
	fsys := SiteFS()

	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !overwrite {
		for _, f := range files {
			target := filepath.Join(dir, filepath.FromSlash(f))
			if _, err := os.Stat(target); err == nil {
				return nil, fmt.Errorf("%w: %s", ErrFileExists, target)
			}
		}
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return written, err
		}
		target := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return written, fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return written, fmt.Errorf("writing %s: %w", target, err)
		}
		written = append(written, target)
	}
	return written, nil
}
