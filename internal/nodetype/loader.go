package nodetype

import (
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/zjrosen/contentgraph/internal/log"
)

// DefaultPattern matches node type files anywhere below the configured directory.
const DefaultPattern = "**/NodeTypes*.yaml"

// LoadFS reads every file in fsys matching pattern and deep-merges them in
// lexical path order. Top-level keys are node type names.
func LoadFS(fsys fs.FS, pattern string) (*Tree, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	paths, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", pattern, err)
	}
	sort.Strings(paths)

	merged := NewTree()
	for _, path := range paths {
		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		tree, err := ParseYAML(content)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		merged = Merge(merged, tree)
		log.Debug(log.CatRegistry, "Loaded node type file", "path", path, "types", tree.Len())
	}
	return merged, nil
}

// FSProvider loads node types from a file system on every call.
type FSProvider struct {
	FS      fs.FS
	Pattern string
}

// NodeTypeConfigurations implements Provider.
func (p FSProvider) NodeTypeConfigurations() (*Tree, error) {
	return LoadFS(p.FS, p.Pattern)
}

// DirProvider returns a provider reading node type files below dir.
func DirProvider(dir, pattern string) FSProvider {
	return FSProvider{FS: os.DirFS(dir), Pattern: pattern}
}
