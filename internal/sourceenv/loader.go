package sourceenv

import (
	"os"
	"path/filepath"
)

// FileSystemLoader reads ModulePath content straight off disk, relative to
// Root, a single search root.
type FileSystemLoader struct {
	Root string
}

func (l FileSystemLoader) Read(path ModulePath) (string, error) {
	full := path.RelPath
	if !filepath.IsAbs(full) {
		full = filepath.Join(l.Root, path.RelPath)
	}
	content, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(content), nil
}
