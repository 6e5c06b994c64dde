package filetracker

import (
	"path/filepath"
	"strings"

	"github.com/pyscope-dev/pyscope/internal/config"
)

// QualifierForRelPath derives the dotted module qualifier a source path
// resolves to under its search root, mirroring the target language's
// package-directory-as-qualifier convention: `pkg/sub/mod.pys` becomes
// `pkg.sub.mod`, and `pkg/sub/__init__.pys` becomes `pkg.sub` with IsInit
// set so the Source Environment treats it as the package itself rather
// than a submodule named "__init__".
func QualifierForRelPath(relPath string) (qualifier string, isInit bool) {
	clean := filepath.ToSlash(relPath)
	dir, file := filepath.Split(clean)
	stem := config.TrimSourceExt(file)
	if stem == config.InitKeyword {
		isInit = true
		dir = strings.TrimSuffix(dir, "/")
		if dir == "" {
			return "", true
		}
		return strings.ReplaceAll(dir, "/", "."), true
	}
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		return stem, false
	}
	return strings.ReplaceAll(dir, "/", ".") + "." + stem, false
}
