package emit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoModule is returned when no go.mod encloses a declaration directory.
var ErrNoModule = errors.New("emit: no go.mod found")

type modError struct{ msg string }

func (e *modError) Error() string { return e.msg }

// FindModule walks up from startDir to the enclosing go.mod and returns its directory and
// module path.
func FindModule(startDir string) (modRoot string, modPath string, err error) {
	dir := startDir
	for {
		gomod := filepath.Join(dir, "go.mod")
		if fileExists(gomod) {
			b, rerr := os.ReadFile(gomod)
			if rerr != nil {
				return "", "", rerr
			}
			for _, ln := range strings.Split(string(b), "\n") {
				ln = strings.TrimSpace(ln)
				if strings.HasPrefix(ln, "module ") {
					mod := strings.Trim(strings.TrimSpace(strings.TrimPrefix(ln, "module ")), `"`)
					if mod == "" {
						return "", "", &modError{msg: "go.mod has empty module path at " + filepath.ToSlash(gomod)}
					}
					return dir, mod, nil
				}
			}
			return "", "", &modError{msg: "go.mod missing module directive at " + filepath.ToSlash(gomod)}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", "", ErrNoModule
}

// ImportPathForDir returns the import path of the package in dir.
func ImportPathForDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	modRoot, modPath, err := FindModule(abs)
	if err != nil {
		return "", err
	}
	return moduleImportPathForDir(modRoot, modPath, abs)
}

func moduleImportPathForDir(modRoot, modPath, dir string) (string, error) {
	rel, err := filepath.Rel(modRoot, dir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)

	if rel == "." {
		return modPath, nil
	}
	if strings.HasPrefix(rel, "../") || rel == ".." {
		return "", &modError{msg: "directory is outside module root: dir=" + filepath.ToSlash(dir) + " modRoot=" + filepath.ToSlash(modRoot)}
	}
	return modPath + "/" + rel, nil
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
