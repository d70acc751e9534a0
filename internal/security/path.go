package security

import (
	"os"
	"path/filepath"
	"strings"
)

// IsSafePath reports whether path resolves to an existing file inside root.
// Symlinks are resolved on both sides so a link cannot point outside root.
func IsSafePath(path, root string) bool {
	if path == "" || root == "" {
		return false
	}
	base, err := resolve(root)
	if err != nil {
		return false
	}
	target, err := resolve(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular()
}

func resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
