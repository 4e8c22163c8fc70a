// Package ignore filters candidate files against the repository's .gitignore.
package ignore

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/denormal/go-gitignore"
)

// Matcher reports whether a path is ignored by the root .gitignore.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	rootDir   string
	gitIgnore gitignore.GitIgnore
}

// NewMatcher loads rootDir/.gitignore. A missing file yields a matcher that
// only skips VCS metadata directories.
func NewMatcher(rootDir string) *Matcher {
	return &Matcher{
		rootDir:   rootDir,
		gitIgnore: loadIgnoreFile(filepath.Join(rootDir, ".gitignore"), rootDir),
	}
}

// ShouldIgnore reports whether relativePath (relative to the root, either
// separator) is excluded.
func (m *Matcher) ShouldIgnore(relativePath string, isDir bool) bool {
	relativePath = filepath.ToSlash(filepath.Clean(relativePath))

	for _, part := range strings.Split(relativePath, "/") {
		switch part {
		case ".git", ".hg", ".svn":
			return true
		}
	}

	if m.gitIgnore == nil {
		return false
	}
	match := m.gitIgnore.Relative(relativePath, isDir)
	if match != nil && match.Ignore() {
		return true
	}

	// a file under an ignored directory is ignored too
	dir := filepath.ToSlash(filepath.Dir(relativePath))
	for dir != "." && dir != "/" && dir != "" {
		if match := m.gitIgnore.Relative(dir, true); match != nil && match.Ignore() {
			return true
		}
		dir = filepath.ToSlash(filepath.Dir(dir))
	}
	return false
}

// loadIgnoreFile reads an ignore file through an io.Reader so the handle is
// closed before matching starts.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
