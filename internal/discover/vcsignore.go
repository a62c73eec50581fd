package discover

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// vcsIgnore applies the .gitignore files found in the repository root and
// its subdirectories; each file's patterns are rooted at the directory
// that holds it.
type vcsIgnore struct {
	root    string
	ignores map[string]*gitignore.GitIgnore // dir (relative to root) -> parsed .gitignore
}

func newVCSIgnore(root string) *vcsIgnore {
	v := &vcsIgnore{root: root, ignores: map[string]*gitignore.GitIgnore{}}
	v.loadDir(".")
	return v
}

// loadDir lazily parses a .gitignore found directly in relDir, if any.
func (v *vcsIgnore) loadDir(relDir string) {
	if _, ok := v.ignores[relDir]; ok {
		return
	}
	path := filepath.Join(v.root, relDir, ".gitignore")
	if _, err := os.Stat(path); err != nil {
		v.ignores[relDir] = nil
		return
	}
	gi, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		v.ignores[relDir] = nil
		return
	}
	v.ignores[relDir] = gi
}

// match reports whether rel (a file path relative to root) is ignored by
// any .gitignore found walking up from rel's directory to the root.
func (v *vcsIgnore) match(rel string) bool {
	dir := filepath.ToSlash(filepath.Dir(rel))
	for {
		v.loadDir(dir)
		if gi := v.ignores[dir]; gi != nil {
			// gitignore patterns are matched relative to the directory
			// that owns the .gitignore file.
			sub := strings.TrimPrefix(rel, dir+"/")
			if dir == "." {
				sub = rel
			}
			if gi.MatchesPath(sub) {
				return true
			}
		}
		if dir == "." {
			break
		}
		dir = filepath.ToSlash(filepath.Dir(dir))
	}
	return false
}

// matchDir applies the same rules to a directory path, used to prune
// whole subtrees during the walk.
func (v *vcsIgnore) matchDir(rel string) bool {
	return v.match(rel + "/")
}
