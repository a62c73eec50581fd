package discover

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// projectIgnoreFileName is the project ignore file at the repository
// root, distinct from the sidecar directory.
const projectIgnoreFileName = ".codesearchignore"

// defaultProjectIgnorePatterns covers media, archives, and binaries
// unconditionally. Structured configuration formats (JSON/YAML) are
// included only when IgnoreStructuredConfigs is true.
var defaultProjectIgnorePatterns = []string{
	"# media",
	"**/*.png", "**/*.jpg", "**/*.jpeg", "**/*.gif", "**/*.bmp", "**/*.ico",
	"**/*.mp3", "**/*.mp4", "**/*.mov", "**/*.avi", "**/*.webm",
	"# archives",
	"**/*.zip", "**/*.tar", "**/*.tar.gz", "**/*.tgz", "**/*.gz", "**/*.7z", "**/*.rar",
	"# binaries",
	"**/*.exe", "**/*.dll", "**/*.so", "**/*.dylib", "**/*.bin", "**/*.o", "**/*.a",
	"**/*.pdf",
}

var structuredConfigPatterns = []string{
	"# structured configuration formats",
	"**/*.json", "**/*.yaml", "**/*.yml",
}

type projectIgnore struct {
	globs []glob.Glob
}

// loadOrCreateProjectIgnore reads the project ignore file, creating it
// with the documented defaults if it does not yet exist.
func loadOrCreateProjectIgnore(root string, ignoreStructuredConfigs bool) (*projectIgnore, error) {
	path := filepath.Join(root, projectIgnoreFileName)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefaultProjectIgnore(path, ignoreStructuredConfigs); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	pi := &projectIgnore{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		g, err := glob.Compile(line, '/')
		if err != nil {
			continue // malformed line, skip rather than fail the whole walk
		}
		pi.globs = append(pi.globs, g)
	}
	return pi, nil
}

func writeDefaultProjectIgnore(path string, ignoreStructuredConfigs bool) error {
	lines := append([]string{}, defaultProjectIgnorePatterns...)
	if ignoreStructuredConfigs {
		lines = append(lines, structuredConfigPatterns...)
	}
	content := strings.Join(lines, "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0o644)
}

func (p *projectIgnore) match(rel string) bool {
	for _, g := range p.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}
