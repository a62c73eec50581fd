package discover

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

const sniffSize = 8 * 1024 // read at most the first 8 KiB to classify a file

// classify reads at most the first 8 KiB of path and reports whether it is
// text, plus its detected language. Never relies on extension alone for
// the text/binary decision — only for language labeling once a file is
// already known to be text.
func classify(path string) (isText bool, language string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return false, "", err
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, readErr := f.Read(buf)
	if readErr != nil && n == 0 && readErr.Error() != "EOF" {
		return false, "", readErr
	}
	buf = buf[:n]

	// A NUL byte in the first 8 KiB marks the file binary, but it is
	// still yielded — non-text formats get preprocessed through the
	// content cache rather than dropped here, and the language label is
	// still useful metadata either way.
	isText = bytes.IndexByte(buf, 0) == -1
	return isText, detectLanguage(path), nil
}

// extensionLanguages maps file extensions to a detected language label.
// Matches the set of tree-sitter grammars internal/chunker wires, plus
// common text formats that fall back to the line-based chunker.
var extensionLanguages = map[string]string{
	".go":    "go",
	".py":    "python",
	".rs":    "rust",
	".ts":    "typescript",
	".tsx":   "typescript",
	".js":    "javascript",
	".jsx":   "javascript",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".php":   "php",
	".rb":    "ruby",
	".md":    "markdown",
	".rst":   "restructuredtext",
	".txt":   "plain text",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".sh":    "shell",
	".sql":   "sql",
	".proto": "protobuf",
}

// detectLanguage is extension-based with a fallback of "plain text" for
// any non-binary file with an unknown extension.
func detectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensionLanguages[ext]; ok {
		return lang
	}
	return "plain text"
}
