package pattern

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// SupportedLanguages defines all languages that ast-grep supports
var SupportedLanguages = map[string]bool{
	"go":         true,
	"typescript": true,
	"javascript": true,
	"tsx":        true,
	"jsx":        true,
	"python":     true,
	"rust":       true,
	"c":          true,
	"cpp":        true,
	"java":       true,
	"php":        true,
	"ruby":       true,
}

// ValidStrictnessLevels defines all valid strictness levels for ast-grep
var ValidStrictnessLevels = map[string]bool{
	"cst":       true,
	"smart":     true,
	"ast":       true,
	"relaxed":   true,
	"signature": true,
}

const (
	DefaultContextLines = 3
	MinContextLines     = 0
	MaxContextLines     = 10

	DefaultLimit = 50
	MinLimit     = 1
	MaxLimit     = 100

	DefaultStrictness = "smart"
)

// ValidateRequest checks a PatternRequest against the supported language
// and strictness sets and the context-lines/limit bounds, returning a
// coreerr.KindInvalidInput error describing the first violation found.
func ValidateRequest(req *PatternRequest) error {
	if req == nil {
		return coreerr.InvalidInput("pattern request", "cannot be nil")
	}

	if req.Pattern == "" {
		return coreerr.InvalidInput("pattern", "is required")
	}
	if req.Language == "" {
		return coreerr.InvalidInput("language", "is required")
	}

	if !SupportedLanguages[req.Language] {
		return coreerr.InvalidInput("language", fmt.Sprintf(
			"unsupported: %s (supported: go, typescript, javascript, tsx, jsx, python, rust, c, cpp, java, php, ruby)", req.Language))
	}

	if req.Strictness != "" && !ValidStrictnessLevels[req.Strictness] {
		return coreerr.InvalidInput("strictness", fmt.Sprintf(
			"invalid: %s (valid: cst, smart, ast, relaxed, signature)", req.Strictness))
	}

	if req.ContextLines != nil {
		if *req.ContextLines < MinContextLines || *req.ContextLines > MaxContextLines {
			return coreerr.InvalidInput("context_lines", fmt.Sprintf(
				"must be between %d and %d", MinContextLines, MaxContextLines))
		}
	}

	if req.Limit != nil {
		if *req.Limit < MinLimit || *req.Limit > MaxLimit {
			return coreerr.InvalidInput("limit", fmt.Sprintf(
				"must be between %d and %d", MinLimit, MaxLimit))
		}
	}

	return nil
}

// BuildCommand constructs a safe argv array for ast-grep execution. It
// never shells out to a string command line — argv is built directly —
// and every entry in req.FilePaths is validated against projectRoot
// before being joined into the --globs argument.
func BuildCommand(req *PatternRequest, projectRoot string) ([]string, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	cleanRoot := filepath.Clean(projectRoot)
	if !filepath.IsAbs(cleanRoot) {
		return nil, coreerr.InvalidInput("project_root", fmt.Sprintf("must be an absolute path: %s", projectRoot))
	}

	// Build argv directly (never use shell)
	args := []string{
		"--pattern", req.Pattern,
		"--lang", req.Language,
		"--json=compact", // Always use compact JSON output
	}

	// Add context lines (-C flag)
	contextLines := DefaultContextLines
	if req.ContextLines != nil {
		contextLines = *req.ContextLines
	}
	if contextLines > 0 {
		args = append(args, "-C", strconv.Itoa(contextLines))
	}

	// Add strictness
	strictness := DefaultStrictness
	if req.Strictness != "" {
		strictness = req.Strictness
	}
	args = append(args, "--strictness", strictness)

	// Add file path filters (validate first!)
	if len(req.FilePaths) > 0 {
		// Security: Validate EVERY path to prevent directory traversal
		for _, path := range req.FilePaths {
			if err := validateFilePath(path, cleanRoot); err != nil {
				return nil, err
			}
		}
		// All paths validated, add to command
		args = append(args, "--globs", strings.Join(req.FilePaths, ","))
	}

	// Search current directory (command will be run with cwd=projectRoot)
	args = append(args, ".")

	return args, nil
}

// validateFilePath rejects a --globs filter that could escape
// projectRoot, such as an absolute path or a ".." component that
// resolves outside it.
func validateFilePath(path string, projectRoot string) error {
	if filepath.IsAbs(path) {
		return coreerr.InvalidInput("file_path", fmt.Sprintf("absolute paths not allowed: %s", path))
	}

	cleanPath := filepath.Clean(path)
	absPath := filepath.Clean(filepath.Join(projectRoot, cleanPath))

	if !strings.HasPrefix(absPath, projectRoot+string(filepath.Separator)) &&
		absPath != projectRoot {
		return coreerr.InvalidInput("file_path", fmt.Sprintf("outside project root: %s", path))
	}

	if strings.Contains(path, "..") {
		rel, err := filepath.Rel(projectRoot, absPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			return coreerr.InvalidInput("file_path", fmt.Sprintf("outside project root: %s", path))
		}
	}

	return nil
}

// GetContextLines returns the context lines value or default if nil
func GetContextLines(req *PatternRequest) int {
	if req.ContextLines != nil {
		return *req.ContextLines
	}
	return DefaultContextLines
}

// GetLimit returns the limit value or default if nil
func GetLimit(req *PatternRequest) int {
	if req.Limit != nil {
		return *req.Limit
	}
	return DefaultLimit
}

// GetStrictness returns the strictness value or default if empty
func GetStrictness(req *PatternRequest) string {
	if req.Strictness != "" {
		return req.Strictness
	}
	return DefaultStrictness
}
