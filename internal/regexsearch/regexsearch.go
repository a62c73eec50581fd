// Package regexsearch implements a line-oriented regex engine: streaming
// pattern matching over a file sequence with context lines, without
// requiring an index. bleve transitively pulls in
// github.com/dlclark/regexp2, a backtracking pattern engine meant for
// lexical analyzers, not a streaming line scanner, so this package stays
// on stdlib regexp + bufio.Scanner instead of wiring in a second regex
// engine.
package regexsearch

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// Options configures one regex scan.
type Options struct {
	FixedString     bool // treat Pattern as a literal, not a regex
	CaseInsensitive bool
	WholeWord       bool
	InvertMatch     bool
	ContextBefore   int
	ContextAfter    int
}

// Match is one line-level hit.
type Match struct {
	Path          string
	LineNumber    int // 1-based
	ByteStart     int
	ByteEnd       int
	Line          string
	ContextBefore []string
	ContextAfter  []string
}

// Compile builds a *regexp.Regexp honoring Options's fixed-string,
// case-insensitivity, and whole-word modifiers.
func Compile(pattern string, opts Options) (*regexp.Regexp, error) {
	if opts.FixedString {
		pattern = regexp.QuoteMeta(pattern)
	}
	if opts.WholeWord {
		pattern = `\b(?:` + pattern + `)\b`
	}
	if opts.CaseInsensitive {
		pattern = `(?i)` + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, coreerr.InvalidInput("regex pattern", err.Error())
	}
	return re, nil
}

// Scan streams r line-by-line (preserving LF, CRLF, and CR line endings
// exactly, so byte spans and 1-based line numbers agree with what a
// naive line-by-line reader would assign) and yields a Match for every
// line satisfying re, honoring InvertMatch and context-line options.
// Scan never buffers the whole file: it keeps only a ContextBefore-sized
// ring buffer of recent lines.
func Scan(path string, r io.Reader, re *regexp.Regexp, opts Options) ([]Match, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(splitKeepingEnding)

	var matches []Match
	var ring []string // trailing ContextBefore raw (newline-stripped) lines
	byteOffset := 0
	lineNum := 0

	pendingAfter := 0 // lines remaining to attach as ContextAfter to matches[len-1:]

	for scanner.Scan() {
		raw := scanner.Text()
		lineNum++
		stripped, endLen := stripEnding(raw)
		lineLen := len(raw)

		isMatch := re.MatchString(stripped)
		if opts.InvertMatch {
			isMatch = !isMatch
		}

		if isMatch {
			m := Match{
				Path:       path,
				LineNumber: lineNum,
				ByteStart:  byteOffset,
				ByteEnd:    byteOffset + lineLen - endLen,
				Line:       stripped,
			}
			if opts.ContextBefore > 0 {
				start := 0
				if len(ring) > opts.ContextBefore {
					start = len(ring) - opts.ContextBefore
				}
				m.ContextBefore = append([]string(nil), ring[start:]...)
			}
			matches = append(matches, m)
			pendingAfter = opts.ContextAfter
		} else if pendingAfter > 0 {
			idx := len(matches) - 1
			matches[idx].ContextAfter = append(matches[idx].ContextAfter, stripped)
			pendingAfter--
		}

		if opts.ContextBefore > 0 {
			ring = append(ring, stripped)
			if len(ring) > opts.ContextBefore {
				ring = ring[len(ring)-opts.ContextBefore:]
			}
		}

		byteOffset += lineLen
	}
	if err := scanner.Err(); err != nil {
		return nil, coreerr.IoError(path, err)
	}

	return matches, nil
}

// splitKeepingEnding is a bufio.SplitFunc that returns each line
// including its original line-ending bytes (LF, CRLF, or a bare CR),
// so the caller can compute exact byte spans without re-reading.
func splitKeepingEnding(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			return i + 1, data[:i+1], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i+2], nil
				}
				return i + 1, data[:i+1], nil
			}
			if atEOF {
				return i + 1, data[:i+1], nil
			}
			// need more data to know if \r is followed by \n
			return 0, nil, nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// stripEnding removes a trailing CRLF, CR, or LF and reports how many
// bytes were removed.
func stripEnding(line string) (string, int) {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2], 2
	}
	if strings.HasSuffix(line, "\n") || strings.HasSuffix(line, "\r") {
		return line[:len(line)-1], 1
	}
	return line, 0
}
