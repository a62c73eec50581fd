// Package hybrid implements Reciprocal Rank Fusion across two or three
// ranked result streams (regex-as-rank, semantic, and optionally
// AST-structural), with auto-detection of structural mode from a
// metavariable sigil in the query string.
package hybrid

import (
	"regexp"
	"sort"

	"github.com/codesearch/hybridcore/internal/pattern"
)

// Stream is one ranked source contributed to the fusion. Rank is
// 0-based position within the stream (best first); RRF only looks at
// rank, never the stream's own score.
type Stream struct {
	Name    string
	Results []StreamResult
}

// StreamResult identifies one chunk/line by its location, the unit RRF
// fuses on.
type StreamResult struct {
	Path      string
	ByteStart int
}

// FusedResult is one entry in the combined ranking.
type FusedResult struct {
	Path      string
	ByteStart int
	Score     float64
	Streams   []string // which input streams contributed to this result
}

// DefaultK is the typical Reciprocal Rank Fusion constant.
const DefaultK = 60

// Fuse combines streams via Reciprocal Rank Fusion: each stream
// contributes 1/(k+rank) to a chunk's combined score, with rank counted
// from 1 here (position 0 in a stream adds 1/(k+1)); chunks in
// multiple streams accumulate. Sorted by fused score descending,
// tie-broken by (path, byte_start) for determinism. Fuse is
// order-insensitive in its stream arguments: permuting streams produces
// an identical ranked output since contributions are summed per result
// key regardless of stream order.
func Fuse(streams []Stream, k int) []FusedResult {
	if k <= 0 {
		k = DefaultK
	}

	type acc struct {
		score   float64
		streams map[string]bool
	}
	byKey := make(map[StreamResult]*acc)

	for _, s := range streams {
		for rank, r := range s.Results {
			a, ok := byKey[r]
			if !ok {
				a = &acc{streams: make(map[string]bool)}
				byKey[r] = a
			}
			a.score += 1.0 / float64(k+rank+1)
			a.streams[s.Name] = true
		}
	}

	out := make([]FusedResult, 0, len(byKey))
	for key, a := range byKey {
		names := make([]string, 0, len(a.streams))
		for name := range a.streams {
			names = append(names, name)
		}
		sort.Strings(names)
		out = append(out, FusedResult{Path: key.Path, ByteStart: key.ByteStart, Score: a.score, Streams: names})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].ByteStart < out[j].ByteStart
	})
	return out
}

// metavarPattern matches a sigil like $NAME or $$ARGS: a dollar sign
// (optionally doubled for multi-capture) followed by an uppercase
// identifier.
var metavarPattern = regexp.MustCompile(`\$\$?[A-Z_][A-Z0-9_]*`)

// HasMetavariable reports whether query contains a structural pattern
// metavariable, the trigger for auto-invoking the structural search
// backend.
func HasMetavariable(query string) bool {
	return metavarPattern.MatchString(query)
}

// Truncate truncates results to topK, a no-op if already shorter.
func Truncate(results []FusedResult, topK int) []FusedResult {
	if topK <= 0 || topK >= len(results) {
		return results
	}
	return results[:topK]
}

// StructuralStream converts a structural search response into a ranked
// Stream, preserving the backend's own match order as rank. Byte offsets
// aren't part of PatternMatch (it's line-based), so StartLine doubles as
// the fusion key's byte position; regex and semantic streams over the
// same file still separate on path, and line-granularity collisions are
// rare enough not to need byte-exact alignment for fusion purposes.
func StructuralStream(resp *pattern.PatternResponse) Stream {
	if resp == nil {
		return Stream{Name: "structural"}
	}
	results := make([]StreamResult, len(resp.Matches))
	for i, m := range resp.Matches {
		results[i] = StreamResult{Path: m.FilePath, ByteStart: m.StartLine}
	}
	return Stream{Name: "structural", Results: results}
}

// Warning describes a non-fatal degradation encountered while assembling
// fusion streams: the core degrades gracefully rather than failing the
// whole query.
type Warning struct {
	Stream  string
	Message string
}

// BuildStreams assembles the fusion input from whichever backends
// produced results, and reports a Warning (rather than failing the whole
// query) when the structural backend was requested but unavailable.
// regex and semantic are required; structural is optional and structErr
// carries whatever internal/pattern reported trying to run it.
func BuildStreams(regexStream, semanticStream Stream, structural *pattern.PatternResponse, structErr error) ([]Stream, []Warning) {
	streams := []Stream{regexStream, semanticStream}
	var warnings []Warning

	if structErr != nil {
		warnings = append(warnings, Warning{Stream: "structural", Message: structErr.Error()})
	} else if structural != nil {
		streams = append(streams, StructuralStream(structural))
	}

	return streams, warnings
}
