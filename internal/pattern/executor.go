package pattern

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

const (
	// ExecutionTimeout bounds a single ast-grep invocation; a pattern
	// that runs longer is assumed to be pathological rather than slow.
	ExecutionTimeout = 30 * time.Second
)

// ExecutePattern validates req, shells out to ast-grep with a bounded
// argv built by BuildCommand, and transforms its compact-JSON output
// into a PatternResponse. req validation failures and path-traversal
// rejections surface as coreerr.KindInvalidInput; a binary that cannot
// be installed or verified surfaces as coreerr.KindUnavailable.
func ExecutePattern(ctx context.Context, provider *AstGrepProvider, req *PatternRequest, projectRoot string) (*PatternResponse, error) {
	if err := provider.ensureBinaryInstalled(ctx); err != nil {
		return nil, coreerr.Unavailable("ast-grep", err)
	}

	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	args, err := BuildCommand(req, projectRoot)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, ExecutionTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, provider.binaryPath, args...)
	cmd.Dir = projectRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startTime := time.Now()
	err = cmd.Run()
	tookMs := time.Since(startTime).Milliseconds()

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("pattern search timeout: exceeded %s", ExecutionTimeout)
		}
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("ast-grep: %s", stderr.String())
		}
		return nil, fmt.Errorf("ast-grep execution failed: %w", err)
	}

	result, err := parseAstGrepOutput(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parsing ast-grep output: %w", err)
	}

	response := transformToResponse(result, req, tookMs)
	response = applyLimit(response, req)

	return response, nil
}

// parseAstGrepOutput decodes ast-grep's --json=compact output, a bare
// JSON array of matches rather than an object wrapper. Empty output is
// a zero-match result, not an error.
func parseAstGrepOutput(data []byte) (*AstGrepResult, error) {
	if len(data) == 0 {
		return &AstGrepResult{Matches: []AstGrepMatch{}}, nil
	}

	var matches []AstGrepMatch
	if err := json.Unmarshal(data, &matches); err != nil {
		return nil, fmt.Errorf("invalid JSON output: %w", err)
	}

	return &AstGrepResult{Matches: matches}, nil
}

// transformToResponse flattens ast-grep's raw match shape into
// PatternResponse: metavariables collapse to their text value, the -C
// context ast-grep already embedded in the text field is reused
// directly rather than re-sliced from source.
func transformToResponse(result *AstGrepResult, req *PatternRequest, tookMs int64) *PatternResponse {
	matches := make([]PatternMatch, len(result.Matches))

	for i, match := range result.Matches {
		// Extract metavariable text values (ignore line numbers)
		metavars := make(map[string]string)
		for name, metavar := range match.MetaVariables.Single {
			metavars[name] = metavar.Text
		}

		matches[i] = PatternMatch{
			FilePath:  match.File,
			StartLine: match.Range.Start.Line,
			EndLine:   match.Range.End.Line,
			MatchText: match.Text,
			Context:   match.Text, // ast-grep -C includes context in text field
			Metavars:  metavars,
		}
	}

	return &PatternResponse{
		Matches: matches,
		Total:   len(matches),
		Metadata: PatternMetadata{
			TookMs:     tookMs,
			Pattern:    req.Pattern,
			Language:   req.Language,
			Strictness: GetStrictness(req),
		},
	}
}

// applyLimit truncates response.Matches to the request's limit; ast-grep
// itself has no --limit flag, so this is post-processed client-side.
// Total keeps reflecting the pre-truncation match count so a caller can
// tell "150 found, showing 50" apart from "exactly 50 found".
func applyLimit(response *PatternResponse, req *PatternRequest) *PatternResponse {
	limit := GetLimit(req)

	if len(response.Matches) <= limit {
		return response
	}

	return &PatternResponse{
		Matches:  response.Matches[:limit],
		Total:    response.Total, // Keep original total
		Metadata: response.Metadata,
	}
}
