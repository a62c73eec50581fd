package pattern

import "context"

// PatternSearcher runs an AST-structural pattern query against a project
// tree. The one production implementation, AstGrepProvider, owns binary
// management, command execution, and result parsing; callers depend on
// this interface instead so tests can substitute a fake searcher.
type PatternSearcher interface {
	// Search runs req against the tree rooted at projectRoot and returns
	// structured matches. A coreerr.KindInvalidInput error means req
	// itself was malformed (bad pattern, unsupported language); any
	// other error means the underlying ast-grep process could not be
	// run or its output could not be parsed.
	Search(ctx context.Context, req *PatternRequest, projectRoot string) (*PatternResponse, error)
}
