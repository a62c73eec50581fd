package pattern

// PatternRequest is one structural (AST pattern) search request.
type PatternRequest struct {
	Pattern      string   `json:"pattern"`       // required: ast-grep pattern, may contain metavariables like $VAR
	Language     string   `json:"language"`      // required: must be a key in SupportedLanguages
	FilePaths    []string `json:"file_paths"`    // optional glob filters, relative to the project root
	ContextLines *int     `json:"context_lines"` // optional, MinContextLines..MaxContextLines, default DefaultContextLines
	Strictness   string   `json:"strictness"`     // optional, must be a key in ValidStrictnessLevels, default DefaultStrictness
	Limit        *int     `json:"limit"`          // optional, MinLimit..MaxLimit, default DefaultLimit
}

// PatternMatch is one matched span, trimmed down from ast-grep's raw
// AstGrepMatch shape to what a caller needs to locate and display it.
type PatternMatch struct {
	FilePath  string            `json:"file_path"`  // relative to the project root
	StartLine int               `json:"start_line"` // 1-indexed
	EndLine   int               `json:"end_line"`   // 1-indexed
	MatchText string            `json:"match_text"`
	Context   string            `json:"context"` // surrounding lines, from the -C flag
	Metavars  map[string]string `json:"metavars"`
}

// PatternResponse is the outcome of one structural search.
type PatternResponse struct {
	Matches  []PatternMatch  `json:"matches"`
	Total    int             `json:"total"` // pre-truncation match count; may exceed len(Matches)
	Metadata PatternMetadata `json:"metadata"`
}

// PatternMetadata carries the parameters and timing of the query that
// produced a PatternResponse, for logging and client-side display.
type PatternMetadata struct {
	TookMs     int64  `json:"took_ms"`
	Pattern    string `json:"pattern"`
	Language   string `json:"language"`
	Strictness string `json:"strictness"`
}

// AstGrepResult is the decoded form of ast-grep's --json=compact
// output, which is a bare JSON array rather than an object with a
// "matches" field.
type AstGrepResult struct {
	Matches []AstGrepMatch
}

// AstGrepMatch is one element of ast-grep's --json=compact array, e.g.:
//
//	{"text": "conn.Close()", "file": "a.go",
//	 "range": {"start": {"line": 2, "column": 1}, "end": {"line": 2, "column": 13}},
//	 "metaVariables": {"single": {"FUNC": {"text": "conn.Close", "range": {...}}}}}
type AstGrepMatch struct {
	File          string          `json:"file"`
	Text          string          `json:"text"`
	Range         AstGrepRange    `json:"range"`
	MetaVariables AstGrepMetaVars `json:"metaVariables"`
}

// AstGrepRange is a start/end span in ast-grep's line/column position format.
type AstGrepRange struct {
	Start AstGrepPosition `json:"start"`
	End   AstGrepPosition `json:"end"`
}

// AstGrepPosition is one line/column position; Line is 1-indexed.
type AstGrepPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// AstGrepMetaVars holds the captured metavariables keyed by name.
// ast-grep also emits "multi" and "transformed" variants this package
// does not consume.
type AstGrepMetaVars struct {
	Single map[string]AstGrepMetaVar `json:"single"`
}

// AstGrepMetaVar is one captured metavariable's text and span.
type AstGrepMetaVar struct {
	Text  string       `json:"text"`
	Range AstGrepRange `json:"range"`
}
