// Package service implements the eight-operation agent RPC surface:
// semantic_search, regex_search, lexical_search, hybrid_search,
// structural_search, index_status, reindex, and health_check. Plain Go
// methods, no transport framing — one façade method per externally
// exposed operation, returning a plain struct a transport wraps, without
// depending on any transport-specific types.
package service

// Span locates a result within its source file, mirroring the JSONL
// output schema.
type Span struct {
	ByteStart int `json:"byte_start"`
	ByteEnd   int `json:"byte_end"`
	LineStart int `json:"line_start"`
	LineEnd   int `json:"line_end"`
}

// ResultRecord is one row of the structured output schema.
type ResultRecord struct {
	Path       string   `json:"path"`
	Span       Span     `json:"span"`
	Language   string   `json:"language"`
	Snippet    string   `json:"snippet,omitempty"`
	Score      *float64 `json:"score"`
	ChunkHash  string   `json:"chunk_hash"`
	IndexEpoch int64    `json:"index_epoch"`
}

// Page is one cursor-addressable page of results.
type Page struct {
	Results    []ResultRecord `json:"results"`
	NextCursor string         `json:"next_cursor,omitempty"`
	TotalCount int            `json:"total_count"`
}

// Warning is a non-fatal degradation surfaced alongside a result page,
// e.g. the structural backend being unavailable.
type Warning struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// IndexStatusResult answers index_status.
type IndexStatusResult struct {
	Indexed        bool   `json:"indexed"`
	SchemaVersion  uint32 `json:"schema_version"`
	EmbeddingModel string `json:"embedding_model"`
	EmbeddingDim   int    `json:"embedding_dim"`
	FileCount      int    `json:"file_count"`
	UpdatedAtUnix  int64  `json:"updated_at_unix"`
}

// HealthCheckResult answers health_check.
type HealthCheckResult struct {
	SidecarWritable     bool   `json:"sidecar_writable"`
	EmbeddingAvailable  bool   `json:"embedding_available"`
	StructuralAvailable bool   `json:"structural_available"`
	Detail              string `json:"detail,omitempty"`
}
