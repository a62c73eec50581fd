// Package chunker decomposes a text buffer into a finite ordered list
// of chunks: structural chunks from a tree-sitter grammar when one is
// available, or a line-based fallback otherwise, each run through a
// shared refinement pipeline (trivia attachment, breadcrumb resolution,
// lambda expansion, token counting, striding, short-chunk discard).
//
// Per-language structural rules are declarative data (rules.go) rather
// than bespoke per-language parser code, so adding a language is a
// table entry, not a new visitor.
package chunker

// Kind is a chunk's structural classification.
type Kind string

const (
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
	KindClass    Kind = "class"
	KindStruct   Kind = "struct"
	KindTrait    Kind = "trait"
	KindModule   Kind = "module"
	KindConst    Kind = "const"
	KindText     Kind = "text" // fallback kind
)

// Span locates a chunk within its source file. Line numbers are 1-based;
// line_end >= line_start is an invariant enforced by every producer.
type Span struct {
	ByteStart int
	ByteEnd   int
	LineStart int
	LineEnd   int
}

// Chunk is the minimal indexable unit produced by this package. Embedding
// and ChunkHash are filled in later by the indexer/embedder, not by the
// chunker itself — the chunker only knows text and structure.
type Chunk struct {
	Span         Span
	Kind         Kind
	Breadcrumb   string // e.g. "module::Class::method"
	Doc          string // leading comment/docstring, if any
	Text         string
	TokenEstimate int
	Oversize     bool // true if TokenEstimate exceeds the model max and striding was not possible
	StrideOf     int  // index into the original pre-stride chunk list, for sub-chunks
}

// Capability is the immutable, shared configuration the indexer, chunker,
// and embedder all read. It is passed explicitly rather than held as
// global mutable state.
type Capability struct {
	MaxTokens     int // embedder's maximum context, drives striding
	StrideOverlap int // token overlap between sub-chunks
	MinChunkLines int // floor below which a chunk is discarded unless it carries a captured declaration
	TokenizerName string
}
