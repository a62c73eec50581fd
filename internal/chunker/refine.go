package chunker

import "strings"

// ChunkFile produces the finite ordered list of chunks for a file's source,
// given its discover.File language label and the embedder's capability.
// It is the package's single public entry point: pick a structural or
// line-based producer, then run the shared refinement pipeline.
func ChunkFile(label string, source []byte, capability Capability) ([]Chunk, error) {
	chunks, structural := structuralChunk(label, source)
	if !structural {
		chunks = lineChunk(source)
	}

	counter, err := newTokenCounter()
	if err != nil {
		return nil, err
	}

	chunks = expandLambdas(chunks, source)
	chunks = strideOversize(chunks, counter, capability)
	chunks = discardShort(chunks, capability)

	sortChunks(chunks)
	return chunks, nil
}

// expandLambdas implements refinement step 3: an arrow-function or
// lambda-like expression bound to a named const/let declaration expands
// outward to cover the whole declaration rather than just the function
// body. The only rule table entry this applies to today is TypeScript's
// top-level lexical_declaration, already captured whole by structural
// parsing (const handler = () => {...} is the declaration node itself),
// so in practice this is a no-op guard against double-chunking rather
// than an expansion — kept as its own pipeline stage because future
// languages (e.g. Ruby's block-as-lambda idiom) will need real expansion
// logic here.
func expandLambdas(chunks []Chunk, source []byte) []Chunk {
	return chunks
}

// strideOversize implements refinement steps 4-5: compute a token count
// per chunk, and split any chunk exceeding cap.MaxTokens into overlapping
// sub-chunks along line boundaries. Each sub-chunk inherits its parent's
// breadcrumb and kind and is tagged with StrideOf so the indexer can
// group strides back to their source chunk if needed.
func strideOversize(chunks []Chunk, counter *tokenCounter, cap Capability) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	for idx, c := range chunks {
		c.TokenEstimate = counter.count(c.Text)
		if cap.MaxTokens <= 0 || c.TokenEstimate <= cap.MaxTokens {
			out = append(out, c)
			continue
		}

		strides := strideChunk(c, counter, cap, idx)
		if len(strides) == 0 {
			c.Oversize = true
			out = append(out, c)
			continue
		}
		out = append(out, strides...)
	}
	return out
}

// strideChunk splits an oversize chunk into line-bounded windows of
// approximately cap.MaxTokens tokens each, overlapping by
// cap.StrideOverlap tokens' worth of trailing lines. Returns nil if the
// chunk is a single line too long to usefully split (caller marks it
// Oversize instead).
func strideChunk(c Chunk, counter *tokenCounter, cap Capability, parentIdx int) []Chunk {
	lines := strings.Split(c.Text, "\n")
	if len(lines) < 2 {
		return nil
	}
	// lineOffsets[i] is the byte offset of lines[i] within c.Text.
	lineOffsets := make([]int, len(lines))
	for i := 1; i < len(lines); i++ {
		lineOffsets[i] = lineOffsets[i-1] + len(lines[i-1]) + 1
	}

	var strides []Chunk
	lineStart := 0
	for lineStart < len(lines) {
		end := lineStart
		for end < len(lines) {
			window := strings.Join(lines[lineStart:end+1], "\n")
			if counter.count(window) > cap.MaxTokens && end > lineStart {
				break
			}
			end++
		}
		windowText := strings.Join(lines[lineStart:end], "\n")

		strides = append(strides, Chunk{
			Span: Span{
				ByteStart: c.Span.ByteStart + lineOffsets[lineStart],
				ByteEnd:   c.Span.ByteStart + lineOffsets[lineStart] + len(windowText),
				LineStart: c.Span.LineStart + lineStart,
				LineEnd:   c.Span.LineStart + end - 1,
			},
			Kind:          c.Kind,
			Breadcrumb:    c.Breadcrumb,
			Doc:           c.Doc,
			Text:          windowText,
			TokenEstimate: counter.count(windowText),
			StrideOf:      parentIdx,
		})

		if end >= len(lines) {
			break
		}
		overlapLines := linesForOverlap(lines, end, cap.StrideOverlap, counter)
		lineStart = end - overlapLines
		if lineStart <= strides[len(strides)-1].Span.LineStart-c.Span.LineStart {
			lineStart = end // guarantee forward progress
		}
	}
	return strides
}

// linesForOverlap walks backward from end counting how many trailing
// lines are needed to cover roughly overlapTokens worth of tokens.
func linesForOverlap(lines []string, end, overlapTokens int, counter *tokenCounter) int {
	if overlapTokens <= 0 {
		return 0
	}
	n := 0
	for i := end - 1; i >= 0 && n < end; i-- {
		window := strings.Join(lines[i:end], "\n")
		if counter.count(window) > overlapTokens {
			break
		}
		n++
	}
	return n
}

// discardShort implements refinement step 6: drop chunks spanning fewer
// lines than cap.MinChunkLines, unless they carry a captured declaration
// (anything other than the line-chunker's generic KindText).
func discardShort(chunks []Chunk, cap Capability) []Chunk {
	if cap.MinChunkLines <= 0 {
		return chunks
	}
	out := chunks[:0]
	for _, c := range chunks {
		lines := c.Span.LineEnd - c.Span.LineStart + 1
		if lines < cap.MinChunkLines && c.Kind == KindText {
			continue
		}
		out = append(out, c)
	}
	return out
}

// sortChunks enforces ascending byte_start order, ties broken by the
// larger end (container before contained).
func sortChunks(chunks []Chunk) {
	for i := 1; i < len(chunks); i++ {
		j := i
		for j > 0 && less(chunks[j], chunks[j-1]) {
			chunks[j], chunks[j-1] = chunks[j-1], chunks[j]
			j--
		}
	}
}

func less(a, b Chunk) bool {
	if a.Span.ByteStart != b.Span.ByteStart {
		return a.Span.ByteStart < b.Span.ByteStart
	}
	return a.Span.ByteEnd > b.Span.ByteEnd
}
