package chunker

import "strings"

// lineChunk is the fallback producer for files with no wired grammar, or
// for files whose structural parse failed. It splits on blank-line runs
// (paragraph breaks), which keeps related lines of prose, YAML, shell,
// Markdown, or an unsupported language's source together without any
// language-specific knowledge.
func lineChunk(source []byte) []Chunk {
	text := string(source)
	lines := strings.Split(text, "\n")

	var chunks []Chunk
	byteOffset := 0
	start := -1
	startByte := 0

	flush := func(endLine, endByte int) {
		if start < 0 {
			return
		}
		chunkText := strings.Join(lines[start:endLine], "\n")
		chunks = append(chunks, Chunk{
			Span: Span{
				ByteStart: startByte,
				ByteEnd:   endByte,
				LineStart: start + 1,
				LineEnd:   endLine,
			},
			Kind: KindText,
			Text: chunkText,
		})
		start = -1
	}

	for i, line := range lines {
		lineLen := len(line)
		if strings.TrimSpace(line) == "" {
			flush(i, byteOffset)
		} else if start < 0 {
			start = i
			startByte = byteOffset
		}
		byteOffset += lineLen + 1 // account for the '\n' split removed
	}
	flush(len(lines), len(source))

	return chunks
}
