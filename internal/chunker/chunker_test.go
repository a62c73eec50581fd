package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cap(maxTokens int) Capability {
	return Capability{MaxTokens: maxTokens, StrideOverlap: 16, MinChunkLines: 2, TokenizerName: "cl100k_base"}
}

func TestChunkFilePythonClassAndFunction(t *testing.T) {
	src := []byte(`# module docstring
class Widget:
    """A widget."""
    def spin(self):
        return 1

def standalone():
    return 2
`)
	chunks, err := ChunkFile("python", src, cap(8192))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var found []string
	for _, c := range chunks {
		found = append(found, c.Breadcrumb)
	}
	assert.Contains(t, found, "Widget::spin")
	assert.Contains(t, found, "standalone")
}

func TestChunkFileFallsBackToLineChunkerForUnwiredLanguage(t *testing.T) {
	src := []byte("line one\nline two\n\nparagraph two line one\nparagraph two line two\n")
	chunks, err := ChunkFile("go", src, cap(8192))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, KindText, chunks[0].Kind)
}

func TestChunkFileDiscardsShortTextChunks(t *testing.T) {
	src := []byte("one line only\n")
	chunks, err := ChunkFile("plain text", src, cap(8192))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkFileStridesOversizeChunk(t *testing.T) {
	lines := ""
	for i := 0; i < 200; i++ {
		lines += "    x = x + 1\n"
	}
	src := []byte("def big():\n" + lines)

	chunks, err := ChunkFile("python", src, cap(50))
	require.NoError(t, err)
	require.True(t, len(chunks) > 1, "expected striding to produce multiple sub-chunks")

	for _, c := range chunks {
		assert.Equal(t, "big", c.Breadcrumb)
		assert.LessOrEqual(t, c.TokenEstimate, 60) // allow slack for boundary line
	}
}

func TestChunkFileOrdersByByteStartThenLargerEndFirst(t *testing.T) {
	src := []byte(`class Outer:
    def inner(self):
        return 1
`)
	chunks, err := ChunkFile("python", src, cap(8192))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Outer", chunks[0].Breadcrumb)
	assert.Equal(t, "Outer::inner", chunks[1].Breadcrumb)
	assert.GreaterOrEqual(t, chunks[0].Span.ByteEnd, chunks[1].Span.ByteEnd)
}
