package discover

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func collect(t *testing.T, w *Walker) []File {
	t.Helper()
	out, errc := w.Walk(context.Background())
	var files []File
	for f := range out {
		files = append(files, f)
	}
	select {
	case err := <-errc:
		require.NoError(t, err)
	default:
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

func TestWalkSkipsDefaultExclusionsAndSidecar(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.go", "package a\n")
	writeFile(t, root, "node_modules/pkg/index.js", "console.log(1)\n")
	writeFile(t, root, ".codesearch/manifest.bin", "binary-ish")

	w, err := New(root, Options{SidecarDir: ".codesearch", RespectVCSIgnore: false, RespectProjectIgnore: false})
	require.NoError(t, err)

	files := collect(t, w)
	require.Len(t, files, 1)
	assert.Equal(t, "src/a.go", files[0].Path)
	assert.Equal(t, "go", files[0].Language)
}

func TestWalkClassifiesBinaryByNulByteButStillYieldsIt(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "data.weird")
	require.NoError(t, os.WriteFile(path, []byte("abc\x00def"), 0o644))
	writeFile(t, root, "ok.txt", "hello world")

	w, err := New(root, Options{RespectVCSIgnore: false, RespectProjectIgnore: false})
	require.NoError(t, err)

	files := collect(t, w)
	require.Len(t, files, 2)

	byPath := make(map[string]File, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}
	assert.True(t, byPath["ok.txt"].IsText)
	assert.Equal(t, "plain text", byPath["ok.txt"].Language)
	assert.False(t, byPath["data.weird"].IsText)
}

func TestWalkRespectsCallerExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.go", "package a\n")
	writeFile(t, root, "src/a_test.go", "package a\n")

	w, err := New(root, Options{Exclude: []string{"**/*_test.go"}, RespectVCSIgnore: false, RespectProjectIgnore: false})
	require.NoError(t, err)

	files := collect(t, w)
	require.Len(t, files, 1)
	assert.Equal(t, "src/a.go", files[0].Path)
}

func TestWalkRespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "ignored/\n*.log\n")
	writeFile(t, root, "src/a.go", "package a\n")
	writeFile(t, root, "ignored/b.go", "package b\n")
	writeFile(t, root, "debug.log", "log line\n")

	w, err := New(root, Options{RespectVCSIgnore: true, RespectProjectIgnore: false})
	require.NoError(t, err)

	files := collect(t, w)
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "src/a.go")
	assert.NotContains(t, paths, "ignored/b.go")
	assert.NotContains(t, paths, "debug.log")
}

func TestProjectIgnoreCreatedWithDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/a.go", "package a\n")
	writeFile(t, root, "assets/logo.png", "fake-png-bytes")

	w, err := New(root, Options{RespectVCSIgnore: false, RespectProjectIgnore: true, IgnoreStructuredConfigs: true})
	require.NoError(t, err)

	ignoreFilePath := filepath.Join(root, projectIgnoreFileName)
	_, statErr := os.Stat(ignoreFilePath)
	require.NoError(t, statErr)

	files := collect(t, w)
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Contains(t, paths, "src/a.go")
	assert.NotContains(t, paths, "assets/logo.png")
}
