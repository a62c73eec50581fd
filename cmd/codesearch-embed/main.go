package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/codesearch/hybridcore/internal/embed"
	"github.com/codesearch/hybridcore/internal/embed/server"

	"github.com/kluctl/go-embed-python/embed_util"
	"github.com/kluctl/go-embed-python/python"
)

// codesearch-embed is the local embedding daemon the "local" Provider
// variant (internal/embed/local.go) talks to over plain JSON HTTP. It
// runs an embedded Python interpreter with sentence-transformers
// pip-vendored at build time, rather than requiring a system Python.
func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get user home directory: %v", err)
	}
	stateDir := filepath.Join(homeDir, ".codesearch")

	// Create embedded Python environment in a persistent location so it
	// survives across runs instead of re-extracting every start.
	pythonRuntimeDir := filepath.Join(stateDir, "embed", "runtime")
	ep, err := python.NewEmbeddedPythonWithTmpDir(pythonRuntimeDir, true)
	if err != nil {
		log.Fatalf("Failed to create embedded Python: %v", err)
	}

	pipCacheDir := filepath.Join(stateDir, "embed", "packages")
	embeddedFiles, err := embed_util.NewEmbeddedFilesWithTmpDir(server.Data, pipCacheDir, true)
	if err != nil {
		log.Fatalf("Failed to load embedded files: %v", err)
	}
	ep.AddPythonPath(embeddedFiles.GetExtractedPath())

	tmpDir, err := os.MkdirTemp("", "codesearch-embed-*")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	scriptPath := filepath.Join(tmpDir, "embedding_service.py")
	if err := os.WriteFile(scriptPath, []byte(server.EmbeddingScript), 0644); err != nil {
		log.Fatalf("Failed to write script: %v", err)
	}

	port := embed.DefaultEmbedServerPort
	cmd, err := ep.PythonCmd(scriptPath, strconv.Itoa(port))
	if err != nil {
		log.Fatalf("Failed to create Python command: %v", err)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start Python server: %v", err)
	}

	log.Printf("Starting embedding service on http://%s:%d\n", embed.DefaultEmbedServerHost, port)

	if err := waitForReady(ctx, port); err != nil {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		log.Fatalf("Service failed to start: %v", err)
	}

	log.Println("embedding service ready")

	<-ctx.Done()
	log.Println("shutting down")
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

func waitForReady(ctx context.Context, port int) error {
	client := &http.Client{Timeout: 2 * time.Second}
	timeout := 2 * time.Minute // allow time for model download on first run

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	url := fmt.Sprintf("http://127.0.0.1:%d/", port)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if time.Now().After(deadline) {
				return fmt.Errorf("timeout after %v waiting for service", timeout)
			}

			resp, err := client.Get(url)
			if err == nil && resp.StatusCode == 200 {
				resp.Body.Close()
				return nil
			}
			if resp != nil {
				resp.Body.Close()
			}
		}
	}
}
