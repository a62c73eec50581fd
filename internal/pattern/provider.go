package pattern

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
)

// AstGrepProvider is the PatternSearcher backed by a locally cached
// ast-grep binary, downloaded and verified lazily on first use rather
// than at startup.
type AstGrepProvider struct {
	binaryPath  string
	version     string
	initialized bool
	mu          sync.Mutex
}

// NewAstGrepProvider returns a provider with no binary installed yet.
func NewAstGrepProvider() *AstGrepProvider {
	return &AstGrepProvider{
		version:     AstGrepVersion,
		initialized: false,
	}
}

// ensureBinaryInstalled installs and verifies the ast-grep binary on
// first call and is a no-op on every call after. Concurrent callers
// serialize on p.mu so only one download happens even under a race.
func (p *AstGrepProvider) ensureBinaryInstalled(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	binaryPath, err := getBinaryPath()
	if err != nil {
		return fmt.Errorf("resolving ast-grep cache path: %w", err)
	}

	if _, err := os.Stat(binaryPath); err == nil {
		if err := verifyBinary(ctx, binaryPath); err == nil {
			p.binaryPath = binaryPath
			p.initialized = true
			return nil
		}

		log.Printf("pattern: cached ast-grep binary failed verification, reinstalling")
		if err := os.Remove(binaryPath); err != nil {
			log.Printf("pattern: could not remove invalid ast-grep binary: %v", err)
		}
	}

	log.Printf("pattern: installing ast-grep %s", p.version)

	platform, err := detectPlatform()
	if err != nil {
		return fmt.Errorf("detecting platform for ast-grep download: %w", err)
	}

	if err := downloadBinary(ctx, p.version, platform, binaryPath); err != nil {
		return fmt.Errorf("downloading ast-grep %s: %w", p.version, err)
	}

	if err := verifyBinary(ctx, binaryPath); err != nil {
		return fmt.Errorf("verifying downloaded ast-grep binary: %w", err)
	}

	log.Printf("pattern: ast-grep installed at %s", binaryPath)

	p.binaryPath = binaryPath
	p.initialized = true
	return nil
}

// BinaryPath returns the installed ast-grep path, or "" before the
// first successful ensureBinaryInstalled.
func (p *AstGrepProvider) BinaryPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.binaryPath
}

// IsInitialized reports whether the binary has been installed and
// verified.
func (p *AstGrepProvider) IsInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Search implements PatternSearcher by delegating to ExecutePattern,
// which owns binary management, request validation, and execution.
func (p *AstGrepProvider) Search(ctx context.Context, req *PatternRequest, projectRoot string) (*PatternResponse, error) {
	return ExecutePattern(ctx, p, req, projectRoot)
}
