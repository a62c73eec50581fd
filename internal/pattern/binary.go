package pattern

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// AstGrepVersion pins the ast-grep release this package downloads and
// verifies; bump alongside a BuildCommand change that depends on newer
// CLI flags.
const AstGrepVersion = "0.39.6"

// detectPlatform maps runtime.GOOS/GOARCH to the platform tag used in
// the mirrored release archive names. A package-level var so tests can
// substitute it.
var detectPlatform = func() (string, error) {
	goos := runtime.GOOS
	goarch := runtime.GOARCH

	switch goos {
	case "darwin":
		if goarch == "arm64" {
			return "darwin-arm64", nil
		} else if goarch == "amd64" {
			return "darwin-amd64", nil
		}
	case "linux":
		if goarch == "arm64" {
			return "linux-arm64", nil
		} else if goarch == "amd64" {
			return "linux-amd64", nil
		}
	case "windows":
		if goarch == "amd64" {
			return "windows-amd64", nil
		}
	}

	return "", fmt.Errorf("unsupported platform: %s/%s (ast-grep not available for this platform)",
		goos, goarch)
}

// binaryMirrorBaseURL is the object-storage mirror ast-grep releases are
// republished to, avoiding GitHub's unauthenticated rate limit on a
// fleet of indexers downloading the same release concurrently.
const binaryMirrorBaseURL = "https://codesearch-hybridcore.s3.amazonaws.com"

// constructDownloadURL builds the mirror URL for one platform's release
// archive. A package-level var so tests can substitute it.
var constructDownloadURL = func(platform string) string {
	return fmt.Sprintf("%s/ast-grep-v%s-%s.zip", binaryMirrorBaseURL, AstGrepVersion, platform)
}

// getBinaryPath returns the cache path the ast-grep binary is installed
// to, under the user's home directory rather than next to the source
// tree so it survives a reindex or a project move. A package-level var
// so tests can substitute it.
var getBinaryPath = func() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving user home directory: %w", err)
	}

	binDir := filepath.Join(homeDir, ".codesearch", "bin")
	binaryPath := filepath.Join(binDir, "ast-grep")
	if runtime.GOOS == "windows" {
		binaryPath += ".exe"
	}

	return binaryPath, nil
}

// downloadBinary fetches the release archive for platform, extracts the
// ast-grep binary from it, and installs it at destPath. A package-level
// var so tests can substitute it.
var downloadBinary = func(ctx context.Context, version, platform, destPath string) error {
	url := constructDownloadURL(platform)

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating ast-grep bin directory: %w", err)
	}

	tmpZip, err := os.CreateTemp(destDir, "ast-grep-*.zip")
	if err != nil {
		return fmt.Errorf("creating temp download file: %w", err)
	}
	tmpZipPath := tmpZip.Name()
	defer os.Remove(tmpZipPath)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("building download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status)
	}

	if _, err := io.Copy(tmpZip, resp.Body); err != nil {
		tmpZip.Close()
		return fmt.Errorf("writing download to disk: %w", err)
	}
	tmpZip.Close()

	if err := extractBinaryFromZip(tmpZipPath, destPath); err != nil {
		return fmt.Errorf("extracting ast-grep from archive: %w", err)
	}

	return nil
}

// extractBinaryFromZip extracts the ast-grep/ast-grep.exe binary from the zip archive.
// extractBinaryFromZip locates the platform's ast-grep binary inside the
// downloaded archive, writes it to a temp file in destPath's directory,
// marks it executable, then renames it into place so a reader never
// observes a partially-written binary.
func extractBinaryFromZip(zipPath, destPath string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("opening ast-grep archive: %w", err)
	}
	defer r.Close()

	binaryName := "ast-grep"
	if runtime.GOOS == "windows" {
		binaryName = "ast-grep.exe"
	}

	for _, f := range r.File {
		if filepath.Base(f.Name) != binaryName {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening %s in archive: %w", binaryName, err)
		}
		defer rc.Close()

		tmpBinary, err := os.CreateTemp(filepath.Dir(destPath), "ast-grep-*.tmp")
		if err != nil {
			return fmt.Errorf("creating temp binary file: %w", err)
		}
		tmpPath := tmpBinary.Name()
		defer os.Remove(tmpPath)

		if _, err := io.Copy(tmpBinary, rc); err != nil {
			tmpBinary.Close()
			return fmt.Errorf("writing extracted binary: %w", err)
		}
		tmpBinary.Close()

		if runtime.GOOS != "windows" {
			if err := os.Chmod(tmpPath, 0755); err != nil {
				return fmt.Errorf("making binary executable: %w", err)
			}
		}

		if err := os.Rename(tmpPath, destPath); err != nil {
			return fmt.Errorf("installing binary at %s: %w", destPath, err)
		}

		return nil
	}

	return fmt.Errorf("%s not found in downloaded archive", binaryName)
}

// verifyBinary runs "ast-grep --version" and checks the output looks
// like ast-grep, catching a truncated download or an unrelated binary
// left at the cache path by a prior failed install.
func verifyBinary(ctx context.Context, binaryPath string) error {
	cmd := exec.CommandContext(ctx, binaryPath, "--version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("running %s --version: %w", binaryPath, err)
	}

	outputStr := strings.TrimSpace(string(output))
	if !strings.Contains(outputStr, "ast-grep") {
		return fmt.Errorf("unexpected --version output: %s", outputStr)
	}

	return nil
}
