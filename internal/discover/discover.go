// Package discover implements file discovery and ignore policy: a lazy
// sequence of (path, language, text/binary) triples eligible for
// indexing or regex scanning, after default exclusions, VCS ignore
// rules, the project ignore file, and caller excludes are applied, in
// that order, as additive filters. Text/binary classification is the
// final layer but labels rather than drops: a non-text file (e.g. a PDF
// surviving the project ignore file's media/archive defaults) is still
// yielded, with IsText false, so the indexer can route it through the
// content-cache extraction path instead of the chunker.
//
// Walking uses glob compilation layered over filepath.Walk, streamed
// rather than materialized into a slice.
package discover

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"

	"github.com/codesearch/hybridcore/internal/coreerr"
)

// File is one eligible source file.
type File struct {
	// Path is relative to the repository root, slash-separated.
	Path     string
	AbsPath  string
	Language string
	IsText   bool // false: route through the content-cache extraction path instead of the chunker
	ModTime  int64 // unix nanoseconds, for change detection
	Size     int64
}

// defaultExclusionDirs is always skipped regardless of options: VCS
// metadata and common build/cache directories. The sidecar directory is
// excluded separately, via Options.SidecarDir.
var defaultExclusionDirs = []string{
	".git", ".hg", ".svn",
	"node_modules", "vendor", "dist", "build", "target",
	"__pycache__", ".venv", "venv", ".tox",
	".next", ".cache", ".terraform",
}

// Options configures the walk. SidecarDir must always be excluded.
type Options struct {
	SidecarDir              string   // relative or absolute, e.g. ".codesearch"
	Exclude                 []string // layer 4: caller-supplied gitignore-style globs
	RespectVCSIgnore        bool     // layer 2, default true
	RespectProjectIgnore    bool     // layer 3, default true
	IgnoreStructuredConfigs bool     // add JSON/YAML patterns to the project ignore file when it is first created
}

// Walker performs the layered walk over a repository root.
type Walker struct {
	root string
	opts Options

	excludeGlobs []glob.Glob
	vcs          *vcsIgnore
	project      *projectIgnore
}

// New creates a Walker rooted at root. It creates the project ignore file
// with its defaults on first use, unless RespectProjectIgnore is false.
func New(root string, opts Options) (*Walker, error) {
	w := &Walker{root: root, opts: opts}

	for _, pattern := range opts.Exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, coreerr.InvalidInput("exclude pattern", err.Error())
		}
		w.excludeGlobs = append(w.excludeGlobs, g)
	}

	if opts.RespectVCSIgnore {
		w.vcs = newVCSIgnore(root)
	}
	if opts.RespectProjectIgnore {
		pi, err := loadOrCreateProjectIgnore(root, opts.IgnoreStructuredConfigs)
		if err != nil {
			return nil, err
		}
		w.project = pi
	}

	return w, nil
}

// Walk streams eligible files on the returned channel and closes it when
// the walk completes, the context is cancelled, or a fatal error occurs
// (in which case it is sent on errc before the channel closes). Per-file
// I/O errors are logged and the file is skipped; the walk continues.
func (w *Walker) Walk(ctx context.Context) (<-chan File, <-chan error) {
	out := make(chan File)
	errc := make(chan error, 1)

	go func() {
		defer close(out)

		sidecarAbs := w.sidecarAbsPath()

		err := filepath.Walk(w.root, func(path string, info os.FileInfo, walkErr error) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if walkErr != nil {
				// Permission errors on the sidecar directory are fatal;
				// everything else is a per-file skip.
				if sidecarAbs != "" && (path == sidecarAbs || isWithin(sidecarAbs, path)) {
					return coreerr.IoError(path, walkErr)
				}
				log.Printf("discover: skipping %s: %v", path, walkErr)
				return nil
			}

			rel, relErr := filepath.Rel(w.root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if info.IsDir() {
				if w.shouldSkipDir(rel, path, sidecarAbs) {
					return filepath.SkipDir
				}
				return nil
			}

			if rel == "." {
				return nil
			}
			if w.isIgnored(rel) {
				return nil
			}

			isText, lang, classifyErr := classify(path)
			if classifyErr != nil {
				// Logged-and-skipped per-file I/O error.
				log.Printf("discover: skipping %s: %v", rel, classifyErr)
				return nil
			}

			select {
			case out <- File{
				Path:     rel,
				AbsPath:  path,
				Language: lang,
				IsText:   isText,
				ModTime:  info.ModTime().UnixNano(),
				Size:     info.Size(),
			}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})

		if err != nil && err != filepath.SkipDir {
			select {
			case errc <- err:
			default:
			}
		}
	}()

	return out, errc
}

func (w *Walker) sidecarAbsPath() string {
	if w.opts.SidecarDir == "" {
		return ""
	}
	if filepath.IsAbs(w.opts.SidecarDir) {
		return w.opts.SidecarDir
	}
	return filepath.Join(w.root, w.opts.SidecarDir)
}

func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && len(rel) >= 2 && rel[:2] != ".."+string(filepath.Separator)
}

func (w *Walker) shouldSkipDir(rel, abs, sidecarAbs string) bool {
	base := filepath.Base(rel)
	if sidecarAbs != "" && abs == sidecarAbs {
		return true
	}
	for _, d := range defaultExclusionDirs {
		if base == d {
			return true
		}
	}
	if w.vcs != nil && w.vcs.matchDir(rel) {
		return true
	}
	return false
}

func (w *Walker) isIgnored(rel string) bool {
	for _, g := range w.excludeGlobs {
		if g.Match(rel) {
			return true
		}
	}
	if w.vcs != nil && w.vcs.match(rel) {
		return true
	}
	if w.project != nil && w.project.match(rel) {
		return true
	}
	return false
}
