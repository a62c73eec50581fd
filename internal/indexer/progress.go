package indexer

// ProgressReporter receives callbacks during Indexer.Run: a reporter
// interface plus a silent no-op implementation for --quiet/library use.
type ProgressReporter interface {
	OnDiscoveryComplete(total int)
	OnFileProcessed(path string)
	OnFileFailed(path string, err error)
	// OnEmbedBatch reports sub-progress while a single large file's
	// chunks are embedded in batches (see embed.EmbedBatched); done/total
	// count chunks, not files.
	OnEmbedBatch(path string, done, total int)
	OnComplete(stats *Stats)
}

// NoOpProgressReporter discards every callback.
type NoOpProgressReporter struct{}

func (NoOpProgressReporter) OnDiscoveryComplete(int)      {}
func (NoOpProgressReporter) OnFileProcessed(string)       {}
func (NoOpProgressReporter) OnFileFailed(string, error)   {}
func (NoOpProgressReporter) OnEmbedBatch(string, int, int) {}
func (NoOpProgressReporter) OnComplete(*Stats)            {}
