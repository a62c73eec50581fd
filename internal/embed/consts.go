package embed

// DefaultEmbedServerHost and DefaultEmbedServerPort address the local
// embedding daemon (cmd/codesearch-embed) once started.
const (
	DefaultEmbedServerHost = "127.0.0.1"
	DefaultEmbedServerPort = 8121
)
