package constant

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)
