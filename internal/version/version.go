// Package version carries build metadata injected with -ldflags.
package version

// Set at build time:
//
//	go build -ldflags "-X github.com/sydlexius/trackyear/internal/version.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
)
