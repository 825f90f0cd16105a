// Package version provides centralized version information for atp.
// All packages reference this single source of truth for version info.
package version

// These variables can be overridden at build time using ldflags:
// go build -ldflags "-X atp/internal/version.Version=1.0.0 -X atp/internal/version.Commit=abc123"
var (
	// Version is the semantic version of atp
	Version = "1.0.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "atp version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}

// StoreVersion identifies the persisted store format. Cache and lock files
// written with a different store version are treated as empty and rebuilt.
const StoreVersion = 1
