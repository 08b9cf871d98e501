// Package version carries the build identity stamped in via ldflags:
//
//	-X rawi/pkg/version.Version=v1.2.3
//	-X rawi/pkg/version.GitCommit=$(git rev-parse HEAD)
//	-X rawi/pkg/version.BuildDate=$(date -u +%Y-%m-%dT%H:%M:%SZ)
package version

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// GetShortCommit returns the first seven characters of the commit hash.
func GetShortCommit() string {
	if len(GitCommit) >= 7 {
		return GitCommit[:7]
	}
	return GitCommit
}
