// Package misc keeps program identity values which are set at build time.
package misc

// These can be set via -ldflags at build time.
var (
	appName = "storynav"
	version = "dev"
	gitHash = "unknown"
)

func GetAppName() string {
	return appName
}

func GetVersion() string {
	return version
}

func GetGitHash() string {
	return gitHash
}

// GetUserAgent returns value program sends in User-Agent header.
func GetUserAgent() string {
	return appName + "/" + version
}
