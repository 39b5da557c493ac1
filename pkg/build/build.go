// Package build carries the static identity of this client binary. The
// values are plain vars so that release tooling can pin them with -ldflags;
// the defaults mark a development build.
package build

var (
	// ClientName identifies the client implementation to the server.
	ClientName = "grr"

	// ClientVersion is the numeric version of the client build.
	ClientVersion = 3000

	// BuildTime is the time the binary was produced, as recorded by the
	// release tooling. Empty for ad-hoc builds.
	BuildTime = "unknown"
)
