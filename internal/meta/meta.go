// Package meta holds build metadata shared by the library and the CLI.
// Only Version is meant to be set at link time.
package meta

// Version is the semantic version of the library. Release builds may
// override it with -ldflags "-X github.com/rickchristie/dali/internal/meta.Version=...".
var Version = "0.1.0"

// Name identifies the library in the User-Agent header. It is fixed.
const Name = "dali"
