package dali

import "github.com/rickchristie/dali/internal/meta"

// Version returns the semantic version of the library.
func Version() string {
	return meta.Version
}

// UserAgent returns the User-Agent value sent with every request.
func UserAgent() string {
	return meta.Name + "/" + meta.Version
}
