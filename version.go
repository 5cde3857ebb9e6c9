// Package tileagent provides the version information for tileagent.
package tileagent

// Version is the current version of tileagent.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
