// Package version carries the build identity of the tester binary.
package version

import "github.com/seekerror/build"

var v = build.NewVersion(0, 1, 0)

// String returns the tester's version string.
func String() string {
	return v.String()
}
