// Package version holds the build version reported at startup and on /api/version.
package version

// Version is overridden at build time with -ldflags "-X qiblago/pkg/version.Version=...".
var Version = "v0.1.0"
