// Package version exposes build metadata for motion-stream.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags.
// Builds without ldflags fall back to the VCS stamp recorded by the Go toolchain.
package version
