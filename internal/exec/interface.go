// Package exec runs external commands for tools that need the Go toolchain.
package exec

import "context"

// CommandRunner runs external commands. Tools take it as a dependency so
// tests can substitute a fake.
type CommandRunner interface {
	// Run executes name with args in dir and returns combined output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

	// Available reports whether the named binary can be found on PATH.
	Available(name string) bool
}
