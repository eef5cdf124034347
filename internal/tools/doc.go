// Package tools provides process helpers shared by the CLI entrypoints.
//
// Ownership boundary:
// - launching and reaping the server child process
package tools
