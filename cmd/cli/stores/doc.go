// Package stores builds the git-trunk subcommands. Each builder resolves the
// host repository from the command context, wires the trunk engine over a
// shell-backed git executor, and prints one line per outcome.
package stores
