// Package execshell runs external tools on behalf of git-trunk.
//
// ShellExecutor wraps a CommandRunner with structured zap logging and
// lifecycle notifications for CommandEventObserver implementations, and
// CommandMessageFormatter describes the git plumbing commands issued by the
// trunk engine in human-readable form. OSCommandRunner is the os/exec backed
// default runner.
package execshell
