// Package cli constructs the git-trunk command-line interface. It wires the
// Cobra command hierarchy to the layered configuration loader and the zap
// loggers, then registers one subcommand per trunk store operation.
package cli
