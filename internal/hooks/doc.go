// Package hooks installs the git hooks that keep a trunk store in step with its host:
// post-commit captures the store after each host commit and pre-push publishes it
// when the main branch is pushed.
package hooks
