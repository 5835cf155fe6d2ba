// Package gitrepo wraps the git plumbing used by the trunk engine.
//
// RepositoryManager resolves revisions, updates and deletes references,
// transfers objects with fetch, publishes references with push, queries remote
// advertisements, and inspects working tree state. Every call receives the
// repository path explicitly; nothing depends on the process working directory.
package gitrepo
