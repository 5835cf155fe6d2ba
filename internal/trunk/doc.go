// Package trunk implements the store synchronization engine behind git-trunk.
//
// A store is an independent git repository materialized at .trunk/<store> inside a
// host repository. Its history is recorded in the host under refs/trunk/<store>,
// which travels with ordinary push and fetch. Service exposes the operations on a
// store: Initialize, Checkout, Commit, Push, Conceal, Delete and Status. Bridge
// moves commits between the nested and host object databases through temporary
// refs that are always released.
//
// Operations are synchronous and take an explicit HostRepository. Concurrent
// invocations against the same host are not coordinated.
package trunk
