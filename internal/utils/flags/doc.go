// Package flags binds the flags git-trunk commands share.
package flags
