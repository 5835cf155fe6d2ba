package trunk

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	// StoresDirectoryName is the directory under the host top level that holds materialized stores.
	StoresDirectoryName = ".trunk"
	// ReferenceNamespace prefixes every host ref that records a store history.
	ReferenceNamespace = "refs/trunk/"
	// TemporaryReferenceNamespace prefixes the short-lived refs created while bridging objects.
	TemporaryReferenceNamespace = "refs/trunk-temp/"
	// StoreBranchReference is the only branch a nested store repository carries.
	StoreBranchReference = "refs/heads/main"
	// StoreBranchName is the short name of StoreBranchReference.
	StoreBranchName = "main"
	// DefaultStoreName is used when no store is selected.
	DefaultStoreName = "main"
	// DefaultRemoteName is used when no remote is selected.
	DefaultRemoteName = "origin"
	// IgnoreFileName is the host ignore list that keeps stores out of the host index.
	IgnoreFileName = ".gitignore"

	headReferenceConstant            = "HEAD"
	lockSuffixConstant               = ".lock"
	forbiddenCharactersConstant      = "~^:?*[@{\\/"
	storeNameEmptyReasonConstant     = "must not be empty"
	storeNameDotReasonConstant       = "must not be . or .."
	storeNameDashReasonConstant      = "must not start with -"
	storeNameLeadingDotReason        = "must not start with ."
	storeNameLockReasonConstant      = "must not end with .lock"
	storeNameDotDotReasonConstant    = "must not contain .."
	storeNameSpaceReasonConstant     = "must not contain whitespace or control characters"
	storeNameCharacterTemplate       = "must not contain %q"
	storeNameTrailingDotReason       = "must not end with ."
	invalidStoreNameTemplateConstant = "invalid store name %q: %s"
)

// InvalidStoreNameError reports a rejected store name.
type InvalidStoreNameError struct {
	Value  string
	Reason string
}

// Error describes the rejected name.
func (nameError InvalidStoreNameError) Error() string {
	return fmt.Sprintf(invalidStoreNameTemplateConstant, nameError.Value, nameError.Reason)
}

// StoreName identifies a store. Values are only produced by NewStoreName, so every StoreName
// is usable both as a directory name and as a ref component.
type StoreName struct {
	value string
}

// NewStoreName trims and validates raw.
func NewStoreName(raw string) (StoreName, error) {
	trimmed := strings.TrimSpace(raw)
	if reason, invalid := storeNameViolation(trimmed); invalid {
		return StoreName{}, InvalidStoreNameError{Value: raw, Reason: reason}
	}
	return StoreName{value: trimmed}, nil
}

func storeNameViolation(candidate string) (string, bool) {
	switch {
	case len(candidate) == 0:
		return storeNameEmptyReasonConstant, true
	case candidate == "." || candidate == "..":
		return storeNameDotReasonConstant, true
	case strings.HasPrefix(candidate, "."):
		return storeNameLeadingDotReason, true
	case strings.HasPrefix(candidate, "-"):
		return storeNameDashReasonConstant, true
	case strings.HasSuffix(candidate, lockSuffixConstant):
		return storeNameLockReasonConstant, true
	case strings.HasSuffix(candidate, "."):
		return storeNameTrailingDotReason, true
	case strings.Contains(candidate, ".."):
		return storeNameDotDotReasonConstant, true
	}

	for _, character := range candidate {
		if unicode.IsSpace(character) || unicode.IsControl(character) {
			return storeNameSpaceReasonConstant, true
		}
		if strings.ContainsRune(forbiddenCharactersConstant, character) {
			return fmt.Sprintf(storeNameCharacterTemplate, string(character)), true
		}
	}
	return "", false
}

// String returns the validated name.
func (name StoreName) String() string {
	return name.value
}

// IsZero reports whether name was never validated.
func (name StoreName) IsZero() bool {
	return len(name.value) == 0
}

// Reference returns the host ref that records the store history.
func (name StoreName) Reference() string {
	return ReferenceNamespace + name.value
}

// StoreNameFromReference extracts the store name from a refs/trunk/ ref.
func StoreNameFromReference(reference string) (StoreName, bool) {
	if !strings.HasPrefix(reference, ReferenceNamespace) {
		return StoreName{}, false
	}
	name, nameError := NewStoreName(strings.TrimPrefix(reference, ReferenceNamespace))
	if nameError != nil {
		return StoreName{}, false
	}
	return name, true
}

// HostRepository is the repository that carries the refs/trunk/ namespace and the stores directory.
// Engine operations receive it explicitly and never consult the process working directory.
type HostRepository struct {
	rootPath string
}

// RootPath returns the absolute top-level directory of the host.
func (host HostRepository) RootPath() string {
	return host.rootPath
}

// StoresRootPath returns the directory that holds every materialized store.
func (host HostRepository) StoresRootPath() string {
	return filepath.Join(host.rootPath, StoresDirectoryName)
}

// StorePath returns the materialization directory of store.
func (host HostRepository) StorePath(store StoreName) string {
	return filepath.Join(host.StoresRootPath(), store.String())
}

// IgnoreFilePath returns the host ignore list path.
func (host HostRepository) IgnoreFilePath() string {
	return filepath.Join(host.rootPath, IgnoreFileName)
}

// IsZero reports whether host was never resolved.
func (host HostRepository) IsZero() bool {
	return len(host.rootPath) == 0
}
