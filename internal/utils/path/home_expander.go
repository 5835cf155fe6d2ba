package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	homeShortcutConstant      = "~"
	homeShortcutSlashConstant = "~/"
)

// HomeDirectoryProvider resolves the current user's home directory.
type HomeDirectoryProvider func() (string, error)

// HomeExpander rewrites a leading home shortcut in configuration paths.
type HomeExpander struct {
	provider      HomeDirectoryProvider
	homeDirectory string
	resolveOnce   sync.Once
}

// NewHomeExpander uses the operating system home directory.
func NewHomeExpander() *HomeExpander {
	return NewHomeExpanderWithProvider(os.UserHomeDir)
}

// NewHomeExpanderWithProvider uses provider, falling back to the operating system lookup when nil.
func NewHomeExpanderWithProvider(provider HomeDirectoryProvider) *HomeExpander {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &HomeExpander{provider: provider}
}

// Expand returns candidatePath with "~" or a "~/" prefix replaced by the home directory.
// Paths such as "~user/x" and paths without a shortcut are returned unchanged, as is
// everything when the home directory cannot be resolved.
func (expander *HomeExpander) Expand(candidatePath string) string {
	if expander == nil || !strings.HasPrefix(candidatePath, homeShortcutConstant) {
		return candidatePath
	}
	homeDirectory := expander.home()
	if len(homeDirectory) == 0 {
		return candidatePath
	}

	switch {
	case candidatePath == homeShortcutConstant:
		return homeDirectory
	case strings.HasPrefix(candidatePath, homeShortcutSlashConstant):
		return filepath.Join(homeDirectory, candidatePath[len(homeShortcutSlashConstant):])
	case strings.HasPrefix(candidatePath, homeShortcutConstant+string(os.PathSeparator)):
		return filepath.Join(homeDirectory, candidatePath[len(homeShortcutConstant)+1:])
	default:
		return candidatePath
	}
}

func (expander *HomeExpander) home() string {
	expander.resolveOnce.Do(func() {
		resolved, resolveError := expander.provider()
		if resolveError == nil {
			expander.homeDirectory = resolved
		}
	})
	return expander.homeDirectory
}
