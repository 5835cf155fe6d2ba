package trunk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

const (
	ignoreEntryConstant              = StoresDirectoryName
	ignoreLineSeparatorConstant      = "\n"
	defaultIgnoreFilePermissions     = fs.FileMode(0o644)
	ignoreReadErrorTemplateConstant  = "unable to read %s: %w"
	ignoreWriteErrorTemplateConstant = "unable to write %s: %w"
)

// ensureIgnoreEntry leaves exactly one stores directory line in the host ignore list.
// It reports whether the file changed.
func ensureIgnoreEntry(host HostRepository) (bool, error) {
	lines, permissions, readError := readIgnoreFile(host.IgnoreFilePath())
	if readError != nil {
		return false, readError
	}

	var updatedLines []string
	entryCount := 0
	for _, line := range lines {
		if isIgnoreEntry(line) {
			entryCount++
			if entryCount > 1 {
				continue
			}
		}
		updatedLines = append(updatedLines, line)
	}
	if entryCount == 1 {
		return false, nil
	}
	if entryCount == 0 {
		updatedLines = append(updatedLines, ignoreEntryConstant)
	}
	return true, writeIgnoreFile(host.IgnoreFilePath(), updatedLines, permissions)
}

// removeIgnoreEntry drops every stores directory line. A missing ignore list is left missing.
func removeIgnoreEntry(host HostRepository) (bool, error) {
	if _, statError := os.Stat(host.IgnoreFilePath()); errors.Is(statError, os.ErrNotExist) {
		return false, nil
	}

	lines, permissions, readError := readIgnoreFile(host.IgnoreFilePath())
	if readError != nil {
		return false, readError
	}

	var remainingLines []string
	for _, line := range lines {
		if !isIgnoreEntry(line) {
			remainingLines = append(remainingLines, line)
		}
	}
	if len(remainingLines) == len(lines) {
		return false, nil
	}
	return true, writeIgnoreFile(host.IgnoreFilePath(), remainingLines, permissions)
}

func isIgnoreEntry(line string) bool {
	return strings.TrimSpace(line) == ignoreEntryConstant
}

func readIgnoreFile(path string) ([]string, fs.FileMode, error) {
	content, readError := os.ReadFile(path)
	if readError != nil {
		if errors.Is(readError, os.ErrNotExist) {
			return nil, defaultIgnoreFilePermissions, nil
		}
		return nil, 0, fmt.Errorf(ignoreReadErrorTemplateConstant, path, readError)
	}

	permissions := defaultIgnoreFilePermissions
	if fileInfo, statError := os.Stat(path); statError == nil {
		permissions = fileInfo.Mode().Perm()
	}

	trimmedContent := strings.TrimSuffix(string(content), ignoreLineSeparatorConstant)
	if len(trimmedContent) == 0 {
		return nil, permissions, nil
	}
	return strings.Split(trimmedContent, ignoreLineSeparatorConstant), permissions, nil
}

func writeIgnoreFile(path string, lines []string, permissions fs.FileMode) error {
	content := strings.Join(lines, ignoreLineSeparatorConstant)
	if len(lines) > 0 {
		content += ignoreLineSeparatorConstant
	}
	if writeError := os.WriteFile(path, []byte(content), permissions); writeError != nil {
		return fmt.Errorf(ignoreWriteErrorTemplateConstant, path, writeError)
	}
	return nil
}
