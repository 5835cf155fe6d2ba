package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/temirov/gittrunk/internal/execshell"
)

const (
	gitRevParseSubcommandConstant         = "rev-parse"
	gitShowTopLevelFlagConstant           = "--show-toplevel"
	gitVerifyFlagConstant                 = "--verify"
	gitQuietFlagConstant                  = "--quiet"
	gitPathFlagConstant                   = "--git-path"
	gitCommitPeelSuffixConstant           = "^{commit}"
	gitCatFileSubcommandConstant          = "cat-file"
	gitExistsFlagConstant                 = "-e"
	gitUpdateRefSubcommandConstant        = "update-ref"
	gitDeleteFlagConstant                 = "-d"
	gitFetchSubcommandConstant            = "fetch"
	gitNoTagsFlagConstant                 = "--no-tags"
	gitNoWriteFetchHeadFlagConstant       = "--no-write-fetch-head"
	gitPushSubcommandConstant             = "push"
	gitLSRemoteSubcommandConstant         = "ls-remote"
	gitRefsFlagConstant                   = "--refs"
	gitForEachRefSubcommandConstant       = "for-each-ref"
	gitForEachRefFormatFlagConstant       = "--format=%(objectname) %(refname)"
	gitStatusSubcommandConstant           = "status"
	gitPorcelainFlagConstant              = "--porcelain"
	gitMergeBaseSubcommandConstant        = "merge-base"
	gitIsAncestorFlagConstant             = "--is-ancestor"
	gitInitSubcommandConstant             = "init"
	gitSymbolicRefSubcommandConstant      = "symbolic-ref"
	gitHeadReferenceConstant              = "HEAD"
	gitResetSubcommandConstant            = "reset"
	gitHardFlagConstant                   = "--hard"
	gitAddSubcommandConstant              = "add"
	gitAllFlagConstant                    = "-A"
	gitCommitSubcommandConstant           = "commit"
	gitMessageFlagConstant                = "-m"
	gitConfigOptionFlagConstant           = "-c"
	gitConfigSubcommandConstant           = "config"
	gitGetFlagConstant                    = "--get"
	gitLogSubcommandConstant              = "log"
	gitSingleCommitFlagConstant           = "-1"
	gitCommitSummaryFormatFlagConstant    = "--format=%h%x00%ct"
	gitUserNameConfigTemplateConstant     = "user.name=%s"
	gitUserEmailConfigTemplateConstant    = "user.email=%s"
	gitTerminalPromptEnvironmentConstant  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant     = "0"
	notFoundExitCodeConstant              = 1
	notRepositoryExitCodeConstant         = 128
	pushRejectedFlagConstant              = "!"
	pushRejectedExitCodeConstant          = 1
	commitSummaryFieldSeparatorConstant   = "\x00"
	executorMissingMessageConstant        = "git executor not configured"
	repositoryPathRequiredMessageConstant = "repository path must be provided"
	topLevelErrorTemplateConstant         = "unable to resolve repository top level for %s: %w"
	resolveErrorTemplateConstant          = "unable to resolve %s in %s: %w"
	updateReferenceErrorTemplateConstant  = "unable to update %s in %s: %w"
	deleteReferenceErrorTemplateConstant  = "unable to delete %s in %s: %w"
	listReferencesErrorTemplateConstant   = "unable to list references in %s: %w"
	remoteReferencesErrorTemplateConstant = "unable to query references on %s: %w"
	statusErrorTemplateConstant           = "unable to read working tree status in %s: %w"
	ancestryErrorTemplateConstant         = "unable to compare ancestry of %s and %s in %s: %w"
	configErrorTemplateConstant           = "unable to read %s in %s: %w"
	commitSummaryErrorTemplateConstant    = "unable to describe %s in %s: %w"
	commitSummaryParseTemplateConstant    = "unexpected commit summary %q"
	gitPathErrorTemplateConstant          = "unable to resolve git path %s in %s: %w"
)

// ZeroHash is the all-zero object name git uses for "must not exist" in update-ref.
const ZeroHash = "0000000000000000000000000000000000000000"

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

var (
	// ErrGitExecutorNotConfigured indicates the manager was constructed without an executor.
	ErrGitExecutorNotConfigured = errors.New(executorMissingMessageConstant)
	// ErrRepositoryPathRequired indicates an empty repository path.
	ErrRepositoryPathRequired = errors.New(repositoryPathRequiredMessageConstant)
)

// CommitIdentity overrides the author and committer for a single commit.
type CommitIdentity struct {
	Name  string
	Email string
}

// CommitSummary describes a commit for status output.
type CommitSummary struct {
	ShortHash  string
	CommitTime time.Time
}

// RepositoryManager issues git plumbing commands against explicit repository paths.
type RepositoryManager struct {
	executor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager.
func NewRepositoryManager(executor GitExecutor) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &RepositoryManager{executor: executor}, nil
}

// TopLevel returns the absolute top-level directory of the repository containing path.
func (manager *RepositoryManager) TopLevel(executionContext context.Context, path string) (string, error) {
	output, executionError := manager.run(executionContext, path, nil, gitRevParseSubcommandConstant, gitShowTopLevelFlagConstant)
	if executionError != nil {
		return "", fmt.Errorf(topLevelErrorTemplateConstant, path, executionError)
	}
	return filepath.Clean(strings.TrimSpace(output)), nil
}

// IsRepositoryRoot reports whether path is itself the top level of a git repository.
// A directory nested inside another repository without its own metadata is not a root.
func (manager *RepositoryManager) IsRepositoryRoot(executionContext context.Context, path string) (bool, error) {
	directoryInfo, statError := os.Stat(path)
	if statError != nil || !directoryInfo.IsDir() {
		return false, nil
	}

	output, executionError := manager.lookup(executionContext, path, []int{notFoundExitCodeConstant, notRepositoryExitCodeConstant}, gitRevParseSubcommandConstant, gitShowTopLevelFlagConstant)
	if executionError != nil {
		if _, failed := execshell.ExitCodeOf(executionError); failed {
			return false, nil
		}
		return false, executionError
	}

	return samePath(strings.TrimSpace(output), path), nil
}

// ResolveCommit resolves revision to a commit hash. Unknown revisions report false without an error.
func (manager *RepositoryManager) ResolveCommit(executionContext context.Context, path string, revision string) (string, bool, error) {
	output, executionError := manager.lookup(executionContext, path, []int{notFoundExitCodeConstant}, gitRevParseSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, revision+gitCommitPeelSuffixConstant)
	if executionError != nil {
		if exitCode, failed := execshell.ExitCodeOf(executionError); failed && exitCode == notFoundExitCodeConstant {
			return "", false, nil
		}
		return "", false, fmt.Errorf(resolveErrorTemplateConstant, revision, path, executionError)
	}
	return strings.TrimSpace(output), true, nil
}

// ObjectExists reports whether the object database at path contains hash.
func (manager *RepositoryManager) ObjectExists(executionContext context.Context, path string, hash string) (bool, error) {
	_, executionError := manager.lookup(executionContext, path, []int{notFoundExitCodeConstant, notRepositoryExitCodeConstant}, gitCatFileSubcommandConstant, gitExistsFlagConstant, hash)
	if executionError != nil {
		if _, failed := execshell.ExitCodeOf(executionError); failed {
			return false, nil
		}
		return false, executionError
	}
	return true, nil
}

// UpdateReference points reference at newHash. A non-empty expectedOldHash makes the update conditional;
// ZeroHash requires that the reference does not exist yet.
func (manager *RepositoryManager) UpdateReference(executionContext context.Context, path string, reference string, newHash string, expectedOldHash string) error {
	arguments := []string{gitUpdateRefSubcommandConstant, reference, newHash}
	if len(expectedOldHash) > 0 {
		arguments = append(arguments, expectedOldHash)
	}
	if _, executionError := manager.run(executionContext, path, nil, arguments...); executionError != nil {
		return fmt.Errorf(updateReferenceErrorTemplateConstant, reference, path, executionError)
	}
	return nil
}

// DeleteReference removes reference from the repository at path.
func (manager *RepositoryManager) DeleteReference(executionContext context.Context, path string, reference string) error {
	if _, executionError := manager.run(executionContext, path, nil, gitUpdateRefSubcommandConstant, gitDeleteFlagConstant, reference); executionError != nil {
		return fmt.Errorf(deleteReferenceErrorTemplateConstant, reference, path, executionError)
	}
	return nil
}

// Fetch copies the objects named by refspec from location (a path or remote name) into the repository at path.
func (manager *RepositoryManager) Fetch(executionContext context.Context, path string, location string, refspec string) error {
	_, executionError := manager.run(executionContext, path, remoteEnvironment(), gitFetchSubcommandConstant, gitNoTagsFlagConstant, gitNoWriteFetchHeadFlagConstant, location, refspec)
	return executionError
}

// Push sends refspec to remote. Failures are returned as execshell.CommandFailedError so callers can inspect git's output;
// a porcelain report of a rejected ref is a failure even when git exits zero.
func (manager *RepositoryManager) Push(executionContext context.Context, path string, remote string, refspec string) error {
	details := execshell.CommandDetails{
		Arguments:            []string{gitPushSubcommandConstant, gitPorcelainFlagConstant, remote, refspec},
		WorkingDirectory:     path,
		EnvironmentVariables: remoteEnvironment(),
	}
	result, executionError := manager.execute(executionContext, details)
	if executionError != nil {
		return executionError
	}
	if reportsRejectedReference(result.StandardOutput) {
		result.ExitCode = pushRejectedExitCodeConstant
		return execshell.CommandFailedError{Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: details}, Result: result}
	}
	return nil
}

// ListRemoteReferences returns reference names mapped to hashes as advertised by remote.
func (manager *RepositoryManager) ListRemoteReferences(executionContext context.Context, path string, remote string, patterns ...string) (map[string]string, error) {
	arguments := append([]string{gitLSRemoteSubcommandConstant, gitRefsFlagConstant, remote}, patterns...)
	output, executionError := manager.run(executionContext, path, remoteEnvironment(), arguments...)
	if executionError != nil {
		return nil, fmt.Errorf(remoteReferencesErrorTemplateConstant, remote, executionError)
	}
	return parseReferenceListing(output, true), nil
}

// ListLocalReferences returns local reference names under prefix mapped to hashes.
func (manager *RepositoryManager) ListLocalReferences(executionContext context.Context, path string, prefix string) (map[string]string, error) {
	output, executionError := manager.run(executionContext, path, nil, gitForEachRefSubcommandConstant, gitForEachRefFormatFlagConstant, prefix)
	if executionError != nil {
		return nil, fmt.Errorf(listReferencesErrorTemplateConstant, path, executionError)
	}
	return parseReferenceListing(output, false), nil
}

// WorkingTreeChanges returns one porcelain status line per changed path.
func (manager *RepositoryManager) WorkingTreeChanges(executionContext context.Context, path string) ([]string, error) {
	output, executionError := manager.run(executionContext, path, nil, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if executionError != nil {
		return nil, fmt.Errorf(statusErrorTemplateConstant, path, executionError)
	}

	var changes []string
	for _, line := range strings.Split(output, "\n") {
		if len(strings.TrimSpace(line)) > 0 {
			changes = append(changes, line)
		}
	}
	return changes, nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (manager *RepositoryManager) IsAncestor(executionContext context.Context, path string, ancestor string, descendant string) (bool, error) {
	_, executionError := manager.lookup(executionContext, path, []int{notFoundExitCodeConstant}, gitMergeBaseSubcommandConstant, gitIsAncestorFlagConstant, ancestor, descendant)
	if executionError == nil {
		return true, nil
	}
	if exitCode, failed := execshell.ExitCodeOf(executionError); failed && exitCode == notFoundExitCodeConstant {
		return false, nil
	}
	return false, fmt.Errorf(ancestryErrorTemplateConstant, ancestor, descendant, path, executionError)
}

// Init creates an empty repository at path.
func (manager *RepositoryManager) Init(executionContext context.Context, path string) error {
	_, executionError := manager.run(executionContext, path, nil, gitInitSubcommandConstant, gitQuietFlagConstant)
	return executionError
}

// PointHead makes HEAD a symbolic reference to branchReference.
func (manager *RepositoryManager) PointHead(executionContext context.Context, path string, branchReference string) error {
	_, executionError := manager.run(executionContext, path, nil, gitSymbolicRefSubcommandConstant, gitHeadReferenceConstant, branchReference)
	return executionError
}

// ResetHard makes the index and working tree match revision.
func (manager *RepositoryManager) ResetHard(executionContext context.Context, path string, revision string) error {
	_, executionError := manager.run(executionContext, path, nil, gitResetSubcommandConstant, gitHardFlagConstant, gitQuietFlagConstant, revision)
	return executionError
}

// StageAll stages every change in the working tree.
func (manager *RepositoryManager) StageAll(executionContext context.Context, path string) error {
	_, executionError := manager.run(executionContext, path, nil, gitAddSubcommandConstant, gitAllFlagConstant)
	return executionError
}

// Commit records the index with message, optionally overriding the identity.
func (manager *RepositoryManager) Commit(executionContext context.Context, path string, message string, identity *CommitIdentity) error {
	var arguments []string
	if identity != nil {
		arguments = append(arguments,
			gitConfigOptionFlagConstant, fmt.Sprintf(gitUserNameConfigTemplateConstant, identity.Name),
			gitConfigOptionFlagConstant, fmt.Sprintf(gitUserEmailConfigTemplateConstant, identity.Email),
		)
	}
	arguments = append(arguments, gitCommitSubcommandConstant, gitQuietFlagConstant, gitMessageFlagConstant, message)
	_, executionError := manager.run(executionContext, path, nil, arguments...)
	return executionError
}

// ConfigValue reads a git configuration value visible from path. Unset keys report false.
func (manager *RepositoryManager) ConfigValue(executionContext context.Context, path string, key string) (string, bool, error) {
	output, executionError := manager.lookup(executionContext, path, []int{notFoundExitCodeConstant}, gitConfigSubcommandConstant, gitGetFlagConstant, key)
	if executionError != nil {
		if exitCode, failed := execshell.ExitCodeOf(executionError); failed && exitCode == notFoundExitCodeConstant {
			return "", false, nil
		}
		return "", false, fmt.Errorf(configErrorTemplateConstant, key, path, executionError)
	}
	return strings.TrimSpace(output), true, nil
}

// DescribeCommit returns the abbreviated hash and commit time of revision.
func (manager *RepositoryManager) DescribeCommit(executionContext context.Context, path string, revision string) (CommitSummary, error) {
	output, executionError := manager.run(executionContext, path, nil, gitLogSubcommandConstant, gitSingleCommitFlagConstant, gitCommitSummaryFormatFlagConstant, revision)
	if executionError != nil {
		return CommitSummary{}, fmt.Errorf(commitSummaryErrorTemplateConstant, revision, path, executionError)
	}

	fields := strings.SplitN(strings.TrimSpace(output), commitSummaryFieldSeparatorConstant, 2)
	if len(fields) != 2 {
		return CommitSummary{}, fmt.Errorf(commitSummaryParseTemplateConstant, output)
	}
	unixSeconds, parseError := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if parseError != nil {
		return CommitSummary{}, fmt.Errorf(commitSummaryParseTemplateConstant, output)
	}
	return CommitSummary{ShortHash: fields[0], CommitTime: time.Unix(unixSeconds, 0)}, nil
}

// GitPath resolves a path inside the repository's git directory, such as "hooks".
func (manager *RepositoryManager) GitPath(executionContext context.Context, path string, name string) (string, error) {
	output, executionError := manager.run(executionContext, path, nil, gitRevParseSubcommandConstant, gitPathFlagConstant, name)
	if executionError != nil {
		return "", fmt.Errorf(gitPathErrorTemplateConstant, name, path, executionError)
	}
	resolvedPath := strings.TrimSpace(output)
	if !filepath.IsAbs(resolvedPath) {
		resolvedPath = filepath.Join(path, resolvedPath)
	}
	return filepath.Clean(resolvedPath), nil
}

func (manager *RepositoryManager) run(executionContext context.Context, path string, environment map[string]string, arguments ...string) (string, error) {
	result, executionError := manager.execute(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     path,
		EnvironmentVariables: environment,
	})
	if executionError != nil {
		return "", executionError
	}
	return result.StandardOutput, nil
}

// lookup runs a query whose expectedExitCodes answer it negatively instead of failing.
func (manager *RepositoryManager) lookup(executionContext context.Context, path string, expectedExitCodes []int, arguments ...string) (string, error) {
	result, executionError := manager.execute(executionContext, execshell.CommandDetails{
		Arguments:         arguments,
		WorkingDirectory:  path,
		ExpectedExitCodes: expectedExitCodes,
	})
	if executionError != nil {
		return "", executionError
	}
	return result.StandardOutput, nil
}

func (manager *RepositoryManager) execute(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	if len(strings.TrimSpace(details.WorkingDirectory)) == 0 {
		return execshell.ExecutionResult{}, ErrRepositoryPathRequired
	}
	return manager.executor.ExecuteGit(executionContext, details)
}

// reportsRejectedReference scans "git push --porcelain" output for a ref line flagged "!".
func reportsRejectedReference(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, pushRejectedFlagConstant+"\t") {
			return true
		}
	}
	return false
}

func remoteEnvironment() map[string]string {
	return map[string]string{gitTerminalPromptEnvironmentConstant: gitTerminalPromptDisabledConstant}
}

// parseReferenceListing reads "<hash> <ref>" lines (for-each-ref) or "<hash>\t<ref>" lines (ls-remote).
func parseReferenceListing(output string, tabSeparated bool) map[string]string {
	references := make(map[string]string)
	separator := " "
	if tabSeparated {
		separator = "\t"
	}
	for _, line := range strings.Split(output, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if len(trimmedLine) == 0 {
			continue
		}
		fields := strings.SplitN(trimmedLine, separator, 2)
		if len(fields) != 2 {
			continue
		}
		references[strings.TrimSpace(fields[1])] = strings.TrimSpace(fields[0])
	}
	return references
}

func samePath(first string, second string) bool {
	return canonicalPath(first) == canonicalPath(second)
}

func canonicalPath(path string) string {
	absolutePath, absoluteError := filepath.Abs(path)
	if absoluteError != nil {
		absolutePath = path
	}
	if resolvedPath, resolveError := filepath.EvalSymlinks(absolutePath); resolveError == nil {
		return filepath.Clean(resolvedPath)
	}
	return filepath.Clean(absolutePath)
}
