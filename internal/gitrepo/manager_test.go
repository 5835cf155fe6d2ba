package gitrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gittrunk/internal/execshell"
	"github.com/temirov/gittrunk/internal/gitrepo"
)

const testRepositoryPathConstant = "/work/host"

type stubGitResponse struct {
	result execshell.ExecutionResult
	err    error
}

type stubGitExecutor struct {
	recorded  []execshell.CommandDetails
	responses []stubGitResponse
}

func (executor *stubGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recorded = append(executor.recorded, details)
	if len(executor.responses) == 0 {
		return execshell.ExecutionResult{}, nil
	}
	next := executor.responses[0]
	executor.responses = executor.responses[1:]
	return next.result, next.err
}

func exitFailure(exitCode int) error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Result:  execshell.ExecutionResult{ExitCode: exitCode},
	}
}

func TestNewRepositoryManagerRequiresExecutor(testInstance *testing.T) {
	_, creationError := gitrepo.NewRepositoryManager(nil)
	require.ErrorIs(testInstance, creationError, gitrepo.ErrGitExecutorNotConfigured)
}

func TestResolveCommitDistinguishesMissingReferences(testInstance *testing.T) {
	testCases := []struct {
		name          string
		response      stubGitResponse
		expectedHash  string
		expectedFound bool
		expectError   bool
	}{
		{
			name:          "resolved",
			response:      stubGitResponse{result: execshell.ExecutionResult{StandardOutput: "abc123\n"}},
			expectedHash:  "abc123",
			expectedFound: true,
		},
		{
			name:     "missing",
			response: stubGitResponse{err: exitFailure(1)},
		},
		{
			name:        "not_a_repository",
			response:    stubGitResponse{err: exitFailure(128)},
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitExecutor{responses: []stubGitResponse{testCase.response}}
			manager, managerError := gitrepo.NewRepositoryManager(executor)
			require.NoError(testInstance, managerError)

			hash, found, resolveError := manager.ResolveCommit(context.Background(), testRepositoryPathConstant, "refs/trunk/docs")
			if testCase.expectError {
				require.Error(testInstance, resolveError)
				return
			}
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedHash, hash)
			require.Equal(testInstance, testCase.expectedFound, found)
			require.Equal(testInstance, []string{"rev-parse", "--verify", "--quiet", "refs/trunk/docs^{commit}"}, executor.recorded[0].Arguments)
			require.Equal(testInstance, testRepositoryPathConstant, executor.recorded[0].WorkingDirectory)
		})
	}
}

func TestListRemoteReferencesParsesAdvertisement(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{{
		result: execshell.ExecutionResult{StandardOutput: "1111111111111111111111111111111111111111\trefs/trunk/docs\n2222222222222222222222222222222222222222\trefs/trunk/notes\n"},
	}}}
	manager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)

	references, listError := manager.ListRemoteReferences(context.Background(), testRepositoryPathConstant, "origin", "refs/trunk/*")
	require.NoError(testInstance, listError)
	require.Equal(testInstance, map[string]string{
		"refs/trunk/docs":  "1111111111111111111111111111111111111111",
		"refs/trunk/notes": "2222222222222222222222222222222222222222",
	}, references)
	require.Equal(testInstance, []string{"ls-remote", "--refs", "origin", "refs/trunk/*"}, executor.recorded[0].Arguments)
	require.Equal(testInstance, "0", executor.recorded[0].EnvironmentVariables["GIT_TERMINAL_PROMPT"])
}

func TestUpdateReferenceAppendsExpectedOldValue(testInstance *testing.T) {
	executor := &stubGitExecutor{}
	manager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)

	require.NoError(testInstance, manager.UpdateReference(context.Background(), testRepositoryPathConstant, "refs/trunk/docs", "new", gitrepo.ZeroHash))
	require.NoError(testInstance, manager.UpdateReference(context.Background(), testRepositoryPathConstant, "refs/trunk/docs", "newer", ""))

	require.Equal(testInstance, []string{"update-ref", "refs/trunk/docs", "new", gitrepo.ZeroHash}, executor.recorded[0].Arguments)
	require.Equal(testInstance, []string{"update-ref", "refs/trunk/docs", "newer"}, executor.recorded[1].Arguments)
}

func TestIsAncestorInterpretsExitCodes(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{{}, {err: exitFailure(1)}, {err: exitFailure(128)}}}
	manager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)

	isAncestor, ancestryError := manager.IsAncestor(context.Background(), testRepositoryPathConstant, "a", "b")
	require.NoError(testInstance, ancestryError)
	require.True(testInstance, isAncestor)

	isAncestor, ancestryError = manager.IsAncestor(context.Background(), testRepositoryPathConstant, "a", "b")
	require.NoError(testInstance, ancestryError)
	require.False(testInstance, isAncestor)

	_, ancestryError = manager.IsAncestor(context.Background(), testRepositoryPathConstant, "a", "b")
	require.Error(testInstance, ancestryError)
}

func TestTransportCommandsUsePlumbingFlags(testInstance *testing.T) {
	executor := &stubGitExecutor{}
	manager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)

	require.NoError(testInstance, manager.Fetch(context.Background(), testRepositoryPathConstant, "origin", "+refs/trunk/docs:refs/trunk-temp/abc"))
	require.NoError(testInstance, manager.Push(context.Background(), testRepositoryPathConstant, "origin", "refs/trunk/docs:refs/trunk/docs"))

	require.Equal(testInstance, []string{"fetch", "--no-tags", "--no-write-fetch-head", "origin", "+refs/trunk/docs:refs/trunk-temp/abc"}, executor.recorded[0].Arguments)
	require.Equal(testInstance, []string{"push", "--porcelain", "origin", "refs/trunk/docs:refs/trunk/docs"}, executor.recorded[1].Arguments)
	for _, details := range executor.recorded {
		require.Equal(testInstance, "0", details.EnvironmentVariables["GIT_TERMINAL_PROMPT"])
	}
}

func TestPushReportsPorcelainRejection(testInstance *testing.T) {
	rejection := "To /work/remote.git\n!\trefs/trunk/docs:refs/trunk/docs\t[rejected] (non-fast-forward)\nDone\n"
	executor := &stubGitExecutor{responses: []stubGitResponse{{result: execshell.ExecutionResult{StandardOutput: rejection}}}}
	manager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)

	pushError := manager.Push(context.Background(), testRepositoryPathConstant, "origin", "refs/trunk/docs:refs/trunk/docs")
	var failedError execshell.CommandFailedError
	require.ErrorAs(testInstance, pushError, &failedError)
	require.Equal(testInstance, 1, failedError.Result.ExitCode)
	require.Contains(testInstance, failedError.Result.StandardOutput, "[rejected]")
}

func TestLookupsDeclareExpectedExitCodes(testInstance *testing.T) {
	testCases := []struct {
		name     string
		invoke   func(manager *gitrepo.RepositoryManager)
		expected []int
	}{
		{
			name: "resolve_commit",
			invoke: func(manager *gitrepo.RepositoryManager) {
				_, _, _ = manager.ResolveCommit(context.Background(), testRepositoryPathConstant, "refs/trunk/docs")
			},
			expected: []int{1},
		},
		{
			name: "config_value",
			invoke: func(manager *gitrepo.RepositoryManager) {
				_, _, _ = manager.ConfigValue(context.Background(), testRepositoryPathConstant, "user.name")
			},
			expected: []int{1},
		},
		{
			name: "is_ancestor",
			invoke: func(manager *gitrepo.RepositoryManager) {
				_, _ = manager.IsAncestor(context.Background(), testRepositoryPathConstant, "a", "b")
			},
			expected: []int{1},
		},
		{
			name: "update_reference",
			invoke: func(manager *gitrepo.RepositoryManager) {
				_ = manager.UpdateReference(context.Background(), testRepositoryPathConstant, "refs/trunk/docs", "new", "")
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &stubGitExecutor{}
			manager, managerError := gitrepo.NewRepositoryManager(executor)
			require.NoError(testInstance, managerError)

			testCase.invoke(manager)
			require.Len(testInstance, executor.recorded, 1)
			require.Equal(testInstance, testCase.expected, executor.recorded[0].ExpectedExitCodes)
		})
	}
}

func TestCommitAddsIdentityOverrides(testInstance *testing.T) {
	executor := &stubGitExecutor{}
	manager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)

	require.NoError(testInstance, manager.Commit(context.Background(), testRepositoryPathConstant, "Initial trunk commit", &gitrepo.CommitIdentity{Name: "Trunk", Email: "trunk@example.com"}))
	require.Equal(testInstance, []string{"-c", "user.name=Trunk", "-c", "user.email=trunk@example.com", "commit", "--quiet", "-m", "Initial trunk commit"}, executor.recorded[0].Arguments)
}

func TestDescribeCommitParsesSummary(testInstance *testing.T) {
	executor := &stubGitExecutor{responses: []stubGitResponse{{result: execshell.ExecutionResult{StandardOutput: "abc1234\x001700000000\n"}}}}
	manager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)

	summary, describeError := manager.DescribeCommit(context.Background(), testRepositoryPathConstant, "refs/trunk/docs")
	require.NoError(testInstance, describeError)
	require.Equal(testInstance, "abc1234", summary.ShortHash)
	require.True(testInstance, summary.CommitTime.Equal(time.Unix(1700000000, 0)))
}

func TestRunRejectsEmptyRepositoryPath(testInstance *testing.T) {
	manager, managerError := gitrepo.NewRepositoryManager(&stubGitExecutor{})
	require.NoError(testInstance, managerError)

	_, topLevelError := manager.TopLevel(context.Background(), " ")
	require.ErrorIs(testInstance, topLevelError, gitrepo.ErrRepositoryPathRequired)
}
