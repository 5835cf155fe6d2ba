package trunk_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/gittrunk/internal/execshell"
	"github.com/temirov/gittrunk/internal/gitrepo"
	"github.com/temirov/gittrunk/internal/trunk"
)

const (
	testGitExecutableConstant = "git"
	testRemoteNameConstant    = "origin"
	testHostAuthorName        = "Host Author"
	testHostAuthorEmail       = "host@example.com"
	testDocumentName          = "notes.md"
)

type scriptedPrompter struct {
	confirmations []bool
	messages      []string
	questions     []string
}

func (prompter *scriptedPrompter) Confirm(question string) (bool, error) {
	prompter.questions = append(prompter.questions, question)
	if len(prompter.confirmations) == 0 {
		return false, nil
	}
	answer := prompter.confirmations[0]
	prompter.confirmations = prompter.confirmations[1:]
	return answer, nil
}

func (prompter *scriptedPrompter) ReadMessage(question string) (string, error) {
	prompter.questions = append(prompter.questions, question)
	if len(prompter.messages) == 0 {
		return "", nil
	}
	answer := prompter.messages[0]
	prompter.messages = prompter.messages[1:]
	return answer, nil
}

type trunkEnvironment struct {
	hostPath   string
	remotePath string
	host       trunk.HostRepository
	service    *trunk.Service
	prompter   *scriptedPrompter
	logs       *observer.ObservedLogs
}

// isolateGit keeps user and system git configuration out of the test.
func isolateGit(testInstance *testing.T) {
	testInstance.Helper()
	if _, lookupError := exec.LookPath(testGitExecutableConstant); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
	homeDirectory := testInstance.TempDir()
	testInstance.Setenv("HOME", homeDirectory)
	testInstance.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDirectory, ".config"))
	testInstance.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	testInstance.Setenv("GIT_TERMINAL_PROMPT", "0")
}

func newBareRemote(testInstance *testing.T) string {
	testInstance.Helper()
	remotePath := filepath.Join(testInstance.TempDir(), "remote.git")
	runGit(testInstance, "", "init", "--bare", "--quiet", remotePath)
	return remotePath
}

// newTrunkEnvironment creates a host repository with an identity and an origin remote.
func newTrunkEnvironment(testInstance *testing.T, remotePath string) *trunkEnvironment {
	testInstance.Helper()
	environment := newBareHostEnvironment(testInstance, remotePath)
	runGit(testInstance, environment.hostPath, "config", "user.name", testHostAuthorName)
	runGit(testInstance, environment.hostPath, "config", "user.email", testHostAuthorEmail)
	return environment
}

// newBareHostEnvironment creates a host repository without any identity configuration.
func newBareHostEnvironment(testInstance *testing.T, remotePath string) *trunkEnvironment {
	testInstance.Helper()
	hostPath := filepath.Join(testInstance.TempDir(), "host")
	runGit(testInstance, "", "init", "--quiet", hostPath)
	if len(remotePath) > 0 {
		runGit(testInstance, hostPath, "remote", "add", testRemoteNameConstant, remotePath)
	}

	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner())
	require.NoError(testInstance, executorError)
	repositoryManager, managerError := gitrepo.NewRepositoryManager(executor)
	require.NoError(testInstance, managerError)

	observedCore, observedLogs := observer.New(zap.DebugLevel)
	prompter := &scriptedPrompter{}
	service, serviceError := trunk.NewService(trunk.ServiceDependencies{
		Logger:     zap.New(observedCore),
		Repository: repositoryManager,
		Prompter:   prompter,
	})
	require.NoError(testInstance, serviceError)

	host, hostError := service.OpenHost(context.Background(), hostPath)
	require.NoError(testInstance, hostError)

	return &trunkEnvironment{
		hostPath:   host.RootPath(),
		remotePath: remotePath,
		host:       host,
		service:    service,
		prompter:   prompter,
		logs:       observedLogs,
	}
}

func (environment *trunkEnvironment) storePath(store trunk.StoreName) string {
	return environment.host.StorePath(store)
}

func (environment *trunkEnvironment) localHash(testInstance *testing.T, store trunk.StoreName) string {
	testInstance.Helper()
	return resolveOptional(testInstance, environment.hostPath, store.Reference())
}

func (environment *trunkEnvironment) remoteHash(testInstance *testing.T, store trunk.StoreName) string {
	testInstance.Helper()
	return resolveOptional(testInstance, environment.remotePath, store.Reference())
}

func (environment *trunkEnvironment) nestedHead(testInstance *testing.T, store trunk.StoreName) string {
	testInstance.Helper()
	return strings.TrimSpace(runGit(testInstance, environment.storePath(store), "rev-parse", "HEAD"))
}

func (environment *trunkEnvironment) initialize(testInstance *testing.T, store trunk.StoreName) trunk.InitializeResult {
	testInstance.Helper()
	result, initializeError := environment.service.Initialize(context.Background(), environment.host, trunk.InitializeOptions{Store: store, Force: true})
	require.NoError(testInstance, initializeError)
	return result
}

func (environment *trunkEnvironment) writeDocument(testInstance *testing.T, store trunk.StoreName, name string, content string) {
	testInstance.Helper()
	require.NoError(testInstance, os.WriteFile(filepath.Join(environment.storePath(store), name), []byte(content), 0o644))
}

func (environment *trunkEnvironment) commit(testInstance *testing.T, store trunk.StoreName, message string) trunk.CommitResult {
	testInstance.Helper()
	result, commitError := environment.service.Commit(context.Background(), environment.host, trunk.CommitOptions{Store: store, Message: message, Force: true})
	require.NoError(testInstance, commitError)
	return result
}

func (environment *trunkEnvironment) push(testInstance *testing.T, store trunk.StoreName) {
	testInstance.Helper()
	_, pushError := environment.service.Push(context.Background(), environment.host, trunk.PushOptions{Store: store, Remote: testRemoteNameConstant})
	require.NoError(testInstance, pushError)
}

func (environment *trunkEnvironment) status(testInstance *testing.T, store trunk.StoreName) trunk.StoreStatus {
	testInstance.Helper()
	statuses, statusError := environment.service.Status(context.Background(), environment.host, trunk.StatusOptions{Store: store, Remote: testRemoteNameConstant})
	require.NoError(testInstance, statusError)
	require.Len(testInstance, statuses, 1)
	return statuses[0]
}

func (environment *trunkEnvironment) temporaryReferences(testInstance *testing.T, path string) string {
	testInstance.Helper()
	return strings.TrimSpace(runGit(testInstance, path, "for-each-ref", trunk.TemporaryReferenceNamespace))
}

func mustStoreName(testInstance *testing.T, raw string) trunk.StoreName {
	testInstance.Helper()
	storeName, nameError := trunk.NewStoreName(raw)
	require.NoError(testInstance, nameError)
	return storeName
}

func runGit(testInstance *testing.T, directory string, arguments ...string) string {
	testInstance.Helper()
	command := exec.Command(testGitExecutableConstant, arguments...)
	command.Dir = directory
	output, runError := command.CombinedOutput()
	require.NoError(testInstance, runError, string(output))
	return string(output)
}

func resolveOptional(testInstance *testing.T, directory string, reference string) string {
	testInstance.Helper()
	command := exec.Command(testGitExecutableConstant, "rev-parse", "--verify", "--quiet", reference+"^{commit}")
	command.Dir = directory
	output, runError := command.Output()
	if runError != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

func fileExists(path string) bool {
	_, statError := os.Stat(path)
	return statError == nil
}
