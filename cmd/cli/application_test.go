package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/temirov/gittrunk/internal/prompt"
	"github.com/temirov/gittrunk/internal/trunk"
	"github.com/temirov/gittrunk/internal/utils"
)

const (
	testGitExecutableConstant = "git"
	testDocumentNameConstant  = "notes.md"
	testConfigFileConstant    = "config.yaml"
)

type applicationEnvironment struct {
	hostPath   string
	remotePath string
}

type applicationRun struct {
	output string
	logs   string
	err    error
}

func newApplicationEnvironment(testInstance *testing.T) applicationEnvironment {
	testInstance.Helper()
	if _, lookupError := exec.LookPath(testGitExecutableConstant); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
	homeDirectory := testInstance.TempDir()
	testInstance.Setenv("HOME", homeDirectory)
	testInstance.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDirectory, ".config"))
	testInstance.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	testInstance.Setenv("GIT_TERMINAL_PROMPT", "0")

	remotePath := filepath.Join(testInstance.TempDir(), "remote.git")
	runGit(testInstance, "", "init", "--bare", "--quiet", remotePath)

	hostPath := filepath.Join(testInstance.TempDir(), "host")
	runGit(testInstance, "", "init", "--quiet", hostPath)
	runGit(testInstance, hostPath, "config", "user.name", "Host Author")
	runGit(testInstance, hostPath, "config", "user.email", "host@example.com")
	runGit(testInstance, hostPath, "remote", "add", trunk.DefaultRemoteName, remotePath)
	return applicationEnvironment{hostPath: hostPath, remotePath: remotePath}
}

// run executes one git-trunk invocation from workingDirectory, answering prompts from answers.
func (environment applicationEnvironment) run(testInstance *testing.T, workingDirectory string, answers string, arguments ...string) applicationRun {
	testInstance.Helper()
	var logs bytes.Buffer
	application := NewApplicationWithDependencies(ApplicationDependencies{
		LoggerFactory: utils.NewLoggerFactoryWithSink(zapcore.AddSync(&logs)),
		PrompterFactory: func(*cobra.Command) prompt.Prompter {
			return prompt.NewIOConfirmer(strings.NewReader(answers), io.Discard)
		},
	})

	var output bytes.Buffer
	application.rootCommand.SetOut(&output)
	application.rootCommand.SetErr(&output)
	application.rootCommand.SetArgs(arguments)

	executionContext := utils.NewCommandContextAccessor().WithWorkingDirectory(context.Background(), workingDirectory)
	executionError := application.ExecuteContext(executionContext)
	return applicationRun{output: output.String(), logs: logs.String(), err: executionError}
}

func TestApplicationRunsStoreLifecycle(testInstance *testing.T) {
	environment := newApplicationEnvironment(testInstance)
	storePath := filepath.Join(environment.hostPath, trunk.StoresDirectoryName, "docs")

	initialized := environment.run(testInstance, environment.hostPath, "", "init", "--store", "docs")
	require.NoError(testInstance, initialized.err)
	require.Contains(testInstance, initialized.output, "Initialized trunk store 'docs' at ")

	require.NoError(testInstance, os.WriteFile(filepath.Join(storePath, testDocumentNameConstant), []byte("draft\n"), 0o644))
	committed := environment.run(testInstance, environment.hostPath, "", "commit", "-s", "docs", "-f", "-m", "Add notes")
	require.NoError(testInstance, committed.err)
	require.Contains(testInstance, committed.output, "Committed 1 change(s) to trunk store 'docs' at ")
	subject := strings.TrimSpace(runGit(testInstance, storePath, "log", "-1", "--format=%s"))
	require.Equal(testInstance, "Add notes", subject)

	pushed := environment.run(testInstance, environment.hostPath, "", "push", "-s", "docs")
	require.NoError(testInstance, pushed.err)
	require.Contains(testInstance, pushed.output, "Pushed trunk store 'docs' to 'origin' at ")

	report := environment.run(testInstance, environment.hostPath, "", "info", "-s", "docs", "--output", "yaml")
	require.NoError(testInstance, report.err)
	var statuses []trunk.StoreStatus
	require.NoError(testInstance, yaml.Unmarshal([]byte(report.output), &statuses))
	require.Len(testInstance, statuses, 1)
	require.Equal(testInstance, trunk.StateSynchronized, statuses[0].State)
	require.True(testInstance, statuses[0].Materialized)

	concealed := environment.run(testInstance, environment.hostPath, "", "stegano", "-s", "docs")
	require.NoError(testInstance, concealed.err)
	require.Equal(testInstance, "Concealed trunk store 'docs'\n", concealed.output)
	_, statError := os.Stat(storePath)
	require.True(testInstance, os.IsNotExist(statError))

	restored := environment.run(testInstance, environment.hostPath, "", "checkout", "-s", "docs")
	require.NoError(testInstance, restored.err)
	require.Contains(testInstance, restored.output, "Checked out trunk store 'docs' from local history at ")
	content, readError := os.ReadFile(filepath.Join(storePath, testDocumentNameConstant))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "draft\n", string(content))

	declined := environment.run(testInstance, environment.hostPath, "n\n", "delete", "-s", "docs")
	require.NoError(testInstance, declined.err)
	require.Equal(testInstance, "Trunk store 'docs': store kept\n", declined.output)

	deleted := environment.run(testInstance, environment.hostPath, "y\n", "delete", "-s", "docs")
	require.NoError(testInstance, deleted.err)
	require.Equal(testInstance, "Deleted trunk store 'docs' from working tree, local refs, remote 'origin'\n", deleted.output)
}

func TestApplicationReportsNoChangesAsSuccess(testInstance *testing.T) {
	environment := newApplicationEnvironment(testInstance)
	require.NoError(testInstance, environment.run(testInstance, environment.hostPath, "", "init").err)

	unchanged := environment.run(testInstance, environment.hostPath, "", "commit", "--force")
	require.NoError(testInstance, unchanged.err)
	require.Equal(testInstance, "Trunk store 'main': nothing to commit\n", unchanged.output)
}

func TestApplicationReturnsFailures(testInstance *testing.T) {
	environment := newApplicationEnvironment(testInstance)
	outsideDirectory := testInstance.TempDir()

	testCases := []struct {
		name             string
		workingDirectory string
		arguments        []string
		expectedError    error
		expectedMessage  string
	}{
		{
			name:             "outside_repository",
			workingDirectory: outsideDirectory,
			arguments:        []string{"info"},
			expectedError:    trunk.ErrPreconditionFailed,
		},
		{
			name:             "missing_store",
			workingDirectory: environment.hostPath,
			arguments:        []string{"checkout", "--store", "ghost"},
			expectedError:    trunk.ErrReferenceNotFound,
		},
		{
			name:             "push_without_history",
			workingDirectory: environment.hostPath,
			arguments:        []string{"push", "--store", "ghost"},
			expectedError:    trunk.ErrReferenceNotFound,
		},
		{
			name:             "invalid_store_name",
			workingDirectory: environment.hostPath,
			arguments:        []string{"init", "--store", "../escape"},
			expectedMessage:  "invalid store name",
		},
		{
			name:             "unsupported_log_level",
			workingDirectory: environment.hostPath,
			arguments:        []string{"info", "--log-level", "verbose"},
			expectedMessage:  "unsupported log level",
		},
		{
			name:             "unsupported_report_format",
			workingDirectory: environment.hostPath,
			arguments:        []string{"info", "--output", "json"},
			expectedMessage:  "unsupported value \"json\" for --output",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			result := environment.run(subTest, testCase.workingDirectory, "", testCase.arguments...)
			require.Error(subTest, result.err)
			if testCase.expectedError != nil {
				require.ErrorIs(subTest, result.err, testCase.expectedError)
			}
			if len(testCase.expectedMessage) > 0 {
				require.ErrorContains(subTest, result.err, testCase.expectedMessage)
			}
		})
	}
}

func TestApplicationLayersConfiguration(testInstance *testing.T) {
	environment := newApplicationEnvironment(testInstance)
	configurationPath := filepath.Join(testInstance.TempDir(), testConfigFileConstant)
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte("trunk:\n  store: specs\n  assume_yes: true\n"), 0o600))

	initialized := environment.run(testInstance, environment.hostPath, "", "--config", configurationPath, "init")
	require.NoError(testInstance, initialized.err)
	require.Contains(testInstance, initialized.output, "Initialized trunk store 'specs'")

	reinitialized := environment.run(testInstance, environment.hostPath, "", "--config", configurationPath, "init")
	require.NoError(testInstance, reinitialized.err)
	require.Contains(testInstance, reinitialized.output, "Reinitialized trunk store 'specs'")

	testInstance.Setenv("GITTRUNK_TRUNK_STORE", "journal")
	fromEnvironment := environment.run(testInstance, environment.hostPath, "", "--config", configurationPath, "init")
	require.NoError(testInstance, fromEnvironment.err)
	require.Contains(testInstance, fromEnvironment.output, "Initialized trunk store 'journal'")

	fromFlag := environment.run(testInstance, environment.hostPath, "", "--config", configurationPath, "init", "--store", "drafts")
	require.NoError(testInstance, fromFlag.err)
	require.Contains(testInstance, fromFlag.output, "Initialized trunk store 'drafts'")

	report := environment.run(testInstance, environment.hostPath, "", "info", "--all", "--remote", "missing-remote")
	require.NoError(testInstance, report.err)
	for _, store := range []string{"drafts", "journal", "specs"} {
		require.Contains(testInstance, report.output, store+"  local only")
	}
	require.Contains(testInstance, report.output, "check failed")
}

func TestApplicationConsoleLoggingReportsGitCommands(testInstance *testing.T) {
	environment := newApplicationEnvironment(testInstance)

	result := environment.run(testInstance, environment.hostPath, "", "init", "--log-level", "info", "--log-format", "console")
	require.NoError(testInstance, result.err)
	require.NotEmpty(testInstance, strings.TrimSpace(result.logs))

	quiet := environment.run(testInstance, environment.hostPath, "", "info", "--log-level", "error")
	require.NoError(testInstance, quiet.err)
	require.Empty(testInstance, quiet.logs)
}

func TestApplicationInstallsHooks(testInstance *testing.T) {
	environment := newApplicationEnvironment(testInstance)

	result := environment.run(testInstance, environment.hostPath, "", "hooks", "--store", "docs")
	require.NoError(testInstance, result.err)
	require.Contains(testInstance, result.output, "Installed post-commit hook at ")
	require.Contains(testInstance, result.output, "Installed pre-push hook at ")

	postCommit, readError := os.ReadFile(filepath.Join(environment.hostPath, ".git", "hooks", "post-commit"))
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(postCommit), "git trunk commit --force --store 'docs'")

	kept := environment.run(testInstance, environment.hostPath, "n\nn\n", "hooks", "--store", "docs")
	require.NoError(testInstance, kept.err)
	require.Contains(testInstance, kept.output, "Kept existing post-commit hook at ")
	require.Contains(testInstance, kept.output, "Kept existing pre-push hook at ")
}

func TestEmbeddedDefaultConfigurationMatchesDefaults(testInstance *testing.T) {
	content, configurationType := EmbeddedDefaultConfiguration()
	require.Equal(testInstance, configurationTypeConstant, configurationType)

	var configuration struct {
		Common struct {
			LogLevel  string `yaml:"log_level"`
			LogFormat string `yaml:"log_format"`
		} `yaml:"common"`
		Trunk struct {
			Store  string `yaml:"store"`
			Remote string `yaml:"remote"`
		} `yaml:"trunk"`
	}
	require.NoError(testInstance, yaml.Unmarshal(content, &configuration))
	require.Equal(testInstance, string(utils.LogLevelWarn), configuration.Common.LogLevel)
	require.Equal(testInstance, string(utils.LogFormatConsole), configuration.Common.LogFormat)
	require.Equal(testInstance, trunk.DefaultStoreName, configuration.Trunk.Store)
	require.Equal(testInstance, trunk.DefaultRemoteName, configuration.Trunk.Remote)

	content[0] = '#'
	again, _ := EmbeddedDefaultConfiguration()
	require.NotEqual(testInstance, content[0], again[0])
}

func runGit(testInstance *testing.T, directory string, arguments ...string) string {
	testInstance.Helper()
	command := exec.Command(testGitExecutableConstant, arguments...)
	if len(directory) > 0 {
		command.Dir = directory
	}
	output, runError := command.CombinedOutput()
	require.NoError(testInstance, runError, string(output))
	return string(output)
}
