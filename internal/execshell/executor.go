package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandFailedTemplateConstant             = "%s exited with code %d"
	commandFailedWithOutputTemplateConstant   = "%s exited with code %d: %s"
	commandExecutionTemplateConstant          = "%s could not be executed: %v"
	commandStartedLogMessageConstant          = "command started"
	commandCompletedLogMessageConstant        = "command completed"
	commandFailedLogMessageConstant           = "command failed"
	commandExecutionFailedLogMessageConstant  = "command execution failed"
	logFieldCommandConstant                   = "command"
	logFieldArgumentsConstant                 = "arguments"
	logFieldWorkingDirectoryConstant          = "working_directory"
	logFieldExitCodeConstant                  = "exit_code"
	logFieldDurationConstant                  = "duration"
	logFieldStandardErrorConstant             = "stderr"
	commandLabelSeparatorConstant             = " "
)

// CommandName identifies an executable supported by the executor.
type CommandName string

// CommandGit is the git executable.
const CommandGit CommandName = CommandName("git")

// CommandDetails describes the arguments and environment of a single invocation.
// ExpectedExitCodes lists non-zero exits the caller treats as an answer rather than a failure.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
	ExpectedExitCodes    []int
}

// ExpectsExitCode reports whether code is zero or listed in ExpectedExitCodes.
func (details CommandDetails) ExpectsExitCode(code int) bool {
	if code == 0 {
		return true
	}
	for _, expectedCode := range details.ExpectedExitCodes {
		if expectedCode == code {
			return true
		}
	}
	return false
}

// ShellCommand pairs an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
	Duration       time.Duration
}

// CommandRunner runs a ShellCommand and reports its outcome.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

var (
	// ErrLoggerNotConfigured indicates NewShellExecutor received a nil logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates NewShellExecutor received a nil runner.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
)

// CommandFailedError reports a command that ran but exited with a non-zero code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failing command and the trimmed standard error.
func (failedError CommandFailedError) Error() string {
	label := describeCommand(failedError.Command)
	trimmedStandardError := strings.TrimSpace(failedError.Result.StandardError)
	if len(trimmedStandardError) == 0 {
		return fmt.Sprintf(commandFailedTemplateConstant, label, failedError.Result.ExitCode)
	}
	return fmt.Sprintf(commandFailedWithOutputTemplateConstant, label, failedError.Result.ExitCode, trimmedStandardError)
}

// CommandExecutionError reports a command that could not be started or was interrupted.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionTemplateConstant, describeCommand(executionError.Command), executionError.Cause)
}

// Unwrap exposes the underlying cause.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// ExitCodeOf returns the exit code carried by a CommandFailedError.
func ExitCodeOf(err error) (int, bool) {
	var failedError CommandFailedError
	if !errors.As(err, &failedError) {
		return 0, false
	}
	return failedError.Result.ExitCode, true
}

// ShellExecutor runs commands through a CommandRunner and logs their lifecycle.
type ShellExecutor struct {
	logger    *zap.Logger
	runner    CommandRunner
	observers []CommandEventObserver
}

// NewShellExecutor validates collaborators and constructs a ShellExecutor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner, observers ...CommandEventObserver) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	registeredObservers := make([]CommandEventObserver, 0, len(observers))
	for _, observer := range observers {
		if observer != nil {
			registeredObservers = append(registeredObservers, observer)
		}
	}

	return &ShellExecutor{logger: logger, runner: runner, observers: registeredObservers}, nil
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// Execute runs the command, returning CommandFailedError for non-zero exit codes.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandFields := []zap.Field{
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	}

	executor.logger.Debug(commandStartedLogMessageConstant, commandFields...)
	for _, observer := range executor.observers {
		observer.CommandStarted(command)
	}

	result, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Warn(commandExecutionFailedLogMessageConstant, append(commandFields, zap.Error(runError))...)
		for _, observer := range executor.observers {
			observer.CommandExecutionFailed(command, runError)
		}
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	for _, observer := range executor.observers {
		observer.CommandCompleted(command, result)
	}

	completionFields := append(commandFields,
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
		zap.Duration(logFieldDurationConstant, result.Duration),
	)
	if result.ExitCode != 0 {
		executor.logger.Debug(commandFailedLogMessageConstant, append(completionFields, zap.String(logFieldStandardErrorConstant, strings.TrimSpace(result.StandardError)))...)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: result}
	}

	executor.logger.Debug(commandCompletedLogMessageConstant, completionFields...)
	return result, nil
}

func describeCommand(command ShellCommand) string {
	parts := append([]string{string(command.Name)}, command.Details.Arguments...)
	return strings.Join(parts, commandLabelSeparatorConstant)
}
