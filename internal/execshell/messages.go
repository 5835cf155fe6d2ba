package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	gitConfigOptionFlagConstant             = "-c"
	gitDeleteShortFlagConstant              = "-d"
	gitMessageFlagConstant                  = "-m"
	refspecSeparatorConstant                = ":"
)

const (
	gitInitSubcommandNameConstant        = "init"
	gitFetchSubcommandNameConstant       = "fetch"
	gitPushSubcommandNameConstant        = "push"
	gitLSRemoteSubcommandNameConstant    = "ls-remote"
	gitUpdateRefSubcommandNameConstant   = "update-ref"
	gitSymbolicRefSubcommandNameConstant = "symbolic-ref"
	gitResetSubcommandNameConstant       = "reset"
	gitStatusSubcommandNameConstant      = "status"
	gitAddSubcommandNameConstant         = "add"
	gitCommitSubcommandNameConstant      = "commit"
	gitMergeBaseSubcommandNameConstant   = "merge-base"
)

// stageTemplates lists start, success, failure and execution-failure templates.
// Each template receives the subject, the working directory and, for failures, the failure details.
type stageTemplates [4]string

var gitSubcommandTemplates = map[string]stageTemplates{
	gitInitSubcommandNameConstant: {
		"Initializing nested repository%s in %s",
		"Initialized nested repository%s in %s",
		"Failed to initialize nested repository%s in %s (exit code %d%s)",
		"Unable to initialize nested repository%s in %s: %s",
	},
	gitFetchSubcommandNameConstant: {
		"Transferring %s in %s",
		"Transferred %s in %s",
		"Failed to transfer %s in %s (exit code %d%s)",
		"Unable to transfer %s in %s: %s",
	},
	gitPushSubcommandNameConstant: {
		"Publishing %s from %s",
		"Published %s from %s",
		"Failed to publish %s from %s (exit code %d%s)",
		"Unable to publish %s from %s: %s",
	},
	gitLSRemoteSubcommandNameConstant: {
		"Querying remote references %s from %s",
		"Queried remote references %s from %s",
		"Failed to query remote references %s from %s (exit code %d%s)",
		"Unable to query remote references %s from %s: %s",
	},
	gitUpdateRefSubcommandNameConstant: {
		"Updating reference %s in %s",
		"Updated reference %s in %s",
		"Failed to update reference %s in %s (exit code %d%s)",
		"Unable to update reference %s in %s: %s",
	},
	gitSymbolicRefSubcommandNameConstant: {
		"Pointing %s in %s",
		"Pointed %s in %s",
		"Failed to point %s in %s (exit code %d%s)",
		"Unable to point %s in %s: %s",
	},
	gitResetSubcommandNameConstant: {
		"Populating working copy from %s in %s",
		"Populated working copy from %s in %s",
		"Failed to populate working copy from %s in %s (exit code %d%s)",
		"Unable to populate working copy from %s in %s: %s",
	},
	gitStatusSubcommandNameConstant: {
		"Reviewing working tree status%s in %s",
		"Collected working tree status%s for %s",
		"Failed to review working tree status%s in %s (exit code %d%s)",
		"Unable to review working tree status%s in %s: %s",
	},
	gitAddSubcommandNameConstant: {
		"Staging %s in %s",
		"Staged %s in %s",
		"Failed to stage %s in %s (exit code %d%s)",
		"Unable to stage %s in %s: %s",
	},
	gitCommitSubcommandNameConstant: {
		"Creating commit %s in %s",
		"Created commit %s in %s",
		"Failed to create commit %s in %s (exit code %d%s)",
		"Unable to create commit %s in %s: %s",
	},
}

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand, subcommandArguments := splitGitSubcommand(command.Details.Arguments)
	templates, known := gitSubcommandTemplates[subcommand]
	if !known {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subject := formatter.describeSubject(subcommand, subcommandArguments)
	workingDirectory := formatter.describeWorkingDirectory(command)

	switch stage {
	case messageStageStart, messageStageSuccess:
		return fmt.Sprintf(templates[stage], subject, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(templates[stage], subject, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(templates[messageStageExecutionFailure], subject, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeSubject(subcommand string, arguments []string) string {
	positional := positionalArguments(arguments)
	switch subcommand {
	case gitInitSubcommandNameConstant, gitStatusSubcommandNameConstant:
		return ""
	case gitFetchSubcommandNameConstant:
		if len(positional) < 2 {
			return fmt.Sprintf("from %s", valueAt(positional, 0))
		}
		return fmt.Sprintf("%s from %s", strings.Join(positional[1:], ", "), positional[0])
	case gitPushSubcommandNameConstant:
		refspec := valueAt(positional, 1)
		if strings.HasPrefix(refspec, refspecSeparatorConstant) {
			return fmt.Sprintf("deletion of %s to %s", strings.TrimPrefix(refspec, refspecSeparatorConstant), valueAt(positional, 0))
		}
		return fmt.Sprintf("%s to %s", refspec, valueAt(positional, 0))
	case gitLSRemoteSubcommandNameConstant:
		if len(positional) < 2 {
			return fmt.Sprintf("on %s", valueAt(positional, 0))
		}
		return fmt.Sprintf("%s on %s", strings.Join(positional[1:], ", "), positional[0])
	case gitUpdateRefSubcommandNameConstant:
		if containsArgument(arguments, gitDeleteShortFlagConstant) {
			return fmt.Sprintf("%s (delete)", valueAt(positional, 0))
		}
		return fmt.Sprintf("%s -> %s", valueAt(positional, 0), abbreviateHash(valueAt(positional, 1)))
	case gitSymbolicRefSubcommandNameConstant:
		return fmt.Sprintf("%s at %s", valueAt(positional, 0), valueAt(positional, 1))
	case gitResetSubcommandNameConstant, gitAddSubcommandNameConstant:
		return valueAt(positional, 0)
	case gitCommitSubcommandNameConstant:
		return fmt.Sprintf("%q", findFlagValue(arguments, gitMessageFlagConstant))
	default:
		return strings.Join(positional, " ")
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	label := describeCommand(command) + formatter.formatWorkingDirectorySuffix(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, label)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, label)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, label, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, label, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return ""
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return ""
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

// splitGitSubcommand skips leading "-c key=value" pairs and returns the subcommand with its arguments.
func splitGitSubcommand(arguments []string) (string, []string) {
	index := 0
	for index < len(arguments) && strings.TrimSpace(arguments[index]) == gitConfigOptionFlagConstant {
		index += 2
	}
	if index >= len(arguments) {
		return "", nil
	}
	return strings.TrimSpace(arguments[index]), arguments[index+1:]
}

func positionalArguments(arguments []string) []string {
	positional := make([]string, 0, len(arguments))
	skipNext := false
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if skipNext {
			skipNext = false
			continue
		}
		if trimmed == gitMessageFlagConstant {
			skipNext = true
			continue
		}
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, "-") {
			continue
		}
		positional = append(positional, trimmed)
	}
	return positional
}

func valueAt(values []string, index int) string {
	if index < 0 || index >= len(values) {
		return fallbackUnknownValueLabelConstant
	}
	return values[index]
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func findFlagValue(arguments []string, flag string) string {
	for index := 0; index < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == flag && index+1 < len(arguments) {
			return strings.TrimSpace(arguments[index+1])
		}
	}
	return fallbackUnknownValueLabelConstant
}

func abbreviateHash(hash string) string {
	const abbreviatedHashLength = 7
	if len(hash) <= abbreviatedHashLength {
		return hash
	}
	return hash[:abbreviatedHashLength]
}
