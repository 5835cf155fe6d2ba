package stores

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gittrunk/internal/execshell"
	"github.com/temirov/gittrunk/internal/gitrepo"
	"github.com/temirov/gittrunk/internal/prompt"
	"github.com/temirov/gittrunk/internal/trunk"
	"github.com/temirov/gittrunk/internal/ui"
	"github.com/temirov/gittrunk/internal/utils"
	"github.com/temirov/gittrunk/internal/utils/flags"
)

const (
	workingDirectoryErrorTemplate  = "unable to determine working directory: %w"
	repositoryManagerErrorTemplate = "unable to construct repository manager: %w"
	executorErrorTemplate          = "unable to construct git executor: %w"
	serviceErrorTemplate           = "unable to construct trunk service: %w"
	outcomeLineTemplate            = "Trunk store '%s': %s\n"
	shortHashLength                = 7
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// PrompterFactory creates prompters scoped to a Cobra command.
type PrompterFactory func(*cobra.Command) prompt.Prompter

// Dependencies lists the collaborators every trunk command builder accepts. Nil members fall back
// to production implementations.
type Dependencies struct {
	LoggerProvider               LoggerProvider
	ConsoleLoggerProvider        LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() Configuration
	GitExecutor                  gitrepo.GitExecutor
	PrompterFactory              PrompterFactory
}

type commandRuntime struct {
	logger        *zap.Logger
	repository    *gitrepo.RepositoryManager
	service       *trunk.Service
	prompter      prompt.Prompter
	host          trunk.HostRepository
	configuration Configuration
	store         trunk.StoreName
	remote        string
	force         bool
	output        io.Writer
}

func (dependencies Dependencies) prepare(command *cobra.Command) (commandRuntime, error) {
	configuration := dependencies.resolveConfiguration()
	store, storeError := trunk.NewStoreName(flags.ResolveString(command, flags.StoreFlagName, configuration.Store))
	if storeError != nil {
		return commandRuntime{}, storeError
	}

	logger := resolveLogger(dependencies.LoggerProvider)
	executor, executorError := dependencies.resolveExecutor(logger)
	if executorError != nil {
		return commandRuntime{}, executorError
	}
	repository, repositoryError := gitrepo.NewRepositoryManager(executor)
	if repositoryError != nil {
		return commandRuntime{}, fmt.Errorf(repositoryManagerErrorTemplate, repositoryError)
	}

	prompter := resolvePrompter(dependencies.PrompterFactory, command)
	service, serviceError := trunk.NewService(trunk.ServiceDependencies{Logger: logger, Repository: repository, Prompter: prompter})
	if serviceError != nil {
		return commandRuntime{}, fmt.Errorf(serviceErrorTemplate, serviceError)
	}

	workingDirectory, workingDirectoryError := resolveWorkingDirectory(command)
	if workingDirectoryError != nil {
		return commandRuntime{}, workingDirectoryError
	}
	host, hostError := service.OpenHost(command.Context(), workingDirectory)
	if hostError != nil {
		return commandRuntime{}, hostError
	}

	return commandRuntime{
		logger:        logger,
		repository:    repository,
		service:       service,
		prompter:      prompter,
		host:          host,
		configuration: configuration,
		store:         store,
		remote:        flags.ResolveString(command, flags.RemoteFlagName, configuration.Remote),
		force:         flags.ResolveBool(command, flags.ForceFlagName, configuration.AssumeYes),
		output:        command.OutOrStdout(),
	}, nil
}

func (dependencies Dependencies) resolveConfiguration() Configuration {
	if dependencies.ConfigurationProvider == nil {
		return DefaultConfiguration()
	}
	return dependencies.ConfigurationProvider().Sanitize()
}

func (dependencies Dependencies) resolveExecutor(logger *zap.Logger) (gitrepo.GitExecutor, error) {
	if dependencies.GitExecutor != nil {
		return dependencies.GitExecutor, nil
	}

	var observers []execshell.CommandEventObserver
	if dependencies.HumanReadableLoggingProvider != nil && dependencies.HumanReadableLoggingProvider() {
		observers = append(observers, ui.NewConsoleCommandEventLogger(resolveLogger(dependencies.ConsoleLoggerProvider)))
	}
	executor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), observers...)
	if executorError != nil {
		return nil, fmt.Errorf(executorErrorTemplate, executorError)
	}
	return executor, nil
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolvePrompter(factory PrompterFactory, command *cobra.Command) prompt.Prompter {
	if factory != nil {
		if prompter := factory(command); prompter != nil {
			return prompter
		}
	}
	if input, isFile := command.InOrStdin().(*os.File); isFile {
		return prompt.NewTerminalConfirmer(input, command.OutOrStdout())
	}
	return prompt.NewIOConfirmer(command.InOrStdin(), command.OutOrStdout())
}

func resolveWorkingDirectory(command *cobra.Command) (string, error) {
	if workingDirectory, available := utils.NewCommandContextAccessor().WorkingDirectory(command.Context()); available {
		return workingDirectory, nil
	}
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return "", fmt.Errorf(workingDirectoryErrorTemplate, workingDirectoryError)
	}
	return workingDirectory, nil
}

// reportOutcome prints NoChanges and ConfirmationDeclined as information and swallows them.
func reportOutcome(output io.Writer, store trunk.StoreName, operationError error) error {
	if !trunk.IsSuccessOutcome(operationError) {
		return operationError
	}
	message := operationError.Error()
	var trunkError *trunk.Error
	if errors.As(operationError, &trunkError) && len(trunkError.Message) > 0 {
		message = trunkError.Message
	}
	fmt.Fprintf(output, outcomeLineTemplate, store, message)
	return nil
}

func shortHash(hash string) string {
	if len(hash) <= shortHashLength {
		return hash
	}
	return hash[:shortHashLength]
}
