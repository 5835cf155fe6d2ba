package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gittrunk/cmd/cli/stores"
	"github.com/temirov/gittrunk/internal/gitrepo"
	"github.com/temirov/gittrunk/internal/trunk"
	"github.com/temirov/gittrunk/internal/utils"
	"github.com/temirov/gittrunk/internal/utils/flags"
)

const (
	applicationNameConstant                 = "git-trunk"
	applicationShortDescriptionConstant     = "Keep side-car document stores inside git refs"
	applicationLongDescriptionConstant      = "git-trunk keeps nested repositories under .trunk/<store> whose history lives in refs/trunk/<store> of the host repository, so it travels with clones and pushes without touching branches."
	applicationDirectoryConstant            = "git-trunk"
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Read settings from this YAML file instead of the discovered config.yaml."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Diagnostic log level (debug, info, warn, error)."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Diagnostic log encoding."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	trunkConfigurationKeyConstant           = "trunk"
	environmentPrefixConstant               = "GITTRUNK"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationStoreFieldConstant         = "store"
	configurationRemoteFieldConstant        = "remote"
	configurationLoadErrorTemplateConstant  = "git-trunk: configuration: %w"
	loggerCreationErrorTemplateConstant     = "git-trunk: logging: %w"
	loggerSyncErrorTemplateConstant         = "git-trunk: flushing logs: %w"
	commandBuildErrorTemplateConstant       = "git-trunk: wiring subcommand: %w"
)

// ApplicationConfiguration mirrors config.yaml: shared logging under common, store defaults under trunk.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Trunk  stores.Configuration           `mapstructure:"trunk"`
}

// ApplicationCommonConfiguration holds the logging settings.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// ApplicationDependencies overrides collaborators of the subcommands. Zero values select the
// production implementations.
type ApplicationDependencies struct {
	LoggerFactory   *utils.LoggerFactory
	GitExecutor     gitrepo.GitExecutor
	PrompterFactory stores.PrompterFactory
}

type commandBuilder interface {
	Build() (*cobra.Command, error)
}

// Application is the git-trunk root command. Configuration and loggers are resolved once per
// invocation, before the selected subcommand runs.
type Application struct {
	rootCommand         *cobra.Command
	loader              *utils.ConfigurationLoader
	loggerFactory       *utils.LoggerFactory
	diagnosticLogger    *zap.Logger
	consoleLogger       *zap.Logger
	configuration       ApplicationConfiguration
	loadedConfiguration utils.LoadedConfiguration
	contextAccessor     utils.CommandContextAccessor
	buildError          error
}

// NewApplication assembles git-trunk with production collaborators.
func NewApplication() *Application {
	return NewApplicationWithDependencies(ApplicationDependencies{})
}

// NewApplicationWithDependencies assembles the CLI with the provided collaborators.
func NewApplicationWithDependencies(dependencies ApplicationDependencies) *Application {
	embeddedConfiguration, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	loader := utils.NewConfigurationLoader(utils.ConfigurationLoaderOptions{
		Name:                      configurationNameConstant,
		Type:                      configurationTypeConstant,
		EnvironmentPrefix:         environmentPrefixConstant,
		SearchPaths:               utils.DefaultSearchPaths(applicationDirectoryConstant),
		EmbeddedConfiguration:     embeddedConfiguration,
		EmbeddedConfigurationType: embeddedConfigurationType,
	})

	loggerFactory := dependencies.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = utils.NewLoggerFactory()
	}

	application := &Application{
		loader:           loader,
		loggerFactory:    loggerFactory,
		diagnosticLogger: zap.NewNop(),
		consoleLogger:    zap.NewNop(),
		contextAccessor:  utils.NewCommandContextAccessor(),
	}

	rootCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, _ []string) error {
			return application.prepareInvocation(command)
		},
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
	}

	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.String(configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.String(logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	persistentFlags.String(logFormatFlagNameConstant, "", flags.FormatChoiceUsage(
		string(utils.LogFormatConsole),
		[]string{string(utils.LogFormatStructured), string(utils.LogFormatConsole)},
		logFormatFlagUsageConstant,
	))
	flags.BindStoreFlags(rootCommand, flags.StoreFlagValues{Store: trunk.DefaultStoreName, Remote: trunk.DefaultRemoteName})

	commandDependencies := stores.Dependencies{
		LoggerProvider: func() *zap.Logger {
			return application.diagnosticLogger
		},
		ConsoleLoggerProvider: func() *zap.Logger {
			return application.consoleLogger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() stores.Configuration {
			return application.configuration.Trunk
		},
		GitExecutor:     dependencies.GitExecutor,
		PrompterFactory: dependencies.PrompterFactory,
	}

	builders := []commandBuilder{
		&stores.InitCommandBuilder{Dependencies: commandDependencies},
		&stores.CommitCommandBuilder{Dependencies: commandDependencies},
		&stores.CheckoutCommandBuilder{Dependencies: commandDependencies},
		&stores.PushCommandBuilder{Dependencies: commandDependencies},
		&stores.SteganoCommandBuilder{Dependencies: commandDependencies},
		&stores.DeleteCommandBuilder{Dependencies: commandDependencies},
		&stores.InfoCommandBuilder{Dependencies: commandDependencies},
		&stores.HooksCommandBuilder{Dependencies: commandDependencies},
	}
	var buildErrors []error
	for _, builder := range builders {
		subcommand, buildError := builder.Build()
		if buildError != nil {
			buildErrors = append(buildErrors, fmt.Errorf(commandBuildErrorTemplateConstant, buildError))
			continue
		}
		rootCommand.AddCommand(subcommand)
	}
	application.buildError = errors.Join(buildErrors...)
	application.rootCommand = rootCommand
	return application
}

// Execute runs the command hierarchy with a background context.
func (application *Application) Execute() error {
	return application.ExecuteContext(context.Background())
}

// ExecuteContext runs the command hierarchy bound to executionContext and flushes the loggers.
func (application *Application) ExecuteContext(executionContext context.Context) error {
	if application.buildError != nil {
		return application.buildError
	}
	runError := application.rootCommand.ExecuteContext(executionContext)
	flushError := errors.Join(ignoreUnsyncableOutput(application.diagnosticLogger.Sync()), ignoreUnsyncableOutput(application.consoleLogger.Sync()))
	if runError == nil && flushError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, flushError)
	}
	return runError
}

// Execute runs a fresh git-trunk application.
func Execute() error {
	return NewApplication().Execute()
}

// ExecuteContext runs a fresh git-trunk application bound to executionContext.
func ExecuteContext(executionContext context.Context) error {
	return NewApplication().ExecuteContext(executionContext)
}

// prepareInvocation layers configuration, applies the logging flag overrides, and publishes the
// resolved settings on the command context.
func (application *Application) prepareInvocation(command *cobra.Command) error {
	defaultValues := stores.DefaultConfigurationValues(trunkConfigurationKeyConstant)
	defaultValues[commonLogLevelConfigKeyConstant] = string(utils.LogLevelWarn)
	defaultValues[commonLogFormatConfigKeyConstant] = string(utils.LogFormatConsole)

	configurationFilePath := flags.ResolveString(command, configFileFlagNameConstant, "")
	loadedConfiguration, loadError := application.loader.LoadConfiguration(configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}
	application.loadedConfiguration = loadedConfiguration

	common := &application.configuration.Common
	common.LogLevel = flags.ResolveString(command, logLevelFlagNameConstant, common.LogLevel)
	common.LogFormat = flags.ResolveString(command, logFormatFlagNameConstant, common.LogFormat)
	application.configuration.Trunk = application.configuration.Trunk.Sanitize()

	loggerOutputs, loggerError := application.loggerFactory.CreateLoggerOutputs(utils.LogLevel(common.LogLevel), utils.LogFormat(common.LogFormat))
	if loggerError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerError)
	}
	application.diagnosticLogger = loggerOutputs.DiagnosticLogger
	application.consoleLogger = loggerOutputs.ConsoleLogger

	application.diagnosticLogger.Debug(configurationInitializedMessageConstant,
		zap.String(configurationFileFieldConstant, loadedConfiguration.ConfigFileUsed),
		zap.String(configurationLogLevelFieldConstant, common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, common.LogFormat),
		zap.String(configurationStoreFieldConstant, application.configuration.Trunk.Store),
		zap.String(configurationRemoteFieldConstant, application.configuration.Trunk.Remote),
	)

	invocationContext := application.contextAccessor.WithConfigurationFilePath(command.Context(), loadedConfiguration.ConfigFileUsed)
	command.SetContext(application.contextAccessor.WithLogLevel(invocationContext, common.LogLevel))
	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	return strings.EqualFold(strings.TrimSpace(application.configuration.Common.LogFormat), string(utils.LogFormatConsole))
}

// ignoreUnsyncableOutput drops the errors zap reports when stderr is a terminal or pipe.
func ignoreUnsyncableOutput(syncError error) error {
	for _, unsyncable := range []error{syscall.ENOTSUP, syscall.EINVAL, syscall.ENOTTY} {
		if errors.Is(syncError, unsyncable) {
			return nil
		}
	}
	return syncError
}
