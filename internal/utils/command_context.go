package utils

import "context"

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	workingDirectoryContextKeyConstant      = commandContextKey("workingDirectory")
	logLevelContextKeyConstant              = commandContextKey("logLevel")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	return withValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return stringValue(executionContext, configurationFilePathContextKeyConstant)
}

// WithWorkingDirectory records the directory commands resolve the host repository from.
func (accessor CommandContextAccessor) WithWorkingDirectory(parentContext context.Context, workingDirectory string) context.Context {
	return withValue(parentContext, workingDirectoryContextKeyConstant, workingDirectory)
}

// WorkingDirectory extracts the recorded working directory.
func (accessor CommandContextAccessor) WorkingDirectory(executionContext context.Context) (string, bool) {
	return stringValue(executionContext, workingDirectoryContextKeyConstant)
}

// WithLogLevel records the effective log level.
func (accessor CommandContextAccessor) WithLogLevel(parentContext context.Context, logLevel string) context.Context {
	return withValue(parentContext, logLevelContextKeyConstant, logLevel)
}

// LogLevel extracts the effective log level.
func (accessor CommandContextAccessor) LogLevel(executionContext context.Context) (string, bool) {
	return stringValue(executionContext, logLevelContextKeyConstant)
}

func withValue(parentContext context.Context, key commandContextKey, value string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, key, value)
}

func stringValue(executionContext context.Context, key commandContextKey) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	value, available := executionContext.Value(key).(string)
	if !available || len(value) == 0 {
		return "", false
	}
	return value, true
}
