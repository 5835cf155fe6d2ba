package utils

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	messageKeyConstant                   = "message"
	levelKeyConstant                     = "level"
	timeKeyConstant                      = "time"
	callerKeyConstant                    = "caller"
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// LoggerOutputs bundles the loggers a command needs.
type LoggerOutputs struct {
	// DiagnosticLogger carries structured fields for troubleshooting.
	DiagnosticLogger *zap.Logger
	// ConsoleLogger prints bare messages for people watching the terminal.
	ConsoleLogger *zap.Logger
}

// LoggerFactory builds zap loggers that write to a shared sink, stderr by default.
type LoggerFactory struct {
	sink zapcore.WriteSyncer
}

// NewLoggerFactory constructs a factory writing to standard error.
func NewLoggerFactory() *LoggerFactory {
	return &LoggerFactory{sink: zapcore.Lock(os.Stderr)}
}

// NewLoggerFactoryWithSink constructs a factory writing to sink.
func NewLoggerFactoryWithSink(sink zapcore.WriteSyncer) *LoggerFactory {
	if sink == nil {
		return NewLoggerFactory()
	}
	return &LoggerFactory{sink: sink}
}

// CreateLogger produces the diagnostic logger honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	outputs, creationError := factory.CreateLoggerOutputs(requestedLogLevel, requestedLogFormat)
	if creationError != nil {
		return nil, creationError
	}
	return outputs.DiagnosticLogger, nil
}

// CreateLoggerOutputs builds the diagnostic and console loggers for one level and format.
func (factory *LoggerFactory) CreateLoggerOutputs(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (LoggerOutputs, error) {
	zapLogLevel, levelExists := logLevelMapping[LogLevel(strings.ToLower(strings.TrimSpace(string(requestedLogLevel))))]
	if !levelExists {
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	var diagnosticEncoder zapcore.Encoder
	switch LogFormat(strings.ToLower(strings.TrimSpace(string(requestedLogFormat)))) {
	case LogFormatStructured:
		diagnosticEncoder = zapcore.NewJSONEncoder(diagnosticEncoderConfig())
	case LogFormatConsole:
		diagnosticEncoder = zapcore.NewConsoleEncoder(diagnosticEncoderConfig())
	default:
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}

	levelEnabler := zap.NewAtomicLevelAt(zapLogLevel)
	sink := factory.sink
	if sink == nil {
		sink = zapcore.Lock(os.Stderr)
	}

	return LoggerOutputs{
		DiagnosticLogger: zap.New(zapcore.NewCore(diagnosticEncoder, sink, levelEnabler), zap.AddCaller()),
		ConsoleLogger:    zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig()), sink, levelEnabler)),
	}, nil
}

func diagnosticEncoderConfig() zapcore.EncoderConfig {
	configuration := zap.NewProductionEncoderConfig()
	configuration.MessageKey = messageKeyConstant
	configuration.LevelKey = levelKeyConstant
	configuration.TimeKey = timeKeyConstant
	configuration.CallerKey = callerKeyConstant
	configuration.EncodeTime = zapcore.ISO8601TimeEncoder
	return configuration
}

// consoleEncoderConfig prints only the message.
func consoleEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     messageKeyConstant,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}
