// Package utils exposes the CLI plumbing shared by every git-trunk command.
//
// ConfigurationLoader layers embedded defaults, config.yaml and GITTRUNK_*
// environment variables through Viper. LoggerFactory builds the diagnostic
// and console zap loggers, and CommandContextAccessor threads per-invocation
// values through command contexts.
package utils
