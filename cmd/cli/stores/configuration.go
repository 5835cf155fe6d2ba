package stores

import (
	"strings"

	"github.com/temirov/gittrunk/internal/trunk"
	"github.com/temirov/gittrunk/internal/ui"
)

const (
	configurationStoreKeyConstant      = "store"
	configurationRemoteKeyConstant     = "remote"
	configurationAssumeYesKeyConstant  = "assume_yes"
	configurationInfoOutputKeyConstant = "info.output"
)

// Configuration captures the persisted trunk command settings.
type Configuration struct {
	Store     string            `mapstructure:"store"`
	Remote    string            `mapstructure:"remote"`
	AssumeYes bool              `mapstructure:"assume_yes"`
	Info      InfoConfiguration `mapstructure:"info"`
}

// InfoConfiguration holds settings for the info command.
type InfoConfiguration struct {
	Output string `mapstructure:"output"`
}

// DefaultConfiguration returns the built-in trunk settings.
func DefaultConfiguration() Configuration {
	return Configuration{
		Store:     trunk.DefaultStoreName,
		Remote:    trunk.DefaultRemoteName,
		AssumeYes: false,
		Info:      InfoConfiguration{Output: string(ui.ReportFormatText)},
	}
}

// DefaultConfigurationValues produces Viper defaults rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		rootKey + "." + configurationStoreKeyConstant:      defaults.Store,
		rootKey + "." + configurationRemoteKeyConstant:     defaults.Remote,
		rootKey + "." + configurationAssumeYesKeyConstant:  defaults.AssumeYes,
		rootKey + "." + configurationInfoOutputKeyConstant: defaults.Info.Output,
	}
}

// Sanitize trims values and restores defaults for blank entries.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration
	sanitized.Store = strings.TrimSpace(configuration.Store)
	if len(sanitized.Store) == 0 {
		sanitized.Store = defaults.Store
	}
	sanitized.Remote = strings.TrimSpace(configuration.Remote)
	if len(sanitized.Remote) == 0 {
		sanitized.Remote = defaults.Remote
	}
	sanitized.Info.Output = strings.ToLower(strings.TrimSpace(configuration.Info.Output))
	if len(sanitized.Info.Output) == 0 {
		sanitized.Info.Output = defaults.Info.Output
	}
	return sanitized
}
