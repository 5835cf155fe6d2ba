package utils

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	pathutils "github.com/temirov/gittrunk/internal/utils/path"
)

const (
	environmentKeySeparatorOldConstant              = "."
	environmentKeySeparatorNewConstant              = "_"
	xdgConfigHomeEnvironmentVariable                = "XDG_CONFIG_HOME"
	xdgConfigFallbackDirectoryName                  = ".config"
	workingDirectorySearchPath                      = "."
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
)

// ConfigurationLoaderOptions describes where a ConfigurationLoader looks for settings.
type ConfigurationLoaderOptions struct {
	Name                      string
	Type                      string
	EnvironmentPrefix         string
	SearchPaths               []string
	EmbeddedConfiguration     []byte
	EmbeddedConfigurationType string
	HomeExpander              *pathutils.HomeExpander
}

// ConfigurationLoader layers embedded defaults, a configuration file, and environment variables
// through Viper.
type ConfigurationLoader struct {
	options                ConfigurationLoaderOptions
	environmentKeyReplacer *strings.Replacer
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader copies options and constructs a loader.
func NewConfigurationLoader(options ConfigurationLoaderOptions) *ConfigurationLoader {
	copied := options
	copied.SearchPaths = append([]string(nil), options.SearchPaths...)
	copied.EmbeddedConfiguration = append([]byte(nil), options.EmbeddedConfiguration...)
	copied.EmbeddedConfigurationType = strings.TrimSpace(options.EmbeddedConfigurationType)
	if copied.HomeExpander == nil {
		copied.HomeExpander = pathutils.NewHomeExpander()
	}

	return &ConfigurationLoader{
		options:                copied,
		environmentKeyReplacer: strings.NewReplacer(environmentKeySeparatorOldConstant, environmentKeySeparatorNewConstant),
	}
}

// DefaultSearchPaths lists the working directory, the XDG configuration directory, and a dot
// directory in the home directory, each for applicationDirectory.
func DefaultSearchPaths(applicationDirectory string) []string {
	searchPaths := []string{workingDirectorySearchPath}

	homeDirectory, homeError := os.UserHomeDir()
	configHome := strings.TrimSpace(os.Getenv(xdgConfigHomeEnvironmentVariable))
	if len(configHome) == 0 && homeError == nil {
		configHome = filepath.Join(homeDirectory, xdgConfigFallbackDirectoryName)
	}
	if len(configHome) > 0 {
		searchPaths = append(searchPaths, filepath.Join(configHome, applicationDirectory))
	}
	if homeError == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDirectory, "."+applicationDirectory))
	}
	return searchPaths
}

// LoadConfiguration decodes into targetConfiguration with precedence defaults, embedded
// configuration, configuration file, then environment. An explicit configurationFilePath must exist;
// a leading "~" in it or in a search path resolves to the home directory.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigName(loader.options.Name)
	viperInstance.SetConfigType(loader.options.Type)

	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(loader.options.EmbeddedConfiguration) > 0 {
		if len(loader.options.EmbeddedConfigurationType) > 0 {
			viperInstance.SetConfigType(loader.options.EmbeddedConfigurationType)
		}
		if mergeError := viperInstance.MergeConfig(bytes.NewReader(loader.options.EmbeddedConfiguration)); mergeError != nil {
			return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
		}
		viperInstance.SetConfigType(loader.options.Type)
	}

	for _, searchPath := range loader.options.SearchPaths {
		viperInstance.AddConfigPath(loader.options.HomeExpander.Expand(searchPath))
	}
	if trimmedPath := strings.TrimSpace(configurationFilePath); len(trimmedPath) > 0 {
		viperInstance.SetConfigFile(loader.options.HomeExpander.Expand(trimmedPath))
	}

	viperInstance.SetEnvPrefix(loader.options.EnvironmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	if readError := viperInstance.MergeInConfig(); readError != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(readError, &notFoundError) {
			return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if unmarshalError := viperInstance.Unmarshal(targetConfiguration, decodeHook); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}
