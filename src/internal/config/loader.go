// FILE: logrelay/src/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	lconfig "github.com/lixenwraith/config"
)

const (
	DefaultConfigFile = "config.toml"
	EnvPrefix         = "LOGRELAY_"
)

// Load builds the configuration from defaults, the config file, environment
// and command line, in increasing priority, then validates it.
// A missing config file is not an error.
func Load(cliArgs []string) (*Config, error) {
	return LoadFile(GetConfigPath(), cliArgs)
}

// LoadFile is Load with an explicit config file path
func LoadFile(path string, cliArgs []string) (*Config, error) {
	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix(EnvPrefix).
		WithFile(path).
		WithArgs(cliArgs).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	finalConfig := &Config{}
	if err := cfg.Scan(finalConfig, ""); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	if err := finalConfig.validate(); err != nil {
		return nil, err
	}
	return finalConfig, nil
}

// customEnvTransform maps relay_output_format.type to LOGRELAY_RELAY_OUTPUT_FORMAT_TYPE
func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	return EnvPrefix + env
}

// GetConfigPath returns LOGRELAY_CONFIG_FILE when set, config.toml otherwise
func GetConfigPath() string {
	if configFile := os.Getenv(EnvPrefix + "CONFIG_FILE"); configFile != "" {
		return configFile
	}
	return DefaultConfigFile
}
