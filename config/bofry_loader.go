package config

import (
	"fmt"
	"os"
	"path/filepath"

	bofryconfig "github.com/Bofry/config"
)

// BofryLoader loads configuration with Bofry/config:
// - YAML files
// - .env files
// - Environment variables
type BofryLoader struct {
	yamlFile   string
	dotEnvFile string
	envPrefix  string
}

// NewBofryLoader creates a new Bofry configuration loader
func NewBofryLoader() *BofryLoader {
	return &BofryLoader{
		envPrefix: DefaultEnvPrefix,
	}
}

// WithYAMLFile sets the YAML configuration file path
func (l *BofryLoader) WithYAMLFile(path string) *BofryLoader {
	l.yamlFile = path
	return l
}

// WithDotEnvFile sets the .env file path
func (l *BofryLoader) WithDotEnvFile(path string) *BofryLoader {
	l.dotEnvFile = path
	return l
}

// WithEnvPrefix sets the environment variable prefix
func (l *BofryLoader) WithEnvPrefix(prefix string) *BofryLoader {
	l.envPrefix = prefix
	return l
}

// Load loads configuration from various sources
func (l *BofryLoader) Load(cfg *Config) error {
	*cfg = *DefaultConfig()

	// Bofry/config panics on errors, so we need to recover
	var loadErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					loadErr = err
				} else {
					loadErr = fmt.Errorf("configuration loading panic: %v", r)
				}
			}
		}()

		configService := bofryconfig.NewConfigurationService(cfg)

		// Missing files are skipped, matching SimpleLoader
		if l.yamlFile != "" {
			if _, err := os.Stat(l.yamlFile); err == nil {
				configService.LoadYamlFile(l.yamlFile)
			} else if !os.IsNotExist(err) {
				loadErr = fmt.Errorf("failed to check YAML file: %w", err)
				return
			}
		}

		if l.dotEnvFile != "" {
			if _, err := os.Stat(l.dotEnvFile); err == nil {
				configService.LoadDotEnvFile(l.dotEnvFile)
			} else if !os.IsNotExist(err) {
				loadErr = fmt.Errorf("failed to check .env file: %w", err)
				return
			}
		}

		envPrefix := l.envPrefix
		if len(envPrefix) > 0 && envPrefix[len(envPrefix)-1] == '_' {
			envPrefix = envPrefix[:len(envPrefix)-1]
		}
		configService.LoadEnvironmentVariables(envPrefix)
	}()

	if loadErr != nil {
		return loadErr
	}

	// Bofry does not walk nested structs for env vars the way SimpleLoader
	// does, so apply SimpleLoader's env handling on top.
	loader := &SimpleLoader{envPrefix: l.envPrefix}
	if err := loader.loadFromEnv(cfg); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	return cfg.Validate()
}

// LoadWithBofry loads yamlFile with Bofry, picking up a sibling .env file
// when one exists.
func LoadWithBofry(yamlFile string, envPrefix string, cfg *Config) error {
	dotEnvFile := ""
	if yamlFile != "" {
		possibleDotEnv := filepath.Join(filepath.Dir(yamlFile), ".env")
		if _, err := os.Stat(possibleDotEnv); err == nil {
			dotEnvFile = possibleDotEnv
		}
	}

	loader := NewBofryLoader().
		WithYAMLFile(yamlFile).
		WithDotEnvFile(dotEnvFile).
		WithEnvPrefix(envPrefix)

	return loader.Load(cfg)
}
