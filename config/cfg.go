package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configDefaults []byte

type (
	// DocumentConfig describes one output document of a build.
	DocumentConfig struct {
		Root       string         `yaml:"root"`
		Target     string         `yaml:"target"`
		Title      string         `yaml:"title"`
		Subtitle   string         `yaml:"subtitle,omitempty"`
		Author     string         `yaml:"author,omitempty"`
		Options    map[string]any `yaml:"options,omitempty"`
		Appendices []string       `yaml:"appendices,omitempty"`
	}

	BuildConfig struct {
		TreeDir      string           `yaml:"tree_dir"`
		OutputDir    string           `yaml:"output_dir"`
		TemplatePath []string         `yaml:"template_path,omitempty"`
		Options      map[string]any   `yaml:"options,omitempty"`
		Documents    []DocumentConfig `yaml:"documents"`
	}

	Config struct {
		Version int           `yaml:"version"`
		Build   BuildConfig   `yaml:"build"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

func unmarshalConfig(data []byte, cfg *Config) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposing its values on top of the embedded defaults. An empty path
// returns the defaults alone.
func LoadConfiguration(path string) (*Config, error) {
	cfg, err := unmarshalConfig(configDefaults, &Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to process default configuration: %w", err)
	}
	if len(path) == 0 {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported configuration version %d", cfg.Version)
	}
	return cfg, nil
}

// Prepare returns the default configuration as a byte slice.
func Prepare() ([]byte, error) {
	out := make([]byte, len(configDefaults))
	copy(out, configDefaults)
	return out, nil
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
