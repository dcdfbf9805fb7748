package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Analytics     Analytics     `yaml:"analytics"`
	Generation    Generation    `yaml:"generation"`
	Target        Target        `yaml:"target"`
	Notifications Notifications `yaml:"notifications"`
	Output        Output        `yaml:"output"`
	Server        Server        `yaml:"server"`
	Logging       Logging       `yaml:"logging"`
}

// Analytics configures the Clarity Data Export client.
type Analytics struct {
	APIKeyEnv      string `yaml:"api_key_env"`
	ProjectID      string `yaml:"project_id"`
	NumDays        int    `yaml:"num_days"`
	MaxCallsPerDay int    `yaml:"max_calls_per_day"`
}

// Generation configures the LLM provider used by the analysis stages.
type Generation struct {
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	MaxTokens         int     `yaml:"max_tokens"`
	InputCostPerMTok  float64 `yaml:"input_cost_per_mtok"`
	OutputCostPerMTok float64 `yaml:"output_cost_per_mtok"`
}

// Target names the repository whose source the investigation stages read.
type Target struct {
	Repo     string `yaml:"repo"`
	CloneDir string `yaml:"clone_dir"`
}

type Notifications struct {
	Slack SlackConfig `yaml:"slack"`
}

type SlackConfig struct {
	Enabled       bool   `yaml:"enabled"`
	WebhookURLEnv string `yaml:"webhook_url_env"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for uxpilot.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "uxpilot")
}

// DataDir returns the XDG data directory for uxpilot.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "uxpilot")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/uxpilot/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'uxpilot init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Analytics: Analytics{
			APIKeyEnv:      "CLARITY_API_TOKEN",
			NumDays:        1,
			MaxCallsPerDay: 10,
		},
		Generation: Generation{
			APIKeyEnv:         "ANTHROPIC_API_KEY",
			Model:             "claude-sonnet-4-20250514",
			MaxTokens:         16000,
			InputCostPerMTok:  3.0,
			OutputCostPerMTok: 15.0,
		},
		Notifications: Notifications{
			Slack: SlackConfig{
				Enabled:       true,
				WebhookURLEnv: "SLACK_WEBHOOK_URL",
			},
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetCloneDir returns the directory the target repository is cloned into.
func (c *Config) GetCloneDir() string {
	if c.Target.CloneDir != "" {
		return c.Target.CloneDir
	}
	return filepath.Join(c.GetDataDir(), "repo")
}

// ValidateCredentials checks that the environment variables the pipeline
// needs are actually set. Called by commands that talk to external APIs.
func (c *Config) ValidateCredentials() error {
	if os.Getenv(c.Analytics.APIKeyEnv) == "" {
		return fmt.Errorf("analytics API token not set: export %s", c.Analytics.APIKeyEnv)
	}
	if os.Getenv(c.Generation.APIKeyEnv) == "" {
		return fmt.Errorf("LLM API key not set: export %s", c.Generation.APIKeyEnv)
	}
	if c.Analytics.ProjectID == "" {
		return fmt.Errorf("analytics.project_id not set in config")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
