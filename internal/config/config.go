// Package config provides centralized configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/internal/provider"
)

// DefaultProvider is used when MCP_PROVIDER is not set.
const DefaultProvider = "linear"

// Config holds all configuration parameters for the application.
type Config struct {
	Provider string
	Linear   LinearConfig
	GitHub   GitHubConfig
	Jira     JiraConfig
	Log      LogConfig
	Server   ServerConfig
}

// LinearConfig holds Linear specific configuration.
type LinearConfig struct {
	Token  string
	APIURL string
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token      string
	Domain     string
	Repository string
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string
}

// LogConfig controls log output.
type LogConfig struct {
	Level string
	File  string
	// ToFile enables the default log file location when File is empty.
	ToFile bool
}

// ServerConfig controls the MCP transport.
type ServerConfig struct {
	// HTTPAddr switches the server from stdio to streamable HTTP when set.
	HTTPAddr string
}

// LoadDotEnv loads environment variables from the given files, or ".env"
// when none are given. Missing files are ignored.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// LoadConfig initializes and loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	// Initialize Viper for environment variables
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Map specific environment variables
	_ = v.BindEnv("provider", "MCP_PROVIDER")
	_ = v.BindEnv("linear.token", "LINEAR_API_TOKEN")
	_ = v.BindEnv("linear.api_url", "LINEAR_API_URL")
	_ = v.BindEnv("github.token", "GITHUB_TOKEN")
	_ = v.BindEnv("github.domain", "GITHUB_DOMAIN")
	_ = v.BindEnv("github.repository", "GITHUB_REPOSITORY")
	_ = v.BindEnv("jira.url", "JIRA_URL")
	_ = v.BindEnv("jira.username", "JIRA_USERNAME")
	_ = v.BindEnv("jira.token", "JIRA_TOKEN")
	_ = v.BindEnv("log.level", "LOG_LEVEL")
	_ = v.BindEnv("log.file", "LOG_FILE")
	_ = v.BindEnv("log.to_file", "LOG_TO_FILE")
	_ = v.BindEnv("server.http_addr", "MCP_HTTP_ADDR")

	v.SetDefault("provider", DefaultProvider)
	v.SetDefault("github.domain", "github.com")
	v.SetDefault("log.level", "info")

	// Create config structure
	config := &Config{
		Provider: strings.ToLower(strings.TrimSpace(v.GetString("provider"))),
		Linear: LinearConfig{
			Token:  v.GetString("linear.token"),
			APIURL: v.GetString("linear.api_url"),
		},
		GitHub: GitHubConfig{
			Token:      v.GetString("github.token"),
			Domain:     v.GetString("github.domain"),
			Repository: v.GetString("github.repository"),
		},
		Jira: JiraConfig{
			URL:      v.GetString("jira.url"),
			Username: v.GetString("jira.username"),
			Token:    v.GetString("jira.token"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			File:   v.GetString("log.file"),
			ToFile: v.GetBool("log.to_file"),
		},
		Server: ServerConfig{
			HTTPAddr: v.GetString("server.http_addr"),
		},
	}
	if config.Provider == "" {
		config.Provider = DefaultProvider
	}
	if config.GitHub.Domain == "" {
		config.GitHub.Domain = "github.com"
	}

	return config, nil
}

// Validate checks that the selected provider has everything it needs.
func (c *Config) Validate() error {
	switch c.Provider {
	case "linear":
		return ValidateLinearConfig(c)
	case "jira":
		return ValidateJiraConfig(c)
	case "github":
		return ValidateGitHubConfig(c)
	default:
		return apperrors.Validation("MCP_PROVIDER", fmt.Sprintf("unsupported provider %q", c.Provider))
	}
}

// ValidateLinearConfig validates Linear-specific configuration.
func ValidateLinearConfig(config *Config) error {
	var missingVars []string

	if config.Linear.Token == "" {
		missingVars = append(missingVars, "LINEAR_API_TOKEN")
	}

	return missing(missingVars)
}

// ValidateGitHubConfig validates GitHub-specific configuration.
func ValidateGitHubConfig(config *Config) error {
	var missingVars []string

	if config.GitHub.Token == "" {
		missingVars = append(missingVars, "GITHUB_TOKEN")
	}
	if config.GitHub.Repository == "" {
		missingVars = append(missingVars, "GITHUB_REPOSITORY")
	}

	return missing(missingVars)
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	// JIRA validation
	if config.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}

	return missing(missingVars)
}

func missing(vars []string) error {
	if len(vars) == 0 {
		return nil
	}
	return apperrors.Validation(vars[0], fmt.Sprintf("missing required environment variables: %v", vars))
}

// ProviderConfig converts the selected provider's settings into the adapter configuration.
func (c *Config) ProviderConfig() provider.Config {
	cfg := provider.Config{Provider: c.Provider}
	switch c.Provider {
	case "linear":
		cfg.APIToken = c.Linear.Token
		cfg.BaseURL = c.Linear.APIURL
	case "github":
		cfg.APIToken = c.GitHub.Token
		cfg.WorkspaceID = c.GitHub.Repository
		if c.GitHub.Domain != "github.com" {
			cfg.BaseURL = fmt.Sprintf("https://%s/api/v3/", c.GitHub.Domain)
		}
	case "jira":
		cfg.APIToken = c.Jira.Token
		cfg.BaseURL = c.Jira.URL
		cfg.Username = c.Jira.Username
	}
	return cfg
}
