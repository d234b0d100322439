package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"volley/internal/rules"
	"volley/internal/runner"
	"volley/internal/token"
)

// TokenConfig mirrors the token section of the config file.
type TokenConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	ClientID         string `mapstructure:"client_id"`
	ClientSecret     string `mapstructure:"client_secret"`
	RefreshToken     string `mapstructure:"refresh_token"`
	AccessTokenPath  []any  `mapstructure:"access_token_path"`
	RefreshTokenPath []any  `mapstructure:"refresh_token_path"`
	Header           string `mapstructure:"header"`
	Scheme           string `mapstructure:"scheme"`
	AuthRetries      int    `mapstructure:"auth_retries"`
}

// ConditionConfig is one condition rule as written in the config file.
type ConditionConfig struct {
	StatusCodes []int    `mapstructure:"status_codes"`
	Messages    []string `mapstructure:"messages"`
	IgnoreCase  bool     `mapstructure:"ignore_case"`
	OutputFile  string   `mapstructure:"output_file"`
}

// Config is the full recognized configuration surface.
type Config struct {
	Method   string            `mapstructure:"method"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
	Payloads []any             `mapstructure:"payloads"`
	Params   map[string]string `mapstructure:"params"`

	Token *TokenConfig `mapstructure:"token"`

	SaveOutput bool              `mapstructure:"save_output"`
	OutputFile string            `mapstructure:"output_file"`
	Conditions []ConditionConfig `mapstructure:"conditions"`

	SleepTime  float64 `mapstructure:"sleep_time"` // seconds
	VerifySSL  bool    `mapstructure:"verify_ssl"`
	Loops      int     `mapstructure:"loops"`
	AppendLogs bool    `mapstructure:"append_logs"`
	TimeoutSec int     `mapstructure:"timeout_sec"`
}

// Load reads a YAML config file (when path is non-empty) and applies
// VOLLEY_* environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("VOLLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("method", "GET")
	v.SetDefault("output_file", "output.txt")
	v.SetDefault("verify_ssl", true)
	v.SetDefault("loops", 1)
	v.SetDefault("timeout_sec", 30)
	// token defaults (header, scheme, auth_retries) live in the token and
	// runner packages so an absent token section stays nil here
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("url is required")
	}
	if strings.TrimSpace(c.Method) == "" {
		return errors.New("method cannot be empty")
	}
	if c.Loops < 0 {
		return errors.New("loops cannot be negative")
	}
	if c.SleepTime < 0 {
		return errors.New("sleep_time cannot be negative")
	}
	if c.SaveOutput && strings.TrimSpace(c.OutputFile) == "" {
		return errors.New("output_file is required when save_output is set")
	}
	for i, cond := range c.Conditions {
		if strings.TrimSpace(cond.OutputFile) == "" {
			return fmt.Errorf("conditions[%d]: output_file is required", i)
		}
	}
	if c.Token != nil {
		if strings.TrimSpace(c.Token.Endpoint) == "" {
			return errors.New("token.endpoint is required")
		}
		if strings.TrimSpace(c.Token.RefreshToken) == "" {
			return errors.New("token.refresh_token is required")
		}
	}
	return nil
}

// ToRunner converts the file-level config into the engine's immutable run
// configuration.
func (c *Config) ToRunner() (runner.Config, error) {
	rc := runner.Config{
		Method:     strings.ToUpper(c.Method),
		URL:        c.URL,
		Headers:    c.Headers,
		Params:     c.Params,
		Payloads:   c.Payloads,
		SaveOutput: c.SaveOutput,
		OutputFile: c.OutputFile,
		SleepTime:  time.Duration(c.SleepTime * float64(time.Second)),
		VerifySSL:  c.VerifySSL,
		Loops:      c.Loops,
		AppendLogs: c.AppendLogs,
		TimeoutSec: c.TimeoutSec,
	}

	for _, cond := range c.Conditions {
		rc.Conditions = append(rc.Conditions, rules.Rule{
			StatusCodes: cond.StatusCodes,
			Messages:    cond.Messages,
			IgnoreCase:  cond.IgnoreCase,
			OutputFile:  cond.OutputFile,
		})
	}

	if c.Token != nil {
		accessPath, err := token.NormalizePath(c.Token.AccessTokenPath)
		if err != nil {
			return rc, fmt.Errorf("token.access_token_path: %w", err)
		}
		refreshPath, err := token.NormalizePath(c.Token.RefreshTokenPath)
		if err != nil {
			return rc, fmt.Errorf("token.refresh_token_path: %w", err)
		}
		rc.Token = &token.Spec{
			Endpoint:         c.Token.Endpoint,
			ClientID:         c.Token.ClientID,
			ClientSecret:     c.Token.ClientSecret,
			RefreshToken:     c.Token.RefreshToken,
			AccessTokenPath:  accessPath,
			RefreshTokenPath: refreshPath,
			Header:           c.Token.Header,
			Scheme:           c.Token.Scheme,
		}
		rc.AuthRetries = c.Token.AuthRetries
	}

	return rc, nil
}
