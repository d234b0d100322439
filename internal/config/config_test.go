package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"volley/internal/token"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "volley.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Method != "GET" {
		t.Errorf("method default = %q, want GET", cfg.Method)
	}
	if cfg.OutputFile != "output.txt" {
		t.Errorf("output_file default = %q", cfg.OutputFile)
	}
	if !cfg.VerifySSL {
		t.Error("verify_ssl must default to true")
	}
	if cfg.Loops != 1 {
		t.Errorf("loops default = %d, want 1", cfg.Loops)
	}
	if cfg.TimeoutSec != 30 {
		t.Errorf("timeout_sec default = %d, want 30", cfg.TimeoutSec)
	}
	if cfg.Token != nil {
		t.Error("token section must stay nil when absent")
	}
	if cfg.SaveOutput || cfg.AppendLogs {
		t.Error("output flags must default to false")
	}
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
method: post
url: https://api.example.test/orders
headers:
  Content-Type: application/json
params:
  dry_run: "true"
payloads:
  - sku: abc
    qty: 2
loops: 10
sleep_time: 0.5
verify_ssl: false
append_logs: true
save_output: true
output_file: runs/all.txt
token:
  endpoint: https://auth.example.test/token
  client_id: cid
  client_secret: secret
  refresh_token: seed
  access_token_path: [data, access]
  refresh_token_path: [data, refresh]
  auth_retries: 2
conditions:
  - status_codes: [200, 201]
    messages: [created]
    output_file: runs/ok.txt
  - status_codes: [500]
    output_file: runs/err.txt
    ignore_case: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Method != "post" || cfg.URL != "https://api.example.test/orders" {
		t.Fatalf("basic fields wrong: %+v", cfg)
	}
	if cfg.Headers["Content-Type"] != "application/json" {
		t.Errorf("headers not read: %v", cfg.Headers)
	}
	if cfg.Params["dry_run"] != "true" {
		t.Errorf("params not read: %v", cfg.Params)
	}
	if len(cfg.Payloads) != 1 {
		t.Fatalf("payloads not read: %v", cfg.Payloads)
	}
	if cfg.Loops != 10 || cfg.SleepTime != 0.5 || cfg.VerifySSL || !cfg.AppendLogs {
		t.Fatalf("loop settings wrong: %+v", cfg)
	}
	if cfg.Token == nil || cfg.Token.Endpoint != "https://auth.example.test/token" {
		t.Fatalf("token section not read: %+v", cfg.Token)
	}
	if cfg.Token.AuthRetries != 2 {
		t.Errorf("auth_retries = %d, want 2", cfg.Token.AuthRetries)
	}
	if len(cfg.Conditions) != 2 {
		t.Fatalf("conditions not read: %+v", cfg.Conditions)
	}
	if !cfg.Conditions[1].IgnoreCase {
		t.Error("ignore_case not read")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, _ := Load("")
		cfg.URL = "https://api.example.test"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid minimal", func(c *Config) {}, false},
		{"missing url", func(c *Config) { c.URL = " " }, true},
		{"empty method", func(c *Config) { c.Method = "" }, true},
		{"negative loops", func(c *Config) { c.Loops = -1 }, true},
		{"zero loops allowed", func(c *Config) { c.Loops = 0 }, false},
		{"negative sleep", func(c *Config) { c.SleepTime = -0.1 }, true},
		{"save without file", func(c *Config) { c.SaveOutput = true; c.OutputFile = "" }, true},
		{"condition without file", func(c *Config) {
			c.Conditions = []ConditionConfig{{StatusCodes: []int{200}}}
		}, true},
		{"token without endpoint", func(c *Config) {
			c.Token = &TokenConfig{RefreshToken: "seed"}
		}, true},
		{"token without refresh token", func(c *Config) {
			c.Token = &TokenConfig{Endpoint: "https://auth.example.test"}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestToRunner(t *testing.T) {
	cfg, _ := Load("")
	cfg.Method = "post"
	cfg.URL = "https://api.example.test"
	cfg.SleepTime = 1.5
	cfg.Token = &TokenConfig{
		Endpoint:         "https://auth.example.test/token",
		RefreshToken:     "seed",
		AccessTokenPath:  []any{"data", float64(0), "access"},
		RefreshTokenPath: []any{"refresh_token"},
		AuthRetries:      3,
	}
	cfg.Conditions = []ConditionConfig{
		{StatusCodes: []int{200}, Messages: []string{"ok"}, OutputFile: "ok.txt"},
	}

	rc, err := cfg.ToRunner()
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if rc.Method != "POST" {
		t.Errorf("method must be upper-cased, got %q", rc.Method)
	}
	if rc.SleepTime != 1500*time.Millisecond {
		t.Errorf("sleep_time = %s, want 1.5s", rc.SleepTime)
	}
	if rc.AuthRetries != 3 {
		t.Errorf("auth_retries = %d, want 3", rc.AuthRetries)
	}
	// YAML numbers arrive as float64; index steps must come out as ints.
	want := token.Path{"data", 0, "access"}
	if len(rc.Token.AccessTokenPath) != 3 || rc.Token.AccessTokenPath[1] != want[1] {
		t.Errorf("access path not normalized: %v", rc.Token.AccessTokenPath)
	}
	if len(rc.Conditions) != 1 || rc.Conditions[0].OutputFile != "ok.txt" {
		t.Errorf("conditions not converted: %+v", rc.Conditions)
	}
}

func TestToRunnerBadPath(t *testing.T) {
	cfg, _ := Load("")
	cfg.URL = "https://api.example.test"
	cfg.Token = &TokenConfig{
		Endpoint:        "https://auth.example.test/token",
		RefreshToken:    "seed",
		AccessTokenPath: []any{"data", true},
	}
	if _, err := cfg.ToRunner(); err == nil {
		t.Fatal("expected error for non key/index path step")
	}
}
