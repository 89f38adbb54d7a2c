package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Fetcher.Debounce != 300*time.Millisecond {
		t.Errorf("default debounce = %v, want 300ms", cfg.Fetcher.Debounce)
	}
	if cfg.Fetcher.SlowAfter != 3*time.Second {
		t.Errorf("default slow_after = %v, want 3s", cfg.Fetcher.SlowAfter)
	}
	if cfg.Fetcher.PerPage != 10 {
		t.Errorf("default per_page = %d, want 10", cfg.Fetcher.PerPage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), `
api:
  base_url: https://ledger.example.com/api/admin
  timeout: 10s
auth:
  user_id: usr_01
  auth_token: secret
fetcher:
  debounce: 500ms
blockchain:
  rpc_url: http://localhost:8545
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "https://ledger.example.com/api/admin" {
		t.Errorf("base_url = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("timeout = %v", cfg.API.Timeout)
	}
	if cfg.Auth.UserID != "usr_01" || cfg.Auth.AuthToken != "secret" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Fetcher.Debounce != 500*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Fetcher.Debounce)
	}
	// Unset fields keep defaults.
	if cfg.Fetcher.SlowAfter != 3*time.Second {
		t.Errorf("slow_after = %v, want default", cfg.Fetcher.SlowAfter)
	}
	if cfg.Blockchain.RPCURL != "http://localhost:8545" {
		t.Errorf("rpc_url = %q", cfg.Blockchain.RPCURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("Load() should return defaults for missing file, got error: %v", err)
	}
	if *cfg != DefaultConfig() {
		t.Errorf("Load(missing) = %+v, want defaults", *cfg)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), "{{invalid yaml")

	if _, err := Load(cfgPath); err == nil {
		t.Fatal("Load(invalid YAML) should return error")
	}
}

func TestLoad_UnknownField(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), `
api:
  base_ulr: https://example.com
`)

	if _, err := Load(cfgPath); err == nil {
		t.Fatal("Load() should return error for unknown field 'base_ulr'")
	}
}

func TestLoad_CommentOnlyAndEmpty(t *testing.T) {
	for name, body := range map[string]string{"comment": "# just a comment\n", "empty": ""} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, t.TempDir(), body))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if *cfg != DefaultConfig() {
				t.Errorf("got %+v, want defaults", *cfg)
			}
		})
	}
}

func TestLoadLayered_Priority(t *testing.T) {
	// Given a user config with credentials and a project config with an endpoint
	userCfg := writeConfig(t, t.TempDir(), `
api:
  base_url: https://user.example.com/api/admin
auth:
  user_id: usr_user
`)
	projectCfg := writeConfig(t, t.TempDir(), `
api:
  base_url: https://project.example.com/api/admin
fetcher:
  per_page: 25
`)

	// When both are layered
	cfg, err := LoadLayered(userCfg, projectCfg)
	if err != nil {
		t.Fatalf("LoadLayered() error = %v", err)
	}

	// Then the project layer wins where both set a value
	if cfg.API.BaseURL != "https://project.example.com/api/admin" {
		t.Errorf("base_url = %q, want project value", cfg.API.BaseURL)
	}
	if cfg.Auth.UserID != "usr_user" {
		t.Errorf("user_id = %q, want user value", cfg.Auth.UserID)
	}
	if cfg.Fetcher.PerPage != 25 {
		t.Errorf("per_page = %d, want 25", cfg.Fetcher.PerPage)
	}
}

func TestLoadLayered_AllMissing(t *testing.T) {
	cfg, err := LoadLayered("/no/user.yaml", "/no/project.yaml")
	if err != nil {
		t.Fatalf("LoadLayered(all missing) error = %v", err)
	}
	if *cfg != DefaultConfig() {
		t.Errorf("got %+v, want defaults", *cfg)
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		envs    map[string]string
		wantErr bool
		check   func(*testing.T, Config)
	}{
		{
			name: "LEDGERDECK_API_URL overrides base url",
			envs: map[string]string{"LEDGERDECK_API_URL": "https://env.example.com/api/admin"},
			check: func(t *testing.T, c Config) {
				if c.API.BaseURL != "https://env.example.com/api/admin" {
					t.Errorf("base_url = %q", c.API.BaseURL)
				}
			},
		},
		{
			name: "credentials from env",
			envs: map[string]string{"LEDGERDECK_USER_ID": "usr_env", "LEDGERDECK_AUTH_TOKEN": "tok_env"},
			check: func(t *testing.T, c Config) {
				if c.Auth.UserID != "usr_env" || c.Auth.AuthToken != "tok_env" {
					t.Errorf("auth = %+v", c.Auth)
				}
			},
		},
		{
			name: "LEDGERDECK_FETCHER_DEBOUNCE parses duration",
			envs: map[string]string{"LEDGERDECK_FETCHER_DEBOUNCE": "1s"},
			check: func(t *testing.T, c Config) {
				if c.Fetcher.Debounce != time.Second {
					t.Errorf("debounce = %v", c.Fetcher.Debounce)
				}
			},
		},
		{
			name: "unset variables keep loaded values",
			envs: map[string]string{},
			check: func(t *testing.T, c Config) {
				if c != DefaultConfig() {
					t.Errorf("config changed: %+v", c)
				}
			},
		},
		{
			name:    "invalid duration returns error",
			envs:    map[string]string{"LEDGERDECK_API_TIMEOUT": "notaduration"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envs {
				t.Setenv(k, v)
			}
			cfg := DefaultConfig()
			err := cfg.ApplyEnv()

			if tt.wantErr {
				if err == nil {
					t.Fatal("ApplyEnv() should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnv() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", modify: func(*Config) {}},
		{name: "empty base url", modify: func(c *Config) { c.API.BaseURL = "" }, wantErr: true},
		{name: "relative base url", modify: func(c *Config) { c.API.BaseURL = "/api/admin" }, wantErr: true},
		{name: "zero timeout", modify: func(c *Config) { c.API.Timeout = 0 }, wantErr: true},
		{name: "negative debounce", modify: func(c *Config) { c.Fetcher.Debounce = -time.Second }, wantErr: true},
		{name: "zero debounce allowed", modify: func(c *Config) { c.Fetcher.Debounce = 0 }},
		{name: "zero per page", modify: func(c *Config) { c.Fetcher.PerPage = 0 }, wantErr: true},
		{name: "bad log level", modify: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
		{name: "empty session dir", modify: func(c *Config) { c.Session.Dir = "" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
