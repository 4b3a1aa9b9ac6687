package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"

	"github.com/pulsehq/pulse-ui-api/internal/authflow"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:        "single service - http",
			input:       "http",
			expected:    map[ServiceMode]bool{ServiceModeHTTP: true},
			expectError: false,
		},
		{
			name:        "single service - auth-watcher",
			input:       "auth-watcher",
			expected:    map[ServiceMode]bool{ServiceModeAuthWatcher: true},
			expectError: false,
		},
		{
			name:  "multiple services",
			input: "http,auth-watcher",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:        true,
				ServiceModeAuthWatcher: true,
			},
			expectError: false,
		},
		{
			name:  "services with spaces",
			input: " http , auth-watcher ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:        true,
				ServiceModeAuthWatcher: true,
			},
			expectError: false,
		},
		{
			name:  "duplicate services",
			input: "http,http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
			expectError: false,
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "http,scheduler",
			expectError: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			services, err := ParseServices(tc.input)
			if tc.expectError {
				if err == nil {
					t.Fatalf("expected error for input %q, got none", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(services, tc.expected) {
				t.Fatalf("got %v, want %v", services, tc.expected)
			}
		})
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Auth.Mode != AuthModeOAuth {
		t.Errorf("default auth mode: got %q, want oauth", cfg.Auth.Mode)
	}
	if cfg.Auth.WaitBudget != authflow.DefaultWaitBudget {
		t.Errorf("default wait budget: got %v, want %v", cfg.Auth.WaitBudget, authflow.DefaultWaitBudget)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("default http addr: got %q", cfg.HTTP.Addr)
	}
	if cfg.Backend.Enabled() {
		t.Error("backend should be disabled by default")
	}
	if !cfg.IsHTTPServerEnabled() || !cfg.IsAuthWatcherEnabled() {
		t.Error("http and auth-watcher should both be enabled by default")
	}
}

func TestAuthConfig_WaitBudgetClamp(t *testing.T) {
	tests := []struct {
		name  string
		input time.Duration
		want  time.Duration
	}{
		{"zero selects default", 0, authflow.DefaultWaitBudget},
		{"below minimum clamps up", 3 * time.Second, authflow.MinWaitBudget},
		{"above maximum clamps down", time.Minute, authflow.MaxWaitBudget},
		{"in range passes through", 9 * time.Second, 9 * time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := AuthConfig{WaitBudget: tc.input}
			cfg.Sanitize()
			if cfg.WaitBudget != tc.want {
				t.Errorf("got %v, want %v", cfg.WaitBudget, tc.want)
			}
		})
	}
}

func TestAuthMode_UnmarshalText(t *testing.T) {
	var mode AuthMode
	if err := mode.UnmarshalText([]byte("MOCK")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != AuthModeMock {
		t.Errorf("got %q, want mock", mode)
	}
	if err := mode.UnmarshalText([]byte("saml")); err == nil {
		t.Error("expected error for invalid mode")
	}
}

func TestBackendConfig_Sanitize(t *testing.T) {
	cfg := BackendConfig{BaseURL: "  https://backend.example.com  ", Timeout: -time.Second}
	cfg.Sanitize()

	if cfg.BaseURL != "https://backend.example.com" {
		t.Errorf("base URL not trimmed: %q", cfg.BaseURL)
	}
	if !cfg.Enabled() {
		t.Error("backend should be enabled when base URL is set")
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("timeout not defaulted: %v", cfg.Timeout)
	}
	if cfg.SummaryExpr != "summary" {
		t.Errorf("summary expr not defaulted: %q", cfg.SummaryExpr)
	}
}
