package bootstrap

import (
	"testing"

	"github.com/pulsehq/pulse-ui-api/config"
)

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{
			name: "no services enabled",
			want: 0,
		},
		{
			name:  "http only",
			modes: []config.ServiceMode{config.ServiceModeHTTP},
			want:  1,
		},
		{
			name:  "http and auth watcher",
			modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeAuthWatcher},
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelCapacity(enabled); got != tt.want {
				t.Fatalf("errorChannelCapacity(%v) = %d, want %d", tt.modes, got, tt.want)
			}
		})
	}
}

func TestErrorChannelBufferSize(t *testing.T) {
	if got := errorChannelBufferSize(nil); got != 1 {
		t.Fatalf("errorChannelBufferSize(nil) = %d, want 1", got)
	}

	enabled := map[config.ServiceMode]bool{
		config.ServiceModeHTTP:        true,
		config.ServiceModeAuthWatcher: true,
	}
	if got := errorChannelBufferSize(enabled); got != 3 {
		t.Fatalf("errorChannelBufferSize = %d, want 3", got)
	}
}

func TestParseEmailRules(t *testing.T) {
	rules, err := ParseEmailRules([]string{"admin=admin", "lead = manager"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[1].Substring != "lead" || string(rules[1].Role) != "manager" {
		t.Fatalf("unexpected rule: %+v", rules[1])
	}

	if _, err := ParseEmailRules([]string{"noequals"}); err == nil {
		t.Error("expected error for rule without =")
	}
	if _, err := ParseEmailRules([]string{"x=superuser"}); err == nil {
		t.Error("expected error for invalid role")
	}
	if rules, err := ParseEmailRules(nil); err != nil || rules != nil {
		t.Errorf("empty input should select defaults: rules=%v err=%v", rules, err)
	}
}
