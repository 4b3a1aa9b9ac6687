package main

import (
	"testing"

	domainauth "github.com/pulsehq/pulse-ui-api/internal/domain/auth"
)

func TestParseSetRoleFlags(t *testing.T) {
	opts, err := parseSetRoleFlags([]string{"--user", "u-1", "--role", "Manager"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.UserID != "u-1" || opts.Role != domainauth.RoleManager {
		t.Fatalf("unexpected options: %+v", opts)
	}

	if _, err := parseSetRoleFlags([]string{"--role", "admin"}); err == nil {
		t.Error("expected error when --user is missing")
	}
	if _, err := parseSetRoleFlags([]string{"--user", "u-1", "--role", "superuser"}); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestParseSetTeamFlags(t *testing.T) {
	opts, err := parseSetTeamFlags([]string{"--user", " u-1 ", "--team", "t-9"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.UserID != "u-1" || opts.TeamID != "t-9" {
		t.Fatalf("unexpected options: %+v", opts)
	}

	if _, err := parseSetTeamFlags([]string{"--user", "u-1"}); err == nil {
		t.Error("expected error when --team is missing")
	}
}

func TestIsLikelyRemoteHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", false},
		{"127.0.0.1", false},
		{"::1", false},
		{"db.internal.local", false},
		{"10.1.2.3", true},
		{"db.prod.example.com", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := isLikelyRemoteHost(tt.host); got != tt.want {
			t.Errorf("isLikelyRemoteHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}
