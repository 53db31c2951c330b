package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/manualqa/internal/api"
	"github.com/diogo/manualqa/internal/config"
)

// memoryConfig keeps the config in memory for set/show round trips
func memoryConfig(deps *Dependencies) *config.Config {
	stored := config.DefaultConfig()
	deps.LoadConfig = func() (config.Config, error) { return stored, nil }
	deps.SaveConfig = func(cfg config.Config) error {
		stored = cfg
		return nil
	}
	return &stored
}

func TestConfig_Show(t *testing.T) {
	deps := testDeps(&api.MockClient{}, nil)
	memoryConfig(deps)

	for _, args := range [][]string{{"config"}, {"config", "show"}} {
		out, _, err := runCmd(t, deps, "", args...)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", args, err)
		}
		if !strings.Contains(out, `"server_url": "http://localhost:8000"`) {
			t.Errorf("%v: output = %s", args, out)
		}
	}
}

func TestConfig_Set(t *testing.T) {
	themeFile := filepath.Join(t.TempDir(), "theme.json")
	if err := os.WriteFile(themeFile, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key     string
		value   string
		check   func(config.Config) bool
		wantErr bool
	}{
		{"server_url", "https://qa.example.com/", func(c config.Config) bool { return c.ServerURL == "https://qa.example.com" }, false},
		{"anonymous", "yes", func(c config.Config) bool { return c.Anonymous }, false},
		{"timeout_seconds", "60", func(c config.Config) bool { return c.TimeoutSeconds == 60 }, false},
		{"markdown.style", "dracula", func(c config.Config) bool { return c.Markdown.Style == "dracula" }, false},
		{"markdown.style", themeFile, func(c config.Config) bool { return c.Markdown.Style == themeFile }, false},
		{"markdown.style", "neon", nil, true},
		{"timeout_seconds", "soon", nil, true},
		{"model", "x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			deps := testDeps(&api.MockClient{}, nil)
			stored := memoryConfig(deps)
			before := *stored

			_, _, err := runCmd(t, deps, "", "config", "set", tt.key, tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if stored.ServerURL != before.ServerURL || stored.Markdown != before.Markdown || stored.TimeoutSeconds != before.TimeoutSeconds {
					t.Error("a rejected value must not be saved")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(*stored) {
				t.Errorf("config not updated: %+v", *stored)
			}
		})
	}
}
