package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  port: 8080
chat:
  api_key: secret
  base_url: https://openrouter.ai/api/v1
  referer: https://example.test/
  title: Example Portfolio
  system_prompt: |
    You answer questions about the site owner only.
  max_tokens: 1000
  models:
    - first/model:free
    - second/model:free
    - third/model:free
store:
  path: data/portfolio.db
blog:
  dir: posts
mail:
  host: smtp.example.test
  port: 587
  username: mailer
  password: hunter2
  from: site@example.test
  to: owner@example.test
admin:
  token: letmein
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if len(cfg.Chat.Models) != 3 || cfg.Chat.Models[0] != "first/model:free" {
		t.Errorf("models = %v, order must match the file", cfg.Chat.Models)
	}
	if cfg.Chat.AttemptTimeout() != 30*time.Second {
		t.Errorf("attempt timeout = %v, want 30s default", cfg.Chat.AttemptTimeout())
	}
	if cfg.Admin.Token != "letmein" {
		t.Errorf("admin token = %q", cfg.Admin.Token)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{"bad port", func(s string) string { return strings.Replace(s, "port: 8080", "port: 0", 1) }, "server.port"},
		{"missing api key", func(s string) string { return strings.Replace(s, "api_key: secret", "api_key: \"\"", 1) }, "chat.api_key"},
		{"no models", func(s string) string {
			return strings.Replace(s, "  models:\n    - first/model:free\n    - second/model:free\n    - third/model:free\n", "  models: []\n", 1)
		}, "chat.models"},
		{"bad max tokens", func(s string) string { return strings.Replace(s, "max_tokens: 1000", "max_tokens: 0", 1) }, "chat.max_tokens"},
		{"missing store path", func(s string) string { return strings.Replace(s, "path: data/portfolio.db", "path: \"\"", 1) }, "store.path"},
		{"mail host without from", func(s string) string { return strings.Replace(s, "from: site@example.test", "from: \"\"", 1) }, "mail.from"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.mutate(validYAML)))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAttemptTimeoutOverride(t *testing.T) {
	cfg := ChatConfig{AttemptTimeoutSeconds: 5}
	if cfg.AttemptTimeout() != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", cfg.AttemptTimeout())
	}
}
