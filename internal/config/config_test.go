package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lessongate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LESSONGATE_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if time.Duration(cfg.Server.ReadTimeout) != 30*time.Second {
		t.Errorf("ReadTimeout = %v", time.Duration(cfg.Server.ReadTimeout))
	}
	if cfg.Database.Path != "data/lessongate.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.KB.Path != "kb" {
		t.Errorf("KB.Path = %q", cfg.KB.Path)
	}
	if cfg.Generation.Model != "gpt-4o" || cfg.Generation.MaxTokens != 8000 {
		t.Errorf("Generation = %+v", cfg.Generation)
	}
	if cfg.Generation.MaxAttempts != 3 || time.Duration(cfg.Generation.BackoffBase) != time.Second {
		t.Errorf("retry settings = %+v", cfg.Generation)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
  read_timeout: 45s
kb:
  path: /opt/kb
generation:
  model: gpt-4o-mini
  max_attempts: 5
  backoff_base: 2s
log:
  level: debug
`)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if time.Duration(cfg.Server.ReadTimeout) != 45*time.Second {
		t.Errorf("ReadTimeout = %v", time.Duration(cfg.Server.ReadTimeout))
	}
	// Unset fields keep their defaults
	if time.Duration(cfg.Server.WriteTimeout) != 120*time.Second {
		t.Errorf("WriteTimeout = %v", time.Duration(cfg.Server.WriteTimeout))
	}
	if cfg.KB.Path != "/opt/kb" {
		t.Errorf("KB.Path = %q", cfg.KB.Path)
	}
	if cfg.Generation.Model != "gpt-4o-mini" || cfg.Generation.MaxAttempts != 5 {
		t.Errorf("Generation = %+v", cfg.Generation)
	}
	if time.Duration(cfg.Generation.BackoffBase) != 2*time.Second {
		t.Errorf("BackoffBase = %v", time.Duration(cfg.Generation.BackoffBase))
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
kb:
  path: /opt/kb
`)
	t.Setenv("LESSONGATE_CONFIG_PATH", path)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LESSONGATE_PORT", "7070")
	t.Setenv("LESSONGATE_KB_PATH", "/env/kb")
	t.Setenv("LESSONGATE_DB_PATH", "/env/data.db")
	t.Setenv("LESSONGATE_MODEL", "gpt-4-turbo")
	t.Setenv("LESSONGATE_MAX_TOKENS", "4000")
	t.Setenv("LESSONGATE_BACKOFF_BASE", "500ms")
	t.Setenv("LESSONGATE_API_KEY", "bearer-secret")
	t.Setenv("LESSONGATE_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Env beats file beats defaults
	if cfg.Server.Port != 7070 {
		t.Errorf("Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.KB.Path != "/env/kb" {
		t.Errorf("KB.Path = %q", cfg.KB.Path)
	}
	if cfg.Database.Path != "/env/data.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Generation.Model != "gpt-4-turbo" || cfg.Generation.MaxTokens != 4000 {
		t.Errorf("Generation = %+v", cfg.Generation)
	}
	if time.Duration(cfg.Generation.BackoffBase) != 500*time.Millisecond {
		t.Errorf("BackoffBase = %v", time.Duration(cfg.Generation.BackoffBase))
	}
	if cfg.Generation.APIKey != "sk-test" {
		t.Errorf("Generation.APIKey = %q", cfg.Generation.APIKey)
	}
	if cfg.Auth.APIKey != "bearer-secret" {
		t.Errorf("Auth.APIKey = %q", cfg.Auth.APIKey)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		t.Setenv("LESSONGATE_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("LESSONGATE_DEV_MODE", "")

		_, err := Load()
		if err == nil {
			t.Fatal("expected error without OPENAI_API_KEY")
		}
	})

	t.Run("dev mode skips api key", func(t *testing.T) {
		t.Setenv("LESSONGATE_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("LESSONGATE_DEV_MODE", "true")

		if _, err := Load(); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	})
}

func TestLoadSectionsWithoutCredentials(t *testing.T) {
	path := writeConfigFile(t, `
database:
  path: /data/topics.db
kb:
  path: /data/kb
  required_documents:
    - language_guidelines.md
`)
	t.Setenv("LESSONGATE_CONFIG_PATH", path)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LESSONGATE_DEV_MODE", "")

	kbCfg, err := LoadKBConfig()
	if err != nil {
		t.Fatalf("LoadKBConfig() error = %v", err)
	}
	if kbCfg.Path != "/data/kb" {
		t.Errorf("KB.Path = %q", kbCfg.Path)
	}
	if len(kbCfg.RequiredDocuments) != 1 || kbCfg.RequiredDocuments[0] != "language_guidelines.md" {
		t.Errorf("RequiredDocuments = %v", kbCfg.RequiredDocuments)
	}

	dbCfg, err := LoadDatabaseConfig()
	if err != nil {
		t.Fatalf("LoadDatabaseConfig() error = %v", err)
	}
	if dbCfg.Path != "/data/topics.db" {
		t.Errorf("Database.Path = %q", dbCfg.Path)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a map")
	t.Setenv("LESSONGATE_CONFIG_PATH", path)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestDurationYAML(t *testing.T) {
	t.Run("parse", func(t *testing.T) {
		var d Duration
		if err := yaml.Unmarshal([]byte(`1m30s`), &d); err != nil {
			t.Fatalf("Unmarshal error = %v", err)
		}
		if time.Duration(d) != 90*time.Second {
			t.Errorf("Duration = %v, want 1m30s", time.Duration(d))
		}
	})

	t.Run("invalid", func(t *testing.T) {
		var d Duration
		if err := yaml.Unmarshal([]byte(`soon`), &d); err == nil {
			t.Fatal("expected error for invalid duration")
		}
	})

	t.Run("round trip", func(t *testing.T) {
		d := Duration(45 * time.Second)
		data, err := yaml.Marshal(d)
		if err != nil {
			t.Fatal(err)
		}
		var got Duration
		if err := yaml.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if got != d {
			t.Errorf("round trip = %v, want %v", time.Duration(got), time.Duration(d))
		}
	})
}
