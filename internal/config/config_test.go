package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, Defaults()) {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, "trackevent.yaml", `
port: "9090"
storage_backend: elasticsearch
store_timeout: 750ms
elasticsearch:
  urls: ["http://es-1:9200", "http://es-2:9200"]
  write_index: events-w
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.Backend != BackendElasticsearch {
		t.Fatalf("unexpected cfg %+v", cfg)
	}
	if cfg.StoreTimeout != 750*time.Millisecond {
		t.Fatalf("StoreTimeout = %s", cfg.StoreTimeout)
	}
	if len(cfg.Elasticsearch.URLs) != 2 || cfg.Elasticsearch.WriteIndex != "events-w" {
		t.Fatalf("elasticsearch = %+v", cfg.Elasticsearch)
	}
	// untouched keys keep their defaults
	if cfg.Elasticsearch.ReadIndex != "user-events-read" || cfg.MaxBodyBytes != 1_048_576 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	p := writeFile(t, "trackevent.yaml", "port: \"9090\"\nstorage_backend: postgres\n")
	t.Setenv("PORT", "7070")
	t.Setenv("STORAGE_BACKEND", "Elasticsearch")
	t.Setenv("ELASTICSEARCH_URLS", "http://a:9200,http://b:9200")
	t.Setenv("STORE_TIMEOUT", "2s")
	t.Setenv("MAX_BODY_BYTES", "2048")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7070" || cfg.Backend != BackendElasticsearch {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Elasticsearch.URLs, []string{"http://a:9200", "http://b:9200"}) {
		t.Fatalf("URLs = %v", cfg.Elasticsearch.URLs)
	}
	if cfg.StoreTimeout != 2*time.Second || cfg.MaxBodyBytes != 2048 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "mysql")
	_, err := Load("")
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "mysql") {
		t.Fatalf("expected ErrInvalid naming the backend, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	p := writeFile(t, "bad.yaml", "port: [unterminated\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Port = ""
	cfg.PostgresDSN = ""
	cfg.MaxBodyBytes = 0

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	for _, want := range []string{"port", "postgres_dsn", "max_body_bytes"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadDotEnv(t *testing.T) {
	p := writeFile(t, ".env", "TRACKEVENT_TEST_DOTENV=from-file\nTRACKEVENT_TEST_KEEP=from-file\n")
	t.Setenv("TRACKEVENT_TEST_KEEP", "from-env")
	t.Cleanup(func() { os.Unsetenv("TRACKEVENT_TEST_DOTENV") })

	if err := LoadDotEnv(p, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("TRACKEVENT_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("TRACKEVENT_TEST_DOTENV = %q", got)
	}
	if got := os.Getenv("TRACKEVENT_TEST_KEEP"); got != "from-env" {
		t.Fatalf("existing variable overridden: %q", got)
	}
}
