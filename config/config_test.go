package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/wasm-loader/errors"
	"github.com/wippyai/wasm-loader/fetch"
	"github.com/wippyai/wasm-loader/worker"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Engine != "main.wasm" {
		t.Errorf("expected default engine main.wasm, got %q", cfg.Engine)
	}
	if cfg.Entrypoint != "index.html" {
		t.Errorf("expected default entrypoint index.html, got %q", cfg.Entrypoint)
	}
	if cfg.Runtime.EntrySymbol != "main" {
		t.Errorf("expected default entry symbol main, got %q", cfg.Runtime.EntrySymbol)
	}
	if cfg.ServiceWorker != nil {
		t.Error("expected no service worker by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	yamlContent := `
base: https://cdn.example.com/app/
engine: engine.wasm
strict_modules: true
service_worker:
  url: sw.js
  content:
    main:
      a.wasm: h1
      b.wasm: h2
runtime:
  memory_limit_pages: 256
  wasi: true
object_store:
  endpoint: localhost:9000
  region: us-east-1
`
	configPath := filepath.Join(t.TempDir(), "wasmboot.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Base != "https://cdn.example.com/app/" {
		t.Errorf("base = %q", cfg.Base)
	}
	if cfg.Engine != "engine.wasm" {
		t.Errorf("engine = %q", cfg.Engine)
	}
	if cfg.Entrypoint != "index.html" {
		t.Errorf("entrypoint should keep default, got %q", cfg.Entrypoint)
	}
	if !cfg.StrictModules {
		t.Error("expected strict_modules true")
	}
	if cfg.ServiceWorker == nil || cfg.ServiceWorker.URL != "sw.js" {
		t.Fatalf("service_worker = %+v", cfg.ServiceWorker)
	}
	if entries := cfg.ServiceWorker.Entries(); len(entries) != 2 || entries["b.wasm"] != "h2" {
		t.Errorf("entries = %v", entries)
	}
	if cfg.Runtime.MemoryLimitPages != 256 || !cfg.Runtime.WASI {
		t.Errorf("runtime = %+v", cfg.Runtime)
	}
	if cfg.Runtime.AppSymbol != "run_app" {
		t.Errorf("app symbol should keep default, got %q", cfg.Runtime.AppSymbol)
	}
	if cfg.ObjectStore == nil || cfg.ObjectStore.Endpoint != "localhost:9000" {
		t.Errorf("object_store = %+v", cfg.ObjectStore)
	}

	bc := cfg.Bootstrap()
	if bc.ServiceWorker != cfg.ServiceWorker || bc.EngineURL != "engine.wasm" || !bc.StrictModules {
		t.Errorf("bootstrap config = %+v", bc)
	}
	ec := cfg.EngineConfig()
	if ec.MemoryLimitPages != 256 || !ec.EnableWASI {
		t.Errorf("engine config = %+v", ec)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "empty", input: ""},
		{name: "whitespace", input: "\n  \n"},
		{name: "comment only", input: "# nothing here\n"},
		{name: "unknown key", input: "engin: x.wasm\n", wantErr: true},
		{name: "bad type", input: "runtime:\n  memory_limit_pages: lots\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !isConfig(err) {
					t.Errorf("err = %v, want config phase", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if cfg.Engine != "main.wasm" {
				t.Errorf("engine = %q, want default", cfg.Engine)
			}
		})
	}
}

func isConfig(err error) bool {
	var e *errors.Error
	return stderrors.As(err, &e) && e.Phase == errors.PhaseConfig
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WASMBOOT_BASE", "http://localhost:8080/")
	t.Setenv("WASMBOOT_SERVICE_WORKER", "worker.js")
	t.Setenv("WASMBOOT_MEMORY_LIMIT_PAGES", "16")
	t.Setenv("WASMBOOT_WASI", "1")
	t.Setenv("WASMBOOT_S3_ENDPOINT", "minio:9000")
	t.Setenv("WASMBOOT_S3_ACCESS_KEY", "access")
	t.Setenv("WASMBOOT_S3_SECRET_KEY", "secret")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Base != "http://localhost:8080/" {
		t.Errorf("base = %q", cfg.Base)
	}
	if cfg.ServiceWorker == nil || cfg.ServiceWorker.ScriptURL() != "worker.js" {
		t.Errorf("service worker = %+v", cfg.ServiceWorker)
	}
	if cfg.Runtime.MemoryLimitPages != 16 || !cfg.Runtime.WASI {
		t.Errorf("runtime = %+v", cfg.Runtime)
	}
	store := cfg.ObjectStore
	if store == nil || store.Endpoint != "minio:9000" || store.AccessKey != "access" || store.SecretKey != "secret" {
		t.Errorf("object store = %+v", store)
	}
}

func TestLoadFromEnv_BadNumber(t *testing.T) {
	t.Setenv("WASMBOOT_MEMORY_LIMIT_PAGES", "-1")
	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected parse error")
	}
}

func TestMerge(t *testing.T) {
	base := Default()
	sw := &worker.Config{URL: "sw.js"}
	merged := base.Merge(Config{Base: "http://x/", ServiceWorker: sw})

	if merged.Base != "http://x/" {
		t.Errorf("base = %q", merged.Base)
	}
	if merged.ServiceWorker != sw {
		t.Error("service worker not merged")
	}
	if merged.Engine != "main.wasm" {
		t.Errorf("engine should keep default, got %q", merged.Engine)
	}
	if base.Base != "" {
		t.Error("Merge modified the receiver")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "no engine", mutate: func(c *Config) { c.Engine = "" }, wantErr: true},
		{name: "worker without engine", mutate: func(c *Config) {
			c.Engine = ""
			c.ServiceWorker = &worker.Config{}
		}},
		{name: "worker without entrypoint", mutate: func(c *Config) {
			c.ServiceWorker = &worker.Config{}
			c.Entrypoint = ""
		}, wantErr: true},
		{name: "object store without endpoint", mutate: func(c *Config) {
			c.ObjectStore = &fetch.ObjectStoreConfig{}
		}, wantErr: true},
		{name: "memory limit", mutate: func(c *Config) { c.Runtime.MemoryLimitPages = 70000 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
