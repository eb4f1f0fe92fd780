package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nqueue_capacity: 16\ndefault_chunk_size: 512\nworkers:\n  - tag: llm\n    kind: tokengen\n  - tag: tts\n    kind: bytegen\n    options:\n      block_size: 100\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.QueueCapacity != 16 || cfg.DefaultChunkSize != 512 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Workers) != 2 || cfg.Workers[0].Tag != "llm" || cfg.Workers[1].Kind != "bytegen" {
		t.Fatalf("unexpected workers: %+v", cfg.Workers)
	}
	if _, ok := cfg.Workers[1].Options["block_size"]; !ok {
		t.Fatalf("options not decoded: %+v", cfg.Workers[1].Options)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","max_wait_seconds":5,"workers":[{"tag":"echo","kind":"echo"}]}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.MaxWaitSeconds != 5 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Workers) != 1 || cfg.Workers[0].Kind != "echo" {
		t.Fatalf("unexpected workers: %+v", cfg.Workers)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nqueue_capacity=9\n\n[[workers]]\ntag=\"llm\"\nkind=\"tokengen\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.QueueCapacity != 9 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.Workers) != 1 || cfg.Workers[0].Tag != "llm" {
		t.Fatalf("unexpected workers: %+v", cfg.Workers)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "addr: :8080\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}
