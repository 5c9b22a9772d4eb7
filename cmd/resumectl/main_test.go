package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resume-analyzer/internal/extract"
	"resume-analyzer/internal/shared/storage/object"
	localstore "resume-analyzer/internal/shared/storage/object/local"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("RESUMECTL_LLM_PROVIDER", "openai")
	t.Setenv("RESUMECTL_LLM_MODEL", "gpt-4o-mini")
	t.Setenv("RESUMECTL_STORE_LOCAL_DIR", "/tmp/resumes")

	cfg, err := loadConfig(newViper(), "")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected llm config %+v", cfg.LLM)
	}
	app := cfg.appConfig()
	if app.LocalStoreDir != "/tmp/resumes" || app.ObjectStoreType != "local" {
		t.Fatalf("unexpected store mapping %+v", app)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resumectl.yaml")
	body := "llm:\n  provider: none\nstore:\n  type: simulated\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig(newViper(), path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.LLM.Provider != "none" || cfg.Store.Type != "simulated" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Store.LocalDir != "./data" {
		t.Fatalf("expected default local dir, got %q", cfg.Store.LocalDir)
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := extractFile(context.Background(), path); !errors.Is(err, extract.ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}

func TestFilesListsLocalStore(t *testing.T) {
	dir := t.TempDir()
	store := localstore.New(dir, "")
	if _, err := store.Save(context.Background(), "guest:abc", "cv.pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"files", "--user", "guest:abc", "--dir", dir})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var files []object.StoredObject
	if err := json.Unmarshal(out.Bytes(), &files); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if len(files) != 1 || files[0].Name != "cv.pdf" {
		t.Fatalf("unexpected files %+v", files)
	}
}

func TestFilesRequiresUser(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"files", "--dir", t.TempDir()})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected error without --user")
	}
}
