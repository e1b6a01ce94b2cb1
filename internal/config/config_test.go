package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"WINNOW_DB", "WINNOW_STREAM_URL", "WINNOW_HISTORY_LIMIT",
		"WINNOW_MAX_AGE", "WINNOW_TERM_REMOVING", "WINNOW_RESOLVE_URLS",
		"WINNOW_WORDS_FILE",
	} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "winnow.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.MaxAge != 14*24*time.Hour {
		t.Errorf("MaxAge = %v", cfg.MaxAge)
	}
	if !cfg.TermRemoving {
		t.Error("TermRemoving default should be true")
	}
	if cfg.ResolveURLs {
		t.Error("ResolveURLs default should be false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WINNOW_DB", "/tmp/other.db")
	t.Setenv("WINNOW_HISTORY_LIMIT", "50")
	t.Setenv("WINNOW_MAX_AGE", "48h")
	t.Setenv("WINNOW_TERM_REMOVING", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/other.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d", cfg.HistoryLimit)
	}
	if cfg.MaxAge != 48*time.Hour {
		t.Errorf("MaxAge = %v", cfg.MaxAge)
	}
	if cfg.TermRemoving {
		t.Error("TermRemoving should be false")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("WINNOW_HISTORY_LIMIT", "many")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric WINNOW_HISTORY_LIMIT")
	}
	t.Setenv("WINNOW_HISTORY_LIMIT", "1")

	t.Setenv("WINNOW_MAX_AGE", "fortnight")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid WINNOW_MAX_AGE")
	}
}

func TestLoadExtraWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.yaml")
	content := `noise_words:
  - lol
  - omg
phrases:
  - "new york"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{WordsFile: path}
	extra, err := cfg.LoadExtraWords()
	if err != nil {
		t.Fatalf("LoadExtraWords: %v", err)
	}
	if len(extra.NoiseWords) != 2 || extra.NoiseWords[0] != "lol" {
		t.Errorf("NoiseWords = %v", extra.NoiseWords)
	}
	if len(extra.Phrases) != 1 || extra.Phrases[0] != "new york" {
		t.Errorf("Phrases = %v", extra.Phrases)
	}

	none := &Config{}
	if extra, err := none.LoadExtraWords(); err != nil || extra != nil {
		t.Errorf("unconfigured words file: extra=%v err=%v", extra, err)
	}
}
