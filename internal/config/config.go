// Package config assembles runtime configuration from environment variables,
// an optional .env file, and an optional YAML word-list file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/quietriver/winnow/internal/dict"
)

// Config holds all configuration for the scoring pipeline.
type Config struct {
	// DBPath is the SQLite database file; empty disables persistence.
	DBPath string

	// StreamURL is the WebSocket endpoint for the listen command.
	StreamURL string

	// HistoryLimit caps how many prior messages per author are loaded for
	// scoring. Zero means unlimited.
	HistoryLimit int

	// MaxAge is how long stored messages are kept before pruning.
	MaxAge time.Duration

	// TermRemoving drops terms not shared with any other message of the
	// author after scoring.
	TermRemoving bool

	// ResolveURLs enables fetching linked pages for title and snippet.
	ResolveURLs bool

	// WordsFile points to a YAML file with extra noise words and
	// whitelisted phrases.
	WordsFile string
}

// Load reads configuration from the environment with sensible defaults.
// A .env file in the working directory is honored but not required.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		DBPath:       envOr("WINNOW_DB", "winnow.db"),
		StreamURL:    envOr("WINNOW_STREAM_URL", ""),
		HistoryLimit: 0,
		MaxAge:       14 * 24 * time.Hour,
		TermRemoving: true,
		WordsFile:    envOr("WINNOW_WORDS_FILE", ""),
	}

	if v := os.Getenv("WINNOW_HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WINNOW_HISTORY_LIMIT: %w", err)
		}
		cfg.HistoryLimit = n
	}
	if v := os.Getenv("WINNOW_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WINNOW_MAX_AGE: %w", err)
		}
		cfg.MaxAge = d
	}
	if v := os.Getenv("WINNOW_TERM_REMOVING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WINNOW_TERM_REMOVING: %w", err)
		}
		cfg.TermRemoving = b
	}
	if v := os.Getenv("WINNOW_RESOLVE_URLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid WINNOW_RESOLVE_URLS: %w", err)
		}
		cfg.ResolveURLs = b
	}

	return cfg, nil
}

// wordsFile is the YAML layout for extra word lists.
type wordsFile struct {
	NoiseWords []string `yaml:"noise_words"`
	Phrases    []string `yaml:"phrases"`
}

// LoadExtraWords parses the configured YAML word-list file into dictionary
// extras. Returns nil when no file is configured.
func (c *Config) LoadExtraWords() (*dict.Extra, error) {
	if c.WordsFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.WordsFile)
	if err != nil {
		return nil, fmt.Errorf("read words file: %w", err)
	}

	var raw wordsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse words file %q: %w", c.WordsFile, err)
	}

	return &dict.Extra{
		NoiseWords: raw.NoiseWords,
		Phrases:    raw.Phrases,
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
