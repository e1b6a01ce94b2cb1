// Package app contains the core application logic for the winnow CLI tool.
// It handles the main business logic separated from CLI concerns.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/quietriver/winnow/internal/config"
	"github.com/quietriver/winnow/internal/dict"
	"github.com/quietriver/winnow/internal/ingest"
	"github.com/quietriver/winnow/internal/progress"
	"github.com/quietriver/winnow/internal/resolve"
	"github.com/quietriver/winnow/internal/score"
	"github.com/quietriver/winnow/internal/search"
	"github.com/quietriver/winnow/internal/store"
	"github.com/quietriver/winnow/internal/tweet"
)

// Config holds all options for one application run.
type Config struct {
	Sources      []string // file paths or "-" for stdin
	DBPath       string   // empty disables persistence
	StreamURL    string
	WordsFile    string
	HistoryLimit int
	MaxAge       time.Duration
	TermRemoving bool
	ResolveURLs  bool
	Quiet        bool
	Debug        bool
}

// newScorer builds the dictionaries (with any configured extras) and the
// scorer on top of them.
func newScorer(cfg Config) (*score.Scorer, error) {
	fileCfg := &config.Config{WordsFile: cfg.WordsFile}
	extra, err := fileCfg.LoadExtraWords()
	if err != nil {
		return nil, err
	}

	d, err := dict.DefaultWith(extra)
	if err != nil {
		return nil, fmt.Errorf("load dictionaries: %w", err)
	}
	return score.New(d, cfg.TermRemoving), nil
}

func newResolver(cfg Config) ingest.Resolver {
	if !cfg.ResolveURLs {
		return nil
	}
	return resolve.New()
}

// Run scores messages from the configured sources and writes the results as
// newline-delimited JSON to out. With a database configured, each message is
// scored against the author's stored history and persisted; without one, the
// whole input is treated as a single batch.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("no sources provided")
	}

	scorer, err := newScorer(cfg)
	if err != nil {
		return err
	}

	var repo *store.Repository
	if cfg.DBPath != "" {
		repo, err = store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer repo.Close()

		if cfg.MaxAge > 0 {
			if _, err := repo.Prune(ctx, cfg.MaxAge); err != nil {
				return err
			}
		}
	}

	var ind *progress.Indicator
	if !cfg.Quiet {
		ind = progress.New(ctx, os.Stderr, "Scoring messages...")
		ind.Start()
		defer ind.Stop()
	}

	var pipeline *ingest.Pipeline
	if repo != nil {
		pipeline = ingest.NewPipeline(scorer, repo, newResolver(cfg), cfg.HistoryLimit, nil)
	} else {
		pipeline = ingest.NewPipeline(scorer, nil, newResolver(cfg), 0, nil)
	}

	enc := ingest.NewEncoder(out)

	if repo != nil {
		return runStreaming(ctx, cfg, pipeline, enc, ind)
	}
	return runBatch(ctx, cfg, pipeline, enc, ind)
}

// runStreaming scores each message against persisted history as it arrives.
func runStreaming(ctx context.Context, cfg Config, pipeline *ingest.Pipeline, enc *ingest.Encoder, ind *progress.Indicator) error {
	return forEachMessage(cfg, func(msg *ingest.Message) error {
		tw, err := msg.Tweet()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping record: %v\n", err)
			return nil
		}
		if err := pipeline.Process(ctx, tw); err != nil {
			return err
		}
		if ind != nil {
			ind.Increment()
		}
		return enc.Encode(ingest.NewResult(tw))
	})
}

// runBatch collects the whole input, deduplicates it, and scores every
// message against the rest of its author's batch.
func runBatch(_ context.Context, cfg Config, pipeline *ingest.Pipeline, enc *ingest.Encoder, ind *progress.Indicator) error {
	var batch []*tweet.Tweet
	err := forEachMessage(cfg, func(msg *ingest.Message) error {
		tw, err := msg.Tweet()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: skipping record: %v\n", err)
			return nil
		}
		batch = append(batch, tw)
		return nil
	})
	if err != nil {
		return err
	}

	for _, tw := range pipeline.ProcessBatch(batch) {
		if ind != nil {
			ind.Increment()
		}
		if err := enc.Encode(ingest.NewResult(tw)); err != nil {
			return err
		}
	}
	return nil
}

func forEachMessage(cfg Config, fn func(*ingest.Message) error) error {
	for _, source := range cfg.Sources {
		var r io.ReadCloser
		if source == "-" {
			r = io.NopCloser(os.Stdin)
		} else {
			f, err := os.Open(source)
			if err != nil {
				return fmt.Errorf("open source %q: %w", source, err)
			}
			r = f
		}

		dec := ingest.NewDecoder(r)
		for {
			msg, err := dec.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				r.Close()
				return fmt.Errorf("source %q: %w", source, err)
			}
			if err := fn(msg); err != nil {
				r.Close()
				return err
			}
		}
		r.Close()
	}
	return nil
}

// RunListen subscribes to the configured websocket stream and scores every
// incoming message against persisted history until ctx is cancelled.
func RunListen(ctx context.Context, cfg Config) error {
	if cfg.StreamURL == "" {
		return fmt.Errorf("no stream URL configured")
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("listening requires a database")
	}

	scorer, err := newScorer(cfg)
	if err != nil {
		return err
	}
	repo, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	pipeline := ingest.NewPipeline(scorer, repo, newResolver(cfg), cfg.HistoryLimit, nil)
	sub := ingest.NewSubscriber(cfg.StreamURL, pipeline, nil)

	err = sub.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// searchLoadLimit bounds how many stored messages are pulled into the
// in-memory index.
const searchLoadLimit = 10000

// RunSearch queries the stored messages and writes matches to out, best
// first, one line per hit.
func RunSearch(ctx context.Context, cfg Config, query string, limit int, includeSpam bool, out io.Writer) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("searching requires a database")
	}
	repo, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	tweets, err := repo.Recent(ctx, searchLoadLimit)
	if err != nil {
		return err
	}

	ix := search.NewIndex(includeSpam)
	ix.Add(tweets...)

	results := ix.Search(query, limit)
	if len(results) == 0 {
		fmt.Fprintln(out, "no matches")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "%.3f\t%d\t@%s\t[q=%d %s]\t%s\n",
			r.Score, r.Tweet.ID, r.Tweet.Author, r.Tweet.Quality, r.Tweet.Band(), r.Tweet.Text)
	}
	return nil
}
