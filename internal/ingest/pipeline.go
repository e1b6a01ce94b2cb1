package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/quietriver/winnow/internal/score"
	"github.com/quietriver/winnow/internal/tweet"
)

// HistoryStore is the persistence surface the pipeline needs.
type HistoryStore interface {
	SaveTweet(ctx context.Context, tw *tweet.Tweet) error
	AuthorHistory(ctx context.Context, author string, limit int) ([]*tweet.Tweet, error)
}

// Resolver expands links in the message text into URL entries before scoring.
type Resolver interface {
	ResolveTweet(ctx context.Context, tw *tweet.Tweet)
}

// Pipeline scores incoming messages against their author's stored history and
// persists the result. Safe for concurrent use; messages of the same author
// are serialized so history stays consistent.
type Pipeline struct {
	scorer       *score.Scorer
	store        HistoryStore
	resolver     Resolver
	historyLimit int
	logger       *slog.Logger

	mu      sync.Mutex
	authors map[string]*sync.Mutex
}

// NewPipeline wires the scoring pipeline. resolver may be nil to skip link
// resolution; store may be nil for stateless scoring of pre-grouped batches.
func NewPipeline(scorer *score.Scorer, store HistoryStore, resolver Resolver, historyLimit int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		scorer:       scorer,
		store:        store,
		resolver:     resolver,
		historyLimit: historyLimit,
		logger:       logger,
		authors:      make(map[string]*sync.Mutex),
	}
}

// Process scores one message and persists it. The author's lock guarantees at
// most one scoring pass per author at a time.
func (p *Pipeline) Process(ctx context.Context, tw *tweet.Tweet) error {
	lock := p.authorLock(tw.Author)
	lock.Lock()
	defer lock.Unlock()

	if p.resolver != nil && len(tw.URLEntries) == 0 {
		p.resolver.ResolveTweet(ctx, tw)
	}

	var history []*tweet.Tweet
	if p.store != nil {
		var err error
		history, err = p.store.AuthorHistory(ctx, tw.Author, p.historyLimit)
		if err != nil {
			return fmt.Errorf("load history for %q: %w", tw.Author, err)
		}
	}

	p.scorer.ScoreAndTag(tw, history)
	p.logger.Debug("scored message",
		"id", tw.ID,
		"author", tw.Author,
		"quality", tw.Quality,
		"band", tw.Band(),
		"language", tw.Language,
	)

	if p.store != nil {
		if err := p.store.SaveTweet(ctx, tw); err != nil {
			return fmt.Errorf("save %d: %w", tw.ID, err)
		}
	}
	return nil
}

// ProcessBatch scores a slice of messages belonging to arbitrary authors,
// oldest first per author, without touching the store. It deduplicates the
// batch first and returns the surviving records, scored.
func (p *Pipeline) ProcessBatch(batch []*tweet.Tweet) []*tweet.Tweet {
	batch = tweet.SortAndDeduplicate(batch)

	byAuthor := make(map[string][]*tweet.Tweet)
	for _, tw := range batch {
		byAuthor[tw.Author] = append(byAuthor[tw.Author], tw)
	}
	for _, group := range byAuthor {
		tweet.SortByTime(group)
		for i, tw := range group {
			p.scorer.ScoreAndTag(tw, group[:i+1])
		}
	}
	return batch
}

func (p *Pipeline) authorLock(author string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.authors[author]
	if !ok {
		lock = &sync.Mutex{}
		p.authors[author] = lock
	}
	return lock
}
