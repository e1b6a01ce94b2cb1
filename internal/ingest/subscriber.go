package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const reconnectDelay = 5 * time.Second

// Subscriber connects to a message stream over websocket and feeds every
// record into the pipeline. It reconnects on transient errors until the
// context is cancelled.
type Subscriber struct {
	url      string
	pipeline *Pipeline
	logger   *slog.Logger
}

func NewSubscriber(streamURL string, pipeline *Pipeline, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		url:      streamURL,
		pipeline: pipeline,
		logger:   logger,
	}
}

// Start runs until the context is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.subscribe(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Error("stream connection error, reconnecting", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectDelay):
				}
			}
		}
	}
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	s.logger.Info("connecting to stream", "url", s.url)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer conn.Close()

	// unblock ReadMessage when the context is cancelled
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	s.logger.Info("connected to stream")

	var received, scored int64
	lastStatsLog := time.Now()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message: %w", err)
		}
		received++

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Error("failed to parse message", "error", err)
			continue
		}
		tw, err := msg.Tweet()
		if err != nil {
			s.logger.Error("malformed message", "error", err)
			continue
		}

		if err := s.pipeline.Process(ctx, tw); err != nil {
			s.logger.Error("failed to process message", "id", tw.ID, "error", err)
			continue
		}
		scored++

		if time.Since(lastStatsLog) >= 30*time.Second {
			s.logger.Info("stream stats", "received", received, "scored", scored)
			lastStatsLog = time.Now()
		}
	}
}
