// Package progress provides a terminal progress indicator for long scoring
// runs. It animates only when writing to a real terminal and shows a running
// count of processed messages.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

// Indicator animates a spinner with a message and message counter.
type Indicator struct {
	frames  []string
	delay   time.Duration
	writer  io.Writer
	active  bool
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	message string
	count   atomic.Int64
	wg      sync.WaitGroup
}

// New creates an indicator writing to writer. ctx cancels the animation
// goroutine.
func New(ctx context.Context, writer io.Writer, message string) *Indicator {
	indicatorCtx, cancel := context.WithCancel(ctx)
	return &Indicator{
		frames:  []string{"◜", "◠", "◝", "◞", "◡", "◟"},
		delay:   100 * time.Millisecond,
		writer:  writer,
		message: message,
		ctx:     indicatorCtx,
		cancel:  cancel,
	}
}

// Start begins the animation.
func (p *Indicator) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return
	}
	p.active = true

	p.wg.Add(1)
	go p.run()
}

// Stop halts the animation and clears the line.
func (p *Indicator) Stop() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()

	// clear only when attached to a terminal, plain CR otherwise
	if f, ok := p.writer.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.writer, "\r\033[2K")
	} else {
		fmt.Fprint(p.writer, "\r")
	}
}

// IsActive reports whether the animation is running.
func (p *Indicator) IsActive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// Increment adds one processed message to the displayed counter.
func (p *Indicator) Increment() {
	p.count.Add(1)
}

// Count returns the number of processed messages so far.
func (p *Indicator) Count() int64 {
	return p.count.Load()
}

// UpdateMessage replaces the displayed message.
func (p *Indicator) UpdateMessage(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.message = message
}

func (p *Indicator) run() {
	defer p.wg.Done()

	frameIndex := 0
	ticker := time.NewTicker(p.delay)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.mu.RLock()
			frame := p.frames[frameIndex%len(p.frames)]
			message := p.message
			p.mu.RUnlock()

			fmt.Fprintf(p.writer, "\r%s %s (%d)", frame, message, p.count.Load())
			frameIndex++
		}
	}
}
