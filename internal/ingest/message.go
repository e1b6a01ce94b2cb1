// Package ingest moves messages through the scoring pipeline: decoding the
// newline-delimited JSON wire format, loading author history, scoring, and
// persisting the result. A websocket subscriber feeds the same pipeline from
// a live stream.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/quietriver/winnow/internal/tweet"
)

// Message is one incoming record on the wire.
type Message struct {
	ID        int64            `json:"id"`
	Text      string           `json:"text"`
	Author    string           `json:"author"`
	CreatedAt time.Time        `json:"created_at"`
	URLs      []tweet.URLEntry `json:"urls,omitempty"`
}

// Result is the scored record written back out.
type Result struct {
	ID         int64            `json:"id"`
	Author     string           `json:"author"`
	Text       string           `json:"text"`
	CreatedAt  time.Time        `json:"created_at"`
	Quality    int              `json:"quality"`
	Band       string           `json:"band"`
	Trail      string           `json:"trail,omitempty"`
	Language   string           `json:"language"`
	Terms      []string         `json:"terms,omitempty"`
	Duplicates []int64          `json:"duplicates,omitempty"`
	URLs       []tweet.URLEntry `json:"urls,omitempty"`
}

// Tweet converts the wire record into a fresh scoring record.
func (m *Message) Tweet() (*tweet.Tweet, error) {
	if m.ID == 0 {
		return nil, fmt.Errorf("message without id")
	}
	if m.Author == "" {
		return nil, fmt.Errorf("message %d without author", m.ID)
	}
	tw := tweet.New(m.ID, m.Text, m.Author, m.CreatedAt)
	for _, u := range m.URLs {
		tw.AddURLEntry(u)
	}
	return tw, nil
}

// NewResult snapshots a scored record for output.
func NewResult(tw *tweet.Tweet) Result {
	r := Result{
		ID:        tw.ID,
		Author:    tw.Author,
		Text:      tw.Text,
		CreatedAt: tw.CreatedAt,
		Quality:   tw.Quality,
		Band:      tw.Band(),
		Trail:     tw.QualityTrail,
		Language:  tw.Language,
		URLs:      tw.URLEntries,
	}
	if tw.TextTerms != nil {
		r.Terms = tw.TextTerms.Terms()
	}
	for id := range tw.Duplicates {
		r.Duplicates = append(r.Duplicates, id)
	}
	return r
}

// Decoder reads newline-delimited JSON messages.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Decoder{scanner: sc}
}

// Next returns the next message, io.EOF at end of input.
func (d *Decoder) Next() (*Message, error) {
	for d.scanner.Scan() {
		d.line++
		line := d.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var m Message
		if err := json.Unmarshal(line, &m); err != nil {
			return nil, fmt.Errorf("line %d: %w", d.line, err)
		}
		return &m, nil
	}
	if err := d.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Encoder writes scored results as newline-delimited JSON.
type Encoder struct {
	enc *json.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

func (e *Encoder) Encode(r Result) error {
	return e.enc.Encode(r)
}
