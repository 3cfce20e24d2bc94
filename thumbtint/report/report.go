// Package report defines the per-pass summaries emitted by a page watcher.
package report

import (
	"time"

	"github.com/google/uuid"
)

// Pass summarises one orchestrator run over a document.
type Pass struct {
	ID         string    `json:"id"`
	PageID     string    `json:"page_id,omitempty"`
	PageURL    string    `json:"page_url,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Candidates int       `json:"candidates"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Items      []Item    `json:"items,omitempty"`
}

// Item describes one thumbnail that was replaced.
type Item struct {
	Title    string `json:"title"`
	Channel  string `json:"channel,omitempty"`
	Views    string `json:"views,omitempty"`
	Time     string `json:"time,omitempty"`
	Gradient string `json:"gradient"`
	Fallback bool   `json:"fallback"`
}

// Stats aggregates stored passes.
type Stats struct {
	Passes     int64 `json:"passes"`
	Candidates int64 `json:"candidates"`
	Processed  int64 `json:"processed"`
	Skipped    int64 `json:"skipped"`
	Failed     int64 `json:"failed"`
	Fallbacks  int64 `json:"fallbacks"`
}

// NewID returns a time-ordered pass identifier (UUIDv7).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Begin starts a pass for the given page.
func Begin(pageID, pageURL string) Pass {
	return Pass{ID: NewID(), PageID: pageID, PageURL: pageURL, StartedAt: time.Now().UTC()}
}

// Finish records the elapsed time.
func (p *Pass) Finish() {
	p.DurationMS = time.Since(p.StartedAt).Milliseconds()
}
