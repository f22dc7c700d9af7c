package domain

import (
	"sync/atomic"
	"time"
)

// Domain contains core models shared across the relay pipeline.

// FeedEntry is one normalized item from a polled status feed.
type FeedEntry struct {
	ID                   string `json:"id"`
	PublishedAt          string `json:"published_at"`
	AlternatePublishedAt string `json:"alternate_published_at,omitempty"`
	GUID                 string `json:"guid"`
	Title                string `json:"title"`
	Link                 string `json:"link"`
	Description          string `json:"description,omitempty"`
}

// ChatMessage is an inbound message observed on the chat connection.
// Direct is true when the message was addressed to the bot rather than a channel.
type ChatMessage struct {
	Sender string
	Target string
	Text   string
	Direct bool
}

// Stats holds process-lifetime counters.
type Stats struct {
	StartedAt time.Time
	announced atomic.Int64
}

// NewStats starts the uptime clock.
func NewStats(now time.Time) *Stats {
	return &Stats{StartedAt: now}
}

// IncAnnounced records one successful announcement.
func (s *Stats) IncAnnounced() {
	if s == nil {
		return
	}
	s.announced.Add(1)
}

// Announced returns the number of announcements sent since start.
func (s *Stats) Announced() int64 {
	if s == nil {
		return 0
	}
	return s.announced.Load()
}
