package model

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies the publisher of an article.
type Source struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Article is a single headline as returned by the headlines API.
type Article struct {
	Source      Source `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content,omitempty"`

	// Country is the code the article was fetched under, as the user typed it.
	Country string `json:"country,omitempty"`
}

// Published parses PublishedAt. A missing or malformed timestamp yields the zero time.
func (a Article) Published() time.Time {
	t, err := time.Parse(time.RFC3339, a.PublishedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Headlines is the top-headlines payload.
type Headlines struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// Entry is what gets cached for one filter.
type Entry struct {
	Filter    Filter    `json:"filter"`
	FetchedAt time.Time `json:"fetched_at"`
	Headlines Headlines `json:"headlines"`
}

// Job asks the worker to refresh the cache for a filter ahead of time.
type Job struct {
	ID       uuid.UUID `json:"id"`
	Filter   Filter    `json:"filter"`
	QueuedAt time.Time `json:"queued_at"`
}

// NewJob creates a Job for the given filter.
func NewJob(f Filter) Job {
	return Job{
		ID:       uuid.New(),
		Filter:   f,
		QueuedAt: time.Now(),
	}
}
