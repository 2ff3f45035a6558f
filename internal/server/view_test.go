package web

import (
	"net/url"
	"testing"

	"newsboard/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArticleView(t *testing.T) {
	v := NewArticleView(model.Article{
		Source:      model.Source{Name: "BBC News"},
		Title:       "Markets rally",
		URLToImage:  "https://example.com/a.jpg",
		URL:         "https://example.com/a",
		PublishedAt: "2024-03-01T10:30:00Z",
		Country:     "us",
	})

	assert.Equal(t, "Markets rally", v.Title)
	assert.Equal(t, "BBC News", v.Source)
	assert.Equal(t, "https://example.com/a.jpg", v.ImageURL)
	assert.Equal(t, "01 Mar 2024, 10:30 UTC", v.Published)
	assert.NotEmpty(t, v.PublishedAgo)
	assert.Equal(t, "us", v.Country)
}

func TestNewArticleView_BadTimestamp(t *testing.T) {
	v := NewArticleView(model.Article{Title: "x", PublishedAt: ""})
	assert.Empty(t, v.Published)
	assert.Empty(t, v.PublishedAgo)
}

func TestResultsURL(t *testing.T) {
	f, err := model.NewFilter("go 1.24", "technology", "JP")
	require.NoError(t, err)

	u, err := url.Parse(resultsURL(f))
	require.NoError(t, err)
	assert.Equal(t, "/results", u.Path)
	assert.Equal(t, "go 1.24", u.Query().Get("search"))
	assert.Equal(t, "technology", u.Query().Get("category"))
	assert.Equal(t, "jp", u.Query().Get("country"))
}
