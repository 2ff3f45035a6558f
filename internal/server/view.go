package web

import (
	"net/url"
	"time"

	"newsboard/internal/model"

	"github.com/dustin/go-humanize"
)

type pageState int

const (
	stateInitial pageState = iota
	stateResults
)

func (s pageState) String() string {
	if s == stateResults {
		return "results"
	}
	return "initial"
}

// homePage is the data behind both the initial and the results rendering of
// the home template.
type homePage struct {
	Title      string
	State      pageState
	Filter     model.Filter
	Countries  []model.Country
	Categories []model.Category
	Recent     []model.Filter

	Articles   []ArticleView
	Total      int
	Cached     bool
	FetchedAgo string
}

func (p homePage) Results() bool {
	return p.State == stateResults
}

type errorPage struct {
	Title   string
	Message string
}

// ArticleView is an article shaped for the card template.
type ArticleView struct {
	Title        string
	Description  string
	ImageURL     string
	URL          string
	Source       string
	Published    string
	PublishedAgo string
	Country      string
}

// NewArticleView creates a view model from the raw article
func NewArticleView(a model.Article) ArticleView {
	v := ArticleView{
		Title:       a.Title,
		Description: a.Description,
		ImageURL:    a.URLToImage,
		URL:         a.URL,
		Source:      a.Source.Name,
		Country:     a.Country,
	}
	if t := a.Published(); !t.IsZero() {
		v.Published = t.Format("02 Jan 2006, 15:04 MST")
		v.PublishedAgo = humanize.Time(t)
	}
	return v
}

func fetchedAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// resultsURL links back to the results page for a filter.
func resultsURL(f model.Filter) string {
	q := url.Values{}
	q.Set("search", f.Search)
	q.Set("category", string(f.Category))
	q.Set("country", f.Country.Lower())
	return "/results?" + q.Encode()
}
