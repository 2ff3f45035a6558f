package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"newsboard/internal/model"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:embed templates
var templateFS embed.FS

const recentLimit = 8

// Headlines is the fetch-or-cache step behind the results page.
type Headlines interface {
	Get(ctx context.Context, f model.Filter) (*model.Entry, bool, error)
}

// History keeps the recent searches shown on the front page.
type History interface {
	RecordSearch(ctx context.Context, f model.Filter) error
	RecentSearches(ctx context.Context, limit int) ([]model.Filter, error)
	Ping(ctx context.Context) error
}

type Options struct {
	// StaticDir is served verbatim under /static/.
	StaticDir string
}

type Server struct {
	headlines Headlines
	history   History
	logger    *zap.Logger
	router    *mux.Router
	server    *http.Server
	staticDir string

	homeTmpl  *template.Template
	errorTmpl *template.Template
}

func NewServer(headlines Headlines, history History, logger *zap.Logger, opts Options) (*Server, error) {
	if opts.StaticDir == "" {
		opts.StaticDir = "static"
	}

	funcs := template.FuncMap{"resultsURL": resultsURL}
	home, err := template.New("home").Funcs(funcs).ParseFS(templateFS,
		"templates/layout.html",
		"templates/home.html",
		"templates/partials/article_card.html",
	)
	if err != nil {
		return nil, err
	}
	errTmpl, err := template.New("error").ParseFS(templateFS,
		"templates/layout.html",
		"templates/error.html",
	)
	if err != nil {
		return nil, err
	}

	s := &Server{
		headlines: headlines,
		history:   history,
		logger:    logger,
		router:    mux.NewRouter(),
		staticDir: opts.StaticDir,
		homeTmpl:  home,
		errorTmpl: errTmpl,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Use(s.withCommonHeaders, s.withRequestLog)

	// Static Files (CSS, images)
	s.router.PathPrefix("/static/").Handler(s.staticFiles())

	// App Routes
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/results", s.handleResults).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Everything else goes back to the front page
	s.router.NotFoundHandler = http.HandlerFunc(s.handleFallback)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleFallback)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the HTTP server
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderInitial(w, r, model.Filter{})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawCountry := strings.TrimSpace(q.Get("country"))

	f, err := model.NewFilter(q.Get("search"), q.Get("category"), rawCountry)
	if err != nil {
		s.logger.Info("Rejected filter", zap.Error(err))
		s.renderError(w, http.StatusBadRequest, "Unknown filter", err.Error())
		return
	}
	if f.IsEmpty() {
		s.renderInitial(w, r, f)
		return
	}

	if err := s.history.RecordSearch(r.Context(), f); err != nil {
		s.logger.Warn("Failed to record search", zap.Error(err))
	}

	entry, cached, err := s.headlines.Get(r.Context(), f)
	if err != nil {
		s.logger.Error("Results error", zap.Stringer("filter", f), zap.Error(err))
		s.renderError(w, http.StatusBadGateway, "Headlines unavailable",
			"The news service could not be reached. Please try again in a moment.")
		return
	}

	articles := make([]ArticleView, len(entry.Headlines.Articles))
	for i, a := range entry.Headlines.Articles {
		a.Country = rawCountry
		articles[i] = NewArticleView(a)
	}

	title := "Top headlines"
	if f.Country != "" {
		title = "News from " + string(f.Country)
	}

	page := homePage{
		Title:      title,
		State:      stateResults,
		Filter:     f,
		Countries:  model.Countries,
		Categories: model.Categories,
		Articles:   articles,
		Total:      len(articles),
		Cached:     cached,
		FetchedAgo: fetchedAgo(entry.FetchedAt),
	}
	s.render(w, s.homeTmpl, http.StatusOK, page)
}

func (s *Server) renderInitial(w http.ResponseWriter, r *http.Request, f model.Filter) {
	recent, err := s.history.RecentSearches(r.Context(), recentLimit)
	if err != nil {
		s.logger.Warn("Failed to list recent searches", zap.Error(err))
	}

	page := homePage{
		Title:      "Home",
		State:      stateInitial,
		Filter:     f,
		Countries:  model.Countries,
		Categories: model.Categories,
		Recent:     recent,
	}
	s.render(w, s.homeTmpl, http.StatusOK, page)
}

func (s *Server) renderError(w http.ResponseWriter, status int, title, msg string) {
	s.render(w, s.errorTmpl, status, errorPage{Title: title, Message: msg})
}

// render executes into a buffer first so a template failure can still turn
// into a clean 500.
func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, status int, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Debug("Response write failed", zap.Error(err))
	}
}

// staticFiles serves regular files from the static dir. Missing files and
// directories fall through to the front page redirect like any other
// unmatched path.
func (s *Server) staticFiles() http.Handler {
	root := http.Dir(s.staticDir)
	files := http.StripPrefix("/static/", http.FileServer(root))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, err := root.Open(strings.TrimPrefix(r.URL.Path, "/static"))
		if err != nil {
			s.handleFallback(w, r)
			return
		}
		info, err := f.Stat()
		f.Close()
		if err != nil || info.IsDir() {
			s.handleFallback(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusMovedPermanently)
}

// handleHealth returns JSON health information.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, redisState, code := "ok", "up", http.StatusOK
	if err := s.history.Ping(ctx); err != nil {
		s.logger.Warn("Health check: redis unreachable", zap.Error(err))
		status, redisState, code = "degraded", "down", http.StatusServiceUnavailable
	}

	health := map[string]interface{}{
		"status":    status,
		"service":   "newsboard",
		"redis":     redisState,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}
