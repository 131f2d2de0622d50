package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"morsel/internal/model"
	"morsel/internal/publisher"
	"morsel/internal/queue"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:embed templates/index.html
var templates embed.FS

var indexTmpl = template.Must(template.ParseFS(templates, "templates/index.html"))

// Episodes is the read side of the episode index.
type Episodes interface {
	Episodes() ([]model.Episode, error)
}

type Server struct {
	title    string
	episodes Episodes
	queue    queue.Store
	public   string
	logger   *zap.Logger
	router   *mux.Router
	server   *http.Server
}

// NewServer serves the episode list, the queue API and, when publicDir is set,
// the locally published feed and audio.
func NewServer(title string, episodes Episodes, q queue.Store, publicDir string, logger *zap.Logger) *Server {
	s := &Server{
		title:    title,
		episodes: episodes,
		queue:    q,
		public:   publicDir,
		logger:   logger,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	if s.public != "" {
		files := http.FileServer(http.Dir(s.public))
		s.router.Handle("/feed.xml", files).Methods("GET", "HEAD")
		s.router.PathPrefix("/audio/").Handler(files).Methods("GET", "HEAD")
	}

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/api/episodes", s.handleEpisodes).Methods("GET")
	s.router.HandleFunc("/api/queue", s.handleDays).Methods("GET")
	s.router.HandleFunc("/api/queue/{day}", s.handleQueue).Methods("GET")
	s.router.HandleFunc("/api/queue/{day}/{n:[0-9]+}", s.handleArticle).Methods("GET")
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
		WriteTimeout: 60 * time.Second,
	}

	s.logger.Info("Web server listening", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.episodes.Episodes()
	if err != nil {
		s.logger.Error("Failed to load episodes", zap.Error(err))
		http.Error(w, "Index error", http.StatusInternalServerError)
		return
	}
	days, err := s.queue.Days(r.Context())
	if err != nil {
		s.logger.Error("Failed to list queue", zap.Error(err))
		http.Error(w, "Queue error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"Title":    s.title,
		"Episodes": publisher.NewestFirst(episodes),
		"Days":     days,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Error("Template error", zap.Error(err))
	}
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.episodes.Episodes()
	if err != nil {
		s.logger.Error("Failed to load episodes", zap.Error(err))
		http.Error(w, "Index error", http.StatusInternalServerError)
		return
	}
	if episodes == nil {
		episodes = []model.Episode{}
	}
	s.writeJSON(w, publisher.NewestFirst(episodes))
}

func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	days, err := s.queue.Days(r.Context())
	if err != nil {
		s.logger.Error("Failed to list queue", zap.Error(err))
		http.Error(w, "Queue error", http.StatusInternalServerError)
		return
	}
	if days == nil {
		days = []string{}
	}
	s.writeJSON(w, days)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	articles, ok := s.loadDay(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, articles)
}

// handleArticle returns the queued markdown of the n-th article (1-based).
func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	articles, ok := s.loadDay(w, r)
	if !ok {
		return
	}
	n, _ := strconv.Atoi(mux.Vars(r)["n"])
	if n < 1 || n > len(articles) {
		http.NotFound(w, r)
		return
	}

	content, err := s.queue.Content(r.Context(), articles[n-1])
	if errors.Is(err, queue.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.Error("Failed to read article", zap.Error(err))
		http.Error(w, "Queue error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(content))
}

func (s *Server) loadDay(w http.ResponseWriter, r *http.Request) ([]model.Article, bool) {
	day := mux.Vars(r)["day"]
	if _, err := time.Parse(model.DateLayout, day); err != nil {
		http.Error(w, "Invalid date", http.StatusBadRequest)
		return nil, false
	}
	articles, err := s.queue.Load(r.Context(), day)
	if err != nil {
		s.logger.Error("Failed to load queue", zap.String("day", day), zap.Error(err))
		http.Error(w, "Queue error", http.StatusInternalServerError)
		return nil, false
	}
	if articles == nil {
		http.NotFound(w, r)
		return nil, false
	}
	return articles, true
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// EpisodesFunc adapts a plain loader, such as publisher.Index.Load, to Episodes.
type EpisodesFunc func() ([]model.Episode, error)

func (f EpisodesFunc) Episodes() ([]model.Episode, error) { return f() }
