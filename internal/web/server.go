package web

import (
	"net/http"
	"sync"

	"yotolink/internal/config"
	"yotolink/internal/logger"
	"yotolink/internal/mapping"
	"yotolink/internal/metadata"
)

// Server exposes match jobs and the mapping over HTTP.
type Server struct {
	jobMgr *JobManager
	config config.Config
	logger *logger.Logger
	store  *mapping.Store

	// runMu keeps match passes from overlapping on the mapping file.
	runMu sync.Mutex
	// probe overrides the TagLib duration reader in tests.
	probe metadata.DurationProbe
}

func NewServer(jobMgr *JobManager, cfg config.Config, log *logger.Logger) *Server {
	return &Server{
		jobMgr: jobMgr,
		config: cfg,
		logger: log,
		store:  mapping.NewStore(cfg.MappingFile, log),
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/match", s.handleMatch)
	mux.HandleFunc("/api/jobs", s.handleListJobs)
	mux.HandleFunc("/api/jobs/", s.handleJobAction)
	mux.HandleFunc("/api/mappings", s.handleListMappings)
	mux.HandleFunc("/api/mappings/lookup", s.handleLookupMapping)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return s.loggingMiddleware(mux)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
