package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Server is the HTTP surface (spec.md §4, component 8), adapted from
// the teacher's pkg/api.Server: same gorilla/mux + rs/cors wiring, with
// the perp-DEX route table replaced by the DLOB query surface and a
// rate-limit middleware layered in front (spec.md §5).
type Server struct {
	app     *App
	router  *mux.Router
	limiter *ipRateLimiter
	logger  *zap.SugaredLogger
}

// NewServer builds a Server over app. rateLimitPerSecond and
// allowLoadTest come from params.Config (RATE_LIMIT_CALLS_PER_SECOND,
// ALLOW_LOAD_TEST).
func NewServer(app *App, rateLimitPerSecond int, allowLoadTest bool, logger *zap.SugaredLogger) *Server {
	s := &Server{
		app:     app,
		router:  mux.NewRouter(),
		limiter: newIPRateLimiter(rateLimitPerSecond, allowLoadTest),
		logger:  logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/startup", s.handleStartup).Methods(http.MethodGet)

	s.router.HandleFunc("/orders/json/raw", s.handleOrdersJSONRaw).Methods(http.MethodGet)
	s.router.HandleFunc("/orders/json", s.handleOrdersJSON).Methods(http.MethodGet)
	s.router.HandleFunc("/orders/idl", s.handleOrdersIDL).Methods(http.MethodGet)
	s.router.HandleFunc("/orders/idlWithSlot", s.handleOrdersIDLWithSlot).Methods(http.MethodGet)

	s.router.HandleFunc("/topMakers", s.handleTopMakers).Methods(http.MethodGet)
	s.router.HandleFunc("/l2", s.handleL2).Methods(http.MethodGet)
	s.router.HandleFunc("/batchL2", s.handleBatchL2).Methods(http.MethodGet)
	s.router.HandleFunc("/l3", s.handleL3).Methods(http.MethodGet)
}

// Handler returns the fully wrapped handler: prefix-stripping, CORS,
// then rate limiting, then routing — ready to hand to http.Server.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	return stripDLOBPrefix(c.Handler(s.limiter.middleware(s.router)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "OK")
}

func (s *Server) handleStartup(w http.ResponseWriter, r *http.Request) {
	if !s.app.ready() {
		writeError(w, http.StatusInternalServerError, "Not ready")
		return
	}
	writeJSON(w, http.StatusOK, "OK")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
