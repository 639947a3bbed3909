package server

import (
	"net/http"
	"sync"
	"time"

	"card-clash/internal/config"

	"gorm.io/gorm"
)

type Server struct {
	store    *Store
	db       *gorm.DB
	ws       *wsHub
	cfg      config.Config
	producer cardProducer
	recovery *RecoveryController
	timersMu sync.Mutex
	timers   map[string]*time.Timer
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	store := NewStore()
	srv := &Server{
		store:  store,
		db:     conn,
		ws:     newWSHub(),
		cfg:    cfg,
		timers: make(map[string]*time.Timer),
	}
	if cfg.OpenAIAPIKey != "" {
		srv.producer = newOpenAIProducer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	srv.recovery = newRecoveryController(store, cfg.RetryMaxAttempts,
		time.Duration(cfg.RetryBaseDelayMillis)*time.Millisecond)
	return srv
}

// Recovery exposes the reconnection controller so embedding clients can
// drive retry and resync against this server's authoritative state.
func (s *Server) Recovery() *RecoveryController {
	return s.recovery
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/games", s.handleCreateGame)
	mux.HandleFunc("GET /api/games", s.handleListGames)
	mux.HandleFunc("GET /api/games/", s.handleGameSubroutes)
	mux.HandleFunc("POST /api/games/", s.handleGameSubroutes)
	mux.HandleFunc("GET /ws/games/", s.handleWebsocket)
	return mux
}

func (s *Server) snapshot(game *Game) map[string]any {
	return snapshotWithConfig(game, s.cfg)
}
