// Package web exposes a small HTTP status surface for a running host.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/dcrodman/boardhost/internal/core/data"
	"github.com/dcrodman/boardhost/internal/server"
)

const (
	recentGamesKey   = "recent_games"
	recentGamesLimit = 20
)

// Status is the response body of GET /status.
type Status struct {
	Session     server.SessionInfo `json:"session"`
	RecentGames []data.GameRecord  `json:"recent_games,omitempty"`
}

// Handler serves the status endpoint. The finished-game query is memoized
// so a polling dashboard doesn't hammer the database.
type Handler struct {
	Session *server.Session
	// Store may be nil when recording is disabled.
	Store  *data.Store
	Logger *logrus.Logger

	recordCache *cache.Cache
}

func NewHandler(session *server.Session, store *data.Store, logger *logrus.Logger) *Handler {
	return &Handler{
		Session:     session,
		Store:       store,
		Logger:      logger,
		recordCache: cache.New(10*time.Second, time.Minute),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet || r.URL.Path != "/status" {
		http.NotFound(w, r)
		return
	}

	status := Status{
		Session:     h.Session.Info(),
		RecentGames: h.recentGames(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.Logger.Warnf("[WEB] failed to write status response: %s", err)
	}
}

func (h *Handler) recentGames() []data.GameRecord {
	if h.Store == nil {
		return nil
	}

	if cached, ok := h.recordCache.Get(recentGamesKey); ok {
		return cached.([]data.GameRecord)
	}

	records, err := h.Store.RecentGames(recentGamesLimit)
	if err != nil {
		h.Logger.Warnf("[WEB] failed to query recent games: %s", err)
		return nil
	}

	h.recordCache.Set(recentGamesKey, records, cache.DefaultExpiration)
	return records
}

// Start serves the handler on the given port until the context is
// cancelled.
func Start(ctx context.Context, port int, handler *Handler, logger *logrus.Logger) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Infof("[WEB] serving status endpoint on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warnf("[WEB] status endpoint exited: %s", err)
		}
	}()
}
