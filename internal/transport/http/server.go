package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/store"
)

// Relay is the part of the hub the HTTP layer needs.
type Relay interface {
	ServeConn(ctx context.Context, conn core.Conn) error
	Stats(ctx context.Context) (core.Stats, error)
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the admin HTTP server: health, stats, audit events and the
// WebSocket transport. journal may be nil when auditing is disabled.
func NewServer(relay Relay, journal store.Journal, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	admin := &adminHandlers{relay: relay, journal: journal, log: logger}
	router.GET("/health", healthHandler)
	router.GET("/stats", admin.Stats)
	router.GET("/events", admin.Events)
	router.GET("/ws", gin.WrapH(NewWSHandler(relay, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

type adminHandlers struct {
	relay   Relay
	journal store.Journal
	log     *zerolog.Logger
}

// Stats returns the current registry snapshot.
// GET /stats
func (h *adminHandlers) Stats(c *gin.Context) {
	stats, err := h.relay.Stats(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("stats unavailable")
		c.JSON(stdhttp.StatusServiceUnavailable, ErrorResponse{Error: "relay unavailable"})
		return
	}
	c.JSON(stdhttp.StatusOK, stats)
}

// Events returns the most recent audit entries.
// GET /events?limit=N
func (h *adminHandlers) Events(c *gin.Context) {
	if h.journal == nil {
		c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "audit journal disabled"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		limit = n
	}

	entries, err := h.journal.Recent(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read audit journal")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: "failed to read events"})
		return
	}
	c.JSON(stdhttp.StatusOK, gin.H{"events": entries})
}
