// Package server exposes the HTTP front door: the ingest trigger, a health
// probe, and the admin retry view.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recipeclip/recipeclip/internal/anylist"
	"github.com/recipeclip/recipeclip/internal/ledger"
	"github.com/recipeclip/recipeclip/internal/logger"
	"github.com/recipeclip/recipeclip/internal/pipeline"
	"github.com/recipeclip/recipeclip/internal/version"
)

// RecipeSink stores extracted recipes.
type RecipeSink interface {
	CreateRecipe(ctx context.Context, req anylist.CreateRequest) (anylist.Created, error)
}

// Notifier reports job outcomes. Implementations never return errors; sends
// are fire-and-forget.
type Notifier interface {
	NotifySuccess(ctx context.Context, recipeName, sourceName string)
	NotifyNotRecipe(ctx context.Context, url, reason string)
	NotifyError(ctx context.Context, url string, err error)
}

// Extractor runs one extraction job.
type Extractor interface {
	Extract(ctx context.Context, url string) (pipeline.Outcome, error)
}

// AttemptStore is the ledger surface the server needs.
type AttemptStore interface {
	Begin(ctx context.Context, url string) (ledger.Attempt, bool, error)
	Complete(ctx context.Context, id string) error
	RecordNotRecipe(ctx context.Context, id, reason string) error
	RecordFailure(ctx context.Context, id string, jobErr error) error
	Retry(ctx context.Context, id string) (ledger.Attempt, bool, error)
	ListUnresolved(ctx context.Context) ([]ledger.Attempt, error)
}

// Config holds server settings.
type Config struct {
	ListenAddr string
	AuthToken  string
	JobTimeout time.Duration
}

// Server wires the HTTP surface to the extraction pipeline and its
// collaborators.
type Server struct {
	config    Config
	extractor Extractor
	sink      RecipeSink
	notifier  Notifier
	attempts  AttemptStore
	router    *gin.Engine
}

// New creates a Server and registers its routes.
func New(cfg Config, extractor Extractor, sink RecipeSink, notifier Notifier, attempts AttemptStore) *Server {
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = 5 * time.Minute
	}

	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		config:    cfg,
		extractor: extractor,
		sink:      sink,
		notifier:  notifier,
		attempts:  attempts,
		router:    gin.New(),
	}
	s.router.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealthz)

	authed := s.router.Group("/", s.requireBearer())
	authed.POST("/api/ingest", s.handleIngest)
	authed.GET("/admin/attempts", s.handleAdminAttempts)
	authed.POST("/admin/attempts/:id/retry", s.handleAdminRetry)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until the listener fails.
func (s *Server) Run() error {
	logger.Info("http server listening", "addr", s.config.ListenAddr, "version", version.Version)
	return s.router.Run(s.config.ListenAddr)
}

func (s *Server) requireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.config.AuthToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Version})
}

type ingestRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// handleIngest acknowledges immediately with 202; the outcome is delivered
// through the notification sink only.
func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"url\": \"...\"}"})
		return
	}

	att, started, err := s.attempts.Begin(c.Request.Context(), req.URL)
	if err != nil {
		logger.Error("recording attempt failed", "url", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if started {
		go s.runJob(att)
	} else {
		logger.Info("duplicate submission acknowledged", "url", req.URL, "status", att.Status)
	}
	c.JSON(http.StatusAccepted, gin.H{"id": att.ID, "accepted": true})
}

func (s *Server) handleAdminRetry(c *gin.Context) {
	att, started, err := s.attempts.Retry(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown attempt"})
		return
	case err != nil:
		logger.Error("retry failed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if started {
		go s.runJob(att)
	}
	c.JSON(http.StatusAccepted, gin.H{"id": att.ID, "restarted": started})
}
