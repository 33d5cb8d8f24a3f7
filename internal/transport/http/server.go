// Package transporthttp serves the read-only status API. It never
// mutates state: the execution loop is the only writer.
package transporthttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vibetrader/internal/account"
	"vibetrader/internal/logger"
	"vibetrader/internal/monitoring"
	"vibetrader/internal/store"
)

type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr    string
	Cache   *account.Cache
	Store   *store.Store
	Venue   string
	Started time.Time
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Cache == nil || cfg.Store == nil {
		return nil, errors.New("http server requires the account cache and the store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"venue":  cfg.Venue,
			"uptime": time.Since(cfg.Started).Round(time.Second).String(),
		})
	})
	router.GET("/metrics", gin.WrapH(monitoring.Handler()))

	api := router.Group("/api")
	api.GET("/account", func(c *gin.Context) {
		snap, err := cfg.Cache.Get(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"balance":        snap.Balance,
			"unrealized_pnl": snap.TotalUnrealizedPnL(),
			"fetched_at":     snap.FetchedAt,
		})
	})
	api.GET("/positions", func(c *gin.Context) {
		snap, err := cfg.Cache.Get(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		enriched, err := cfg.Store.EnrichPositions(c.Request.Context(), snap.Positions)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"positions": enriched, "fetched_at": snap.FetchedAt})
	})
	api.GET("/plans", func(c *gin.Context) {
		plans, err := cfg.Store.ListExitPlans(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"plans": plans})
	})
	api.GET("/pnl/daily", func(c *gin.Context) {
		if date := c.Query("date"); date != "" {
			ledger, ok, err := cfg.Store.GetDailyLedger(c.Request.Context(), date)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if !ok {
				c.JSON(http.StatusNotFound, gin.H{"error": "no ledger for " + date})
				return
			}
			c.JSON(http.StatusOK, ledger)
			return
		}
		ledgers, err := cfg.Store.ListDailyLedgers(c.Request.Context(), 30)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"days": ledgers})
	})

	return &Server{addr: cfg.Addr, router: router}, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugw("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"ip", c.ClientIP(),
			"dur", time.Since(start))
	}
}

func (s *Server) Addr() string { return s.addr }

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
