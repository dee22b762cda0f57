// Package server exposes the HTTP surface of the bot: the Evolution API
// webhook, liveness probes and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zulandar/condobot/internal/metrics"
)

// DefaultPort is the listen port when none is configured.
const DefaultPort = 3001

// maxBody caps webhook payloads; media messages carry thumbnails.
const maxBody = 8 << 20

// Deliverer accepts raw webhook events. The WhatsApp adapter implements it.
type Deliverer interface {
	Deliver(ctx context.Context, event string, payload []byte) error
}

// StartOpts holds configuration for the webhook server.
type StartOpts struct {
	Deliverer Deliverer
	Registry  *prometheus.Registry // optional; enables GET /metrics
	Port      int
	Out       io.Writer
}

// Start launches the webhook HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Deliverer == nil {
		return fmt.Errorf("server: deliverer is required")
	}
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: NewRouter(opts),
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Webhook listening on :%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(opts StartOpts) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "🤖 BOT ONLINE")
	})
	router.GET("/webhook", func(c *gin.Context) {
		c.String(http.StatusOK, "WEBHOOK OK")
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	webhook := handleWebhook(opts.Deliverer)
	router.POST("/webhook", webhook)
	router.POST("/webhook/:event", webhook)

	if opts.Registry != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(opts.Registry)))
	}
	return router
}

// handleWebhook acknowledges every well-formed event with 200 so the
// Evolution API does not redeliver; processing failures are only logged.
func handleWebhook(d Deliverer) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
		if err != nil || !json.Valid(body) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		event := c.Param("event")
		if err := d.Deliver(c.Request.Context(), event, body); err != nil {
			log.Printf("server: webhook %q: %v", event, err)
		}
		c.Status(http.StatusOK)
	}
}
