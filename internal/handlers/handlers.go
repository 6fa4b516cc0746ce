// Package handlers exposes the HTTP trigger surface for serve mode.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"packetboat/internal/reporter"
	"packetboat/pkg/logging"
	"packetboat/pkg/version"
)

// Runner triggers one report run.
type Runner interface {
	Run(ctx context.Context, opts reporter.RunOptions) (*reporter.RunResult, error)
}

type Handlers struct {
	runner Runner
	logger logging.Logger
}

func New(runner Runner, logger logging.Logger) *Handlers {
	return &Handlers{runner: runner, logger: logger}
}

// TriggerRun starts a synchronous report run. The body is optional; an empty
// body runs with the default date resolution.
func (h *Handlers) TriggerRun(c *gin.Context) {
	var opts reporter.RunOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run options: " + err.Error()})
			return
		}
	}

	res, err := h.runner.Run(c.Request.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("Triggered report run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "packetboat",
		"version": version.GetInfo(),
	})
}

// SetupRouter wires the serve-mode routes.
func SetupRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/runs", h.TriggerRun)
	router.GET("/healthz", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
