// Package api exposes the reconciliation operations, dashboard data and
// review actions over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/farhaan/fletes-reconcile-system/internal/app"
	"github.com/farhaan/fletes-reconcile-system/internal/dashboard"
	"github.com/farhaan/fletes-reconcile-system/internal/metrics"
)

type Server struct {
	app       *app.App
	dashboard *dashboard.Service
	metrics   *metrics.Registry
	logger    logrus.FieldLogger
	origins   []string
}

func NewServer(a *app.App, d *dashboard.Service, m *metrics.Registry, logger logrus.FieldLogger) *Server {
	return &Server{app: a, dashboard: d, metrics: m, logger: logger}
}

// AllowOrigins restricts CORS to origins. With none set every origin is
// allowed.
func (s *Server) AllowOrigins(origins []string) *Server {
	s.origins = origins
	return s
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(requestID())
	r.Use(requestLogger(s.logger))
	r.Use(gin.Recovery())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	r.POST("/operations/:name", s.RunOperationHandler())

	d := r.Group("/dashboard")
	d.GET("/summary", s.SummaryHandler())
	d.GET("/kpis", s.KPIsHandler())
	d.GET("/carriers", s.CarriersHandler())
	d.GET("/products", s.ProductsHandler())
	d.GET("/alerts", s.AlertsHandler())
	d.GET("/alerts.xlsx", s.AlertsExportHandler())

	rv := r.Group("/review")
	rv.GET("/duplicates", s.DuplicatesHandler())
	rv.POST("/duplicates/:row/ok", s.MarkVerifiedHandler())
	rv.GET("/missing-waybill", s.MissingWaybillHandler())
	rv.POST("/missing-waybill/:row/classify", s.ClassifyHandler())

	r.POST("/cache/invalidate", s.InvalidateCacheHandler())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"latency":    time.Since(start).String(),
			"request_id": c.GetString("request_id"),
		}).Info("request")
	}
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	if len(s.origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.origins
	}
	cfg.AddExposeHeaders("Content-Disposition", "X-Request-Id")
	return cfg
}
