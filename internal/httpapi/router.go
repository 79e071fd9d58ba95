// Package httpapi exposes the reducer and the model catalog over HTTP.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/philipparndt/goobj/internal/catalog"
	"github.com/philipparndt/goobj/internal/logger"
	"go.uber.org/zap"
)

// DefaultMaxBodySize limits uploads when no limit is configured
const DefaultMaxBodySize = 64 << 20

// Server holds the handler dependencies
type Server struct {
	catalog     *catalog.Service
	logger      *zap.Logger
	metrics     http.Handler
	maxBodySize int64
	reduction   int
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h at /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMaxBodySize limits request bodies to n bytes
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// WithDefaultReduction sets the percentage used when a request has no
// "reduction" field
func WithDefaultReduction(percent int) Option {
	return func(s *Server) {
		s.reduction = percent
	}
}

// NewServer creates the HTTP layer over a catalog service
func NewServer(svc *catalog.Service, opts ...Option) *Server {
	s := &Server{
		catalog:     svc,
		logger:      zap.NewNop(),
		maxBodySize: DefaultMaxBodySize,
		reduction:   defaultReduction,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with all routes
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(logger.Recovery(s.logger))
	r.Use(logger.GinMiddleware(s.logger))
	r.Use(cors())
	r.Use(s.limitBody())

	r.GET("/health", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := r.Group("/api")
	api.POST("/optimize", s.optimize)
	api.POST("/count", s.count)

	models := api.Group("/models")
	models.GET("", s.listModels)
	models.POST("", s.createModel)
	models.GET("/:id", s.getModel)
	models.PUT("/:id", s.updateModel)
	models.DELETE("/:id", s.deleteModel)
	models.GET("/:id/download", s.downloadModel)
	models.GET("/:id/thumbnails/:index", s.thumbnail)

	return r
}

// cors allows any origin, matching the browser upload form's needs
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Original-Vertex-Count, X-Optimized-Vertex-Count")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodySize)
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
