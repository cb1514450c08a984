// Package httpapi is the thin HTTP surface over the analysis pipeline.
//
// Routes:
//
//	GET  /               health check
//	POST /analyze        {"url": "..."} for video or {"text": "..."} for a claim
//	POST /analyze/image  {"url": "..."}
//
// Successful analyses return the verdict record bytes verbatim, including
// Error verdicts. Malformed bodies get 400.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"deepcheck/internal/config"
	"deepcheck/internal/logging"
	"deepcheck/internal/pipeline"
)

// Analyzer runs analyses; *pipeline.Pipeline satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// bodySlack covers JSON framing and escaping on top of the text limit.
const bodySlack = 4096

// NewRouter builds the gin engine serving the analysis routes.
func NewRouter(cfg config.Server, analyzer Analyzer, logger *slog.Logger) (*gin.Engine, error) {
	corsCfg, err := corsConfig(cfg.CORSOrigins)
	if err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	logger = logging.NewComponentLogger(logger, "httpapi")

	r := gin.New()
	r.Use(requestID(), accessLog(logger), recovery(logger))
	r.Use(cors.New(corsCfg))

	h := handlers{
		analyzer:    analyzer,
		serviceName: cfg.ServiceName,
		maxBody:     int64(cfg.MaxTextBytes)*2 + bodySlack,
		logger:      logger,
	}
	r.GET("/", h.health)
	r.POST("/analyze", h.analyze)
	r.POST("/analyze/image", h.analyzeImage)
	return r, nil
}

func corsConfig(origins []string) (cors.Config, error) {
	cfg := cors.Config{
		AllowMethods:           []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:           []string{"Origin", "Content-Type", "Accept", headerRequestID},
		ExposeHeaders:          []string{"Content-Length", headerRequestID, headerCache, headerFingerprint},
		AllowWildcard:          true,
		AllowBrowserExtensions: true,
		MaxAge:                 12 * time.Hour,
	}
	for _, origin := range origins {
		if strings.TrimSpace(origin) == "*" {
			cfg.AllowAllOrigins = true
			break
		}
	}
	if !cfg.AllowAllOrigins {
		cfg.AllowOrigins = origins
	}
	if err := cfg.Validate(); err != nil {
		return cors.Config{}, fmt.Errorf("cors: %w", err)
	}
	return cfg, nil
}
