package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the preview server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output: os.Stderr,
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/products-feed.xml", handler.GetFeed)
	r.GET("/sitemap.xml", handler.GetSitemap)
	r.GET("/product/:slug/", handler.GetPage)

	r.GET("/health", handler.GetHealth)

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("Run history API enabled with authentication")
	} else {
		slog.Warn("Run history API enabled without authentication (API_ACCESS_KEY not set)")
	}
	{
		api.GET("/runs", handler.APIListRuns)
		api.GET("/runs/latest", handler.APIGetLatestRun)
		api.GET("/runs/:id", handler.APIGetRun)
	}

	r.GET("/", func(c *gin.Context) {
		authHint := ""
		if apiAccessKey != "" {
			authHint = " (requires X-API-Key header)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "Catalog Comb",
			"version":     handler.version,
			"description": "Product feed normalization and static catalog generation",
			"endpoints": map[string]string{
				"feed":       "/products-feed.xml",
				"sitemap":    "/sitemap.xml",
				"page":       "/product/<slug>/",
				"health":     "/health",
				"runs":       "/api/runs" + authHint,
				"latest_run": "/api/runs/latest" + authHint,
			},
			"history_enabled": handler.history != nil,
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware accepts the key in X-API-Key or as an Authorization bearer token
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			return
		}

		if providedKey != apiAccessKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			return
		}

		c.Next()
	}
}
