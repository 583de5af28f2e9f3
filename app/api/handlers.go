package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/catalog-comb/app/catalog"
	"github.com/lysyi3m/catalog-comb/app/database"
	"github.com/lysyi3m/catalog-comb/app/feed"
	"github.com/lysyi3m/catalog-comb/app/page"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// NewHandler serves the files written to outputDir. A nil history
// disables the run history endpoints.
func NewHandler(outputDir, version string, history database.RunRepository) *Handler {
	return &Handler{
		outputDir: outputDir,
		version:   version,
		history:   history,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	h.serveFile(c, catalog.FeedFile, "application/xml; charset=utf-8")
}

func (h *Handler) GetSitemap(c *gin.Context) {
	h.serveFile(c, catalog.SitemapFile, "application/xml; charset=utf-8")
}

func (h *Handler) GetPage(c *gin.Context) {
	slug := c.Param("slug")

	// Only well-formed slugs map to a directory, which also rules out "..".
	if slug == "" || feed.Slugify(slug) != slug {
		c.Status(http.StatusNotFound)
		return
	}

	h.serveFile(c, filepath.Join(page.PagesDir, slug, "index.html"), "text/html; charset=utf-8")
}

func (h *Handler) serveFile(c *gin.Context, name, contentType string) {
	data, err := os.ReadFile(filepath.Join(h.outputDir, name))
	if errors.Is(err, os.ErrNotExist) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to read output file", "file", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Data(http.StatusOK, contentType, data)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if info, err := os.Stat(filepath.Join(h.outputDir, catalog.FeedFile)); err == nil {
		health["feed_updated_at"] = info.ModTime().Format(time.RFC3339)
	} else {
		health["feed_updated_at"] = nil
	}

	if h.history != nil {
		if run, err := h.history.GetLatestRun(); err == nil && run != nil {
			health["last_run"] = gin.H{
				"status":     run.Status,
				"started_at": run.StartedAt,
				"kept":       run.Kept,
				"total":      run.Total,
			}
		}
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListRuns(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.history.ListRuns(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *Handler) APIGetLatestRun(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	run, err := h.history.GetLatestRun()
	if err != nil {
		slog.Error("Database error", "operation", "get_latest_run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No runs recorded"})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) APIGetRun(c *gin.Context) {
	if !h.historyEnabled(c) {
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run id"})
		return
	}

	run, err := h.history.GetRun(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_run", "run_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *Handler) historyEnabled(c *gin.Context) bool {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Run history disabled",
			"message": "Set HISTORY_DB to record and browse runs",
		})
		return false
	}
	return true
}
