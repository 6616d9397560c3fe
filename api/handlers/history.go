package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AnarQorp/qnet-scheduler/pkg/database"
	"github.com/AnarQorp/qnet-scheduler/pkg/database/queries"
	"github.com/AnarQorp/qnet-scheduler/pkg/validation"
)

const maxHistoryLimit = 500

// HistoryHandler serves the persisted event history written by the sink.
// Without a configured database the routes exist but report the sink as
// disabled.
type HistoryHandler struct {
	repo *queries.EventRepository
}

func NewHistoryHandler(db *database.DB) *HistoryHandler {
	h := &HistoryHandler{}
	if db != nil {
		h.repo = queries.NewEventRepository(db.DB)
	}
	return h
}

func (h *HistoryHandler) GetHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxHistoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be between 1 and 500",
			})
			return
		}
		limit = parsed
	}

	nodeID := c.Query("node")
	if nodeID != "" {
		if err := validation.ValidateNodeID(nodeID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "event history requires the database sink",
		})
		return
	}

	var (
		records []queries.EventRecord
		err     error
	)
	if nodeID != "" {
		records, err = h.repo.ByNode(c.Request.Context(), nodeID, limit)
	} else {
		records, err = h.repo.Recent(c.Request.Context(), c.Query("topic"), limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": records})
}

func (h *HistoryHandler) GetHistorySummary(c *gin.Context) {
	sinceHours := 24
	if raw := c.Query("since_hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "since_hours must be a positive integer",
			})
			return
		}
		sinceHours = parsed
	}

	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "event history requires the database sink",
		})
		return
	}

	since := time.Now().Add(-time.Duration(sinceHours) * time.Hour)
	counts, err := h.repo.CountByTopic(c.Request.Context(), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"since":  since.UTC().Format(time.RFC3339),
		"counts": counts,
	})
}
