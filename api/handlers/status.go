package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AnarQorp/qnet-scheduler/internal/autoscaler"
	"github.com/AnarQorp/qnet-scheduler/internal/balancer"
	"github.com/AnarQorp/qnet-scheduler/internal/optimizer"
	"github.com/AnarQorp/qnet-scheduler/pkg/models"
	"github.com/AnarQorp/qnet-scheduler/pkg/validation"
)

// ControlPlane is the slice of the scheduler the operator API needs.
type ControlPlane interface {
	Balancer() *balancer.LoadBalancer
	Autoscaler() *autoscaler.Manager
	Optimizer() *optimizer.Optimizer
}

type StatusHandler struct {
	cp ControlPlane
}

func NewStatusHandler(cp ControlPlane) *StatusHandler {
	return &StatusHandler{cp: cp}
}

func (h *StatusHandler) GetDistribution(c *gin.Context) {
	c.JSON(http.StatusOK, h.cp.Balancer().GetLoadDistribution())
}

func (h *StatusHandler) GetDecisions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"strategy":  h.cp.Balancer().Strategy(),
		"decisions": h.cp.Balancer().Decisions(),
	})
}

func (h *StatusHandler) GetRecommendations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"recommendations": h.cp.Autoscaler().GetScalingRecommendations(),
	})
}

func (h *StatusHandler) GetPredictions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"predictions": h.cp.Optimizer().GetLoadPredictions(),
	})
}

func (h *StatusHandler) GetProfile(c *gin.Context) {
	nodeID := c.Param("id")
	if err := validation.ValidateNodeID(nodeID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, ok := h.cp.Optimizer().GetNodeProfile(nodeID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no performance profile for node"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *StatusHandler) GetPatterns(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"patterns": h.cp.Optimizer().GetExecutionPatterns(),
	})
}

func (h *StatusHandler) GetOptimizerStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cp.Optimizer().GetOptimizationStats())
}

func (h *StatusHandler) GetScalingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cp.Autoscaler().GetScalingStatus())
}

func (h *StatusHandler) GetOptimizations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"optimizations": h.cp.Autoscaler().GenerateOptimizations(),
	})
}

func (h *StatusHandler) GetForecast(c *gin.Context) {
	horizon := 7
	if raw := c.Query("horizon_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "horizon_days must be between 1 and 365"})
			return
		}
		horizon = parsed
	}
	c.JSON(http.StatusOK, h.cp.Autoscaler().GetCapacityForecast(horizon))
}

func (h *StatusHandler) GetNodeLoad(c *gin.Context) {
	nodeID := c.Param("id")
	load, ok := h.cp.Balancer().GetNodeLoad(nodeID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "node not tracked"})
		return
	}
	c.JSON(http.StatusOK, load)
}

func (h *StatusHandler) ReportNodeLoad(c *gin.Context) {
	nodeID := c.Param("id")
	if err := validation.ValidateNodeID(nodeID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var update models.NodeLoadUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h.cp.Balancer().UpdateNodeLoad(nodeID, update)
	c.JSON(http.StatusAccepted, gin.H{"node_id": nodeID})
}

type PlacementRequest struct {
	Candidates   []string                `json:"candidates" binding:"required"`
	Requirements models.TaskRequirements `json:"requirements"`
}

func (h *StatusHandler) PlaceTask(c *gin.Context) {
	var req PlacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	decision, err := h.cp.Balancer().SelectNode(req.Candidates, req.Requirements)
	if err != nil {
		if errors.Is(err, balancer.ErrNoNodesAvailable) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, decision)
}

type StrategyRequest struct {
	Strategy string                 `json:"strategy" binding:"required"`
	Params   *models.StrategyParams `json:"params,omitempty"`
}

func (h *StatusHandler) SetStrategy(c *gin.Context) {
	var req StrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.cp.Balancer().SetStrategy(models.Strategy(req.Strategy), req.Params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategy": req.Strategy})
}

func (h *StatusHandler) RecordMetric(c *gin.Context) {
	var metric models.PerformanceMetric
	if err := c.ShouldBindJSON(&metric); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := validation.ValidateNodeID(metric.NodeID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.cp.Optimizer().RecordMetric(&metric)
	c.JSON(http.StatusAccepted, gin.H{"id": metric.ID})
}

type SelectionRequest struct {
	Candidates []string                       `json:"candidates" binding:"required"`
	Workload   models.WorkloadCharacteristics `json:"workload"`
	Criteria   models.SelectionCriteria       `json:"criteria"`
}

func (h *StatusHandler) SelectOptimalNodes(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	selection, err := h.cp.Optimizer().GetOptimalNodeSelection(req.Candidates, req.Workload, req.Criteria)
	if err != nil {
		if errors.Is(err, optimizer.ErrConfidenceNotMet) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, selection)
}

func (h *StatusHandler) AddPolicy(c *gin.Context) {
	var policy models.ScalingPolicy
	if err := c.ShouldBindJSON(&policy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.cp.Autoscaler().AddPolicy(&policy); err != nil {
		if errors.Is(err, autoscaler.ErrPolicyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, policy)
}

func (h *StatusHandler) AddNodePool(c *gin.Context) {
	var pool models.NodePool
	if err := c.ShouldBindJSON(&pool); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.cp.Autoscaler().AddNodePool(&pool); err != nil {
		if errors.Is(err, autoscaler.ErrPoolExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, pool)
}

func (h *StatusHandler) GetPool(c *gin.Context) {
	pool, ok := h.cp.Autoscaler().GetNodePool(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": autoscaler.ErrPoolNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, pool)
}
