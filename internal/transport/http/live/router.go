package livehttp

import (
	"net/http"
	"strconv"

	"zion/internal/agent/engine"
	"zion/internal/gateway/exchange"
	"zion/internal/store"

	"github.com/gin-gonic/gin"
)

const maxCycleQueryLimit = 200

// Router 暴露周期状态与审计查询接口。
type Router struct {
	Asset   string
	Engine  *engine.CycleEngine
	Journal store.Journal
	Exch    exchange.Service
}

// NewRouter 构造 live HTTP router。
func NewRouter(asset string, eng *engine.CycleEngine, journal store.Journal, exch exchange.Service) *Router {
	return &Router{Asset: asset, Engine: eng, Journal: journal, Exch: exch}
}

// Register 将 /api/live 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/cycles", r.handleCycles)
	group.GET("/cycles/:id", r.handleCycleByID)
	group.GET("/position", r.handlePosition)
	group.GET("/metrics", r.handleMetrics)
}

func (r *Router) handleStatus(c *gin.Context) {
	resp := gin.H{
		"asset":   r.Asset,
		"running": false,
	}
	if r.Engine != nil {
		resp["running"] = r.Engine.Running()
		if last := r.Engine.LastResult(); last != nil {
			resp["last_cycle"] = last
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleCycles(c *gin.Context) {
	if r.Journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal unavailable"})
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxCycleQueryLimit {
		limit = maxCycleQueryLimit
	}
	cycles, err := r.Journal.RecentCycles(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cycles": cycles})
}

func (r *Router) handleCycleByID(c *gin.Context) {
	if r.Journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal unavailable"})
		return
	}
	id := c.Param("id")
	rec, err := r.Journal.CycleByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cycle not found"})
		return
	}
	orders, err := r.Journal.OrdersByCycle(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cycle": rec, "orders": orders})
}

func (r *Router) handlePosition(c *gin.Context) {
	if r.Exch == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "exchange unavailable"})
		return
	}
	pos, err := r.Exch.GetPosition(c.Request.Context(), r.Asset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if pos == nil {
		c.JSON(http.StatusOK, gin.H{"asset": r.Asset, "flat": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": r.Asset, "flat": false, "position": pos})
}

func (r *Router) handleMetrics(c *gin.Context) {
	if r.Exch == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "exchange unavailable"})
		return
	}
	metrics, err := r.Exch.GetMetrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, metrics)
}
