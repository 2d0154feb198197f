// Package http 投资组合服务的 HTTP 接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/stocksimulator/internal/portfolio/application"
	"github.com/wyfcoding/stocksimulator/internal/portfolio/domain"
	"github.com/wyfcoding/stocksimulator/pkg/logger"
)

// PortfolioHandler 负责处理组合相关 HTTP 请求
type PortfolioHandler struct {
	service *application.PortfolioService
}

func NewPortfolioHandler(service *application.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{service: service}
}

func (h *PortfolioHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/portfolios")
	{
		api.POST("", h.CreateOrFetch)
		api.GET("/:id", h.Get)
		api.GET("/:id/transactions", h.Transactions)
		api.GET("/:id/value", h.CurrentValue)
		api.GET("/:id/value-history", h.ValueHistory)
	}
}

type createPortfolioRequest struct {
	UserID uint64 `json:"user_id" binding:"required"`
	Name   string `json:"name"`
}

// CreateOrFetch 为用户创建组合；已存在时返回既有组合
func (h *PortfolioHandler) CreateOrFetch(c *gin.Context) {
	var req createPortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	portfolio, err := h.service.CreateOrFetch(c.Request.Context(), req.UserID, req.Name)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to create portfolio", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

// Get 查询组合
func (h *PortfolioHandler) Get(c *gin.Context) {
	id, ok := h.portfolioID(c)
	if !ok {
		return
	}

	portfolio, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, portfolio)
}

// Transactions 查询组合成交流水
func (h *PortfolioHandler) Transactions(c *gin.Context) {
	id, ok := h.portfolioID(c)
	if !ok {
		return
	}

	txns, err := h.service.Transactions(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

// CurrentValue 查询组合当前市值
func (h *PortfolioHandler) CurrentValue(c *gin.Context) {
	id, ok := h.portfolioID(c)
	if !ok {
		return
	}

	value, err := h.service.CurrentValue(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolio_id": id, "total_value": value})
}

// ValueHistory 查询组合估值曲线
func (h *PortfolioHandler) ValueHistory(c *gin.Context) {
	id, ok := h.portfolioID(c)
	if !ok {
		return
	}

	points, err := h.service.ValueHistory(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (h *PortfolioHandler) portfolioID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid portfolio id"})
		return 0, false
	}
	return id, true
}

func (h *PortfolioHandler) renderError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrPortfolioNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	logger.Error(c.Request.Context(), "portfolio request failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
