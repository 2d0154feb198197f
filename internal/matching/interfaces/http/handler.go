// Package http 撮合服务的 HTTP 接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/stocksimulator/internal/matching/application"
	"github.com/wyfcoding/stocksimulator/internal/matching/domain"
	portfoliodomain "github.com/wyfcoding/stocksimulator/internal/portfolio/domain"
	"github.com/wyfcoding/stocksimulator/pkg/logger"
)

// OrderHandler 负责处理订单提交与订单簿查询请求
type OrderHandler struct {
	service *application.MatchingService
}

func NewOrderHandler(service *application.MatchingService) *OrderHandler {
	return &OrderHandler{service: service}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/orders")
	{
		api.POST("", h.SubmitOrder)
		api.GET("/book", h.GetOrderBook)
	}
}

// SubmitOrder 提交订单进行撮合。
// 订单校验失败返回 400 且不触碰订单簿；撮合成功但下游落地部分失败时，
// 仍返回撮合结果并附带错误信息（订单簿与成交为事实来源）。
func (h *OrderHandler) SubmitOrder(c *gin.Context) {
	var cmd application.SubmitOrderCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.SubmitOrder(c.Request.Context(), &cmd)
	switch {
	case errors.Is(err, domain.ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil && result == nil:
		logger.Error(c.Request.Context(), "order submission failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case err != nil:
		logger.Error(c.Request.Context(), "trade persistence failed after match", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, portfoliodomain.ErrPortfolioNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"result": result, "error": err.Error()})
	default:
		c.JSON(http.StatusOK, result)
	}
}

// GetOrderBook 获取订单簿快照
func (h *OrderHandler) GetOrderBook(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol parameter is required"})
		return
	}

	depth, err := strconv.Atoi(c.DefaultQuery("depth", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid depth parameter"})
		return
	}

	c.JSON(http.StatusOK, h.service.OrderBook(symbol, depth))
}
