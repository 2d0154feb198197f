// Package http 行情数据服务的 HTTP 接口
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/stocksimulator/internal/marketdata/application"
)

// MarketDataHandler 负责处理行情查询请求
type MarketDataHandler struct {
	prices *application.PriceCache
}

func NewMarketDataHandler(prices *application.PriceCache) *MarketDataHandler {
	return &MarketDataHandler{prices: prices}
}

func (h *MarketDataHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/market")
	{
		api.GET("/price", h.GetPrice)
	}
}

// GetPrice 返回标的当前价格（缓存优先，必要时拉取实时行情）
func (h *MarketDataHandler) GetPrice(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol parameter is required"})
		return
	}

	price := h.prices.GetPrice(c.Request.Context(), symbol)
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": price})
}
