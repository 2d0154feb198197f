// Package alphavantage Alpha Vantage GLOBAL_QUOTE 行情客户端
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/stocksimulator/internal/marketdata/domain"
)

// Config 客户端配置
type Config struct {
	// APIURL 接口地址，如 https://www.alphavantage.co/query
	APIURL string
	// APIKey 接口密钥
	APIKey string
	// Timeout 单次请求超时
	Timeout time.Duration
	// Delay 请求前固定延迟，规避免费档限流
	Delay time.Duration
}

// Client 实现 domain.QuoteSource
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	delay      time.Duration
}

// NewClient 创建行情客户端
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		delay:      cfg.Delay,
	}
}

// globalQuoteResponse GLOBAL_QUOTE 响应。
// 限流与非法标的不会返回 HTTP 错误码，而是在 body 中带 Note / Error Message 字段。
type globalQuoteResponse struct {
	ErrorMessage string            `json:"Error Message"`
	Note         string            `json:"Note"`
	GlobalQuote  map[string]string `json:"Global Quote"`
}

// FetchQuote 拉取标的最新价格
func (c *Client) FetchQuote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		}
	}

	endpoint := fmt.Sprintf("%s?function=GLOBAL_QUOTE&symbol=%s&apikey=%s",
		c.apiURL, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrQuoteUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: unexpected status %d", domain.ErrQuoteUnavailable, resp.StatusCode)
	}

	var body globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed response: %v", domain.ErrQuoteUnavailable, err)
	}

	if body.ErrorMessage != "" {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrQuoteUnavailable, body.ErrorMessage)
	}
	if body.Note != "" {
		// 限流提示
		return decimal.Zero, fmt.Errorf("%w: rate limited: %s", domain.ErrQuoteUnavailable, body.Note)
	}

	priceStr, ok := body.GlobalQuote["05. price"]
	if !ok || priceStr == "" {
		return decimal.Zero, fmt.Errorf("%w: no price for %s", domain.ErrQuoteUnavailable, symbol)
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid price %q: %v", domain.ErrQuoteUnavailable, priceStr, err)
	}
	return price, nil
}
