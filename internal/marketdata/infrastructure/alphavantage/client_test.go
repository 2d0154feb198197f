package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wyfcoding/stocksimulator/internal/marketdata/domain"
)

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		APIURL:  serverURL,
		APIKey:  "demo",
		Timeout: 2 * time.Second,
	})
}

func TestFetchQuoteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "GLOBAL_QUOTE" {
			t.Errorf("expected function GLOBAL_QUOTE, got %q", got)
		}
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("expected symbol AAPL, got %q", got)
		}
		w.Write([]byte(`{"Global Quote": {"01. symbol": "AAPL", "05. price": "213.8800"}}`))
	}))
	defer server.Close()

	price, err := newTestClient(server.URL).FetchQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if price.String() != "213.88" {
		t.Fatalf("expected 213.88, got %s", price)
	}
}

func TestFetchQuoteFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{
			name: "error message for invalid symbol",
			body: `{"Error Message": "Invalid API call."}`,
			code: http.StatusOK,
		},
		{
			name: "rate limit note",
			body: `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
			code: http.StatusOK,
		},
		{
			name: "empty quote object",
			body: `{"Global Quote": {}}`,
			code: http.StatusOK,
		},
		{
			name: "missing price field",
			body: `{"Global Quote": {"01. symbol": "AAPL"}}`,
			code: http.StatusOK,
		},
		{
			name: "unparseable price",
			body: `{"Global Quote": {"05. price": "not-a-number"}}`,
			code: http.StatusOK,
		},
		{
			name: "malformed json",
			body: `{"Global Quote": `,
			code: http.StatusOK,
		},
		{
			name: "http error status",
			body: ``,
			code: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).FetchQuote(context.Background(), "AAPL")
			if !errors.Is(err, domain.ErrQuoteUnavailable) {
				t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
			}
		})
	}
}

func TestFetchQuoteDelayHonorsContext(t *testing.T) {
	client := NewClient(Config{
		APIURL: "http://127.0.0.1:0",
		APIKey: "demo",
		Delay:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.FetchQuote(ctx, "AAPL")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if time.Since(start) > time.Second {
		t.Fatal("fetch must abort as soon as the context is done")
	}
}

func TestFetchQuoteServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).FetchQuote(context.Background(), "AAPL")
	if !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}
