// Package ozon предоставляет клиент для Ozon Seller API.
//
// Устроен так же, как pkg/wb: retry, rate limiting на endpoint,
// bounded timeout. Отличия продиктованы самим API: все методы POST,
// авторизация двумя заголовками Client-Id и Api-Key, ошибки приходят
// телом {code, message} с не-200 статусом.
// Один клиент = один кабинет.
package ozon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ilkoid/restock-bot/pkg/config"
)

// HTTPClient интерфейс для выполнения HTTP запросов.
// Стандартный *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client — клиент одного кабинета Ozon.
type Client struct {
	clientID      string
	apiKey        string
	baseURL       string
	retryAttempts int
	retryDelay    time.Duration // пауза между попытками после сетевого сбоя
	rateLimit     int
	burst         int
	httpClient    HTTPClient

	mu       sync.Mutex
	limiters map[string]*rate.Limiter // endpoint → limiter
}

// NewFromConfig создает клиент кабинета из конфигурации.
func NewFromConfig(cfg config.OzonConfig, clientID, apiKey string) (*Client, error) {
	cfg = cfg.GetDefaults()

	if clientID == "" || apiKey == "" {
		return nil, fmt.Errorf("ozon client_id and api_key are required")
	}

	timeout := config.ParseTimeout(cfg.Timeout, 30*time.Second)

	return &Client{
		clientID:      clientID,
		apiKey:        apiKey,
		baseURL:       cfg.BaseURL,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    1 * time.Second,
		rateLimit:     cfg.RateLimit,
		burst:         cfg.BurstLimit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// SetHTTPClient подменяет HTTP клиент (для тестов).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

func (c *Client) getOrCreateLimiter(endpoint string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limiter, exists := c.limiters[endpoint]; exists {
		return limiter
	}

	ratePerSec := float64(c.rateLimit) / 60.0
	limiter := rate.NewLimiter(rate.Limit(ratePerSec), c.burst)
	c.limiters[endpoint] = limiter

	return limiter
}

// apiError — тело ошибки Ozon Seller API.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// post выполняет POST запрос с retry логикой и rate limiting.
func (c *Client) post(ctx context.Context, path string, body interface{}, dest interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	limiter := c.getOrCreateLimiter(path)

	var lastErr error

	for i := 0; i < c.retryAttempts; i++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(string(bodyJSON)))
		if err != nil {
			return err
		}

		httpReq.Header.Set("Client-Id", c.clientID)
		httpReq.Header.Set("Api-Key", c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			// Сетевая ошибка: пауза перед повтором
			if i < c.retryAttempts-1 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.retryDelay):
				}
			}
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(1 * time.Second):
				continue
			}
		}

		if resp.StatusCode != http.StatusOK {
			// Пытаемся достать message из тела ошибки
			var apiErr apiError
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
				return fmt.Errorf("ozon api error: status %d, code %d: %s", resp.StatusCode, apiErr.Code, apiErr.Message)
			}
			return fmt.Errorf("ozon api error: status %d, body: %s", resp.StatusCode, string(respBody))
		}

		if err := json.Unmarshal(respBody, dest); err != nil {
			return fmt.Errorf("unmarshal error: %w", err)
		}

		return nil // Успех
	}

	return fmt.Errorf("max retries exceeded, last error: %v", lastErr)
}
