// Package wb предоставляет клиент для Wildberries API.
//
// Клиент закрывает два сервиса WB:
//   - Content API (карточки товаров, предметы, характеристики)
//   - Statistics API (остатки на складах WB)
//
// Это SDK, а не "тупой" HTTP клиент: внутри retry, rate limiting на
// каждый endpoint, обработка 429 и разбор обёртки APIResponse[T].
// Один клиент = один кабинет (у каждого кабинета свой API ключ).
package wb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ilkoid/restock-bot/pkg/config"
)

// ErrorType представляет тип ошибки при работе с WB API.
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrAuthFailed
	ErrTimeout
	ErrNetwork
	ErrRateLimit
)

// String возвращает строковое представление типа ошибки.
func (e ErrorType) String() string {
	switch e {
	case ErrAuthFailed:
		return "authentication_failed"
	case ErrTimeout:
		return "timeout"
	case ErrNetwork:
		return "network_error"
	case ErrRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

// HumanMessage возвращает человекочитаемое сообщение для типа ошибки.
func (e ErrorType) HumanMessage() string {
	switch e {
	case ErrAuthFailed:
		return "API ключ кабинета WB недействителен или отсутствует. Проверьте api_key в конфигурации."
	case ErrTimeout:
		return "Превышено время ожидания. Сервер WB не отвечает или проблемы с сетью."
	case ErrNetwork:
		return "Сервер WB недоступен. Проверьте подключение к интернету."
	case ErrRateLimit:
		return "Превышен лимит запросов к WB. Подождите перед следующей попыткой."
	default:
		return "Неизвестная ошибка при подключении к WB API."
	}
}

// ClassifyError классифицирует ошибку по типу для лучшей диагностики.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}

	errMsg := err.Error()
	errMsgLower := strings.ToLower(errMsg)

	if strings.Contains(errMsg, "401") ||
		strings.Contains(errMsgLower, "unauthorized") ||
		strings.Contains(errMsg, "Forbidden") {
		return ErrAuthFailed
	}

	if strings.Contains(errMsgLower, "timeout") ||
		strings.Contains(errMsg, "deadline exceeded") {
		return ErrTimeout
	}

	if strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no such host") {
		return ErrNetwork
	}

	if strings.Contains(errMsg, "429") ||
		strings.Contains(errMsg, "Too Many Requests") {
		return ErrRateLimit
	}

	return ErrUnknown
}

// HTTPClient интерфейс для выполнения HTTP запросов.
//
// Позволяет мокировать HTTP клиент в тестах.
// Стандартный *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client — клиент одного кабинета Wildberries.
type Client struct {
	apiKey        string
	contentURL    string
	statisticsURL string
	retryAttempts int
	retryDelay    time.Duration // пауза между попытками после сетевого сбоя
	rateLimit     int           // запросов в минуту
	burst         int
	httpClient    HTTPClient

	mu       sync.Mutex
	limiters map[string]*rate.Limiter // endpoint → limiter
}

// NewFromConfig создает клиент кабинета из конфигурации.
//
// apiKey — ключ конкретного кабинета (config.Cabinet.APIKey).
func NewFromConfig(cfg config.WBConfig, apiKey string) (*Client, error) {
	cfg = cfg.GetDefaults()

	if apiKey == "" {
		return nil, fmt.Errorf("wb api key is required")
	}

	timeout := config.ParseTimeout(cfg.Timeout, 30*time.Second)

	return &Client{
		apiKey:        apiKey,
		contentURL:    cfg.ContentURL,
		statisticsURL: cfg.StatisticsURL,
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

// getOrCreateLimiter возвращает limiter для endpoint или создаёт новый.
func (c *Client) getOrCreateLimiter(endpoint string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if limiter, exists := c.limiters[endpoint]; exists {
		return limiter
	}

	// rateLimit в запросах/минуту → rate.Limit в запросах/секунду
	ratePerSec := float64(c.rateLimit) / 60.0
	limiter := rate.NewLimiter(rate.Limit(ratePerSec), c.burst)
	c.limiters[endpoint] = limiter

	return limiter
}

// httpRequest описывает параметры HTTP запроса.
type httpRequest struct {
	method string
	url    string
	body   []byte
}

// doRequest выполняет HTTP запрос с retry логикой и rate limiting.
//
// Общий метод для get() и post(): retry loop, ожидание лимитера,
// обработка 429 (заголовок X-Ratelimit-Retry) и unmarshal в dest.
func (c *Client) doRequest(ctx context.Context, endpoint string, req httpRequest, dest interface{}) error {
	limiter := c.getOrCreateLimiter(endpoint)

	var lastErr error

	for i := 0; i < c.retryAttempts; i++ {
		// Ждем разрешения от лимитера (блокирует, если превысили лимит)
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		var bodyReader io.Reader
		if req.body != nil {
			bodyReader = strings.NewReader(string(req.body))
		}

		httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, bodyReader)
		if err != nil {
			return err
		}

		httpReq.Header.Set("Authorization", c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")

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

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		// Обработка 429 (Too Many Requests)
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := 1 * time.Second
			if s := resp.Header.Get("X-Ratelimit-Retry"); s != "" {
				if sec, err := strconv.Atoi(s); err == nil {
					retryAfter = time.Duration(sec) * time.Second
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter):
				continue
			}
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("wb api error: status %d, body: %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal error: %w", err)
		}

		return nil // Успех
	}

	return fmt.Errorf("max retries exceeded, last error: %v", lastErr)
}

// get выполняет GET запрос к указанному сервису WB.
func (c *Client) get(ctx context.Context, baseURL, path string, params url.Values, dest interface{}) error {
	u, err := url.Parse(baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	return c.doRequest(ctx, path, httpRequest{
		method: http.MethodGet,
		url:    u.String(),
	}, dest)
}

// post выполняет POST запрос к указанному сервису WB.
func (c *Client) post(ctx context.Context, baseURL, path string, body interface{}, dest interface{}) error {
	u, err := url.Parse(baseURL + path)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	return c.doRequest(ctx, path, httpRequest{
		method: http.MethodPost,
		url:    u.String(),
		body:   bodyJSON,
	}, dest)
}

// PingResponse представляет ответ от ping endpoint Content API.
type PingResponse struct {
	Status string `json:"Status"`
	TS     string `json:"TS"`
}

// Ping проверяет связь с Content API и валидность ключа кабинета.
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	var resp PingResponse

	// Ping возвращает простой JSON без обертки APIResponse[T]
	if err := c.get(ctx, c.contentURL, "/ping", nil, &resp); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	if resp.Status != "OK" {
		return nil, fmt.Errorf("ping status not OK: %s", resp.Status)
	}

	return &resp, nil
}
