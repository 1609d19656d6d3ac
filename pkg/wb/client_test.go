package wb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ilkoid/restock-bot/pkg/config"
)

// mockHTTP отдаёт заранее подготовленные ответы и копит запросы.
type mockHTTP struct {
	handlers []func(req *http.Request) (*http.Response, error)
	requests []*http.Request
}

func (m *mockHTTP) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	if len(m.handlers) == 0 {
		return nil, errors.New("mock: no more handlers")
	}
	h := m.handlers[0]
	m.handlers = m.handlers[1:]
	return h(req)
}

func jsonResponse(status int, v interface{}) func(*http.Request) (*http.Response, error) {
	body, _ := json.Marshal(v)
	return func(_ *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{},
			Body:       io.NopCloser(bytes.NewReader(body)),
		}, nil
	}
}

func netError(err error) func(*http.Request) (*http.Response, error) {
	return func(_ *http.Request) (*http.Response, error) { return nil, err }
}

func testClient(t *testing.T, mock *mockHTTP) *Client {
	t.Helper()
	// Высокий лимит, чтобы лимитер не тормозил тесты
	c, err := NewFromConfig(config.WBConfig{RateLimit: 60000, BurstLimit: 100, RetryAttempts: 3}, "test-key")
	require.NoError(t, err)
	c.SetHTTPClient(mock)
	c.retryDelay = 0 // тесты не ждут паузу между повторами
	return c
}

func TestNewFromConfigRequiresKey(t *testing.T) {
	_, err := NewFromConfig(config.WBConfig{}, "")
	require.Error(t, err)
}

func TestPingSetsAuthHeader(t *testing.T) {
	mock := &mockHTTP{handlers: []func(*http.Request) (*http.Response, error){
		jsonResponse(200, PingResponse{Status: "OK", TS: "2026-01-01T00:00:00Z"}),
	}}
	c := testClient(t, mock)

	resp, err := c.Ping(context.Background())
	require.NoError(t, err)
	require.Equal(t, "OK", resp.Status)
	require.Equal(t, "test-key", mock.requests[0].Header.Get("Authorization"))
}

func TestRetryOnNetworkError(t *testing.T) {
	mock := &mockHTTP{handlers: []func(*http.Request) (*http.Response, error){
		netError(errors.New("connection refused")),
		netError(errors.New("connection refused")),
		jsonResponse(200, APIResponse[[]ParentCategory]{Data: []ParentCategory{{ID: 1, Name: "Одежда"}}}),
	}}
	c := testClient(t, mock)

	cats, err := c.GetParentCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Len(t, mock.requests, 3)
}

func TestRetryBackoffOnNetworkError(t *testing.T) {
	mock := &mockHTTP{handlers: []func(*http.Request) (*http.Response, error){
		netError(errors.New("connection refused")),
		netError(errors.New("connection refused")),
		jsonResponse(200, APIResponse[[]ParentCategory]{Data: []ParentCategory{{ID: 1, Name: "Одежда"}}}),
	}}
	c := testClient(t, mock)
	c.retryDelay = 20 * time.Millisecond

	start := time.Now()
	_, err := c.GetParentCategories(context.Background())
	require.NoError(t, err)
	// Пауза перед вторым и перед третьим запросом
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRetriesExhausted(t *testing.T) {
	mock := &mockHTTP{handlers: []func(*http.Request) (*http.Response, error){
		netError(errors.New("connection refused")),
		netError(errors.New("connection refused")),
		netError(errors.New("connection refused")),
	}}
	c := testClient(t, mock)

	_, err := c.GetParentCategories(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "max retries exceeded")
}

func TestRateLimitRetryHeader(t *testing.T) {
	first := func(_ *http.Request) (*http.Response, error) {
		h := http.Header{}
		h.Set("X-Ratelimit-Retry", "0")
		return &http.Response{
			StatusCode: http.StatusTooManyRequests,
			Header:     h,
			Body:       io.NopCloser(bytes.NewReader(nil)),
		}, nil
	}
	mock := &mockHTTP{handlers: []func(*http.Request) (*http.Response, error){
		first,
		jsonResponse(200, APIResponse[[]ParentCategory]{}),
	}}
	c := testClient(t, mock)

	_, err := c.GetParentCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, mock.requests, 2)
}

func TestAuthErrorNotRetried(t *testing.T) {
	mock := &mockHTTP{handlers: []func(*http.Request) (*http.Response, error){
		jsonResponse(401, map[string]string{"title": "unauthorized"}),
	}}
	c := testClient(t, mock)

	_, err := c.GetParentCategories(context.Background())
	require.Error(t, err)
	require.Len(t, mock.requests, 1)
	require.Equal(t, ErrAuthFailed, ClassifyError(err))
}

func TestLogicErrorSurfaced(t *testing.T) {
	mock := &mockHTTP{handlers: []func(*http.Request) (*http.Response, error){
		jsonResponse(200, APIResponse[[]Subject]{Error: true, ErrorText: "что-то пошло не так"}),
	}}
	c := testClient(t, mock)

	_, err := c.FetchSubjectsPage(context.Background(), 0, 10, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "что-то пошло не так")
}

func TestAllCardsPagination(t *testing.T) {
	firstPage := CardsListResponse{
		Cursor: &CardsCursorResponse{UpdatedAt: "2026-01-01", NmID: 100},
	}
	for i := 0; i < 100; i++ {
		firstPage.Cards = append(firstPage.Cards, ProductCard{NmID: i + 1, VendorCode: fmt.Sprintf("A-%d", i+1)})
	}
	secondPage := CardsListResponse{
		Cards: []ProductCard{{NmID: 101, VendorCode: "A-101"}},
	}

	mock := &mockHTTP{handlers: []func(*http.Request) (*http.Response, error){
		jsonResponse(200, firstPage),
		jsonResponse(200, secondPage),
	}}
	c := testClient(t, mock)

	cards, err := c.AllCards(context.Background())
	require.NoError(t, err)
	require.Len(t, cards, 101)
	require.Len(t, mock.requests, 2)

	// Вторая страница уходит с курсором первой
	var req CardsListRequest
	body, err := io.ReadAll(mock.requests[1].Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &req))
	require.Equal(t, "2026-01-01", req.Settings.Cursor.UpdatedAt)
	require.Equal(t, 100, req.Settings.Cursor.NmID)
}

func TestSupplierStocksDateFrom(t *testing.T) {
	mock := &mockHTTP{handlers: []func(*http.Request) (*http.Response, error){
		jsonResponse(200, []StockRow{{SupplierArticle: "BS-1", Quantity: 5}}),
	}}
	c := testClient(t, mock)

	rows, err := c.SupplierStocks(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "2019-06-20", mock.requests[0].URL.Query().Get("dateFrom"))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{errors.New("status 401 unauthorized"), ErrAuthFailed},
		{errors.New("context deadline exceeded"), ErrTimeout},
		{errors.New("dial tcp: connection refused"), ErrNetwork},
		{errors.New("status 429 Too Many Requests"), ErrRateLimit},
		{errors.New("что-то странное"), ErrUnknown},
		{nil, ErrUnknown},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ClassifyError(tt.err))
	}
}
