package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NewsSearch/internal/domain"
	"github.com/NewsSearch/pkg/logging"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const onePage = `{
	"status": "ok",
	"totalResults": 2,
	"articles": [
		{
			"source": {"id": null, "name": "La Tercera"},
			"author": "Redacción",
			"title": "Chile wins",
			"description": "A description",
			"url": "https://example.com/news?id=1&lang=es",
			"urlToImage": "https://example.com/1.jpg",
			"publishedAt": "2024-10-01T12:30:00Z",
			"content": "Body"
		}
	]
}`

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL, "secret", &http.Client{Timeout: 2 * time.Second}, 3, nil)
}

func TestClient_FetchPage_BuildsRequestAndDecodes(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(onePage))
	}))
	defer server.Close()

	client := newTestClient(server.URL + "/")
	resp, err := client.FetchPage(context.Background(), "chile & peru", 2, 20)
	require.NoError(t, err)

	assert.Equal(t, EverythingPath, gotPath)
	assert.Equal(t, []string{"chile & peru"}, gotQuery["q"])
	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"20"}, gotQuery["pageSize"])
	assert.Equal(t, []string{"secret"}, gotQuery["apiKey"])

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.TotalResults)
	require.Len(t, resp.Articles, 1)
	a := resp.Articles[0]
	assert.Equal(t, "Chile wins", a.Title)
	assert.Equal(t, "https://example.com/news?id=1&lang=es", a.URL)
	assert.Equal(t, "https://example.com/1.jpg", a.ImageURL)
	assert.Equal(t, "La Tercera", a.Source.Name)
	assert.Empty(t, a.Source.ID)
	assert.Equal(t, "2024-10-01", a.PublishedDate())
}

func TestClient_FetchPage_RejectsInvalidPage(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchPage(context.Background(), "q", domain.NoKey, 20)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = client.FetchPage(context.Background(), "q", 1, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestClient_FetchPage_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		code     string
	}{
		{
			name:     "http error with api body",
			status:   http.StatusUnauthorized,
			body:     `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid"}`,
			sentinel: domain.ErrAPI,
			code:     "apiKeyInvalid",
		},
		{
			name:     "http error without body",
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			sentinel: domain.ErrAPI,
			code:     "http_502",
		},
		{
			name:     "ok transport but error status",
			status:   http.StatusOK,
			body:     `{"status":"error","code":"maximumResultsReached","message":"limit"}`,
			sentinel: domain.ErrAPI,
			code:     "maximumResultsReached",
		},
		{
			name:     "malformed json",
			status:   http.StatusOK,
			body:     `{"status":"ok","articles":[`,
			sentinel: domain.ErrDecode,
		},
		{
			name:     "unexpected shape",
			status:   http.StatusOK,
			body:     `{"status":"ok","totalResults":"many"}`,
			sentinel: domain.ErrDecode,
		},
		{
			name:     "missing status",
			status:   http.StatusOK,
			body:     `{"articles":[]}`,
			sentinel: domain.ErrDecode,
		},
		{
			name:     "article without url",
			status:   http.StatusOK,
			body:     `{"status":"ok","totalResults":1,"articles":[{"title":"no link"}]}`,
			sentinel: domain.ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).FetchPage(context.Background(), "chile", 3, 20)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var fe *domain.FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "chile", fe.Query)
			assert.Equal(t, domain.PageKey(3), fe.Page)
			if tt.code != "" {
				assert.Equal(t, tt.code, fe.Code)
			}
		})
	}
}

func TestClient_FetchPage_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).FetchPage(context.Background(), "chile", 1, 20)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestClient_FetchPage_EmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":1,"articles":[]}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).FetchPage(context.Background(), "chile", 2, 1)
	require.NoError(t, err)
	assert.Empty(t, resp.Articles)
	assert.NotNil(t, resp.Articles)
}

func TestClient_CircuitBreaker_OpensOnNetworkFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("hijacking not supported")
		}
		conn, _, _ := hj.Hijack()
		_ = conn.Close()
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 3; i++ {
		_, err := client.FetchPage(context.Background(), "chile", 1, 20)
		assert.ErrorIs(t, err, domain.ErrNetwork)
	}

	_, err := client.FetchPage(context.Background(), "chile", 1, 20)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "open breaker must not reach the server")
}

func TestClient_CircuitBreaker_IgnoresAPIErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"slow down"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 5; i++ {
		_, err := client.FetchPage(context.Background(), "chile", 1, 20)
		assert.ErrorIs(t, err, domain.ErrAPI)
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
}

func TestClient_FetchPage_SuccessClearsSampledFailures(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"slow down"}`))
		case 2:
			_, _ = w.Write([]byte(`{"status":"ok","articles":[{"title":`))
		default:
			_, _ = w.Write([]byte(onePage))
		}
	}))
	defer server.Close()

	sampler := logging.NewErrorSampler(10)
	client := NewClient(server.URL, "secret", &http.Client{Timeout: 2 * time.Second}, 3, sampler)

	_, err := client.FetchPage(context.Background(), "chile", 1, 20)
	require.ErrorIs(t, err, domain.ErrAPI)
	_, err = client.FetchPage(context.Background(), "chile", 1, 20)
	require.ErrorIs(t, err, domain.ErrDecode)
	assert.Equal(t, 1, sampler.Count("newsapi_api"))
	assert.Equal(t, 1, sampler.Count("newsapi_decode"))

	_, err = client.FetchPage(context.Background(), "chile", 1, 20)
	require.NoError(t, err)
	assert.Zero(t, sampler.Count("newsapi_api"))
	assert.Zero(t, sampler.Count("newsapi_decode"))
	assert.Zero(t, sampler.Count("newsapi_network"))
}
