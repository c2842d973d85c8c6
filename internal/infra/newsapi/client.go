package newsapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/NewsSearch/internal/domain"
	"github.com/NewsSearch/internal/infra/metrics"
	"github.com/NewsSearch/pkg/logging"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// EverythingPath is the search endpoint, relative to the base URL.
const EverythingPath = "/v2/everything"

// Client fetches search result pages from a NewsAPI compatible service.
// Every call is exactly one GET; failures are classified but never retried.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
	sampler *logging.ErrorSampler
}

var _ domain.NewsClient = (*Client)(nil)

func NewClient(baseURL, apiKey string, httpClient *http.Client, breakerFailures uint32, sampler *logging.ErrorSampler) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if breakerFailures == 0 {
		breakerFailures = 3
	}
	if sampler == nil {
		sampler = logging.NewErrorSampler(10)
	}

	cbSettings := gobreaker.Settings{
		Name:        "newsapi",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		// Only transport trouble says anything about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrNetwork) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("CircuitBreaker state changed", "name", name, "from", from, "to", to)
		},
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  httpClient,
		cb:      gobreaker.NewCircuitBreaker(cbSettings),
		sampler: sampler,
	}
}

// FetchPage performs GET {baseURL}/v2/everything?q=&page=&pageSize=&apiKey=.
// Errors are *domain.FetchError and match domain.ErrNetwork, ErrDecode or ErrAPI.
func (c *Client) FetchPage(ctx context.Context, query string, page domain.PageKey, pageSize int) (*domain.SearchResponse, error) {
	if !page.Valid() || pageSize < 1 {
		return nil, fmt.Errorf("%w: page=%d pageSize=%d", domain.ErrInvalidRequest, page, pageSize)
	}

	tr := otel.Tracer("newsapi")
	ctx, span := tr.Start(ctx, "newsapi.FetchPage")
	defer span.End()
	span.SetAttributes(
		attribute.String("query", query),
		attribute.Int("page", int(page)),
		attribute.Int("page_size", pageSize),
	)

	start := time.Now()
	resp, err := c.fetch(ctx, query, page, pageSize)
	status := "ok"
	if err != nil {
		status = domain.KindOf(err).String()
	}
	metrics.PageFetches.WithLabelValues(status).Inc()
	metrics.PageFetchDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		c.sampler.Warn("newsapi_"+status, "Page fetch failed", "query", query, "page", page, "error", err)
		return nil, err
	}

	for _, kind := range []domain.ErrorKind{domain.KindNetwork, domain.KindDecode, domain.KindAPI} {
		c.sampler.Clear("newsapi_" + kind.String())
	}
	span.SetAttributes(attribute.Int("articles", len(resp.Articles)))
	slog.Debug("Fetched page", "query", query, "page", page, "articles_on_page", len(resp.Articles), "total_results", resp.TotalResults)
	return resp, nil
}

func (c *Client) fetch(ctx context.Context, query string, page domain.PageKey, pageSize int) (*domain.SearchResponse, error) {
	reqURL, err := c.buildURL(query, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if reqErr != nil {
			return nil, &domain.FetchError{Kind: domain.KindNetwork, Err: reqErr}
		}
		req.Header.Set("Accept", "application/json")

		resp, respErr := c.client.Do(req)
		if respErr != nil {
			return nil, &domain.FetchError{Kind: domain.KindNetwork, Err: respErr}
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				slog.Warn("Failed to close response body", "error", err)
			}
		}()

		return decodeResponse(resp.StatusCode, resp.Body)
	})
	if err != nil {
		var fe *domain.FetchError
		if !errors.As(err, &fe) {
			// Open or half-open breaker refusing the call.
			fe = &domain.FetchError{Kind: domain.KindNetwork, Err: err}
		}
		fe.Query = query
		fe.Page = page
		return nil, fe
	}

	return out.(*domain.SearchResponse), nil
}

func (c *Client) buildURL(query string, page domain.PageKey, pageSize int) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + EverythingPath

	q := u.Query()
	q.Set("q", query)
	q.Set("page", strconv.Itoa(int(page)))
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
