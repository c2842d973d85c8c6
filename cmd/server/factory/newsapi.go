package factory

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/NewsSearch/internal/domain"
	"github.com/NewsSearch/internal/infra/newsapi"
	"github.com/NewsSearch/pkg/config"
	"github.com/NewsSearch/pkg/logging"
)

// NewNewsClient creates the search API client.
func NewNewsClient(cfg *config.Config) (domain.NewsClient, error) {
	if cfg.NewsAPIBaseURL == "" {
		return nil, errors.New("news API base URL not configured")
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP timeout: %s", cfg.HTTPTimeout)
	}
	if cfg.BreakerFailures < 1 {
		return nil, fmt.Errorf("invalid breaker failure threshold: %d (must be >= 1)", cfg.BreakerFailures)
	}

	return newsapi.NewClient(
		cfg.NewsAPIBaseURL,
		cfg.NewsAPIKey,
		&http.Client{Timeout: cfg.HTTPTimeout},
		uint32(cfg.BreakerFailures),
		logging.NewErrorSampler(cfg.LogSampleInterval),
	), nil
}
