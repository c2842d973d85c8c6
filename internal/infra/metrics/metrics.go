package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_page_fetches_total",
			Help: "Upstream page fetches by outcome",
		},
		[]string{"status"},
	)

	PageFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "news_page_fetch_duration_seconds",
			Help:    "Duration of upstream page fetches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	ArticlesLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pager_articles_loaded_total",
			Help: "Articles merged into session state",
		},
		[]string{"direction"},
	)

	LoadsJoined = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pager_loads_joined_total",
			Help: "Page requests that joined an in-flight fetch instead of issuing a new one",
		},
		[]string{"direction"},
	)

	StaleResponsesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pager_stale_responses_discarded_total",
			Help: "Fetch results dropped because the search term changed while they were in flight",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_sessions_active",
			Help: "Number of open search sessions",
		},
	)

	ArticleViews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "article_views_total",
			Help: "Detail views served, by publish outcome",
		},
		[]string{"status"},
	)

	DLQMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dlq_messages_published_total",
			Help: "Total number of view events published to the DLQ",
		},
	)

	HistorySyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "history_sync_duration_seconds",
			Help:    "Duration of writing a view event into the history store",
			Buckets: prometheus.DefBuckets,
		},
	)

	HistorySyncErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "history_sync_errors_total",
			Help: "Total number of view events that failed to reach the history store",
		},
	)
)
