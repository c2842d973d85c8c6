package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/NewsSearch/internal/domain"
	"github.com/NewsSearch/internal/infra/metrics"
	"github.com/NewsSearch/internal/pager"
	"github.com/NewsSearch/internal/route"
	"github.com/NewsSearch/internal/session"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrSessionNotFound = errors.New("search session not found")
	ErrArticleNotFound = errors.New("article not found in session")
	ErrEmptyQuery      = errors.New("search term is empty")
	ErrInvalidRoute    = errors.New("invalid article route")
)

// DefaultPublishTimeout caps how long a detail request waits on the broker.
const DefaultPublishTimeout = 2 * time.Second

// Snapshot is the read model of one search session.
type Snapshot struct {
	ID           string           `json:"id"`
	Query        string           `json:"query"`
	State        pager.State      `json:"state"`
	Generation   uint64           `json:"generation"`
	PrevPage     domain.PageKey   `json:"prev_page,omitempty"`
	NextPage     domain.PageKey   `json:"next_page,omitempty"`
	TotalResults int              `json:"total_results"`
	Error        string           `json:"error,omitempty"`
	Articles     []domain.Article `json:"articles"`
}

type searchSession struct {
	id      string
	store   *session.Store
	pager   *pager.Pager
	created time.Time
}

// SearchService owns the open search sessions. Each session has its own
// Store and Pager; the service only routes calls to them and records history.
type SearchService struct {
	client   domain.NewsClient
	searches domain.SearchWriter
	events   domain.EventProducer
	pageSize int
	now      func() time.Time

	// publishTimeout bounds the view event publish on the detail request.
	publishTimeout time.Duration

	mu       sync.RWMutex
	sessions map[string]*searchSession
}

func NewSearchService(
	client domain.NewsClient,
	searches domain.SearchWriter,
	events domain.EventProducer,
	pageSize int,
) *SearchService {
	return &SearchService{
		client:   client,
		searches: searches,
		events:   events,
		pageSize: pageSize,
		now:      time.Now,
		sessions: make(map[string]*searchSession),

		publishTimeout: DefaultPublishTimeout,
	}
}

func (s *SearchService) CreateSession() (string, error) {
	store := session.NewStore()
	p, err := pager.New(s.client, store, s.pageSize)
	if err != nil {
		return "", fmt.Errorf("create pager: %w", err)
	}

	sess := &searchSession{
		id:      uuid.NewString(),
		store:   store,
		pager:   p,
		created: s.now(),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	metrics.SessionsActive.Inc()
	slog.Info("Search session created", "session_id", sess.id)
	return sess.id, nil
}

func (s *SearchService) CloseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	sess.pager.Close()
	metrics.SessionsActive.Dec()
	slog.Info("Search session closed", "session_id", id, "age", time.Since(sess.created))
	return nil
}

// Close releases every open session.
func (s *SearchService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*searchSession)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.pager.Close()
		metrics.SessionsActive.Dec()
	}
}

// Search switches the session to query and loads its first page. The first
// page is recorded in the search history; history failures are only logged.
func (s *SearchService) Search(ctx context.Context, id, query string) (*Snapshot, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	tr := otel.Tracer("search-service")
	ctx, span := tr.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query), attribute.String("session_id", id))

	sess.pager.SetQuery(query)
	page, err := sess.pager.Load(ctx, pager.Forward)
	if err != nil {
		span.RecordError(err)
		return s.snapshot(sess), err
	}

	s.recordSearch(ctx, sess.id, query, page.TotalResults)
	return s.snapshot(sess), nil
}

func (s *SearchService) Load(ctx context.Context, id string, dir pager.Direction) (*Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if _, err := sess.pager.Load(ctx, dir); err != nil {
		return s.snapshot(sess), err
	}
	return s.snapshot(sess), nil
}

func (s *SearchService) Retry(ctx context.Context, id string) (*Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if _, err := sess.pager.Retry(ctx); err != nil {
		return s.snapshot(sess), err
	}
	return s.snapshot(sess), nil
}

func (s *SearchService) Refresh(ctx context.Context, id string, anchor int) (*Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if _, err := sess.pager.Refresh(ctx, anchor); err != nil {
		return s.snapshot(sess), err
	}
	return s.snapshot(sess), nil
}

func (s *SearchService) Snapshot(id string) (*Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(sess), nil
}

// Article resolves the encoded detail route segment against the session's
// loaded articles and publishes a view event for it.
func (s *SearchService) Article(ctx context.Context, id, encodedURL string) (*domain.Article, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	articleURL, err := route.DecodeArticleURL(encodedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoute, err)
	}

	article, ok := sess.store.LookupByURL(articleURL)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrArticleNotFound, articleURL)
	}

	s.publishView(ctx, sess, article)
	return &article, nil
}

func (s *SearchService) get(id string) (*searchSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *SearchService) snapshot(sess *searchSession) *Snapshot {
	v := sess.pager.View()
	snap := &Snapshot{
		ID:           sess.id,
		Query:        v.Query,
		State:        v.State,
		Generation:   v.Generation,
		PrevPage:     v.Prev,
		NextPage:     v.Next,
		TotalResults: v.TotalResults,
		Articles:     v.Articles,
	}
	if v.Err != nil {
		snap.Error = v.Err.Error()
	}
	return snap
}

func (s *SearchService) recordSearch(ctx context.Context, id, query string, total int) {
	if s.searches == nil {
		return
	}
	record := domain.SearchRecord{
		SessionID:    id,
		Query:        query,
		TotalResults: total,
		SearchedAt:   s.now().UTC(),
	}
	if err := s.searches.RecordSearch(ctx, record); err != nil {
		slog.Error("Failed to record search", "session_id", id, "query", query, "error", err)
	}
}

func (s *SearchService) publishView(ctx context.Context, sess *searchSession, article domain.Article) {
	if s.events == nil {
		metrics.ArticleViews.WithLabelValues("unpublished").Inc()
		return
	}

	event := &domain.ArticleViewed{
		SessionID: sess.id,
		Query:     sess.store.Query(),
		Article:   article,
		ViewedAt:  s.now().UTC(),
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	if err := s.events.Publish(ctx, event); err != nil {
		// The detail view is still served; only the history misses it.
		slog.Error("Error publishing view event", "url", article.URL, "error", err)
		metrics.ArticleViews.WithLabelValues("publish_error").Inc()
		return
	}
	metrics.ArticleViews.WithLabelValues("published").Inc()
}
