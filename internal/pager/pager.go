// Package pager turns the page-based search API into a lazily growing list.
//
// A Pager owns the page keys and the in-flight fetches of one search
// session and is the only writer of that session's Store. Each fetch runs
// as its own future; callers that ask for a page already being fetched in
// the same direction join it instead of issuing a second request. Changing
// the search term cancels outstanding fetches and discards whatever they
// return afterwards.
package pager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/NewsSearch/internal/domain"
	"github.com/NewsSearch/internal/infra/metrics"
	"github.com/NewsSearch/internal/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoQuery        = errors.New("pager: no search term set")
	ErrEndOfPages     = errors.New("pager: no page in that direction")
	ErrRetryRequired  = errors.New("pager: last load in that direction failed, retry required")
	ErrNothingToRetry = errors.New("pager: no failed load to retry")
	ErrStaleResponse  = errors.New("pager: response belongs to a superseded search term")
)

// Page is one loaded page and its neighbour keys. Articles must not be modified.
type Page struct {
	Key          domain.PageKey
	Prev         domain.PageKey
	Next         domain.PageKey
	TotalResults int
	Articles     []domain.Article
}

type failure struct {
	key domain.PageKey
	err error
}

type Pager struct {
	client   domain.NewsClient
	store    *session.Store
	pageSize int
	group    singleflight.Group

	mu         sync.Mutex
	query      string
	hasQuery   bool
	generation uint64
	genCtx     context.Context
	cancel     context.CancelFunc
	initialKey domain.PageKey
	pages      []Page
	loading    [2]domain.PageKey // per direction, NoKey when nothing is in flight
	flights    [2]string
	retrying   [2]bool
	seq        uint64
	failed     [2]*failure
}

// View is a consistent read of a pager and its store, taken under one lock.
type View struct {
	Query        string
	Generation   uint64
	State        State
	Prev         domain.PageKey
	Next         domain.PageKey
	TotalResults int
	Err          error
	Articles     []domain.Article
}

func New(client domain.NewsClient, store *session.Store, pageSize int) (*Pager, error) {
	if client == nil {
		return nil, errors.New("news client is nil")
	}
	if store == nil {
		return nil, errors.New("session store is nil")
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("invalid page size: %d (must be >= 1)", pageSize)
	}

	p := &Pager{
		client:     client,
		store:      store,
		pageSize:   pageSize,
		initialKey: domain.FirstPage,
	}
	p.genCtx, p.cancel = context.WithCancel(context.Background())
	return p, nil
}

// SetQuery starts a new session for query: keys, pages and errors are reset,
// the store is cleared and fetches of the previous term are cancelled.
// It does not load anything; call Load(ctx, Forward) for the first page.
func (p *Pager) SetQuery(query string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resetLocked(query, domain.FirstPage)
	return p.generation
}

// Load fetches the next page in dir, or joins the fetch already running in
// that direction. It returns ErrEndOfPages when there is no key to load.
func (p *Pager) Load(ctx context.Context, dir Direction) (*Page, error) {
	p.mu.Lock()
	if !p.hasQuery {
		p.mu.Unlock()
		return nil, ErrNoQuery
	}
	if f := p.failed[dir]; f != nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %w", ErrRetryRequired, f.err)
	}

	key, err := p.nextKeyLocked(dir)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	ch := p.startLocked(dir, key)
	p.mu.Unlock()

	return wait(ctx, ch)
}

// Retry re-issues every failed load for the same page and direction, or
// joins a retry that is still running. It returns the first error, else the
// last page retried (backward after forward).
func (p *Pager) Retry(ctx context.Context) (*Page, error) {
	p.mu.Lock()
	var chans []<-chan singleflight.Result
	for _, dir := range []Direction{Forward, Backward} {
		switch f := p.failed[dir]; {
		case f != nil:
			slog.Info("Retrying page load", "query", p.query, "direction", dir, "page", f.key)
			chans = append(chans, p.startLocked(dir, f.key))
			p.retrying[dir] = true
		case p.retrying[dir] && p.loading[dir].Valid():
			chans = append(chans, p.startLocked(dir, p.loading[dir]))
		}
	}
	p.mu.Unlock()

	if len(chans) == 0 {
		return nil, ErrNothingToRetry
	}

	var page *Page
	for _, ch := range chans {
		pg, err := wait(ctx, ch)
		if err != nil {
			return nil, err
		}
		page = pg
	}
	return page, nil
}

// Refresh drops every loaded page and reloads around the page closest to
// anchor, the item position the UI is showing. A negative anchor, or no
// usable neighbour key, reloads from the first page.
func (p *Pager) Refresh(ctx context.Context, anchor int) (*Page, error) {
	p.mu.Lock()
	if !p.hasQuery {
		p.mu.Unlock()
		return nil, ErrNoQuery
	}

	key := p.refreshKeyLocked(anchor)
	if !key.Valid() {
		key = domain.FirstPage
	}
	slog.Debug("Refreshing pages", "query", p.query, "anchor", anchor, "page", key)

	p.resetLocked(p.query, key)
	ch := p.startLocked(Forward, key)
	p.mu.Unlock()

	return wait(ctx, ch)
}

// RefreshKey returns the key to re-anchor around for the item at anchor:
// the closest page's Prev+1, else its Next-1, else NoKey.
func (p *Pager) RefreshKey(anchor int) domain.PageKey {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshKeyLocked(anchor)
}

func (p *Pager) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// Err returns the failures that put the pager in the Error state, if any.
// With both directions failed the errors are joined, forward first.
func (p *Pager) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errLocked()
}

// View reads the pager and its store together, so articles, keys and state
// always belong to the same generation.
func (p *Pager) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	data := p.store.Snapshot()
	prev, next := p.keysLocked()
	v := View{
		Query:      data.Query,
		Generation: data.Generation,
		State:      p.stateLocked(),
		Prev:       prev,
		Next:       next,
		Err:        p.errLocked(),
		Articles:   data.Articles,
	}
	if len(p.pages) > 0 {
		v.TotalResults = p.pages[len(p.pages)-1].TotalResults
	}
	return v
}

// Pages returns the loaded pages in key order.
func (p *Pager) Pages() []Page {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Page, len(p.pages))
	copy(out, p.pages)
	return out
}

// Keys returns the previous key of the first page and the next key of the
// last page, i.e. what Load(Backward) and Load(Forward) would fetch.
func (p *Pager) Keys() (prev, next domain.PageKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.keysLocked()
}

func (p *Pager) keysLocked() (prev, next domain.PageKey) {
	if len(p.pages) == 0 {
		if p.hasQuery {
			return domain.NoKey, p.initialKey
		}
		return domain.NoKey, domain.NoKey
	}
	return p.pages[0].Prev, p.pages[len(p.pages)-1].Next
}

func (p *Pager) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Close cancels every in-flight fetch.
func (p *Pager) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel()
}

func (p *Pager) resetLocked(query string, initial domain.PageKey) {
	p.cancel()
	p.genCtx, p.cancel = context.WithCancel(context.Background())

	p.generation = p.store.SetQuery(query)
	p.query = query
	p.hasQuery = true
	p.initialKey = initial
	p.pages = nil
	p.loading = [2]domain.PageKey{}
	p.flights = [2]string{}
	p.retrying = [2]bool{}
	p.failed = [2]*failure{}
}

func (p *Pager) stateLocked() State {
	switch {
	case p.loading[Forward].Valid():
		return LoadingForward
	case p.loading[Backward].Valid():
		return LoadingBackward
	case p.failed[Forward] != nil || p.failed[Backward] != nil:
		return Error
	case p.exhaustedLocked():
		return Exhausted
	default:
		return Idle
	}
}

func (p *Pager) errLocked() error {
	fwd, back := p.failed[Forward], p.failed[Backward]
	switch {
	case fwd != nil && back != nil:
		return errors.Join(fwd.err, back.err)
	case fwd != nil:
		return fwd.err
	case back != nil:
		return back.err
	default:
		return nil
	}
}

func (p *Pager) nextKeyLocked(dir Direction) (domain.PageKey, error) {
	if k := p.loading[dir]; k.Valid() {
		return k, nil
	}

	if len(p.pages) == 0 {
		if dir == Backward {
			return domain.NoKey, ErrEndOfPages
		}
		return p.initialKey, nil
	}

	var k domain.PageKey
	if dir == Forward {
		k = p.pages[len(p.pages)-1].Next
	} else {
		k = p.pages[0].Prev
	}
	if !k.Valid() {
		return domain.NoKey, ErrEndOfPages
	}
	return k, nil
}

func (p *Pager) exhaustedLocked() bool {
	return len(p.pages) > 0 && !p.pages[len(p.pages)-1].Next.Valid()
}

// closestPageLocked returns the page holding item position anchor, or the
// last page when anchor is past the end.
func (p *Pager) closestPageLocked(anchor int) *Page {
	if anchor < 0 || len(p.pages) == 0 {
		return nil
	}
	pos := anchor
	for i := range p.pages {
		if pos < len(p.pages[i].Articles) {
			return &p.pages[i]
		}
		pos -= len(p.pages[i].Articles)
	}
	return &p.pages[len(p.pages)-1]
}

func (p *Pager) refreshKeyLocked(anchor int) domain.PageKey {
	page := p.closestPageLocked(anchor)
	if page == nil {
		return domain.NoKey
	}
	if page.Prev.Valid() {
		return page.Prev + 1
	}
	if page.Next.Valid() {
		return page.Next - 1
	}
	return domain.NoKey
}

// startLocked returns the future for key in dir, starting it unless a fetch
// in that direction is already running.
func (p *Pager) startLocked(dir Direction, key domain.PageKey) <-chan singleflight.Result {
	gen, query, ctx := p.generation, p.query, p.genCtx

	if p.loading[dir].Valid() {
		metrics.LoadsJoined.WithLabelValues(dir.String()).Inc()
		slog.Debug("Joining in-flight page load", "query", query, "direction", dir, "page", p.loading[dir])
	} else {
		p.seq++
		p.loading[dir] = key
		p.flights[dir] = fmt.Sprintf("%d/%s/%d/%d", gen, dir, key, p.seq)
		p.failed[dir] = nil
	}
	key = p.loading[dir]

	return p.group.DoChan(p.flights[dir], func() (interface{}, error) {
		return p.fetch(ctx, gen, query, dir, key)
	})
}

func (p *Pager) fetch(ctx context.Context, gen uint64, query string, dir Direction, key domain.PageKey) (interface{}, error) {
	tr := otel.Tracer("pager")
	ctx, span := tr.Start(ctx, "pager.Load")
	defer span.End()
	span.SetAttributes(
		attribute.String("query", query),
		attribute.String("direction", dir.String()),
		attribute.Int("page", int(key)),
	)

	resp, err := p.client.FetchPage(ctx, query, key, p.pageSize)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		metrics.StaleResponsesDiscarded.Inc()
		slog.Debug("Discarding stale page", "query", query, "direction", dir, "page", key)
		return nil, ErrStaleResponse
	}
	p.loading[dir] = domain.NoKey
	p.flights[dir] = ""
	p.retrying[dir] = false

	if err != nil {
		p.failed[dir] = &failure{key: key, err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, fmt.Errorf("load %s page %d: %w", dir, key, err)
	}

	page := Page{
		Key:          key,
		Prev:         prevKey(key),
		Next:         nextKey(key, len(resp.Articles)),
		TotalResults: resp.TotalResults,
		Articles:     resp.Articles,
	}

	if dir == Forward {
		err = p.store.AppendPage(gen, page.Articles)
	} else {
		err = p.store.PrependPage(gen, page.Articles)
	}
	if err != nil {
		return nil, fmt.Errorf("merge page %d: %w", key, err)
	}

	if dir == Forward {
		p.pages = append(p.pages, page)
	} else {
		p.pages = append([]Page{page}, p.pages...)
	}

	metrics.ArticlesLoaded.WithLabelValues(dir.String()).Add(float64(len(page.Articles)))
	if !page.Next.Valid() && dir == Forward {
		slog.Info("Reached end of results", "query", query, "page", key)
	}
	return page, nil
}

func prevKey(key domain.PageKey) domain.PageKey {
	if key <= domain.FirstPage {
		return domain.NoKey
	}
	return key - 1
}

func nextKey(key domain.PageKey, loaded int) domain.PageKey {
	if loaded == 0 {
		return domain.NoKey
	}
	return key + 1
}

func wait(ctx context.Context, ch <-chan singleflight.Result) (*Page, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		page := res.Val.(Page)
		return &page, nil
	}
}
