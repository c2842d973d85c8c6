// Package session holds the state of one active search: the term, the
// articles realized so far and the URL lookup used by the detail view.
package session

import (
	"errors"
	"sync"

	"github.com/NewsSearch/internal/domain"
)

// ErrStaleGeneration rejects a write made on behalf of a previous search term.
var ErrStaleGeneration = errors.New("session: write for a superseded search term")

// Store is the single shared state of a search session. Only the pager writes
// to it; everyone else reads copies through Snapshot and LookupByURL.
type Store struct {
	mu         sync.RWMutex
	query      string
	generation uint64
	articles   []domain.Article
	byURL      map[string]int // first index of each URL
}

// Snapshot is an immutable copy of the store taken at read time.
type Snapshot struct {
	Query      string
	Generation uint64
	Articles   []domain.Article
}

func NewStore() *Store {
	return &Store{byURL: make(map[string]int)}
}

// SetQuery replaces the search term, drops every accumulated article and
// returns the generation that subsequent writes must carry.
func (s *Store) SetQuery(query string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.query = query
	s.articles = nil
	s.byURL = make(map[string]int)
	return s.generation
}

// AppendPage adds a page after everything loaded so far. Duplicates are kept.
func (s *Store) AppendPage(generation uint64, articles []domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return ErrStaleGeneration
	}
	for _, a := range articles {
		if _, ok := s.byURL[a.URL]; !ok {
			s.byURL[a.URL] = len(s.articles)
		}
		s.articles = append(s.articles, a)
	}
	return nil
}

// PrependPage adds a page in front of everything loaded so far, for backward loads.
func (s *Store) PrependPage(generation uint64, articles []domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return ErrStaleGeneration
	}
	if len(articles) == 0 {
		return nil
	}

	merged := make([]domain.Article, 0, len(articles)+len(s.articles))
	merged = append(merged, articles...)
	merged = append(merged, s.articles...)
	s.articles = merged

	s.byURL = make(map[string]int, len(merged))
	for i, a := range merged {
		if _, ok := s.byURL[a.URL]; !ok {
			s.byURL[a.URL] = i
		}
	}
	return nil
}

// LookupByURL returns the first article whose URL equals url.
func (s *Store) LookupByURL(url string) (domain.Article, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byURL[url]
	if !ok {
		return domain.Article{}, false
	}
	return s.articles[i], true
}

func (s *Store) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	articles := make([]domain.Article, len(s.articles))
	copy(articles, s.articles)
	return Snapshot{
		Query:      s.query,
		Generation: s.generation,
		Articles:   articles,
	}
}
