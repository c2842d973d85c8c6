package domain

import (
	"context"
	"strings"
	"time"
)

// Article is one news item as returned by the search API.
type Article struct {
	Source      Source `json:"source" bson:"source"`
	Author      string `json:"author,omitempty" bson:"author,omitempty"`
	Title       string `json:"title" bson:"title"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	URL         string `json:"url" bson:"url"` // Unique within a search session
	ImageURL    string `json:"urlToImage,omitempty" bson:"image_url,omitempty"`
	PublishedAt string `json:"publishedAt" bson:"published_at"`
	Content     string `json:"content,omitempty" bson:"content,omitempty"`
}

// Source names the publisher of an article.
type Source struct {
	ID   string `json:"id,omitempty" bson:"id,omitempty"`
	Name string `json:"name,omitempty" bson:"name,omitempty"`
}

// PublishedDate returns the date portion of PublishedAt ("2024-05-01T10:00:00Z" -> "2024-05-01").
func (a Article) PublishedDate() string {
	date, _, _ := strings.Cut(a.PublishedAt, "T")
	return date
}

// SearchResponse is a single page of search results.
type SearchResponse struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
}

// PageKey identifies a page of upstream results. Keys start at 1.
type PageKey int

// NoKey marks the absence of a previous or next page.
const NoKey PageKey = 0

// FirstPage is the key loaded when no anchor is known.
const FirstPage PageKey = 1

// Valid reports whether k refers to an actual page.
func (k PageKey) Valid() bool {
	return k >= FirstPage
}

// NewsClient fetches one page of search results.
type NewsClient interface {
	FetchPage(ctx context.Context, query string, page PageKey, pageSize int) (*SearchResponse, error)
}

// SearchRecord is stored every time a new search term returns its first page.
type SearchRecord struct {
	SessionID    string    `json:"session_id" bson:"session_id"`
	Query        string    `json:"query" bson:"query"`
	TotalResults int       `json:"total_results" bson:"total_results"`
	SearchedAt   time.Time `json:"searched_at" bson:"searched_at"`
}

// ArticleViewed is emitted when the detail view of an article is opened.
type ArticleViewed struct {
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Article   Article   `json:"article"`
	ViewedAt  time.Time `json:"viewed_at"`
}

// ViewedArticle is the aggregated view history of one article URL.
type ViewedArticle struct {
	Article      Article   `json:"article" bson:"article"`
	Views        int64     `json:"views" bson:"views"`
	LastQuery    string    `json:"last_query" bson:"last_query"`
	LastViewedAt time.Time `json:"last_viewed_at" bson:"last_viewed_at"`
}

// SearchWriter persists search records.
type SearchWriter interface {
	RecordSearch(ctx context.Context, record SearchRecord) error
}

// SearchReader lists previously recorded searches.
type SearchReader interface {
	RecentSearches(ctx context.Context, limit int) ([]SearchRecord, error)
}

// ViewWriter folds a view event into the history.
type ViewWriter interface {
	RecordView(ctx context.Context, event *ArticleViewed) error
}

// ViewReader lists the most viewed articles.
type ViewReader interface {
	MostViewed(ctx context.Context, limit int) ([]ViewedArticle, error)
}

// HistoryRepository is the composite store behind the history endpoints.
// Services should depend on the narrow interfaces where they can.
type HistoryRepository interface {
	SearchWriter
	SearchReader
	ViewWriter
	ViewReader
}

// EventProducer publishes view events to a queue.
type EventProducer interface {
	Publish(ctx context.Context, event *ArticleViewed) error
	Close() error
}
