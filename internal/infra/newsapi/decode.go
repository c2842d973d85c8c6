package newsapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/NewsSearch/internal/domain"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

const statusOK = "ok"

// Response is the wire shape of /v2/everything, including the error variant.
type Response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
	Code         string    `json:"code,omitempty"`
	Message      string    `json:"message,omitempty"`
}

type Article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

func decodeResponse(statusCode int, body io.Reader) (*domain.SearchResponse, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return nil, &domain.FetchError{Kind: domain.KindNetwork, Err: fmt.Errorf("read body: %w", err)}
	}

	if statusCode < 200 || statusCode > 299 {
		return nil, apiFailure(statusCode, raw)
	}

	var wire Response
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, &domain.FetchError{Kind: domain.KindDecode, Err: err}
	}

	switch {
	case wire.Status == "":
		return nil, &domain.FetchError{Kind: domain.KindDecode, Message: "response has no status"}
	case wire.Status != statusOK:
		return nil, &domain.FetchError{Kind: domain.KindAPI, Code: wire.Code, Message: wire.Message}
	case wire.TotalResults < 0:
		return nil, &domain.FetchError{Kind: domain.KindDecode, Message: fmt.Sprintf("negative totalResults %d", wire.TotalResults)}
	}

	articles := make([]domain.Article, 0, len(wire.Articles))
	for i, wa := range wire.Articles {
		if wa.URL == "" || wa.Title == "" {
			return nil, &domain.FetchError{Kind: domain.KindDecode, Message: fmt.Sprintf("article %d is missing title or url", i)}
		}
		articles = append(articles, normalize(wa))
	}

	return &domain.SearchResponse{
		Status:       wire.Status,
		TotalResults: wire.TotalResults,
		Articles:     articles,
	}, nil
}

// apiFailure builds an API error from a non-2xx response, using the error body when it parses.
func apiFailure(statusCode int, raw []byte) error {
	fe := &domain.FetchError{
		Kind:    domain.KindAPI,
		Code:    fmt.Sprintf("http_%d", statusCode),
		Message: http.StatusText(statusCode),
	}

	var wire Response
	if json.Unmarshal(raw, &wire) == nil {
		if wire.Code != "" {
			fe.Code = wire.Code
		}
		if wire.Message != "" {
			fe.Message = wire.Message
		}
	}
	return fe
}

func normalize(wa Article) domain.Article {
	return domain.Article{
		Source: domain.Source{
			ID:   wa.Source.ID,
			Name: wa.Source.Name,
		},
		Author:      wa.Author,
		Title:       wa.Title,
		Description: wa.Description,
		URL:         wa.URL,
		ImageURL:    wa.URLToImage,
		PublishedAt: wa.PublishedAt,
		Content:     wa.Content,
	}
}
