package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NewsSearch/internal/app"
	"github.com/NewsSearch/internal/domain"
	"github.com/NewsSearch/internal/domain/mocks"
	"github.com/NewsSearch/internal/route"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RouterSuite struct {
	suite.Suite
	client   *mocks.MockNewsClient
	history  *mocks.MockHistoryRepository
	producer *mocks.MockEventProducer
	search   *app.SearchService
	router   *mux.Router
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.client = new(mocks.MockNewsClient)
	s.history = new(mocks.MockHistoryRepository)
	s.producer = new(mocks.MockEventProducer)
	s.search = app.NewSearchService(s.client, s.history, s.producer, 2)
	s.router = NewRouter(NewHandler(s.search, app.NewHistoryService(s.history, s.history)))
}

func (s *RouterSuite) TearDownTest() {
	s.search.Close()
}

func (s *RouterSuite) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (s *RouterSuite) newSession() string {
	rec := s.do(http.MethodPost, "/sessions")
	s.Require().Equal(http.StatusCreated, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Require().NotEmpty(body["id"])
	return body["id"]
}

func twoArticles(query string, key domain.PageKey) *domain.SearchResponse {
	resp := &domain.SearchResponse{Status: "ok", TotalResults: 4}
	for i := 0; i < 2; i++ {
		resp.Articles = append(resp.Articles, domain.Article{
			Title:       fmt.Sprintf("%s %d.%d", query, key, i),
			URL:         fmt.Sprintf("https://example.com/%s/%d?item=%d", query, key, i),
			PublishedAt: "2024-10-01T08:30:00Z",
		})
	}
	return resp
}

type snapshotBody struct {
	ID       string `json:"id"`
	Query    string `json:"query"`
	State    string `json:"state"`
	NextPage int    `json:"next_page"`
	Articles []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		PublishedDate string `json:"publishedDate"`
		Route         string `json:"route"`
	} `json:"articles"`
}

func (s *RouterSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("OK", rec.Body.String())
}

func (s *RouterSuite) TestSearchAndOpenArticle() {
	id := s.newSession()
	s.client.On("FetchPage", mock.Anything, "chile", domain.PageKey(1), 2).Return(twoArticles("chile", 1), nil).Once()
	s.history.On("RecordSearch", mock.Anything, mock.Anything).Return(nil).Once()

	rec := s.do(http.MethodPost, "/sessions/"+id+"/search?q=chile")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var snap snapshotBody
	s.decode(rec, &snap)
	s.Equal("chile", snap.Query)
	s.Equal("idle", snap.State)
	s.Equal(2, snap.NextPage)
	s.Require().Len(snap.Articles, 2)
	s.Equal("2024-10-01", snap.Articles[0].PublishedDate)
	s.Equal(route.ArticlePath(snap.Articles[1].URL), snap.Articles[1].Route)

	target := snap.Articles[1].URL
	s.producer.On("Publish", mock.Anything, mock.MatchedBy(func(e *domain.ArticleViewed) bool {
		return e.Article.URL == target && e.Query == "chile" && e.SessionID == id
	})).Return(nil).Once()

	rec = s.do(http.MethodGet, "/sessions/"+id+"/articles/"+route.EncodeArticleURL(target))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var article struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	s.decode(rec, &article)
	s.Equal("chile 1.1", article.Title)
	s.Equal(target, article.URL)
	s.producer.AssertExpectations(s.T())
}

func (s *RouterSuite) TestLoadFailureIsBadGateway() {
	id := s.newSession()
	s.client.On("FetchPage", mock.Anything, "chile", domain.PageKey(1), 2).Return(twoArticles("chile", 1), nil).Once()
	s.client.On("FetchPage", mock.Anything, "chile", domain.PageKey(2), 2).
		Return(nil, &domain.FetchError{Kind: domain.KindNetwork, Query: "chile", Page: 2}).Once()
	s.history.On("RecordSearch", mock.Anything, mock.Anything).Return(nil)

	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/sessions/"+id+"/search?q=chile").Code)

	rec := s.do(http.MethodPost, "/sessions/"+id+"/pages/forward")
	s.Equal(http.StatusBadGateway, rec.Code)

	var body errorBody
	s.decode(rec, &body)
	s.Equal("load failed", body.Error)
	s.Equal("network", body.Kind)
	s.True(body.Retryable)

	// Articles loaded before the failure are still there.
	rec = s.do(http.MethodGet, "/sessions/"+id)
	var snap snapshotBody
	s.decode(rec, &snap)
	s.Equal("error", snap.State)
	s.Len(snap.Articles, 2)
}

func (s *RouterSuite) TestEndOfPagesIsConflict() {
	id := s.newSession()
	s.client.On("FetchPage", mock.Anything, "chile", domain.PageKey(1), 2).Return(twoArticles("chile", 1), nil).Once()
	s.history.On("RecordSearch", mock.Anything, mock.Anything).Return(nil)

	s.Require().Equal(http.StatusOK, s.do(http.MethodPost, "/sessions/"+id+"/search?q=chile").Code)
	s.Equal(http.StatusConflict, s.do(http.MethodPost, "/sessions/"+id+"/pages/backward").Code)
}

func (s *RouterSuite) TestBadRequests() {
	id := s.newSession()

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/sessions/"+id+"/search").Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/sessions/"+id+"/pages/sideways").Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/sessions/"+id+"/refresh?anchor=top").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/sessions/"+id+"/articles/%25zz").Code)
	s.Equal(http.StatusConflict, s.do(http.MethodPost, "/sessions/"+id+"/retry").Code)
}

func (s *RouterSuite) TestUnknownSession() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/sessions/nope").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/sessions/nope").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/sessions/nope/search?q=chile").Code)
}

func (s *RouterSuite) TestCloseSession() {
	id := s.newSession()
	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/sessions/"+id).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/sessions/"+id).Code)
}

func (s *RouterSuite) TestHistoryEndpoints() {
	s.history.On("RecentSearches", mock.Anything, 5).Return([]domain.SearchRecord{{Query: "chile", TotalResults: 4}}, nil).Once()
	s.history.On("MostViewed", mock.Anything, app.DefaultHistoryLimit).Return([]domain.ViewedArticle{{Views: 7}}, nil).Once()

	rec := s.do(http.MethodGet, "/history/searches?limit=5")
	s.Require().Equal(http.StatusOK, rec.Code)
	var records []domain.SearchRecord
	s.decode(rec, &records)
	s.Require().Len(records, 1)
	s.Equal("chile", records[0].Query)

	rec = s.do(http.MethodGet, "/history/most-viewed")
	s.Require().Equal(http.StatusOK, rec.Code)
	var viewed []domain.ViewedArticle
	s.decode(rec, &viewed)
	s.Require().Len(viewed, 1)
	s.Equal(int64(7), viewed[0].Views)
}

func TestWriteError_UnknownIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, assert.AnError)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
}
