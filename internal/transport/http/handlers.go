package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/NewsSearch/internal/app"
	"github.com/NewsSearch/internal/domain"
	"github.com/NewsSearch/internal/pager"
	"github.com/NewsSearch/internal/route"
	"github.com/gorilla/mux"
)

type Handler struct {
	search  *app.SearchService
	history *app.HistoryService
}

func NewHandler(search *app.SearchService, history *app.HistoryService) *Handler {
	return &Handler{search: search, history: history}
}

type articleView struct {
	domain.Article
	PublishedDate string `json:"publishedDate"`
	Route         string `json:"route"`
}

type snapshotView struct {
	*app.Snapshot
	Articles []articleView `json:"articles"`
}

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (h *Handler) createSession(w http.ResponseWriter, _ *http.Request) {
	id, err := h.search.CreateSession()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.search.CloseSession(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.search.Snapshot(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotView(snap))
}

func (h *Handler) searchSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.search.Search(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("q"))
	h.respondSnapshot(w, snap, err)
}

func (h *Handler) loadPage(w http.ResponseWriter, r *http.Request) {
	dir, err := pager.ParseDirection(mux.Vars(r)["direction"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	snap, err := h.search.Load(r.Context(), mux.Vars(r)["id"], dir)
	h.respondSnapshot(w, snap, err)
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	snap, err := h.search.Retry(r.Context(), mux.Vars(r)["id"])
	h.respondSnapshot(w, snap, err)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	anchor := -1
	if raw := r.URL.Query().Get("anchor"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid anchor: " + raw})
			return
		}
		anchor = n
	}
	snap, err := h.search.Refresh(r.Context(), mux.Vars(r)["id"], anchor)
	h.respondSnapshot(w, snap, err)
}

// article serves the detail view. The route segment arrives still
// percent-encoded because the router matches on the escaped path.
func (h *Handler) article(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	article, err := h.search.Article(r.Context(), vars["id"], vars["encodedURL"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newArticleView(*article))
}

func (h *Handler) recentSearches(w http.ResponseWriter, r *http.Request) {
	records, err := h.history.RecentSearches(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) mostViewed(w http.ResponseWriter, r *http.Request) {
	viewed, err := h.history.MostViewed(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewed)
}

// respondSnapshot reports a load failure without touching the articles the
// client already has; the snapshot is only sent on success.
func (h *Handler) respondSnapshot(w http.ResponseWriter, snap *app.Snapshot, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotView(snap))
}

func newSnapshotView(snap *app.Snapshot) snapshotView {
	views := make([]articleView, 0, len(snap.Articles))
	for _, a := range snap.Articles {
		views = append(views, newArticleView(a))
	}
	return snapshotView{Snapshot: snap, Articles: views}
}

func newArticleView(a domain.Article) articleView {
	return articleView{Article: a, PublishedDate: a.PublishedDate(), Route: route.ArticlePath(a.URL)}
}

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

func writeError(w http.ResponseWriter, err error) {
	var fe *domain.FetchError
	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error:     "load failed",
			Kind:      fe.Kind.String(),
			Code:      fe.Code,
			Message:   fe.Message,
			Retryable: true,
		})
	case errors.Is(err, app.ErrSessionNotFound), errors.Is(err, app.ErrArticleNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, app.ErrEmptyQuery), errors.Is(err, app.ErrInvalidRoute):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, pager.ErrNoQuery),
		errors.Is(err, pager.ErrEndOfPages),
		errors.Is(err, pager.ErrNothingToRetry),
		errors.Is(err, pager.ErrStaleResponse):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: err.Error(), Retryable: true})
	case errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error(), Retryable: true})
	default:
		slog.Error("Request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
