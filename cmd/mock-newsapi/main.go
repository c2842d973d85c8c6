// Command mock-newsapi serves a deterministic stand-in for the /v2/everything
// endpoint so the server can run without a real API key.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	totalResults = 95
	maxResults   = 100
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	apiKey := os.Getenv("MOCK_API_KEY")
	addr := ":" + getEnv("MOCK_PORT", "8081")

	http.HandleFunc("/v2/everything", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if apiKey != "" && q.Get("apiKey") != apiKey {
			writeJSON(w, http.StatusUnauthorized, apiError{"error", "apiKeyInvalid", "Your API key is invalid or incorrect."})
			return
		}
		query := strings.TrimSpace(q.Get("q"))
		if query == "" {
			writeJSON(w, http.StatusBadRequest, apiError{"error", "parametersMissing", "Required parameters are missing: q."})
			return
		}
		page := atoiDefault(q.Get("page"), 1)
		pageSize := atoiDefault(q.Get("pageSize"), 100)
		if page < 1 || pageSize < 1 || pageSize > 100 {
			writeJSON(w, http.StatusBadRequest, apiError{"error", "parameterInvalid", "page and pageSize must be positive, pageSize at most 100."})
			return
		}
		if (page-1)*pageSize >= maxResults {
			writeJSON(w, http.StatusUpgradeRequired, apiError{"error", "maximumResultsReached", fmt.Sprintf("You have requested too many results. Limited to %d.", maxResults)})
			return
		}

		slog.Info("Serving page", "q", query, "page", page, "page_size", pageSize)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"totalResults": totalResults,
			"articles":     articles(query, page, pageSize),
		})
	})

	slog.Info("Mock news API running", "address", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func articles(query string, page, pageSize int) []map[string]any {
	out := []map[string]any{}
	base := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	for i := (page - 1) * pageSize; i < page*pageSize && i < totalResults; i++ {
		out = append(out, map[string]any{
			"source":      map[string]any{"id": nil, "name": "Mock Wire"},
			"author":      "Mock Reporter",
			"title":       fmt.Sprintf("%s story #%d", query, i+1),
			"description": fmt.Sprintf("Result %d for %q.", i+1, query),
			"url":         fmt.Sprintf("https://mock.news/%s/%d?ref=search&lang=en", strings.ReplaceAll(query, " ", "-"), i+1),
			"urlToImage":  fmt.Sprintf("https://mock.news/img/%d.jpg", i+1),
			"publishedAt": base.Add(-time.Duration(i) * time.Hour).Format(time.RFC3339),
			"content":     "Lorem ipsum dolor sit amet.",
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func atoiDefault(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
