package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArticle_PublishedDate(t *testing.T) {
	tests := []struct {
		publishedAt string
		want        string
	}{
		{"2024-05-01T10:00:00Z", "2024-05-01"},
		{"2024-05-01", "2024-05-01"},
		{"", ""},
	}
	for _, tt := range tests {
		a := Article{PublishedAt: tt.publishedAt}
		assert.Equal(t, tt.want, a.PublishedDate(), "publishedAt=%q", tt.publishedAt)
	}
}

func TestPageKey_Valid(t *testing.T) {
	assert.False(t, NoKey.Valid())
	assert.True(t, FirstPage.Valid())
	assert.True(t, PageKey(7).Valid())
	assert.False(t, PageKey(-1).Valid())
}

func TestFetchError_MatchesSentinelByKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("load page: %w", &FetchError{Kind: KindNetwork, Query: "chile", Page: 2, Err: cause})

	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrDecode)
	assert.NotErrorIs(t, err, ErrAPI)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Contains(t, err.Error(), `"chile" page 2: network`)
}

func TestFetchError_APIErrorMessage(t *testing.T) {
	err := &FetchError{Kind: KindAPI, Query: "q", Page: 1, Code: "apiKeyInvalid", Message: "Your API key is invalid"}

	assert.ErrorIs(t, err, ErrAPI)
	assert.Equal(t, `fetch "q" page 1: api [apiKeyInvalid]: Your API key is invalid`, err.Error())
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
}
