package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/render", r.URL.Path)
		assert.Equal(t, "https://jobs.example.sg?page=1", r.URL.Query().Get("url"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"url": "https://jobs.example.sg?page=1",
			"body": "page body text",
			"blocks": [
				{"text": "Acme Systems Pte Ltd\nSoftware Engineer", "url": "/view/1"},
				{"text": "Globex Pte Ltd\nData Analyst", "url": "/view/2"}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithKey("test-key"))
	page, err := c.FetchPage(context.Background(), "https://jobs.example.sg?page=1")

	require.NoError(t, err)
	assert.Equal(t, "https://jobs.example.sg?page=1", page.URL)
	assert.Equal(t, "page body text", page.Body)
	require.Len(t, page.Blocks, 2)
	assert.Equal(t, "/view/1", page.Blocks[0].URL)
	assert.Contains(t, page.Blocks[0].Text, "Software Engineer")
}

func TestFetchPage_FillsMissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"body": "text", "blocks": []}`))
	}))
	defer srv.Close()

	page, err := NewClient(srv.URL).FetchPage(context.Background(), "https://jobs.example.sg")

	require.NoError(t, err)
	assert.Equal(t, "https://jobs.example.sg", page.URL)
}

func TestFetchPage_NoKeyNoAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"blocks": []}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchPage(context.Background(), "https://jobs.example.sg")
	assert.NoError(t, err)
}

func TestFetchPage_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "render queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchPage(context.Background(), "https://jobs.example.sg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "render queue full")
}

func TestFetchPage_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchPage(context.Background(), "https://jobs.example.sg")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestFetchPage_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"blocks": []}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL).FetchPage(ctx, "https://jobs.example.sg")
	assert.Error(t, err)
}

func TestPageURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		n    int
		want string
	}{
		{"no query", "https://jobs.example.sg", 1, "https://jobs.example.sg?page=1"},
		{"existing query", "https://jobs.example.sg/search?q=engineer", 2, "https://jobs.example.sg/search?q=engineer&page=2"},
		{"replaces page param", "https://jobs.example.sg/search?page=3&q=x", 5, "https://jobs.example.sg/search?page=5&q=x"},
		{"page param last", "https://jobs.example.sg?page=1", 9, "https://jobs.example.sg?page=9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PageURL(tt.base, tt.n))
		})
	}
}

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		href string
		want string
	}{
		{"already absolute", "https://jobs.example.sg", "https://other.example.com/view/1", "https://other.example.com/view/1"},
		{"rooted path", "https://jobs.example.sg", "/view/1", "https://jobs.example.sg/view/1"},
		{"bare path", "https://jobs.example.sg", "view/1", "https://jobs.example.sg/view/1"},
		{"base with trailing slash", "https://jobs.example.sg/", "/view/1", "https://jobs.example.sg/view/1"},
		{
			"rooted path against search listing",
			"https://jobs.example.sg/search?search=engineer&page=1",
			"/job/software-engineer-123",
			"https://jobs.example.sg/job/software-engineer-123",
		},
		{
			"relative path against listing with path",
			"https://jobs.example.sg/search/jobs?page=2",
			"view/9",
			"https://jobs.example.sg/search/view/9",
		},
		{"empty href", "https://jobs.example.sg", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AbsoluteURL(tt.base, tt.href))
		})
	}
}
