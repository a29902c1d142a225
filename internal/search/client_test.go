package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"organic_results":[
 {"title":"Leadership | Acme","snippet":"Sarah Rana, Vice President and Treasurer","link":"https://acme.com/leadership"},
 {"title":"Acme 10-K","snippet":"","link":"https://sec.gov/acme"},
 {"title":"Extra","snippet":"extra","link":"https://example.com"}
]}`

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.True(t, errors.Is(err, ErrMissingCredentials))
}

func TestSearchParsesAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Acme Corp treasurer", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("num"))
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	results, err := client.Search(context.Background(), "Acme Corp treasurer", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://acme.com/leadership", results[0].Link)
	assert.Equal(t, "Sarah Rana, Vice President and Treasurer", Snippets(results))

	_, err = client.Search(context.Background(), "acme corp TREASURER", 2)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSearchRetriesOnceOnRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, RetryAfter: 10 * time.Millisecond})
	require.NoError(t, err)

	results, err := client.Search(context.Background(), "Acme", 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSearchSurfacesStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "Acme", 10)
	assert.Error(t, err)
}

func TestSearchEmptyQuery(t *testing.T) {
	client, err := NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	results, err := client.Search(context.Background(), "  ", 5)
	assert.NoError(t, err)
	assert.Empty(t, results)
}
