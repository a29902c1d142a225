package gather

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"officer-intel/backend/internal/candidate"
	"officer-intel/backend/internal/search"
)

type fakeSearcher struct {
	mu      sync.Mutex
	queries []string
	respond func(query string, max int) ([]search.Result, error)
}

func (f *fakeSearcher) Search(ctx context.Context, query string, max int) ([]search.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.respond == nil {
		return nil, nil
	}
	return f.respond(query, max)
}

type fakeFetcher struct {
	mu   sync.Mutex
	urls []string
	text string
	err  error
}

func (f *fakeFetcher) FetchRenderedText(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	return f.text, f.err
}

func TestQueriesCoverEverySearchChannel(t *testing.T) {
	queries := Queries("  Acme Corp ")
	require.Len(t, queries, len(candidate.Channels)-1)

	for i, q := range queries {
		assert.Equal(t, candidate.Channels[i+1], q.Channel)
		assert.Positive(t, q.Max)
	}
	assert.Equal(t, 20, queries[0].Max)
	assert.Equal(t, `"treasurer"`, queries[1].Text)
	assert.Contains(t, queries[6].Text, `"Acme Corp" "treasurer" site:linkedin.com`)
}

func TestGatherReturnsFixedChannelOrder(t *testing.T) {
	searcher := &fakeSearcher{respond: func(query string, max int) ([]search.Result, error) {
		if strings.HasSuffix(query, "treasurer executives") && !strings.Contains(query, "CEO") {
			return []search.Result{
				{Link: "https://news.example.com/acme"},
				{Link: "https://acme.com/about/leadership"},
			}, nil
		}
		return []search.Result{
			{Snippet: "snippet for " + query},
			{Snippet: ""},
			{Snippet: "second line"},
		}, nil
	}}
	fetcher := &fakeFetcher{text: "Sarah Rana, Vice President and Treasurer"}

	g := New(searcher, fetcher, Config{Concurrency: 3, ChannelTimeout: time.Second})
	blobs := g.Gather(context.Background(), "Acme Corp")

	require.Len(t, blobs, len(candidate.Channels))
	for i, b := range blobs {
		assert.Equal(t, candidate.Channels[i], b.Channel)
	}
	assert.Equal(t, "Sarah Rana, Vice President and Treasurer", blobs[0].Text)
	assert.Equal(t, []string{"https://acme.com/about/leadership"}, fetcher.urls)
	assert.Equal(t, "snippet for Acme Corp CEO CFO treasurer executives\nsecond line", blobs[1].Text)
}

func TestGatherFailedChannelYieldsEmptyBlob(t *testing.T) {
	searcher := &fakeSearcher{respond: func(query string, max int) ([]search.Result, error) {
		if strings.Contains(query, "site:linkedin.com") {
			return nil, errors.New("rate limited")
		}
		return []search.Result{{Snippet: "ok", Link: "https://acme.com/team"}}, nil
	}}
	fetcher := &fakeFetcher{err: errors.New("browser crashed")}

	blobs := New(searcher, fetcher, Config{}).Gather(context.Background(), "Acme Corp")

	require.Len(t, blobs, len(candidate.Channels))
	for _, b := range blobs {
		switch b.Channel {
		case candidate.LinkedInSearch, candidate.LeadershipPage:
			assert.Empty(t, b.Text, b.Channel)
		default:
			assert.Equal(t, "ok", b.Text, b.Channel)
		}
	}
}

func TestGatherHonoursChannelTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	searcher := &fakeSearcher{respond: func(query string, max int) ([]search.Result, error) {
		return []search.Result{{Snippet: "fast"}}, nil
	}}
	slow := &blockingSearcher{fallback: searcher}

	blobs := New(slow, nil, Config{ChannelTimeout: 20 * time.Millisecond}).Gather(context.Background(), "Acme Corp")

	require.Len(t, blobs, len(candidate.Channels))
	assert.Empty(t, blobs[0].Text)
	for _, b := range blobs[1:] {
		if b.Channel == candidate.TreasurerSearch {
			assert.Empty(t, b.Text)
			continue
		}
		assert.Equal(t, "fast", b.Text, b.Channel)
	}
}

type blockingSearcher struct {
	fallback Searcher
}

func (b *blockingSearcher) Search(ctx context.Context, query string, max int) ([]search.Result, error) {
	if strings.HasSuffix(query, `"treasurer"`) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return b.fallback.Search(ctx, query, max)
}

func TestGatherWithoutCollaborators(t *testing.T) {
	blobs := New(nil, nil, Config{}).Gather(context.Background(), "Acme Corp")
	require.Len(t, blobs, len(candidate.Channels))
	for _, b := range blobs {
		assert.Empty(t, b.Text)
	}
}

func TestPickLeadershipURL(t *testing.T) {
	tests := []struct {
		name    string
		results []search.Result
		want    string
		wantErr error
	}{
		{
			name: "keyword on company domain wins",
			results: []search.Result{
				{Link: "https://www.acme.com/"},
				{Link: "https://wiki.example.org/acme-leadership"},
				{Link: "https://acme.com/company/leadership"},
			},
			want: "https://acme.com/company/leadership",
		},
		{
			name: "any keyword link",
			results: []search.Result{
				{Link: "https://acme.com/"},
				{Link: "https://bloomberg.example/acme/executives"},
			},
			want: "https://bloomberg.example/acme/executives",
		},
		{
			name: "first link fallback",
			results: []search.Result{
				{Link: ""},
				{Link: "https://acme.com/about"},
				{Link: "https://acme.com/news"},
			},
			want: "https://acme.com/about",
		},
		{
			name:    "nothing usable",
			results: []search.Result{{Snippet: "no links"}},
			wantErr: ErrNoLeadershipPage,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := pickLeadershipURL(tc.results)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
