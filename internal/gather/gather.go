package gather

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"officer-intel/backend/internal/candidate"
	"officer-intel/backend/internal/match"
	"officer-intel/backend/internal/search"
	"officer-intel/backend/internal/util"
)

// Searcher runs a web search and returns organic results.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]search.Result, error)
}

// Fetcher returns the visible text of a rendered web page.
type Fetcher interface {
	FetchRenderedText(ctx context.Context, url string) (string, error)
}

// Query is one search channel's query suffix and result limit. The company
// name is prepended when the query is issued.
type Query struct {
	Channel candidate.Channel
	Text    string
	Max     int
}

// LeadershipKeywords mark result links that look like leadership pages.
var LeadershipKeywords = []string{
	"leadership", "executive", "management", "officers", "team", "board", "directors",
}

// ErrNoLeadershipPage is returned when discovery finds no usable link.
var ErrNoLeadershipPage = errors.New("no leadership page found")

// Queries returns the search channel table for a company.
func Queries(company string) []Query {
	c := strings.TrimSpace(company)
	quoted := `"` + c + `"`
	return []Query{
		{Channel: candidate.GeneralExecSearch, Text: "CEO CFO treasurer executives", Max: 20},
		{Channel: candidate.TreasurerSearch, Text: `"treasurer"`, Max: 15},
		{Channel: candidate.CompanyTreasurySearch, Text: "treasury department finance", Max: 10},
		{
			Channel: candidate.EnhancedTreasurerSearch,
			Text:    quoted + ` "treasurer" "vice president" OR ` + quoted + ` "assistant treasurer"`,
			Max:     10,
		},
		{
			Channel: candidate.SECFilingSearch,
			Text: quoted + ` "treasurer" "SEC filing" OR ` + quoted + ` "treasurer" "10-K" OR ` +
				quoted + ` "treasurer" "10-Q"`,
			Max: 10,
		},
		{
			Channel: candidate.RecentTreasurerSearch,
			Text: quoted + ` "treasurer" "2024" OR ` + quoted + ` "treasurer" "2025" OR ` +
				quoted + ` "treasurer" "appointed" OR ` + quoted + ` "treasurer" "named"`,
			Max: 10,
		},
		{
			Channel: candidate.LinkedInSearch,
			Text:    quoted + ` "treasurer" site:linkedin.com OR ` + quoted + ` "head of treasury" site:linkedin.com`,
			Max:     15,
		},
		{
			Channel: candidate.BroaderTreasurySearch,
			Text: quoted + ` "treasury" "finance" OR ` + quoted + ` "treasury" "cash management" OR ` +
				quoted + ` "treasury" "investor relations"`,
			Max: 10,
		},
		{
			Channel: candidate.ExecTeamSearch,
			Text:    quoted + ` "executive team" "management" OR ` + quoted + ` "leadership team" "officers"`,
			Max:     10,
		},
	}
}

// Config controls gathering fan-out.
type Config struct {
	Concurrency    int
	ChannelTimeout time.Duration
}

// Gatherer collects one text blob per channel for a company.
type Gatherer struct {
	searcher Searcher
	fetcher  Fetcher
	cfg      Config
}

// New builds a gatherer. Either collaborator may be nil, in which case the
// channels that need it yield empty blobs.
func New(searcher Searcher, fetcher Fetcher, cfg Config) *Gatherer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = determineConcurrency()
	}
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = 45 * time.Second
	}
	return &Gatherer{searcher: searcher, fetcher: fetcher, cfg: cfg}
}

func determineConcurrency() int {
	n := runtime.NumCPU() * 2
	if n < 4 {
		return 4
	}
	if n > len(candidate.Channels) {
		return len(candidate.Channels)
	}
	return n
}

// Gather runs every channel and returns blobs in the fixed channel order.
// Channel failures are logged and produce empty blobs; Gather never fails.
func (g *Gatherer) Gather(ctx context.Context, company string) []candidate.Blob {
	company = strings.TrimSpace(company)
	queries := Queries(company)

	blobs := make([]candidate.Blob, 1+len(queries))
	blobs[0] = candidate.Blob{Channel: candidate.LeadershipPage}
	for i, q := range queries {
		blobs[i+1] = candidate.Blob{Channel: q.Channel}
	}

	var eg errgroup.Group
	eg.SetLimit(g.cfg.Concurrency)

	eg.Go(func() error {
		blobs[0].Text = g.runChannel(ctx, company, candidate.LeadershipPage, func(ctx context.Context) (string, error) {
			return g.leadershipText(ctx, company)
		})
		return nil
	})
	for i, q := range queries {
		idx, query := i+1, q
		eg.Go(func() error {
			blobs[idx].Text = g.runChannel(ctx, company, query.Channel, func(ctx context.Context) (string, error) {
				return g.searchText(ctx, company, query)
			})
			return nil
		})
	}
	_ = eg.Wait()

	return blobs
}

func (g *Gatherer) runChannel(ctx context.Context, company string, ch candidate.Channel, fn func(context.Context) (string, error)) string {
	if ctx.Err() != nil {
		return ""
	}
	sw := util.StartStopwatch()
	chCtx, cancel := context.WithTimeout(ctx, g.cfg.ChannelTimeout)
	defer cancel()

	text, err := fn(chCtx)
	fields := logrus.Fields{
		"company":    company,
		"channel":    ch,
		"elapsed_ms": sw.ElapsedMs(),
	}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Warn("gather channel failed")
		return ""
	}
	fields["chars"] = len(text)
	logrus.WithFields(fields).Debug("gather channel completed")
	return text
}

func (g *Gatherer) searchText(ctx context.Context, company string, q Query) (string, error) {
	if g.searcher == nil {
		return "", nil
	}
	results, err := g.searcher.Search(ctx, company+" "+q.Text, q.Max)
	if err != nil {
		return "", err
	}
	return search.Snippets(results), nil
}

func (g *Gatherer) leadershipText(ctx context.Context, company string) (string, error) {
	if g.searcher == nil || g.fetcher == nil {
		return "", nil
	}
	url, err := g.LeadershipURL(ctx, company)
	if errors.Is(err, ErrNoLeadershipPage) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	text, err := g.fetcher.FetchRenderedText(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetch leadership page %s: %w", url, err)
	}
	return text, nil
}

// LeadershipURL discovers the company's leadership page. The first result's
// host is taken as the company domain; keyword links on that domain win, then
// any keyword link, then the first link.
func (g *Gatherer) LeadershipURL(ctx context.Context, company string) (string, error) {
	if g.searcher == nil {
		return "", ErrNoLeadershipPage
	}
	results, err := g.searcher.Search(ctx, strings.TrimSpace(company)+" treasurer executives", 10)
	if err != nil {
		return "", fmt.Errorf("leadership search: %w", err)
	}
	return pickLeadershipURL(results)
}

func pickLeadershipURL(results []search.Result) (string, error) {
	var domain string
	for _, r := range results {
		if r.Link == "" {
			continue
		}
		if host := match.HostOf(r.Link); host != "" {
			domain = host
			break
		}
	}

	var keywordLink, firstLink string
	for _, r := range results {
		if r.Link == "" {
			continue
		}
		if firstLink == "" {
			firstLink = r.Link
		}
		if !hasLeadershipKeyword(r.Link) {
			continue
		}
		if domain != "" && match.HostOf(r.Link) == domain {
			return r.Link, nil
		}
		if keywordLink == "" {
			keywordLink = r.Link
		}
	}
	switch {
	case keywordLink != "":
		return keywordLink, nil
	case firstLink != "":
		return firstLink, nil
	}
	return "", ErrNoLeadershipPage
}

func hasLeadershipKeyword(link string) bool {
	lower := strings.ToLower(link)
	for _, kw := range LeadershipKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
