package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"officer-intel/backend/internal/match"
	"officer-intel/backend/internal/search"
)

// Searcher runs one web search query.
type Searcher interface {
	Search(ctx context.Context, query string, max int) ([]search.Result, error)
}

// DiscoveryConfig tunes how many results each discovery query asks for.
type DiscoveryConfig struct {
	DomainResults int
	PersonResults int
	BroadResults  int
}

// DefaultDiscoveryConfig returns the result counts used when none are set.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{DomainResults: 60, PersonResults: 20, BroadResults: 40}
}

// Discovery finds a company's mail domain and known addresses on the web.
type Discovery struct {
	searcher Searcher
	cfg      DiscoveryConfig
}

var freeMailHosts = map[string]struct{}{
	"gmail.com":   {},
	"yahoo.com":   {},
	"hotmail.com": {},
	"outlook.com": {},
	"aol.com":     {},
	"icloud.com":  {},
	"example.com": {},
}

// NewDiscovery wraps a searcher. A nil searcher yields a disabled discovery.
func NewDiscovery(searcher Searcher, cfg DiscoveryConfig) *Discovery {
	defaults := DefaultDiscoveryConfig()
	if cfg.DomainResults <= 0 {
		cfg.DomainResults = defaults.DomainResults
	}
	if cfg.PersonResults <= 0 {
		cfg.PersonResults = defaults.PersonResults
	}
	if cfg.BroadResults <= 0 {
		cfg.BroadResults = defaults.BroadResults
	}
	return &Discovery{searcher: searcher, cfg: cfg}
}

// Enabled reports whether the discovery can issue searches.
func (d *Discovery) Enabled() bool {
	return d != nil && d.searcher != nil
}

// FindDomain returns the registrable domain of the first company address seen
// in results for "<company> email format", then for an investor relations
// query. It returns "" when neither query shows an address.
func (d *Discovery) FindDomain(ctx context.Context, company string) (string, error) {
	if !d.Enabled() {
		return "", nil
	}
	company = strings.TrimSpace(company)
	for _, query := range []string{
		company + " email format",
		company + " investor relations pr email",
	} {
		texts, err := d.search(ctx, query, d.cfg.DomainResults)
		if err != nil {
			return "", err
		}
		for _, text := range texts {
			for _, addr := range addressExpr.FindAllString(text, -1) {
				_, host, _ := strings.Cut(strings.ToLower(strings.TrimRight(addr, ".")), "@")
				domain := match.RegistrableDomain(host)
				if _, free := freeMailHosts[domain]; free || domain == "" {
					continue
				}
				return domain, nil
			}
		}
	}
	return "", nil
}

// HarvestSamples collects addresses at domain that web results associate with
// the given people, tried in order until one search yields an address. When no
// person search does, a broad "<company> "<domain>" email" query is used.
func (d *Discovery) HarvestSamples(ctx context.Context, company, domain string, people ...string) ([]string, error) {
	domain = NormalizeDomain(domain)
	if !d.Enabled() || domain == "" {
		return nil, nil
	}
	company = strings.TrimSpace(company)
	for _, person := range people {
		person = strings.TrimSpace(person)
		if person == "" || strings.EqualFold(person, "same") {
			continue
		}
		query := fmt.Sprintf("%s %q %s email", company, domain, person)
		samples, err := d.harvest(ctx, query, domain, d.cfg.PersonResults)
		if err != nil {
			return nil, err
		}
		if len(samples) > 0 {
			return samples, nil
		}
	}
	return d.harvest(ctx, fmt.Sprintf("%s %q email", company, domain), domain, d.cfg.BroadResults)
}

func (d *Discovery) harvest(ctx context.Context, query, domain string, max int) ([]string, error) {
	texts, err := d.search(ctx, query, max)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, addr := range ExtractAddresses(strings.Join(texts, "\n"), domain) {
		if isPlaceholder(addr) {
			continue
		}
		out = append(out, addr)
	}
	return out, nil
}

// search returns titles and snippets. Failed queries are logged and treated as
// empty unless the context is done.
func (d *Discovery) search(ctx context.Context, query string, max int) ([]string, error) {
	results, err := d.searcher.Search(ctx, query, max)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logrus.WithError(err).WithField("query", query).Warn("email discovery search failed")
		return nil, nil
	}
	texts := make([]string, 0, 2*len(results))
	for _, r := range results {
		texts = append(texts, r.Title, r.Snippet)
	}
	return texts, nil
}

var placeholderLocals = map[string]struct{}{
	"first.last": {}, "flast": {}, "test": {}, "sample": {}, "example": {}, "yourname": {}, "name": {},
}

// isPlaceholder flags template addresses such as firstname.lastname@acme.com.
func isPlaceholder(addr string) bool {
	local, _, _ := strings.Cut(addr, "@")
	if _, ok := placeholderLocals[local]; ok {
		return true
	}
	return strings.Contains(local, "firstname") || strings.Contains(local, "lastname")
}
