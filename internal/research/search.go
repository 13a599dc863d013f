package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// ResultsPerQuery is the number of search hits requested for each query
const ResultsPerQuery = 3

// Searcher runs one web search query
type Searcher interface {
	Search(ctx context.Context, query string) ([]types.SearchSource, error)
}

// GoogleSearcher implements Searcher with the Google Custom Search JSON API
type GoogleSearcher struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleSearcher creates a searcher for the given API key and search engine ID
func NewGoogleSearcher(ctx context.Context, apiKey string, cx string) (*GoogleSearcher, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("google search requires both an API key and a search engine ID")
	}
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearcher{svc: svc, cx: cx}, nil
}

// Search returns the top results for query
func (g *GoogleSearcher) Search(ctx context.Context, query string) ([]types.SearchSource, error) {
	resp, err := g.svc.Cse.List().Cx(g.cx).Q(query).Num(ResultsPerQuery).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search %q failed: %w", query, err)
	}

	sources := make([]types.SearchSource, 0, len(resp.Items))
	for _, item := range resp.Items {
		snippet := item.Snippet
		if item.HtmlSnippet != "" {
			snippet = flattenHTML(item.HtmlSnippet)
		}
		sources = append(sources, types.SearchSource{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Snippet: snippet,
		})
	}
	return sources, nil
}

// flattenHTML strips markup from a result snippet and collapses whitespace
func flattenHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// dedupeSources drops results whose normalized URL was already seen, keeping first occurrence order
func dedupeSources(sources []types.SearchSource) []types.SearchSource {
	seen := make(map[string]bool)
	out := make([]types.SearchSource, 0, len(sources))
	for _, s := range sources {
		key := normalizeURL(s.URL)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// normalizeURL lowercases the host, drops "www." and any trailing slash or fragment
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	path := strings.TrimSuffix(parsed.Path, "/")
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return host + path
}
