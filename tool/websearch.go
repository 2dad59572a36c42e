package tool

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// WebSearchName is the name of the web search capability
const WebSearchName = "web_search"

const duckDuckGoURL = "https://html.duckduckgo.com/html/"

// WebSearch searches the web through the DuckDuckGo HTML endpoint
type WebSearch struct {
	endpoint   string
	client     *http.Client
	maxResults int
	policy     *bluemonday.Policy
}

// WebSearchOption configures WebSearch
type WebSearchOption func(*WebSearch)

// WithSearchEndpoint overrides the search endpoint
func WithSearchEndpoint(endpoint string) WebSearchOption {
	return func(w *WebSearch) { w.endpoint = endpoint }
}

// WithSearchClient sets the HTTP client
func WithSearchClient(c *http.Client) WebSearchOption {
	return func(w *WebSearch) { w.client = c }
}

// WithMaxResults sets how many results are returned (1-10)
func WithMaxResults(n int) WebSearchOption {
	return func(w *WebSearch) {
		if n < 1 {
			n = 1
		}
		if n > 10 {
			n = 10
		}
		w.maxResults = n
	}
}

// NewWebSearch creates the web_search capability
func NewWebSearch(opts ...WebSearchOption) *WebSearch {
	w := &WebSearch{
		endpoint:   duckDuckGoURL,
		client:     &http.Client{Timeout: DefaultHTTPTimeout},
		maxResults: 5,
		policy:     bluemonday.StrictPolicy(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Name returns the name of the capability
func (w *WebSearch) Name() string { return WebSearchName }

// Description returns the description of the capability
func (w *WebSearch) Description() string {
	return "Search the web for travel information, attractions, points of interest (POIs), and activities " +
		"in a destination city. Use this to find popular sights, cultural sites, restaurants, shopping " +
		"areas, and other tourist attractions."
}

// Parameters returns the argument schema
func (w *WebSearch) Parameters() map[string]any {
	return Object(Props{"query": String("The search query")}, "query")
}

// Invoke runs the search. Search failures are returned as text so the agent can carry on.
func (w *WebSearch) Invoke(ctx context.Context, args map[string]any) (any, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", WebSearchName, err)
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("missing required argument %q", "query")
	}

	out, err := w.Search(ctx, in.Query)
	if err != nil {
		return fmt.Sprintf("Search error: %v", err), nil
	}
	return out, nil
}

// Search returns the results for query as plain text, one result per paragraph
func (w *WebSearch) Search(ctx context.Context, query string) (string, error) {
	form := url.Values{}
	form.Set("q", query)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; travelplanner/1.0)")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse results: %w", err)
	}

	var results []string
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title := w.clean(s.Find(".result__a").First())
		snippet := w.clean(s.Find(".result__snippet").First())
		if title == "" && snippet == "" {
			return true
		}
		link, _ := s.Find(".result__a").First().Attr("href")
		results = append(results, formatResult(title, resultURL(link), snippet))
		return len(results) < w.maxResults
	})

	if len(results) == 0 {
		return "No good search result found", nil
	}
	return strings.Join(results, "\n\n"), nil
}

// clean strips markup from a result element and collapses whitespace
func (w *WebSearch) clean(sel *goquery.Selection) string {
	raw, err := sel.Html()
	if err != nil {
		return ""
	}
	text := html.UnescapeString(w.policy.Sanitize(raw))
	return strings.Join(strings.Fields(text), " ")
}

func formatResult(title, link, snippet string) string {
	var sb strings.Builder
	sb.WriteString(title)
	if link != "" {
		sb.WriteString("\n")
		sb.WriteString(link)
	}
	if snippet != "" {
		sb.WriteString("\n")
		sb.WriteString(snippet)
	}
	return sb.String()
}

// resultURL unwraps DuckDuckGo redirect links of the form //duckduckgo.com/l/?uddg=<url>
func resultURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
