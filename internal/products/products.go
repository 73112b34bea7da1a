package products

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopchat/shopchat/internal/errs"
)

// FieldUnknown is the sentinel stored when the provider omits a text field.
const FieldUnknown = "N/A"

// Product is the canonical record built from a raw provider item. Image is
// nil unless it resolved to an absolute URL.
type Product struct {
	Title  string  `json:"title"`
	Price  string  `json:"price"`
	Source string  `json:"source"`
	Link   string  `json:"link"`
	Image  *string `json:"image"`
}

// Source is the consumer-side contract for a shopping-search provider.
type Source interface {
	Fetch(ctx context.Context, term string, limit int) ([]Product, error)
}

// Client queries a SerpAPI-style shopping search endpoint.
type Client struct {
	apiKey     string
	endpoint   string
	engine     string
	hl         string
	gl         string
	httpClient *http.Client
}

// Connective/comparison tokens stripped from the term before searching.
var stopwords = map[string]struct{}{
	"which": {}, "is": {}, "the": {}, "or": {}, "and": {}, "vs": {}, "vs.": {},
}

// NewClient creates a shopping-search client. A missing API key is reported
// by Fetch on first use.
func NewClient(apiKey, endpoint, engine, hl, gl string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     apiKey,
		endpoint:   endpoint,
		engine:     engine,
		hl:         hl,
		gl:         gl,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch searches the provider for term and returns up to limit normalized
// products whose title contains at least one cleaned keyword, in provider
// order.
func (c *Client) Fetch(ctx context.Context, term string, limit int) ([]Product, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("serpapi api key is required: %w", errs.ErrConfig)
	}

	keywords := cleanKeywords(term)

	params := url.Values{}
	params.Set("engine", c.engine)
	params.Set("q", keywords)
	params.Set("hl", c.hl)
	params.Set("gl", c.gl)
	params.Set("api_key", c.apiKey)
	params.Set("tbm", "shop")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, &errs.UpstreamError{Service: "serpapi", Status: resp.StatusCode, Body: string(body)}
	}

	var raw struct {
		ShoppingResults []map[string]any `json:"shopping_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &errs.UpstreamError{Service: "serpapi", Status: resp.StatusCode, Body: "invalid response body"}
	}

	tokens := strings.Fields(keywords)
	var out []Product
	for _, item := range raw.ShoppingResults {
		if len(out) >= limit {
			break
		}
		title := strings.ToLower(str(item["title"]))
		if !containsAny(title, tokens) {
			continue
		}
		out = append(out, normalize(item))
	}
	return out, nil
}

// cleanKeywords strips connective stopwords from the term and lowercases the
// remaining tokens.
func cleanKeywords(term string) string {
	var kept []string
	for _, w := range strings.Fields(term) {
		if _, skip := stopwords[strings.ToLower(w)]; skip {
			continue
		}
		kept = append(kept, w)
	}
	return strings.ToLower(strings.Join(kept, " "))
}

func containsAny(title string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			return true
		}
	}
	return false
}

func normalize(item map[string]any) Product {
	p := Product{
		Title:  str(item["title"]),
		Price:  str(item["price"]),
		Source: str(item["source"]),
	}
	if p.Title == "" {
		p.Title = FieldUnknown
	}
	if p.Price == "" {
		p.Price = str(item["extracted_price"])
	}
	if p.Price == "" {
		p.Price = FieldUnknown
	}
	if p.Source == "" {
		p.Source = FieldUnknown
	}

	image := str(item["thumbnail"])
	if image == "" {
		if images, ok := item["images"].([]any); ok && len(images) > 0 {
			image = str(images[0])
		}
	}
	if image != "" {
		image = absoluteURL(image)
		p.Image = &image
	}

	link := str(item["link"])
	if link == "" {
		link = str(item["product_link"])
	}
	if link == "" {
		link = str(item["source"])
	}
	if link != "" && !strings.HasPrefix(link, "http") {
		link = "https://" + strings.TrimLeft(link, "/")
	}
	p.Link = link
	return p
}

// absoluteURL upgrades protocol-relative URLs to https and prefixes bare-host
// values with a scheme.
func absoluteURL(raw string) string {
	switch {
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case !strings.HasPrefix(raw, "http"):
		return "https://" + raw
	default:
		return raw
	}
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok {
		// drop the trailing .0 JSON numbers pick up through any
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
	}
	return fmt.Sprintf("%v", v)
}
