package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// MaxResults caps how many candidates a search returns.
	MaxResults = 10

	defaultHTTPTimeout = 15 * time.Second
)

// HTTPClient talks to the covergrid catalog proxy, which fronts the
// third-party movie/album/book APIs and serves their results as JSON.
type HTTPClient struct {
	baseURL string
	kind    Kind
	limit   int
	client  *http.Client
}

// NewHTTPClient returns a client for one catalog kind. A nil http.Client gets
// a default with a request timeout.
func NewHTTPClient(baseURL string, kind Kind, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		kind:    kind,
		limit:   MaxResults,
		client:  client,
	}
}

// Kind reports which catalog this client searches.
func (c *HTTPClient) Kind() Kind { return c.kind }

// Search asks the proxy for candidates matching query, in upstream order,
// capped at MaxResults. Zero matches yield an empty slice.
func (c *HTTPClient) Search(ctx context.Context, query string) ([]Candidate, error) {
	body, err := c.get(ctx, query, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var envelope struct {
		Results []apiItem `json:"results"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode %s search response: %w", c.kind, err)
	}

	items := envelope.Results
	if len(items) > c.limit {
		items = items[:c.limit]
	}
	candidates := make([]Candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, item.normalize())
	}
	return candidates, nil
}

// Lookup asks the proxy for the single top match, using the endpoint's
// single-result mode, which returns one flat object instead of a list.
func (c *HTTPClient) Lookup(ctx context.Context, query string) (Candidate, error) {
	body, err := c.get(ctx, query, true)
	if err != nil {
		return Candidate{}, err
	}
	defer body.Close()

	var item apiItem
	if err := json.NewDecoder(body).Decode(&item); err != nil {
		return Candidate{}, fmt.Errorf("failed to decode %s lookup response: %w", c.kind, err)
	}
	return item.normalize(), nil
}

func (c *HTTPClient) get(ctx context.Context, query string, single bool) (io.ReadCloser, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", "1")
	if single {
		params.Set("single", "1")
	}
	endpoint := fmt.Sprintf("%s/api/search/%s?%s", c.baseURL, c.kind, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("catalog error: %s (%s)", resp.Status, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

// apiItem is the superset of fields the proxy emits across the three
// catalogs. Normalization to the common Candidate shape happens here, not in
// the search controller.
type apiItem struct {
	ID      idValue  `json:"id"`
	Title   string   `json:"title"`
	Name    string   `json:"name"`
	Year    int      `json:"year"`
	Image   string   `json:"image"`
	Rating  float64  `json:"rating"`
	Artist  string   `json:"artist"`
	Authors []string `json:"authors"`
}

func (it apiItem) normalize() Candidate {
	title := it.Title
	if title == "" {
		title = it.Name
	}
	return Candidate{
		ID:       string(it.ID),
		Title:    strings.TrimSpace(title),
		ImageURL: it.Image,
		Year:     it.Year,
		Rating:   it.Rating,
		Artist:   it.Artist,
		Authors:  it.Authors,
	}
}

// idValue accepts either a JSON string or number; upstream APIs disagree.
type idValue string

func (v *idValue) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		*v = ""
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = idValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = idValue(n.String())
	return nil
}
