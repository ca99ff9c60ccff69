package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shieldhq/threatwatch/internal/domain/news"
)

const defaultTimeout = 30 * time.Second

// Client fetches top headlines from NewsAPI and normalizes them into
// domain articles.
type Client struct {
	endpoint   string
	apiKey     string
	country    string
	httpClient *http.Client
}

var _ news.Source = (*Client)(nil)

func NewClient(endpoint, apiKey, country string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		country:  country,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// response mirrors the NewsAPI top-headlines payload.
type response struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Fetch calls the aggregator once and returns the normalized batch.
// Items without a title or URL are dropped; transport and non-2xx failures
// surface as ErrSourceUnavailable. Retrying is the scheduler's job.
func (c *Client) Fetch(ctx context.Context) ([]news.Article, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("country", c.country)
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", news.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s: %s", news.ErrSourceUnavailable, resp.Status, string(body))
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", news.ErrSourceUnavailable, err)
	}

	out := make([]news.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		if item.Title == "" || item.URL == "" {
			// malformed upstream item, never reaches classification
			continue
		}
		a := news.Article{
			Title:       item.Title,
			Description: item.Description,
			Source:      item.Source.Name,
			URL:         item.URL,
		}
		if ts, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
			t := ts.Truncate(time.Second)
			a.PublishedAt = &t
		}
		out = append(out, a)
	}
	return out, nil
}
