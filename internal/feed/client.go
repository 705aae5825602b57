package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"newsloop/internal/model"

	"go.uber.org/zap"
)

const defaultPageSize = "100"

// PlaceholderImage is used when the source provides no image URL.
const PlaceholderImage = "https://placehold.co/600x400?text=No+Image"

// categoryQueries maps app categories onto upstream search terms. The
// upstream "everything" endpoint has no category filter, so categories are
// plain keyword queries.
var categoryQueries = map[string]string{
	"finance":    "business",
	"health":     "health",
	"education":  "general",
	"sports":     "sports",
	"science":    "science",
	"technology": "technology",
}

// Response is one page of normalized articles plus the upstream total.
type Response struct {
	TotalArticles int             `json:"totalArticles"`
	Articles      []model.Article `json:"articles"`
}

// Client fetches and normalizes articles from a NewsAPI-compatible source.
// The source is stateless from our point of view; nothing it returns is
// ever stored directly.
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	domains    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a news source client. httpClient may be nil, in which
// case a client with a sane timeout is used.
func NewClient(baseURL, apiKey, language, domains string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		language:   language,
		domains:    domains,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Feed returns the main feed: everything from the configured domain list.
func (c *Client) Feed(ctx context.Context) (Response, error) {
	params := url.Values{}
	params.Set("domains", c.domains)
	return c.fetch(ctx, params)
}

// Category returns articles for an app category, falling back to "general"
// for unknown names.
func (c *Client) Category(ctx context.Context, category string) (Response, error) {
	q, ok := categoryQueries[category]
	if !ok {
		q = "general"
	}
	params := url.Values{}
	params.Set("q", q)
	return c.fetch(ctx, params)
}

// Search returns articles matching a free-text query, newest first.
func (c *Client) Search(ctx context.Context, query string) (Response, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sortBy", "publishedAt")
	return c.fetch(ctx, params)
}

func (c *Client) fetch(ctx context.Context, params url.Values) (Response, error) {
	params.Set("language", c.language)
	params.Set("pageSize", defaultPageSize)
	params.Set("apiKey", c.apiKey)

	reqURL := fmt.Sprintf("%s/everything?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Response{}, fmt.Errorf("build news request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("fetch news: %w", err)
	}
	defer resp.Body.Close()

	var raw wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Response{}, fmt.Errorf("decode news response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("News source rejected request",
			zap.Int("status", resp.StatusCode),
			zap.String("message", raw.Message))
		return Response{}, fmt.Errorf("news source returned %d", resp.StatusCode)
	}

	return c.transform(raw), nil
}

// wireResponse mirrors the upstream NewsAPI shape before normalization.
type wireResponse struct {
	Status       string        `json:"status"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []wireArticle `json:"articles"`
}

type wireArticle struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

// transform normalizes the upstream page: entries without a title or URL
// are dropped, every display field gets a safe default, and each surviving
// article receives a rank-derived id.
func (c *Client) transform(raw wireResponse) Response {
	articles := make([]model.Article, 0, len(raw.Articles))
	for _, wa := range raw.Articles {
		if wa.Title == "" || wa.URL == "" {
			continue
		}
		// Rank is the position within the surviving list, so dropped
		// entries do not shift the ids of the articles after them.
		a := model.Article{
			ID:          ArticleID(wa.URL, len(articles)),
			Title:       wa.Title,
			Description: wa.Description,
			Content:     wa.Content,
			URL:         wa.URL,
			Image:       wa.URLToImage,
			PublishedAt: wa.PublishedAt,
			Lang:        c.language,
			Source: model.Source{
				ID:   wa.Source.ID,
				Name: wa.Source.Name,
			},
		}
		if a.Image == "" {
			a.Image = PlaceholderImage
		}
		if a.PublishedAt == "" {
			a.PublishedAt = time.Now().UTC().Format(time.RFC3339)
		}
		if a.Source.Name == "" {
			a.Source.Name = model.DefaultSourceName
		}
		articles = append(articles, a)
	}

	total := raw.TotalResults
	if total == 0 {
		total = len(articles)
	}
	return Response{TotalArticles: total, Articles: articles}
}
