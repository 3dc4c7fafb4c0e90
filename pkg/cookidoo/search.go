package cookidoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	errs "recipescraper/pkg/errors"
	"recipescraper/pkg/logger"
	"recipescraper/pkg/ratelimit"
	"recipescraper/pkg/recipe"
	"recipescraper/pkg/retry"
)

// SearchChars are the single character prefixes discovery starts from
var SearchChars = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÜabcdefghijklmnopqrstuvwxyzäöü0123456789")

const (
	// MaxPrefixDepth bounds how far a saturated prefix is subdivided
	MaxPrefixDepth = 3
	// HitsPerPage is the largest page the search backend returns
	HitsPerPage = 1000
)

// SearchConfig is what the search page exposes about its backend
type SearchConfig struct {
	AppID    string
	APIKey   string
	Index    string
	Language string
}

// Endpoint returns the query URL for the recipes index
func (c SearchConfig) Endpoint() string {
	return fmt.Sprintf("https://%s-dsn.algolia.net/1/indexes/%s/query", c.AppID, c.Index)
}

type nextData struct {
	Props struct {
		PageProps struct {
			AlgoliaAppID      string `json:"algoliaAppId"`
			AlgoliaAPIKeyData struct {
				APIKey string `json:"apiKey"`
			} `json:"algoliaApiKeyData"`
			AlgoliaIndices struct {
				Recipes struct {
					Title          string `json:"title"`
					RelevanceEmpty string `json:"relevance_empty"`
					Relevance      string `json:"relevance"`
				} `json:"recipes"`
			} `json:"algoliaIndices"`
		} `json:"pageProps"`
	} `json:"props"`
}

// ParseSearchConfig extracts the search backend settings from the
// __NEXT_DATA__ script of the search page
func ParseSearchConfig(html, locale string) (SearchConfig, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return SearchConfig{}, errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse search page")
	}

	raw := strings.TrimSpace(doc.Find("script#__NEXT_DATA__").First().Text())
	if raw == "" {
		return SearchConfig{}, errs.New(errs.ErrorTypeParsing, "missing __NEXT_DATA__ on search page")
	}

	var data nextData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return SearchConfig{}, errs.Wrap(errs.ErrorTypeParsing, err, "failed to decode __NEXT_DATA__")
	}

	props := data.Props.PageProps
	indices := props.AlgoliaIndices.Recipes
	cfg := SearchConfig{
		AppID:    props.AlgoliaAppID,
		APIKey:   props.AlgoliaAPIKeyData.APIKey,
		Index:    firstNonEmpty(indices.Title, indices.RelevanceEmpty, indices.Relevance),
		Language: Language(locale),
	}
	if cfg.AppID == "" || cfg.APIKey == "" || cfg.Index == "" {
		return SearchConfig{}, errs.New(errs.ErrorTypeParsing, "incomplete search configuration on search page")
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type searchQuery struct {
	Query                        string   `json:"query"`
	Page                         int      `json:"page"`
	HitsPerPage                  int      `json:"hitsPerPage"`
	AttributesToRetrieve         []string `json:"attributesToRetrieve"`
	Filters                      string   `json:"filters"`
	RestrictSearchableAttributes []string `json:"restrictSearchableAttributes"`
}

type searchResponse struct {
	NbHits int `json:"nbHits"`
	Hits   []struct {
		ID       string `json:"id"`
		ObjectID string `json:"objectID"`
	} `json:"hits"`
}

// SearchClient enumerates recipe ids through the search backend
type SearchClient struct {
	httpClient *http.Client
	config     SearchConfig
	endpoint   string
	limiter    ratelimit.Limiter
	retry      retry.Config
	logger     logger.Logger
}

// NewSearchClient creates a client for cfg. limiter may be nil.
func NewSearchClient(cfg SearchConfig, timeout time.Duration, limiter ratelimit.Limiter, log logger.Logger) *SearchClient {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if limiter == nil {
		limiter = ratelimit.NewInterval(0)
	}
	return &SearchClient{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
		endpoint:   cfg.Endpoint(),
		limiter:    limiter,
		retry: retry.Config{
			MaxAttempts: 3,
			Backoff:     retry.DefaultExponentialBackoff(),
			Logger:      log,
		},
		logger: log,
	}
}

// SetEndpoint overrides the query URL
func (c *SearchClient) SetEndpoint(url string) {
	c.endpoint = url
}

// SetBackoff overrides the delay between retried queries
func (c *SearchClient) SetBackoff(b retry.BackoffStrategy) {
	c.retry.Backoff = b
}

// Query returns the ids matching prefix and the backend's total hit count
func (c *SearchClient) Query(ctx context.Context, prefix string) ([]string, int, error) {
	cfg := c.retry
	cfg.Context = ctx

	return queryResult(retry.DoWithResult(func(attempt int) (*searchResponse, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.query(ctx, prefix)
	}, &cfg))
}

func queryResult(resp *searchResponse, err error) ([]string, int, error) {
	if err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		id := strings.TrimSpace(firstNonEmpty(hit.ID, hit.ObjectID))
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, resp.NbHits, nil
}

// query performs a single POST against the search endpoint
func (c *SearchClient) query(ctx context.Context, prefix string) (*searchResponse, error) {
	payload, err := json.Marshal(searchQuery{
		Query:                        prefix,
		Page:                         0,
		HitsPerPage:                  HitsPerPage,
		AttributesToRetrieve:         []string{"id"},
		Filters:                      "language:" + c.config.Language,
		RestrictSearchableAttributes: []string{"title"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Algolia-Application-Id", c.config.AppID)
	req.Header.Set("X-Algolia-API-Key", c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "search request failed")
	}
	defer resp.Body.Close()
	logger.LogRequest(c.logger, req.Method, c.endpoint, resp.StatusCode, time.Since(start))

	if err := checkResponseStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read search response")
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.WarnWithFields("failed to parse search response", map[string]interface{}{
			"prefix":       prefix,
			"body_preview": preview,
		})
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse search response")
	}
	return &out, nil
}

// checkResponseStatus maps HTTP failures onto typed errors
func checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &errs.Error{
		Type:    errs.TypeForStatusCode(resp.StatusCode),
		Message: fmt.Sprintf("search backend returned %s", resp.Status),
		Code:    resp.StatusCode,
	}
}

// Discover walks search prefixes breadth first and returns every id found,
// in first-seen order. A prefix whose result page is full is subdivided
// until MaxPrefixDepth. Failed prefixes are logged and skipped; if every
// query failed the last error is returned.
func (c *SearchClient) Discover(ctx context.Context) ([]recipe.ID, error) {
	queue := make([]string, 0, len(SearchChars))
	for _, ch := range SearchChars {
		queue = append(queue, string(ch))
	}

	seen := make(map[recipe.ID]bool)
	var ids []recipe.ID
	var lastErr error
	queried, failed := 0, 0

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prefix := queue[0]
		queue = queue[1:]

		hits, total, err := c.Query(ctx, prefix)
		queried++
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			lastErr = err
			c.logger.WithError(err).WithField("prefix", prefix).Warn("Search query failed, skipping prefix")
			continue
		}

		for _, raw := range hits {
			id, err := recipe.NormalizeID(raw)
			if err != nil || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}

		if len(hits) >= HitsPerPage && total > HitsPerPage && len([]rune(prefix)) < MaxPrefixDepth {
			for _, ch := range SearchChars {
				queue = append(queue, prefix+string(ch))
			}
		}

		if len([]rune(prefix)) == 1 {
			c.logger.DebugWithFields("Prefix searched", map[string]interface{}{
				"prefix":     prefix,
				"found":      len(hits),
				"total_hits": total,
				"discovered": len(ids),
			})
		}
	}

	if failed == queried && lastErr != nil {
		return nil, errs.Wrap(errs.TypeOf(lastErr), lastErr, "recipe discovery failed")
	}

	c.logger.InfoWithFields("Discovery complete", map[string]interface{}{
		"recipes":        len(ids),
		"queries":        queried,
		"failed_queries": failed,
	})
	return ids, nil
}
