package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"kinoshka/internal/logging"
	"kinoshka/models"
)

const (
	DefaultBaseURL = "https://kinopoiskapiunofficial.tech/"

	apiKeyHeader     = "X-API-KEY"
	defaultTimeout   = 20 * time.Second
	maxRateRetries   = 2
	maxResponseBytes = 8 << 20
	stillImageType   = "STILL"
)

// ClientConfig configures the catalog API client.
type ClientConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// Client talks to the Kinopoisk unofficial API. Requests are rate limited,
// 429 responses are retried and repeated server failures open a circuit
// breaker.
type Client struct {
	apiKey  string
	baseURL *url.URL
	httpc   *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     zerolog.Logger

	// retryUnit scales Retry-After seconds and the fallback backoff.
	retryUnit time.Duration
}

// NewClient validates cfg and builds a client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpc = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		baseURL:   baseURL,
		httpc:     httpc,
		limiter:   rate.NewLimiter(limit, 1),
		log:       logging.Component("metadata"),
		retryUnit: time.Second,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "kinopoisk-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})

	if c.apiKey == "" {
		c.log.Warn().Msg("catalog api key is empty; requests will be rejected")
	}
	return c, nil
}

// Only server-side trouble counts against the breaker.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	code := StatusCode(err)
	return code != 0 && code < http.StatusInternalServerError
}

func (c *Client) Popular(ctx context.Context, collectionType string, page int) (models.FilmsResponse, error) {
	var out models.FilmsResponse
	q := url.Values{"type": {collectionType}, "page": {strconv.Itoa(pageOrFirst(page))}}
	err := c.doGET(ctx, "api/v2.2/films/collections", q, &out)
	return out, err
}

func (c *Client) Search(ctx context.Context, keyword string, page int) (models.SearchResponse, error) {
	var out models.SearchResponse
	q := url.Values{"keyword": {keyword}, "page": {strconv.Itoa(pageOrFirst(page))}}
	err := c.doGET(ctx, "api/v2.2/films", q, &out)
	return out, err
}

func (c *Client) Details(ctx context.Context, id int) (models.FilmDetails, error) {
	var out models.FilmDetails
	err := c.doGET(ctx, filmPath(id, ""), nil, &out)
	return out, err
}

func (c *Client) Seasons(ctx context.Context, id int) (models.SeasonsResponse, error) {
	var out models.SeasonsResponse
	err := c.doGET(ctx, filmPath(id, "seasons"), nil, &out)
	return out, err
}

func (c *Client) Similars(ctx context.Context, id int) (models.LinksResponse, error) {
	var out models.LinksResponse
	err := c.doGET(ctx, filmPath(id, "similars"), nil, &out)
	return out, err
}

func (c *Client) Relations(ctx context.Context, id int) (models.LinksResponse, error) {
	var out models.LinksResponse
	err := c.doGET(ctx, filmPath(id, "relations"), nil, &out)
	return out, err
}

func (c *Client) Images(ctx context.Context, id, page int) (models.ImagesResponse, error) {
	var out models.ImagesResponse
	q := url.Values{"type": {stillImageType}, "page": {strconv.Itoa(pageOrFirst(page))}}
	err := c.doGET(ctx, filmPath(id, "images"), q, &out)
	return out, err
}

func filmPath(id int, sub string) string {
	p := "api/v2.2/films/" + strconv.Itoa(id)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

func pageOrFirst(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// doGET fetches endpoint through the breaker and decodes the JSON body into v.
func (c *Client) doGET(ctx context.Context, endpoint string, query url.Values, v any) error {
	ref := &url.URL{Path: endpoint}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	target := c.baseURL.ResolveReference(ref).String()

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.fetchWithRetry(ctx, target)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

// fetchWithRetry retries 429 responses up to maxRateRetries times, waiting for
// Retry-After seconds when sent and one more second per attempt otherwise.
func (c *Client) fetchWithRetry(ctx context.Context, target string) ([]byte, error) {
	return retry.DoWithData(
		func() ([]byte, error) { return c.fetch(ctx, target) },
		retry.Context(ctx),
		retry.Attempts(maxRateRetries+1),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return StatusCode(err) == http.StatusTooManyRequests
		}),
		retry.DelayType(func(n uint, err error, _ *retry.Config) time.Duration {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				if wait, ok := httpErr.RetryAfter(); ok {
					return wait
				}
			}
			return c.retryUnit * time.Duration(n+1)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug().Uint("attempt", n+1).Err(err).Str("url", target).Msg("rate limited, retrying")
		}),
	)
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		httpErr := &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, err := strconv.ParseInt(strings.TrimSpace(resp.Header.Get("Retry-After")), 10, 64); err == nil {
				httpErr.retryAfter = time.Duration(max(secs, 1)) * c.retryUnit
				httpErr.hasRetryAfter = true
			}
		}
		return nil, httpErr
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
