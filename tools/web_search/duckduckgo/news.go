// Package duckduckgo is a small client for DuckDuckGo News. A query needs a
// vqd token scraped from the search page before news.js will answer it.
package duckduckgo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mohammad-safakhou/tariffnews/internal/helpers"
	"github.com/mohammad-safakhou/tariffnews/tools/web_search/models"
)

const (
	DefaultBaseURL   = "https://duckduckgo.com"
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultTimeout   = 30 * time.Second
	defaultRegion    = "wt-wt"
	isoDateLayout    = "2006-01-02T15:04:05+00:00"
)

// ErrNoVQD is returned when the search page did not carry a vqd token.
var ErrNoVQD = errors.New("duckduckgo: vqd token not found")

var vqdPattern = regexp.MustCompile(`vqd=["']?([0-9A-Za-z_-]+)`)

var safeSearchParam = map[string]string{
	"on":       "1",
	"moderate": "-1",
	"off":      "-2",
}

type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// BreakerSettings configures the circuit breaker guarding the backend.
type BreakerSettings struct {
	MaxFailures uint32
	Timeout     time.Duration
	Interval    time.Duration
}

type Client struct {
	baseURL   string
	userAgent string
	doer      Doer
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]models.Record]
	breakerSt BreakerSettings
	logger    *zap.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithDoer injects the HTTP client (tests, custom transports).
func WithDoer(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.doer = d
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.doer = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit caps outbound requests. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithBreaker(st BreakerSettings) Option {
	return func(c *Client) { c.breakerSt = st }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client with defaults for anything not set through opts.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: defaultUserAgent,
		doer:      &http.Client{Timeout: defaultTimeout},
		limiter:   rate.NewLimiter(rate.Limit(1), 2),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker(c.breakerSt, c.logger)
	return c
}

func newBreaker(st BreakerSettings, logger *zap.Logger) *gobreaker.CircuitBreaker[[]models.Record] {
	maxFailures := st.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := st.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	interval := st.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	return gobreaker.NewCircuitBreaker[[]models.Record](gobreaker.Settings{
		Name:        "duckduckgo:news",
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// A caller giving up is not the backend's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
}

// News runs a single news query. Records keep backend order and are capped at
// opts.MaxResults when it is positive.
func (c *Client) News(ctx context.Context, query string, opts models.NewsOptions) ([]models.Record, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("duckduckgo: empty query")
	}
	records, err := c.breaker.Execute(func() ([]models.Record, error) {
		return c.news(ctx, query, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("duckduckgo circuit open: %w", err)
		}
		return nil, err
	}
	return records, nil
}

func (c *Client) news(ctx context.Context, query string, opts models.NewsOptions) ([]models.Record, error) {
	safe := strings.ToLower(strings.TrimSpace(opts.SafeSearch))
	if safe == "" {
		safe = "moderate"
	}
	p, ok := safeSearchParam[safe]
	if !ok {
		return nil, fmt.Errorf("duckduckgo: unsupported safesearch %q", opts.SafeSearch)
	}
	region := opts.Region
	if region == "" {
		region = defaultRegion
	}

	vqd, err := c.vqd(ctx, query)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("l", region)
	params.Set("o", "json")
	params.Set("noamp", "1")
	params.Set("q", query)
	params.Set("vqd", vqd)
	params.Set("p", p)
	if opts.TimeLimit != "" {
		params.Set("df", opts.TimeLimit)
	}
	params.Set("s", "0")

	body, err := c.get(ctx, "/news.js", params)
	if err != nil {
		return nil, err
	}

	var raw struct {
		Results []struct {
			Date    float64 `json:"date"`
			Title   string  `json:"title"`
			Excerpt string  `json:"excerpt"`
			URL     string  `json:"url"`
			Image   string  `json:"image"`
			Source  string  `json:"source"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("duckduckgo: decode news: %w", err)
	}

	out := make([]models.Record, 0, len(raw.Results))
	for _, r := range raw.Results {
		if opts.MaxResults > 0 && len(out) >= opts.MaxResults {
			break
		}
		rec := models.Record{
			Title:  r.Title,
			URL:    helpers.UnescapeURL(r.URL),
			Body:   helpers.PlainText(r.Excerpt),
			Image:  helpers.UnescapeURL(r.Image),
			Source: r.Source,
		}
		if r.Date > 0 {
			rec.Date = time.Unix(int64(r.Date), 0).UTC().Format(isoDateLayout)
		}
		out = append(out, rec)
	}
	c.logger.Debug("duckduckgo news fetched",
		zap.String("query", query),
		zap.Int("raw", len(raw.Results)),
		zap.Int("kept", len(out)))
	return out, nil
}

// vqd scrapes the per-query token from the search page.
func (c *Client) vqd(ctx context.Context, query string) (string, error) {
	body, err := c.get(ctx, "/", url.Values{"q": {query}})
	if err != nil {
		return "", err
	}
	m := vqdPattern.FindSubmatch(body)
	if m == nil {
		return "", ErrNoVQD
	}
	return string(m[1]), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("duckduckgo: rate limit wait: %w", err)
	}
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo %d: %s", resp.StatusCode, truncate(string(body), 300))
	}
	return body, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
