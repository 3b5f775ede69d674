package acoustid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.acoustid.org/v2"

var ErrLookupFailed = errors.New("acoustid: lookup failed")

type Config struct {
	APIKey     string
	BaseURL    string
	RateLimit  float64
	Timeout    time.Duration
	MaxElapsed time.Duration
}

// Client talks to the AcoustID web service. Requests are rate limited and
// transient failures are retried with exponential backoff.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxElapsed time.Duration
	log        *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 30 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		maxElapsed: cfg.MaxElapsed,
		log:        log,
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

func (c *Client) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = c.maxElapsed
	return backoff.WithContext(b, ctx)
}

// Lookup returns the highest scoring recording for fp, or nil when the
// service knows no recording for it.
func (c *Client) Lookup(ctx context.Context, fp domain.Fingerprint) (*domain.AcoustIDMatch, error) {
	form := url.Values{}
	form.Set("client", c.apiKey)
	form.Set("format", "json")
	form.Set("meta", "recordings releasegroups compress")
	form.Set("duration", strconv.Itoa(fp.Duration))
	form.Set("fingerprint", fp.Value)

	attempt := func() ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/lookup", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Warnw("acoustid_lookup_retry", "error", err)
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			c.log.Warnw("acoustid_lookup_retry", "status", resp.StatusCode)
			return nil, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
		}
		return body, nil
	}

	body, err := backoff.RetryWithData(attempt, c.newBackoff(ctx))
	if err != nil {
		if errors.Is(err, ErrLookupFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return parseLookup(body)
}

func parseLookup(body []byte) (*domain.AcoustIDMatch, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid response body", ErrLookupFailed)
	}
	doc := gjson.ParseBytes(body)
	if status := doc.Get("status").String(); status != "ok" {
		msg := doc.Get("error.message").String()
		if msg == "" {
			msg = "status " + status
		}
		return nil, fmt.Errorf("%w: %s", ErrLookupFailed, msg)
	}

	results := doc.Get("results").Array()
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Get("score").Float() > results[j].Get("score").Float()
	})

	for _, result := range results {
		recording := result.Get("recordings.0")
		if !recording.Exists() || recording.Get("title").String() == "" {
			continue
		}

		match := &domain.AcoustIDMatch{
			Score:       result.Get("score").Float(),
			RecordingID: recording.Get("id").String(),
			Title:       recording.Get("title").String(),
			Album:       recording.Get("releasegroups.0.title").String(),
		}
		for _, name := range recording.Get("artists.#.name").Array() {
			match.Artists = append(match.Artists, name.String())
		}
		return match, nil
	}
	return nil, nil
}
