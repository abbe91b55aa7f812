// Package horoscope fetches daily horoscope readings from a public HTTP API.
//
// The companion workflow uses it to ground any horoscope talk in a real
// reading. A failed lookup is reported as an error and never replaced by
// invented text.
package horoscope

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spetersoncode/concierge"
	"github.com/spetersoncode/concierge/retry"
)

// DefaultBaseURL is the public horoscope API (no auth required).
const DefaultBaseURL = "https://ohmanda.com/api/horoscope"

// ErrLookup marks a failed horoscope lookup.
var ErrLookup = errors.New("horoscope lookup failed")

// DefaultTimeout bounds a single lookup.
const DefaultTimeout = 12 * time.Second

// Signs lists the signs the API serves.
var Signs = []string{
	"aries", "taurus", "gemini", "cancer", "leo", "virgo",
	"libra", "scorpio", "sagittarius", "capricorn", "aquarius", "pisces",
}

// Reading is one daily horoscope.
type Reading struct {
	Sign string `json:"sign"`
	Date string `json:"date"`
	Text string `json:"horoscope"`
}

// Client looks up daily readings.
type Client struct {
	baseURL string
	http    *http.Client
	retry   retry.Config
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the HTTP client used for lookups.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRetry sets the retry policy applied around each lookup.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a client for the public API.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		retry:   retry.DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Daily returns today's reading for sign.
func (c *Client) Daily(ctx context.Context, sign string) (Reading, error) {
	sign = strings.ToLower(strings.TrimSpace(sign))
	if !Valid(sign) {
		return Reading{}, concierge.NewUserInputError(ErrLookup,
			fmt.Sprintf("unknown zodiac sign %q", sign), 0, nil)
	}

	reading, err := retry.Do(ctx, c.retry, func() (Reading, error) {
		return c.fetch(ctx, sign)
	})
	if err != nil {
		c.logger.Warn("horoscope lookup failed", "sign", sign, "error", err)
		return Reading{}, err
	}
	return reading, nil
}

func (c *Client) fetch(ctx context.Context, sign string) (Reading, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(sign) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Reading{}, concierge.NewPermanentError(ErrLookup, "build request", 0, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Reading{}, concierge.NewTransientError(ErrLookup, "request failed", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return Reading{}, concierge.NewTransientError(ErrLookup, msg, resp.StatusCode, nil)
		}
		return Reading{}, concierge.NewPermanentError(ErrLookup, msg, resp.StatusCode, nil)
	}

	var r Reading
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Reading{}, concierge.NewPermanentError(ErrLookup, "decode response", resp.StatusCode, err)
	}
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		return Reading{}, concierge.NewPermanentError(ErrLookup, "empty reading", resp.StatusCode, nil)
	}
	if r.Sign == "" {
		r.Sign = sign
	}
	return r, nil
}

// Valid reports whether sign is one of Signs.
func Valid(sign string) bool {
	return slices.Contains(Signs, sign)
}
