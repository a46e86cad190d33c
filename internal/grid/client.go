package grid

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rickgao/esports-bridge/internal/auth"
)

// DefaultEndpoint is the central-data GraphQL endpoint.
const DefaultEndpoint = "https://api-op.grid.gg/central-data/graphql"

// Client provides access to the provider's GraphQL API.
type Client struct {
	endpoint    string
	credentials auth.Source
	httpClient  *http.Client
	logger      *slog.Logger
	clock       clockwork.Clock

	maxRetries   int
	retryBackoff time.Duration

	// Discovery window and paging
	lookback  time.Duration
	lookahead time.Duration
	pageSize  int
	maxPages  int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new provider client.
func NewClient(endpoint string, credentials auth.Source, opts ...ClientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	c := &Client{
		endpoint:    endpoint,
		credentials: credentials,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger:       slog.Default(),
		clock:        clockwork.NewRealClock(),
		maxRetries:   2,
		retryBackoff: 500 * time.Millisecond,
		lookback:     6 * time.Hour,
		lookahead:    24 * time.Hour,
		pageSize:     50,
		maxPages:     5,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the transport retry configuration for 429/5xx responses.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock sets the clock used to compute the discovery window.
func WithClock(clock clockwork.Clock) ClientOption {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithWindow sets how far before and after now scheduled starts are queried.
func WithWindow(lookback, lookahead time.Duration) ClientOption {
	return func(c *Client) {
		c.lookback = lookback
		c.lookahead = lookahead
	}
}

// WithPaging sets the page size and the maximum pages fetched per discovery.
func WithPaging(pageSize, maxPages int) ClientOption {
	return func(c *Client) {
		c.pageSize = pageSize
		c.maxPages = maxPages
	}
}
