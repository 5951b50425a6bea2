package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"backupmon/pkg/log"
	"backupmon/pkg/models"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	healthPath  = "/api/health"
	backupsPath = "/api/backups"
	logsPath    = "/api/logs"
)

// Client reads the monitor backend API.
type Client struct {
	baseURL  string
	username string
	password string
	http     *retryablehttp.Client
}

// NewClient creates an API client for baseURL. Requests are bounded by
// requestTimeout; a zero timeout leaves only the caller's context.
// Empty credentials disable Basic authentication.
func NewClient(baseURL, username, password string, requestTimeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     createClient(requestTimeout),
	}
}

// createClient builds a retryablehttp client that never retries: a failed
// request waits for the next poll.
func createClient(requestTimeout time.Duration) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.HTTPClient.Timeout = requestTimeout
	client.RetryMax = 0
	client.Logger = nil
	client.CheckRetry = noRetryPolicy
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, _ int) {
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("Backend request")
	}
	return client
}

// noRetryPolicy hands every response and error straight back to the caller.
func noRetryPolicy(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return false, nil
}

// Health fetches GET /api/health.
func (c *Client) Health(ctx context.Context) (models.HealthStatus, error) {
	var health models.HealthStatus
	err := c.getJSON(ctx, healthPath, nil, &health)
	return health, err
}

// Backups fetches one page of GET /api/backups.
func (c *Client) Backups(ctx context.Context, page, pageSize int) (models.BackupPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	var backups models.BackupPage
	err := c.getJSON(ctx, backupsPath, query, &backups)
	return backups, err
}

// Logs fetches GET /api/logs and unwraps the entries.
func (c *Client) Logs(ctx context.Context) ([]models.LogEntry, error) {
	var wrapper models.LogsResponse
	if err := c.getJSON(ctx, logsPath, nil, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Logs, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("endpoint", path).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{Endpoint: path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
