// Package delivery posts generated reports as comments on GitHub pull requests.
//
// Each report for key value K goes to repository {organization}/{prefix}{K},
// on the pull request numbered Target.PullRequest (GitHub Classroom opens
// feedback pull request #1 in every student repository).
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/cellveyor/internal/fsutil"
	"github.com/hyperjump/cellveyor/internal/models"
	"github.com/hyperjump/cellveyor/internal/storage"
	"github.com/hyperjump/cellveyor/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the GitHub REST API root.
	DefaultBaseURL = "https://api.github.com"
	// DefaultPullRequest is the feedback pull request GitHub Classroom creates.
	DefaultPullRequest = 1
	// DefaultConcurrency bounds simultaneous requests.
	DefaultConcurrency = 4
	// DefaultRequestsPerSecond paces requests to stay under secondary rate limits.
	DefaultRequestsPerSecond = 1.0
	defaultBurst             = 2
	maxErrorBody             = 200
)

// ErrMissingCredentials is returned when the target lacks a token or organization.
var ErrMissingCredentials = errors.New("github token and organization are required")

// ErrEmptyKey is reported for a report whose key value is blank; it would
// otherwise be posted to the bare prefix repository.
var ErrEmptyKey = errors.New("report has an empty key value")

// Target identifies where reports go.
type Target struct {
	Token            string
	Organization     string
	RepositoryPrefix string
	// PullRequest is the pull request number to comment on; zero means DefaultPullRequest.
	PullRequest int
}

// Repository returns the full name of the repository for key value key.
func (t Target) Repository(key string) string {
	return t.Organization + "/" + t.RepositoryPrefix + key
}

// Outcome is the result of delivering one report.
type Outcome struct {
	Key        string
	Repository string
	CommentURL string
	// Skipped is true when the same report was already delivered to this repository.
	Skipped bool
	Err     error
}

// Failed returns the outcomes that carry an error.
func Failed(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Client posts report comments. Failed posts are reported, not retried.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	limiter     *rate.Limiter
	concurrency int
	ledger      storage.Ledger
	force       bool
	logger      *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets the API root (for GitHub Enterprise or tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// WithRateLimit sets request pacing. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithConcurrency bounds simultaneous requests.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLedger records deliveries and skips reports whose text was already delivered.
func WithLedger(l storage.Ledger) ClientOption {
	return func(c *Client) { c.ledger = l }
}

// WithForce posts even when the ledger shows the same report was delivered.
func WithForce(force bool) ClientOption {
	return func(c *Client) { c.force = force }
}

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client with default pacing and concurrency.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     DefaultBaseURL,
		limiter:     rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), defaultBurst),
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver posts every report in reports. Outcomes follow report order.
// The returned error is non-nil only when delivery could not start.
func (c *Client) Deliver(ctx context.Context, target Target, reports *models.ReportSet) ([]Outcome, error) {
	if target.Token == "" || target.Organization == "" {
		return nil, ErrMissingCredentials
	}
	if target.PullRequest <= 0 {
		target.PullRequest = DefaultPullRequest
	}

	list := reports.Reports()
	outcomes := make([]Outcome, len(list))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, r := range list {
		i, r := i, r
		g.Go(func() error {
			outcomes[i] = c.deliverOne(ctx, target, r)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, nil
}

func (c *Client) deliverOne(ctx context.Context, target Target, r models.Report) Outcome {
	repo := target.Repository(r.Key)
	out := Outcome{Key: r.Key, Repository: repo}
	if strings.TrimSpace(r.Key) == "" {
		out.Err = ErrEmptyKey
		c.logger.Error("delivery refused", zap.String("repository", repo), zap.Error(out.Err))
		return out
	}
	digest := fsutil.ReportDigest(r.Text)

	if c.ledger != nil && !c.force {
		last, err := c.ledger.LastDelivery(ctx, repo, r.Key)
		switch {
		case err == nil && last.Digest == digest:
			out.Skipped = true
			out.CommentURL = last.CommentURL
			c.logger.Debug("report unchanged, skipping", zap.String("repository", repo))
			return out
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			c.logger.Warn("ledger lookup failed", zap.String("repository", repo), zap.Error(err))
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		out.Err = err
		return out
	}
	commentURL, err := c.postComment(ctx, target, repo, r.Text)
	if err != nil {
		out.Err = err
		c.logger.Error("delivery failed", zap.String("repository", repo), zap.Error(err))
		return out
	}
	out.CommentURL = commentURL
	c.logger.Info("report delivered", zap.String("repository", repo), zap.String("comment_url", commentURL))

	if c.ledger != nil {
		rec := &models.Delivery{Repository: repo, KeyValue: r.Key, Digest: digest, CommentURL: commentURL}
		if err := c.ledger.RecordDelivery(ctx, rec); err != nil {
			c.logger.Warn("ledger record failed", zap.String("repository", repo), zap.Error(err))
		}
	}
	return out
}

type commentRequest struct {
	Body string `json:"body"`
}

type commentResponse struct {
	HTMLURL string `json:"html_url"`
}

func (c *Client) postComment(ctx context.Context, target Target, repo, body string) (string, error) {
	owner, name, _ := strings.Cut(repo, "/")
	endpoint := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments",
		c.baseURL, url.PathEscape(owner), url.PathEscape(name), target.PullRequest)

	payload, err := json.Marshal(commentRequest{Body: body})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+target.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("github returned %d: %s", resp.StatusCode, utils.Truncate(strings.TrimSpace(string(b)), maxErrorBody))
	}
	var created commentResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return created.HTMLURL, nil
}
