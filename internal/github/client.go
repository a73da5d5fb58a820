package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/cli/go-gh/v2/pkg/repository"
	gh "github.com/google/go-github/v57/github"

	"github.com/serpro69/gh-backport/internal/logger"
)

// Client is a thin wrapper around go-gh's REST client. Requests are never
// retried: any failure aborts the current run.
type Client struct {
	rest      *api.RESTClient
	repo      *Repository
	rateLimit *RateLimitInfo
}

// Repository represents a GitHub repository context
type Repository struct {
	Owner string
	Name  string
}

// String returns the repository in "owner/name" format
func (r *Repository) String() string {
	if r == nil {
		return ""
	}
	return r.Owner + "/" + r.Name
}

// clientSettings collects options before the REST client is built
type clientSettings struct {
	api  api.ClientOptions
	repo *Repository
}

// ClientOption is a functional option for configuring the Client
type ClientOption func(*clientSettings) error

// WithRepository sets the repository context manually
func WithRepository(owner, name string) ClientOption {
	return func(s *clientSettings) error {
		if owner == "" || name == "" {
			return nil
		}
		s.repo = &Repository{Owner: owner, Name: name}
		return nil
	}
}

// WithAuthToken uses token instead of the gh CLI credentials
func WithAuthToken(token string) ClientOption {
	return func(s *clientSettings) error {
		s.api.AuthToken = token
		return nil
	}
}

// WithTokenFile reads the token from path. An empty path is a no-op.
func WithTokenFile(path string) ClientOption {
	return func(s *clientSettings) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read token file: %w", err)
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return fmt.Errorf("token file %s is empty", path)
		}
		s.api.AuthToken = token
		return nil
	}
}

// WithHost sets the GitHub host, e.g. a GitHub Enterprise instance
func WithHost(host string) ClientOption {
	return func(s *clientSettings) error {
		s.api.Host = host
		return nil
	}
}

// WithTransport sets the HTTP transport used by the REST client
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(s *clientSettings) error {
		s.api.Transport = rt
		return nil
	}
}

// NewClient creates a new GitHub client. Without WithRepository the
// repository is detected from the current directory's git remotes.
func NewClient(opts ...ClientOption) (*Client, error) {
	settings := &clientSettings{}
	for _, opt := range opts {
		if err := opt(settings); err != nil {
			return nil, fmt.Errorf("failed to apply client option: %w", err)
		}
	}

	restClient, err := api.NewRESTClient(settings.api)
	if err != nil {
		return nil, NewAuthenticationError("failed to create REST client", err)
	}

	client := &Client{rest: restClient, repo: settings.repo}
	if client.repo == nil {
		if repo, err := repository.Current(); err == nil {
			client.repo = &Repository{Owner: repo.Owner, Name: repo.Name}
		} else {
			logger.Debug().Err(err).Msg("Could not detect repository from git remotes")
		}
	}

	return client, nil
}

// Repository returns the current repository context
func (c *Client) Repository() *Repository {
	return c.repo
}

// RateLimit returns the rate limit reported by the most recent response
func (c *Client) RateLimit() *RateLimitInfo {
	return c.rateLimit
}

func (c *Client) repoPath(format string, args ...any) (string, error) {
	if c.repo == nil {
		return "", errors.New("no repository context set (configure repository.owner and repository.name)")
	}
	return fmt.Sprintf("repos/%s/%s/", c.repo.Owner, c.repo.Name) + fmt.Sprintf(format, args...), nil
}

// do executes a REST request, records rate limit headers and decodes the
// JSON response into response when it is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any, response any) (http.Header, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	logger.Trace().Str("method", method).Str("path", path).Msg("GitHub request")

	resp, err := c.rest.RequestWithContext(ctx, method, path, bodyReader)
	if err != nil {
		return nil, c.translateError(err)
	}
	defer resp.Body.Close()

	c.rateLimit = ParseRateLimitHeaders(resp.Header)

	if response == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return resp.Header, nil
}

// translateError maps go-gh HTTP errors onto the package's typed errors
func (c *Client) translateError(err error) error {
	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}

	if httpErr.Headers != nil {
		c.rateLimit = ParseRateLimitHeaders(httpErr.Headers)
	}

	switch httpErr.StatusCode {
	case http.StatusUnauthorized:
		return NewAuthenticationError(httpErr.Message, err)
	case http.StatusForbidden, http.StatusTooManyRequests:
		info := ParseRateLimitHeaders(httpErr.Headers)
		if httpErr.StatusCode == http.StatusTooManyRequests || (httpErr.Headers.Get("X-RateLimit-Remaining") != "" && info.IsRateLimited()) {
			return NewRateLimitError(httpErr.Message, info.Limit, info.Remaining, info.Reset.Unix(), err)
		}
	case http.StatusNotFound:
		resource := ""
		if httpErr.RequestURL != nil {
			resource = httpErr.RequestURL.Path
		}
		return NewNotFoundError(resource, err)
	}
	return err
}

// CurrentUser retrieves the authenticated user
func (c *Client) CurrentUser(ctx context.Context) (*gh.User, error) {
	var user gh.User
	if _, err := c.do(ctx, http.MethodGet, "user", nil, &user); err != nil {
		if IsAuthenticationError(err) {
			return nil, err
		}
		return nil, NewAuthenticationError("failed to get current user", err)
	}
	return &user, nil
}

// VerifyAuthentication checks if the client is properly authenticated
// by attempting to retrieve the current user's information
func (c *Client) VerifyAuthentication(ctx context.Context) error {
	_, err := c.CurrentUser(ctx)
	return err
}

// GetRepository fetches the repository the client is bound to
func (c *Client) GetRepository(ctx context.Context) (*gh.Repository, error) {
	if c.repo == nil {
		return nil, errors.New("no repository context set (configure repository.owner and repository.name)")
	}
	var repo gh.Repository
	path := fmt.Sprintf("repos/%s/%s", c.repo.Owner, c.repo.Name)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &repo); err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s: %w", c.repo, err)
	}
	return &repo, nil
}
