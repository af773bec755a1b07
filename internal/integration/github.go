package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valter-silva-au/tasklists/internal/core"
	"github.com/valter-silva-au/tasklists/pkg/models"
	"golang.org/x/oauth2"
)

// DefaultGitHubAPIURL is the public GitHub REST endpoint.
const DefaultGitHubAPIURL = "https://api.github.com"

// DefaultGitHubTimeout bounds a single request.
const DefaultGitHubTimeout = 15 * time.Second

// GitHubContents talks to the repository contents endpoint
// (GET/PUT /repos/{owner}/{repo}/contents/{path}). It implements
// core.RemoteFiles and holds no per-file state.
type GitHubContents struct {
	baseURL   string
	timeout   time.Duration
	base      *http.Client
	userAgent string
}

// GitHubOption configures a GitHubContents client.
type GitHubOption func(*GitHubContents)

// WithHTTPClient sets the client whose transport carries the requests.
func WithHTTPClient(c *http.Client) GitHubOption {
	return func(g *GitHubContents) {
		if c != nil {
			g.base = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) GitHubOption {
	return func(g *GitHubContents) { g.userAgent = ua }
}

// NewGitHubContents creates a client for the API rooted at baseURL. An empty
// baseURL selects DefaultGitHubAPIURL and a non-positive timeout selects
// DefaultGitHubTimeout.
func NewGitHubContents(baseURL string, timeout time.Duration, opts ...GitHubOption) *GitHubContents {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultGitHubAPIURL
	}
	if timeout <= 0 {
		timeout = DefaultGitHubTimeout
	}
	g := &GitHubContents{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   timeout,
		base:      http.DefaultClient,
		userAgent: "tasklists",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type contentsPutBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}

// GetFile fetches the file. A non-200 status is returned without error.
func (g *GitHubContents) GetFile(ctx context.Context, creds models.Credentials) (int, core.RemoteFile, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.contentsURL(creds), nil)
	if err != nil {
		return 0, core.RemoteFile{}, fmt.Errorf("building request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.client(ctx, creds).Do(req)
	if err != nil {
		return 0, core.RemoteFile{}, fmt.Errorf("fetching %s: %w", creds.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, core.RemoteFile{}, nil
	}

	var body contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resp.StatusCode, core.RemoteFile{}, fmt.Errorf("parsing contents response: %w", err)
	}
	if body.Encoding != "" && body.Encoding != "base64" {
		return resp.StatusCode, core.RemoteFile{}, fmt.Errorf("unsupported content encoding %q", body.Encoding)
	}
	return resp.StatusCode, core.RemoteFile{Content: body.Content, SHA: body.SHA}, nil
}

// PutFile creates or updates the file. When r.SHA is set the remote rejects
// the write if the file has changed since it was read.
func (g *GitHubContents) PutFile(ctx context.Context, creds models.Credentials, r core.PutRequest) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	payload, err := json.Marshal(contentsPutBody{Message: r.Message, Content: r.Content, SHA: r.SHA})
	if err != nil {
		return 0, fmt.Errorf("marshalling contents request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.contentsURL(creds), bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client(ctx, creds).Do(req)
	if err != nil {
		return 0, fmt.Errorf("writing %s: %w", creds.Path, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// client returns an HTTP client that sends "Authorization: token <T>".
func (g *GitHubContents) client(ctx context.Context, creds models.Credentials) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token, TokenType: "token"})
	return oauth2.NewClient(ctx, src)
}

func (g *GitHubContents) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
}

func (g *GitHubContents) contentsURL(creds models.Credentials) string {
	return g.baseURL + "/repos/" + escapeSegments(creds.Repo) + "/contents/" + escapeSegments(creds.Path)
}

func escapeSegments(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
