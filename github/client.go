package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultBaseURL = "https://api.github.com"
	DefaultTimeout = 15 * time.Second
)

// Repo names a repository and the ref files are read from.
type Repo struct {
	Owner  string `mapstructure:"owner" yaml:"owner"`
	Name   string `mapstructure:"name" yaml:"name"`
	Branch string `mapstructure:"branch" yaml:"branch"`
}

func (r Repo) String() string {
	return fmt.Sprintf("%s/%s (branch: %s)", r.Owner, r.Name, r.Branch)
}

// Fetcher reads a single file from a remote repository. found is false when
// the file does not exist there.
type Fetcher interface {
	FetchFile(ctx context.Context, path string) (content []byte, found bool, err error)
}

// Client reads files through the GitHub contents API.
type Client struct {
	BaseURL string
	Repo    Repo
	Token   string
	Timeout time.Duration
}

func NewClient(baseURL string, repo Repo, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Repo:    repo,
		Token:   token,
		Timeout: DefaultTimeout,
	}
}

type contentsResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	Message  string `json:"message"`
}

func (c *Client) FetchFile(ctx context.Context, path string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.BaseURL, url.PathEscape(c.Repo.Owner), url.PathEscape(c.Repo.Name), strings.TrimLeft(path, "/"))

	agent := fiber.Get(endpoint)
	if c.Repo.Branch != "" {
		agent.QueryString("ref=" + url.QueryEscape(c.Repo.Branch))
	}
	agent.Set(fiber.HeaderAccept, "application/vnd.github+json")
	agent.Set(fiber.HeaderUserAgent, "vendorctl")
	if c.Token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.Token)
	}
	agent.Timeout(c.Timeout)

	var resp contentsResponse
	code, _, errs := agent.Struct(&resp)
	switch {
	case code == fiber.StatusNotFound:
		return nil, false, nil
	case len(errs) > 0:
		return nil, false, fmt.Errorf("fetch %s: %w", path, errs[0])
	case code != fiber.StatusOK:
		return nil, false, fmt.Errorf("fetch %s: HTTP %d: %s", path, code, resp.Message)
	}

	if resp.Type != "" && resp.Type != "file" {
		return nil, false, fmt.Errorf("fetch %s: not a file (%s)", path, resp.Type)
	}
	if resp.Encoding != "" && resp.Encoding != "base64" {
		return nil, false, fmt.Errorf("fetch %s: unsupported encoding %q", path, resp.Encoding)
	}
	// the API wraps base64 content at 60 columns
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		return nil, false, fmt.Errorf("fetch %s: decode content: %w", path, err)
	}
	return content, true, nil
}
