package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"funcagent/internal/domain"
)

const (
	fetchTimeout    = 15 * time.Second
	fetchMaxBytes   = 100 * 1024 // 100KB
	fetchMaxOutput  = 10000 // bytes
	userAgentString = "funcagent/0.1"
)

// SearchTool returns canned search results for a query. It stands in for a
// real search backend so plans can be exercised offline.
type SearchTool struct{}

func NewSearchTool() *SearchTool { return &SearchTool{} }

func (t *SearchTool) Name() string { return "search" }
func (t *SearchTool) Description() string {
	return "Search the web for information on a topic."
}
func (t *SearchTool) ParameterDescription() string {
	return "query (string): search keywords"
}
func (t *SearchTool) Terminal() bool { return false }

func (t *SearchTool) Execute(_ context.Context, args domain.Args) domain.ToolOutcome {
	query, err := args.Require("query")
	if err != nil {
		return domain.Failed("query must not be empty")
	}
	return domain.OK(fmt.Sprintf(
		"Search results for '%s':\n"+
			"1. Encyclopedia: %s is a topic with a wealth of information...\n"+
			"2. Knowledge base: a detailed explanation of %s...\n"+
			"3. News: the latest developments around %s...",
		query, query, query, query))
}

// FetchTool fetches a web page and returns its content as Markdown.
type FetchTool struct {
	client *http.Client
}

func NewFetchTool(timeout time.Duration) *FetchTool {
	if timeout <= 0 {
		timeout = fetchTimeout
	}
	return &FetchTool{client: &http.Client{Timeout: timeout}}
}

func (t *FetchTool) Name() string { return "fetch" }
func (t *FetchTool) Description() string {
	return "Fetch the content of a web page by URL. Returns the page as Markdown."
}
func (t *FetchTool) ParameterDescription() string {
	return "url (string): full URL to fetch, must start with http:// or https://"
}
func (t *FetchTool) Terminal() bool { return false }

func (t *FetchTool) Execute(ctx context.Context, args domain.Args) domain.ToolOutcome {
	rawURL, err := args.Require("url")
	if err != nil {
		return domain.Failed(err.Error())
	}
	text, err := t.fetch(ctx, rawURL)
	if err != nil {
		return domain.Failed(err.Error())
	}
	return domain.OK(text)
}

func (t *FetchTool) fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgentString)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, fetchMaxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	text := string(body)
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		markdown, err := htmltomarkdown.ConvertString(text)
		if err != nil {
			return "", fmt.Errorf("convert html: %w", err)
		}
		text = markdown
	}
	text = strings.TrimSpace(text)
	return truncateOutput(text, fetchMaxOutput), nil
}

// truncateOutput cuts s to at most limit bytes without splitting a rune.
func truncateOutput(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := limit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "\n... (truncated)"
}
