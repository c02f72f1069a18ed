// Package gemini talks to the Gemini web front-end with a logged-in user's
// session cookies.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sozercan/gemini-mole/apimodels"
	"github.com/sozercan/gemini-mole/internal/config"
	"github.com/sozercan/gemini-mole/internal/parser"
)

const (
	appPath  = "/app"
	postPath = "/_/BardChatUi/data/assistant.lamda.BardFrontendService/StreamGenerate"

	userAgent   = "Mozilla/5.0 (Windows NT 10.0; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36"
	contentType = "application/x-www-form-urlencoded;charset=utf-8"

	reqIDStep = 100000
)

var (
	nonceRe = regexp.MustCompile(`"SNlM0e":"(.*?)"`)
	sidRe   = regexp.MustCompile(`"FdrFJe":"([\d-]+)"`)
)

// ErrAuth means the session cookies were rejected or the page carried no
// nonce.
var ErrAuth = errors.New("gemini authentication failed")

// StatusError is returned when upstream answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini returned status %d", e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrAuth && (e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden)
}

// Response is one raw StreamGenerate reply.
type Response struct {
	StatusCode int
	Body       string
}

type Client struct {
	cfg        config.GeminiConfig
	baseURL    string
	httpClient *http.Client
	cookies    map[string]string
	parser     *parser.Parser

	mu    sync.Mutex
	reqID int
	nonce string
	sid   string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func NewClient(cfg config.GeminiConfig, cookies map[string]string, opts ...Option) (*Client, error) {
	if len(cookies) == 0 {
		return nil, fmt.Errorf("gemini cookies cannot be empty")
	}

	c := &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cookies: maps.Clone(cookies),
		reqID:   1000 + rand.Intn(9000),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = "https://gemini.google.com"
	}
	c.parser = parser.New(c.cookies, parser.ParsePolicy(cfg.CandidatePolicy))

	slog.Info("Creating gemini client", "base_url", c.baseURL, "cookies", len(c.cookies))
	return c, nil
}

// Cookies returns a copy of the cookies the client authenticates with.
func (c *Client) Cookies() map[string]string {
	return maps.Clone(c.cookies)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Same-Domain", "1")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+"/")
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

// RefreshTokens scrapes the SNlM0e nonce and the optional FdrFJe session id
// from the app page.
func (c *Client) RefreshTokens(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+appPath, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch app page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("app page: %w", &StatusError{Code: resp.StatusCode})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read app page: %w", err)
	}

	m := nonceRe.FindSubmatch(body)
	if m == nil {
		return fmt.Errorf("%w: SNlM0e nonce not found, check the session cookies", ErrAuth)
	}

	c.mu.Lock()
	c.nonce = string(m[1])
	c.sid = ""
	if s := sidRe.FindSubmatch(body); s != nil {
		c.sid = string(s[1])
	}
	c.mu.Unlock()

	slog.Debug("Refreshed gemini tokens")
	return nil
}

func (c *Client) ensureTokens(ctx context.Context) error {
	c.mu.Lock()
	ok := c.nonce != ""
	c.mu.Unlock()
	if ok {
		return nil
	}
	return c.RefreshTokens(ctx)
}

// nextRequest snapshots the tokens and advances _reqid.
func (c *Client) nextRequest() (nonce, sid string, reqID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	nonce, sid, reqID = c.nonce, c.sid, c.reqID
	c.reqID += reqIDStep
	return nonce, sid, reqID
}

// Post sends prompt once. Non-200 replies are returned, not treated as
// errors, so callers can poll.
func (c *Client) Post(ctx context.Context, prompt string, metadata []string) (*Response, error) {
	if err := c.ensureTokens(ctx); err != nil {
		return nil, err
	}
	nonce, sid, reqID := c.nextRequest()

	form, err := buildForm(nonce, prompt, metadata)
	if err != nil {
		return nil, err
	}
	u := c.baseURL + postPath + "?" + buildParams(c.cfg.BotServer, c.cfg.Language, reqID, sid).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post prompt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	slog.Debug("Posted prompt", "status", resp.StatusCode, "reqid", reqID, "bytes", len(body))
	return &Response{StatusCode: resp.StatusCode, Body: string(body)}, nil
}

// PostWithRetry polls until a 200 arrives or WaitTime has elapsed, pausing
// Latency between attempts. The last response seen is returned on timeout.
func (c *Client) PostWithRetry(ctx context.Context, prompt string, metadata []string) (*Response, error) {
	start := time.Now()
	for attempt := 1; ; attempt++ {
		resp, err := c.Post(ctx, prompt, metadata)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return resp, nil
		}

		if time.Since(start) >= c.cfg.WaitTime {
			slog.Warn("Did not receive status 200 in time, returning last response",
				"wait_time", c.cfg.WaitTime, "status", resp.StatusCode, "attempts", attempt)
			return resp, nil
		}

		slog.Info("Polling gemini", "status", resp.StatusCode, "attempt", attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.Latency):
		}
	}
}

// Generate sends prompt and parses the reply.
func (c *Client) Generate(ctx context.Context, prompt string, metadata []string) (*apimodels.ModelOutput, error) {
	resp, err := c.PostWithRetry(ctx, prompt, metadata)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			c.mu.Lock()
			c.nonce = ""
			c.mu.Unlock()
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: resp.Body}
	}
	return c.parser.Parse(resp.Body)
}
