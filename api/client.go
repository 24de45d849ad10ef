// Package api is the HTTP client for the assistant backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"tjchat/security"
)

const maxBodySize = 4 << 20

// TokenSource supplies the bearer token for authenticated calls. An empty
// token means the Authorization header is left out.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client talks to the backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a client-side timeout. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the API rooted at baseURL,
// e.g. http://localhost:8000/api.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListChats returns the user's chats.
func (c *Client) ListChats(ctx context.Context) ([]Chat, error) {
	var out chatList
	if err := c.do(ctx, request{op: "list chats", method: http.MethodGet, path: "/chats", auth: true}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ListMessages returns up to limit most recent messages of a chat.
func (c *Client) ListMessages(ctx context.Context, chatID string, limit int) ([]HistoryMessage, error) {
	req := request{
		op:     "list messages",
		method: http.MethodGet,
		path:   "/chat/" + url.PathEscape(chatID) + "/messages",
		query:  url.Values{"limit": {strconv.Itoa(limit)}},
		auth:   true,
	}

	var out history
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// NewChat asks the backend to open a chat and returns its id.
func (c *Client) NewChat(ctx context.Context) (string, error) {
	var out newChatResponse
	if err := c.do(ctx, request{op: "new chat", method: http.MethodPost, path: "/new-chat", auth: true}, &out); err != nil {
		return "", err
	}
	if out.ChatID == "" {
		return "", &Error{Kind: KindInvalid, Op: "new chat", Detail: "response has no chat_id"}
	}
	return out.ChatID.String(), nil
}

// SendMessage posts a user message. An empty chatID starts a new chat.
func (c *Client) SendMessage(ctx context.Context, content, chatID string) (*SendResponse, error) {
	body, err := json.Marshal(SendRequest{Content: content, ChatID: chatID})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	req := request{
		op:          "send message",
		method:      http.MethodPost,
		path:        "/chat",
		body:        body,
		contentType: "application/json",
		auth:        true,
	}

	var out SendResponse
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{"username": {username}, "password": {password}}
	req := request{
		op:          "login",
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}

	var out loginResponse
	if err := c.do(ctx, req, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", &Error{Kind: KindInvalid, Op: "login", Detail: "response has no access token"}
	}
	return out.AccessToken, nil
}

// Register creates an account. The backend answers by email.
func (c *Client) Register(ctx context.Context, username, password string) error {
	form := url.Values{"username": {username}, "password": {password}}
	req := request{
		op:          "register",
		method:      http.MethodPost,
		path:        "/auth/register",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}
	return c.do(ctx, req, nil)
}

// VerifyEmail confirms an address with the token from the activation link.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	req := request{
		op:     "verify email",
		method: http.MethodGet,
		path:   "/auth/verify-email",
		query:  url.Values{"token": {token}},
	}
	return c.do(ctx, req, nil)
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	auth        bool
}

// do performs req and decodes a JSON success body into out, if out is not nil.
func (c *Client) do(ctx context.Context, r request, out any) error {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: r.op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.auth && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("op", r.op),
			zap.String("url", security.Redact(target)),
			zap.Error(err))
		return &Error{Kind: KindTransport, Op: r.op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &Error{Kind: KindTransport, Op: r.op, Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug("request done",
		zap.String("op", r.op),
		zap.String("method", r.method),
		zap.String("url", security.Redact(target)),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := statusError(r.op, resp.StatusCode, data)
		c.logger.Info("request rejected",
			zap.String("op", r.op),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", security.Redact(apiErr.Detail)))
		return apiErr
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &Error{Kind: KindInvalid, Op: r.op, Status: resp.StatusCode, Detail: "empty response body"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindInvalid, Op: r.op, Status: resp.StatusCode, Detail: "malformed JSON", Err: err}
	}
	return nil
}
