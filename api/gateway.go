package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnauthorized is returned for every 401 response after the
// expired-session hook has run. Match it with errors.Is.
var ErrUnauthorized = errors.New("api: session expired or invalid")

// maxErrorBody caps how much of an error response is read for decoding.
const maxErrorBody = 64 << 10

// TokenSource supplies the bearer token attached to outgoing requests. An
// empty token means the request goes out anonymous.
type TokenSource interface {
	AccessToken() string
}

// GatewayConfig configures a Gateway. BaseURL is required; everything else
// has a working zero value.
type GatewayConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource

	// OnUnauthorized runs before any 401 is returned to the caller. The hook
	// must be idempotent: concurrent in-flight requests can all observe 401.
	OnUnauthorized func(ctx context.Context)

	// Observe, when set, receives one sample per completed request.
	Observe func(method, path string, status int, elapsed time.Duration)
}

// Gateway is the shared HTTP client wrapper all endpoint code goes through.
type Gateway struct {
	baseURL        *url.URL
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
	observe        func(method, path string, status int, elapsed time.Duration)
}

// NewGateway validates cfg and builds a Gateway.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api: base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL: %v", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.New("api: base URL must be absolute")
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Gateway{
		baseURL:        base,
		httpClient:     client,
		tokens:         cfg.Tokens,
		onUnauthorized: cfg.OnUnauthorized,
		observe:        cfg.Observe,
	}, nil
}

// Get issues a GET and decodes the JSON response into out (out may be nil).
func (g *Gateway) Get(ctx context.Context, path string, query url.Values, out any) error {
	body, err := g.do(ctx, http.MethodGet, path, query, "", nil)
	if err != nil {
		return err
	}
	return decodeInto(body, out)
}

// GetRaw issues a GET and returns the raw response body. List endpoints use
// it together with [DecodePage].
func (g *Gateway) GetRaw(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return g.do(ctx, http.MethodGet, path, query, "", nil)
}

// Post issues a POST with a JSON body and decodes the response into out.
func (g *Gateway) Post(ctx context.Context, path string, in, out any) error {
	return g.sendJSON(ctx, http.MethodPost, path, in, out)
}

// Patch issues a PATCH with a JSON body and decodes the response into out.
func (g *Gateway) Patch(ctx context.Context, path string, in, out any) error {
	return g.sendJSON(ctx, http.MethodPatch, path, in, out)
}

// Put issues a PUT with a JSON body and decodes the response into out.
func (g *Gateway) Put(ctx context.Context, path string, in, out any) error {
	return g.sendJSON(ctx, http.MethodPut, path, in, out)
}

// Delete issues a DELETE and discards any response body.
func (g *Gateway) Delete(ctx context.Context, path string) error {
	_, err := g.do(ctx, http.MethodDelete, path, nil, "", nil)
	return err
}

// PostForm issues a POST with a url-encoded form body. The credential
// endpoint requires this encoding rather than JSON.
func (g *Gateway) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	body, err := g.do(ctx, http.MethodPost, path, nil,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	return decodeInto(body, out)
}

// PostFile issues a multipart POST uploading a single file field.
func (g *Gateway) PostFile(ctx context.Context, path, field, filename string, content io.Reader, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("api: building upload: %v", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("api: building upload: %v", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("api: building upload: %v", err)
	}

	body, err := g.do(ctx, http.MethodPost, path, nil, writer.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	return decodeInto(body, out)
}

func (g *Gateway) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encoding request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	body, err := g.do(ctx, method, path, nil, "application/json", reader)
	if err != nil {
		return err
	}
	return decodeInto(body, out)
}

func (g *Gateway) do(ctx context.Context, method, path string, query url.Values, contentType string, body io.Reader) ([]byte, error) {
	target := g.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("api: building request: %v", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if locale, ok := LocaleFromContext(ctx); ok {
		req.Header.Set("Accept-Language", locale)
	}

	requestID, ok := RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)

	if token := g.bearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.sample(method, path, 0, time.Since(start))
		return nil, fmt.Errorf("api: request failed: %w", err)
	}
	defer resp.Body.Close()

	g.sample(method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode == statusUnauthorized {
		if g.onUnauthorized != nil {
			g.onUnauthorized(ctx)
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, decodeError(resp.StatusCode, requestID, raw)
	}

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, decodeError(resp.StatusCode, requestID, raw)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: reading response: %w", err)
	}
	return raw, nil
}

// bearerToken resolves the token for one request: an explicit context
// override wins over the configured source.
func (g *Gateway) bearerToken(ctx context.Context) string {
	if token, ok := BearerTokenFromContext(ctx); ok {
		return token
	}
	if g.tokens != nil {
		return g.tokens.AccessToken()
	}
	return ""
}

func (g *Gateway) sample(method, path string, status int, elapsed time.Duration) {
	if g.observe != nil {
		g.observe(method, path, status, elapsed)
	}
}

func decodeInto(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("api: decoding response: %v", err)
	}
	return nil
}
