// Package ordercloud is an HTTP client for the OrderCloud buyer API: the remote
// order store and identity provider behind the storefront.
package ordercloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ordercloud-storefront/internal/domain"
)

// Orders placed by a buyer user are read and written through the outgoing direction.
const orderDirection = "outgoing"

type tokenCtxKey struct{}

// WithAccessToken attaches the shopper's bearer token to ctx for remote calls.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenCtxKey{}, token)
}

// AccessTokenFrom returns the bearer token carried by ctx, if any.
func AccessTokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenCtxKey{}).(string)
	return token, ok && token != ""
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	ClientID string
	Scope    string
	Timeout  time.Duration
	// HTTPClient overrides the transport; Timeout is ignored when it is set.
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client talks to the remote order store over HTTPS.
type Client struct {
	baseURL  string
	clientID string
	scope    string
	http     *http.Client
	logger   *log.Logger
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		clientID: opts.ClientID,
		scope:    opts.Scope,
		http:     httpClient,
		logger:   logger,
	}
}

func (c *Client) ordersPath(parts ...string) string {
	segs := []string{"/v1/orders", orderDirection}
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return strings.Join(segs, "/")
}

// doJSON sends an authenticated JSON request and decodes a JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	token, ok := AccessTokenFrom(ctx)
	if !ok {
		return &domain.RemoteError{Kind: domain.KindUnauthorized, Message: "no access token for request"}
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("ordercloud: %s %s transport error=%v", req.Method, req.URL.Path, err)
		return &domain.RemoteError{Kind: domain.KindTransient, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &domain.RemoteError{Kind: domain.KindTransient, StatusCode: resp.StatusCode, Err: err}
	}
	c.logger.Printf("ordercloud: %s %s status=%d took=%s", req.Method, req.URL.Path, resp.StatusCode, time.Since(start).Truncate(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

type apiErrorBody struct {
	Errors []struct {
		ErrorCode string `json:"ErrorCode"`
		Message   string `json:"Message"`
	} `json:"Errors"`
	OAuthError       string `json:"error"`
	OAuthDescription string `json:"error_description"`
}

// classify maps an HTTP failure to a structured remote error.
func classify(status int, raw []byte) *domain.RemoteError {
	re := &domain.RemoteError{StatusCode: status, Kind: kindForStatus(status)}

	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case len(body.Errors) > 0:
			re.Code = body.Errors[0].ErrorCode
			re.Message = body.Errors[0].Message
		case body.OAuthError != "":
			re.Code = body.OAuthError
			re.Message = body.OAuthDescription
		}
	}
	if re.Message == "" {
		re.Message = http.StatusText(status)
	}
	return re
}

func kindForStatus(status int) domain.ErrorKind {
	switch {
	case status == http.StatusNotFound:
		return domain.KindNotFound
	case status == http.StatusBadRequest:
		return domain.KindBadRequest
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.KindUnauthorized
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return domain.KindTransient
	default:
		return domain.KindRejected
	}
}

