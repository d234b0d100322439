package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Error kinds reported by a Client.
const (
	KindNetwork      = "network"
	KindTimeout      = "timeout"
	KindTLS          = "tls"
	KindUnauthorized = "unauthorized"
)

// Request is one HTTP call to perform.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    any // JSON-encoded when non-nil
}

// Response is what came back.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Error is a transport-level failure (no HTTP response was obtained).
type Error struct {
	Kind string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Unauthorized reports whether the transport itself flagged an auth failure.
func (e *Error) Unauthorized() bool { return e.Kind == KindUnauthorized }

// Client performs a single HTTP call.
type Client interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPClient is the default Client on top of net/http.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient builds a client with a tuned transport. The engine issues one
// request at a time, so the pool stays small; keep-alive still matters since
// every iteration hits the same host.
func NewHTTPClient(timeout time.Duration, verifySSL bool) *HTTPClient {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 10
	t.MaxIdleConnsPerHost = 10
	t.IdleConnTimeout = 90 * time.Second
	if !verifySSL {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: t,
		},
	}
}

func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, &Error{Kind: KindNetwork, Err: fmt.Errorf("encode body: %w", err)}
		}
		bodyReader = bytes.NewReader(b)
	}

	target := req.URL
	if len(req.Query) > 0 {
		q := url.Values{}
		for k, v := range req.Query {
			q.Set(k, v)
		}
		sep := "?"
		if u, err := url.Parse(req.URL); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		target = req.URL + sep + q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: classify(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: fmt.Errorf("read body: %w", err)}
	}

	return &Response{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    body,
	}, nil
}

func classify(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostErr) {
		return KindTLS
	}
	return KindNetwork
}
