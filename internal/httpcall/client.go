// Package httpcall performs HTTP requests and reports failures in the shapes
// understood by package failure. Responses with status 400 and above become
// *Error or *FetchError values, depending on the client's Convention.
package httpcall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Bahjat/arrestorgear/internal/failure"
	"github.com/Bahjat/arrestorgear/internal/future"
	"github.com/Bahjat/arrestorgear/internal/platform/errs"
)

// Convention selects where the decoded body of a failed response is stored.
type Convention int

const (
	// Standard stores the body in failure.Response.Data.
	Standard Convention = iota
	// Fetch stores the body in failure.Response.FetchData.
	Fetch
)

const (
	defaultUserAgent = "ArrestorProbe/1.0"
	defaultTimeout   = 10 * time.Second
	maxRedirects     = 5
	// Bodies are capped to keep a hostile or endless response from exhausting memory.
	maxResponseBody = 10 << 20
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
)

// Request describes one outbound call. Body is sent as-is when it is a
// []byte, string or io.Reader and JSON-encoded otherwise.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   any
}

// Result is a successful response.
type Result struct {
	Status int
	Header http.Header
	URL    string
	Data   any
}

// Client sends requests and classifies failed responses.
type Client struct {
	client     *http.Client
	convention Convention
	userAgent  string
}

type settings struct {
	timeout      time.Duration
	convention   Convention
	userAgent    string
	blockPrivate bool
	logger       *slog.Logger
	transport    http.RoundTripper
}

// Option configures a Client.
type Option func(*settings)

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithConvention selects the failure convention.
func WithConvention(c Convention) Option {
	return func(s *settings) { s.convention = c }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *settings) { s.userAgent = ua }
}

// WithBlockPrivateNetworks refuses connections to private and reserved addresses.
func WithBlockPrivateNetworks(block bool) Option {
	return func(s *settings) { s.blockPrivate = block }
}

// WithLogger sets the logger used by the logging middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithTransport replaces the base transport. The request ID and logging
// middleware still wrap it.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *settings) { s.transport = rt }
}

// NewClient returns a Client backed by an http.Client with redirect
// validation and the request ID and logging middleware installed.
func NewClient(opts ...Option) *Client {
	s := settings{
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	base := s.transport
	if base == nil {
		base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         newDialer(s.blockPrivate).DialContext,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	return &Client{
		client: &http.Client{
			Timeout:       s.timeout,
			Transport:     RequestID(Logging(s.logger)(base)),
			CheckRedirect: redirectPolicy,
		},
		convention: s.convention,
		userAgent:  s.userAgent,
	}
}

// redirectPolicy validates redirect targets and limits the redirect chain length.
func redirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: %s", errBlockedRedirect, req.URL.Scheme)
	}
	return nil
}

// Send starts the request on its own goroutine and returns its future.
func (c *Client) Send(ctx context.Context, req Request) *future.Future[*Result] {
	return future.Go(ctx, func(ctx context.Context) (*Result, error) {
		return c.Do(ctx, req)
	})
}

// Do performs the request synchronously.
func (c *Client) Do(ctx context.Context, req Request) (*Result, error) {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "invalid request",
			Cause:   err,
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, transportError(ctx, err)
	}

	data, decodeErr := decodeBody(resp.Header.Get("Content-Type"), raw)

	if resp.StatusCode >= http.StatusBadRequest {
		// An undecodable error body is still useful as text.
		return nil, c.failure(httpReq, resp, data)
	}

	if decodeErr != nil {
		return nil, &errs.AppError{
			Kind:           errs.ParsingFailed,
			UpstreamStatus: resp.StatusCode,
			Message:        "failed to decode response body",
			Cause:          decodeErr,
		}
	}

	return &Result{
		Status: resp.StatusCode,
		Header: resp.Header,
		URL:    finalURL(resp, httpReq),
		Data:   data,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	}
	httpReq.Header.Set("User-Agent", c.userAgent)

	return httpReq, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case string:
		return strings.NewReader(b), "", nil
	case io.Reader:
		return b, "", nil
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(encoded), "application/json", nil
}

func (c *Client) failure(req *http.Request, resp *http.Response, data any) error {
	fr := &failure.Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		URL:    finalURL(resp, req),
	}

	if c.convention == Fetch {
		fr.FetchData = data
		return &FetchError{
			Method:     req.Method,
			StatusText: resp.Status,
			Redirected: resp.Request != nil && resp.Request.Response != nil,
			Response:   fr,
		}
	}

	fr.Data = data
	return &Error{Method: req.Method, Response: fr}
}

// finalURL is the URL that produced resp, after redirects.
func finalURL(resp *http.Response, req *http.Request) string {
	if resp.Request != nil {
		return resp.Request.URL.String()
	}
	return req.URL.String()
}

func transportError(ctx context.Context, err error) error {
	var blocked *BlockedAddressError
	if errors.As(err, &blocked) {
		return &errs.AppError{
			Kind:    errs.Unreachable,
			Message: fmt.Sprintf("The target resolves to a blocked address (%s).", blocked.Reason),
			Cause:   err,
		}
	}

	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &errs.AppError{
			Kind:    errs.Timeout,
			Message: "The target took too long to respond.",
			Cause:   err,
		}
	}
	return &errs.AppError{
		Kind:    errs.Unreachable,
		Message: "The target could not be reached.",
		Cause:   err,
	}
}
