package gas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/IsaacDSC/eeudesk/pkg/httpclient"
	"golang.org/x/time/rate"
)

// maxBody guards against runaway responses; analytics payloads stay well below it.
var maxBody int64 = 10 << 20

// Doer performs a single call against the endpoint, without retries.
type Doer interface {
	Do(ctx context.Context, req Request) (Response, error)
}

type Client struct {
	url     string
	http    *http.Client
	limiter *rate.Limiter
}

var _ Doer = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithRateLimit caps outbound calls to perSecond with the given burst.
// perSecond <= 0 leaves calls unlimited.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cl *Client) {
		if perSecond <= 0 {
			cl.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{url: url}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		// per-attempt deadlines come from the caller's context
		c.http = httpclient.NewHTTPClientWithLogging(0)
	}
	return c
}

func (c *Client) Do(ctx context.Context, in Request) (Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	// Apps Script rejects preflighted content types from browsers; keep parity.
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("post request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > maxBody {
		return Response{}, &TooLargeError{Limit: maxBody}
	}

	if resp.StatusCode > 299 {
		return Response{}, &StatusError{Code: resp.StatusCode, Body: excerpt(body)}
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return Response{}, &ParseError{Excerpt: excerpt(body), Err: err}
	}

	return out, nil
}
