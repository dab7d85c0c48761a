package httpclient

import (
	"net/http"
	"time"

	"github.com/IsaacDSC/eeudesk/pkg/ctxlogger"
)

// LoggingTransport logs every outbound request with the logger carried by
// the request context. Bodies are not logged: GAS payloads carry credentials.
type LoggingTransport struct {
	Transport http.RoundTripper
}

func NewLoggingTransport(transport http.RoundTripper) *LoggingTransport {
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	return &LoggingTransport{Transport: transport}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := ctxlogger.GetLogger(req.Context())

	logger.Debug("HTTP client request started",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"content_length", req.ContentLength,
	)

	resp, err := t.Transport.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		logger.Warn("HTTP client request failed",
			"method", req.Method,
			"url", req.URL.Redacted(),
			"error", err.Error(),
			"elapsed_time", elapsed,
		)
		return nil, err
	}

	logger.Info("HTTP client request completed",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"status_code", resp.StatusCode,
		"content_length", resp.ContentLength,
		"elapsed_time", elapsed,
	)

	return resp, nil
}

// NewHTTPClientWithLogging returns a client whose transport logs each round
// trip. timeout bounds the whole exchange; zero means no client-level limit.
func NewHTTPClientWithLogging(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewLoggingTransport(nil),
		Timeout:   timeout,
	}
}
