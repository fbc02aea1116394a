// FILE: logrelay/src/internal/transport/client.go
package transport

import (
	"fmt"
	"time"

	"logrelay/src/internal/version"

	"github.com/valyala/fasthttp"
)

// StatusError is returned when the remote endpoint answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Body)
}

// Client posts rendered log payloads to a single HTTP endpoint
type Client struct {
	client  *fasthttp.Client
	timeout time.Duration
}

// NewClient creates a client with the given per-request timeout
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		client: &fasthttp.Client{
			MaxConnsPerHost:               512,
			MaxConnWaitTimeout:            timeout,
			MaxIdleConnDuration:           10 * time.Second,
			ReadTimeout:                   timeout,
			WriteTimeout:                  timeout,
			DisableHeaderNamesNormalizing: true,
		},
		timeout: timeout,
	}
}

// Post sends body to url. A transport error or non-2xx status is returned as an error.
func (c *Client) Post(url, contentType string, body []byte) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(contentType)
	req.Header.Set("User-Agent", fmt.Sprintf("logrelay/%s", version.Short()))
	req.SetBody(body)

	if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode < 200 || statusCode >= 300 {
		responseBody := resp.Body()
		if len(responseBody) > 256 {
			responseBody = responseBody[:256]
		}
		return &StatusError{StatusCode: statusCode, Body: string(responseBody)}
	}
	return nil
}

// Timeout returns the per-request timeout
func (c *Client) Timeout() time.Duration {
	return c.timeout
}
