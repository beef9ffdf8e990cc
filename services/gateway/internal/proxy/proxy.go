package proxy

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/hotel-frontdesk/pkg/logger"
)

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"proxy-connection":    true,
	"te":                  true,
	"trailer":             true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

type ServiceProxy struct {
	name    string
	baseURL string
	client  *http.Client
}

func NewServiceProxy(name, baseURL string) *ServiceProxy {
	return &ServiceProxy{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *ServiceProxy) Name() string { return p.name }

// clientIPHeaders carry client addresses and are only ever set by the gateway.
var clientIPHeaders = []string{"X-Forwarded-For", "X-Real-IP", "True-Client-IP", "Forwarded"}

// Forward sends the request to the upstream at the same path and query.
// X-Forwarded-For is replaced with the peer address the gateway observed.
func (p *ServiceProxy) Forward(ctx context.Context, method, pathAndQuery string, body io.Reader, header http.Header, remoteAddr string) (*http.Response, error) {
	url := p.baseURL + pathAndQuery

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	CopyHeaders(req.Header, header)
	for _, h := range clientIPHeaders {
		req.Header.Del(h)
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		req.Header.Set("X-Forwarded-For", host)
	} else if remoteAddr != "" {
		req.Header.Set("X-Forwarded-For", remoteAddr)
	}

	// Add request ID for tracing
	if requestID, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		req.Header.Set("X-Request-ID", requestID)
	}
	req.Header.Set("X-Gateway-Forwarded", "true")

	logger.DebugContext(ctx, "Proxying request",
		"upstream", p.name,
		"method", method,
		"url", url,
	)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.name, err)
	}
	return resp, nil
}

// CopyHeaders copies src into dst, skipping hop-by-hop headers and Host.
func CopyHeaders(dst, src http.Header) {
	for key, values := range src {
		k := strings.ToLower(key)
		if hopHeaders[k] || k == "host" {
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
