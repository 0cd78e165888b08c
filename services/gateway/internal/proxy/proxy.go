package proxy

import (
	"io"
	"net/http"
	"time"

	"github.com/innkeep/innkeep/pkg/logger"
)

// ServiceProxy forwards requests verbatim to one upstream service, keeping
// method, path, query, body and the headers the upstream cares about.
type ServiceProxy struct {
	baseURL string
	client  *http.Client
}

func NewServiceProxy(baseURL string) *ServiceProxy {
	return &ServiceProxy{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Headers forwarded to upstreams; everything else stays at the edge.
var forwardedHeaders = []string{
	"Authorization",
	"Content-Type",
	"Accept",
	"Idempotency-Key",
	"Stripe-Signature",
	"X-Forwarded-For",
	"X-Real-IP",
	"User-Agent",
}

func (p *ServiceProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	url := p.baseURL + r.URL.Path
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, url, r.Body)
	if err != nil {
		http.Error(w, "Bad gateway", http.StatusBadGateway)
		return
	}

	for _, key := range forwardedHeaders {
		if value := r.Header.Get(key); value != "" {
			req.Header.Set(key, value)
		}
	}
	if req.Header.Get("X-Forwarded-For") == "" {
		req.Header.Set("X-Forwarded-For", r.RemoteAddr)
	}
	if requestID := r.Context().Value(logger.RequestIDKey); requestID != nil {
		if id, ok := requestID.(string); ok {
			req.Header.Set("X-Request-ID", id)
		}
	}
	req.Header.Set("X-Gateway-Forwarded", "true")

	resp, err := p.client.Do(req)
	if err != nil {
		logger.ErrorContext(r.Context(), "Upstream request failed", "error", err, "url", url)
		http.Error(w, "Bad gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.ErrorContext(r.Context(), "Failed to stream upstream response", "error", err)
	}
}
