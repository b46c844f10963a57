package upstream

import (
	"log/slog"
	"net/http"
	"net/url"
)

// Header names sent on every upstream request.
const (
	HeaderAPIKey      = "X-API-Key"
	HeaderContentType = "Content-Type"
	HeaderAccept      = "Accept"
	HeaderUserAgent   = "User-Agent"
)

// CanonicalRequest is the fully resolved request sent to the engine. It has
// no body; the JSON content type is sent as a hint only.
type CanonicalRequest struct {
	Method string
	URL    string
	Header http.Header
}

// Path returns the URL path, or "" if the URL does not parse.
func (r *CanonicalRequest) Path() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Path
}

// LogValue logs the method and URL but none of the headers.
func (r *CanonicalRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("method", r.Method),
		slog.String("url", r.URL),
	)
}

// Response is a raw upstream response. Every HTTP status, 2xx or not, is
// returned as a Response; only transport-level problems become a Failure.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
