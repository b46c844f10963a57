// Package query builds the canonical upstream request for each operation.
//
// Build is pure: the same endpoint and operation always produce a
// byte-identical request. Parameters are emitted in a fixed order per
// operation and query_uris values keep the caller's order.
package query

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tjfontaine/recommendation-gateway/internal/domain"
	"github.com/tjfontaine/recommendation-gateway/internal/upstream"
)

// Upstream route paths, relative to the endpoint base URL.
const (
	PathClustering    = "/recommend/recommend-clustering"
	PathCollaborative = "/recommend/recommend-collaborative"
	PathHybrid        = "/recommend/recommend-hybrid"
	PathHealth        = "/health"
)

// Upstream query parameter names.
const (
	ParamPlaylistName = "playlist_name"
	ParamK            = "k"
	ParamNNeighbors   = "n_neighbors"
	ParamQueryURIs    = "query_uris"
)

const userAgent = "recommendation-gateway/1.0"

// Build resolves op against endpoint. It fails only for an operation type it
// does not know.
func Build(endpoint *upstream.Endpoint, op domain.Operation) (*upstream.CanonicalRequest, error) {
	var (
		path string
		q    params
	)

	switch o := op.(type) {
	case domain.Clustering:
		path = PathClustering
		q.add(ParamPlaylistName, o.PlaylistName)
		q.add(ParamK, strconv.Itoa(o.K))
		q.add(ParamNNeighbors, strconv.Itoa(o.NNeighbors))
	case domain.Collaborative:
		path = PathCollaborative
		q.add(ParamK, strconv.Itoa(o.K))
		q.addEach(ParamQueryURIs, o.QueryURIs)
	case domain.Hybrid:
		path = PathHybrid
		q.add(ParamPlaylistName, o.PlaylistName)
		q.add(ParamK, strconv.Itoa(o.K))
		q.add(ParamNNeighbors, strconv.Itoa(o.NNeighbors))
		q.addEach(ParamQueryURIs, o.QueryURIs)
	case domain.Health:
		path = PathHealth
	default:
		return nil, fmt.Errorf("unsupported operation %T", op)
	}

	target := endpoint.BaseURL() + path
	if encoded := q.encode(); encoded != "" {
		target += "?" + encoded
	}

	return &upstream.CanonicalRequest{
		Method: http.MethodGet,
		URL:    target,
		Header: headers(endpoint),
	}, nil
}

func headers(endpoint *upstream.Endpoint) http.Header {
	h := make(http.Header, 4)
	h.Set(upstream.HeaderAPIKey, endpoint.APIKey())
	h.Set(upstream.HeaderContentType, "application/json")
	h.Set(upstream.HeaderAccept, "application/json")
	h.Set(upstream.HeaderUserAgent, userAgent)
	return h
}

// params is an insertion-ordered query string. url.Values is not used
// because Encode sorts by key.
type params []param

type param struct{ key, value string }

func (p *params) add(key, value string) {
	*p = append(*p, param{key, value})
}

func (p *params) addEach(key string, values []string) {
	for _, v := range values {
		p.add(key, v)
	}
}

func (p params) encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(kv.key))
		b.WriteByte('=')
		b.WriteString(escape(kv.value))
	}
	return b.String()
}

// escape percent-encodes s, writing spaces as %20 rather than '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
