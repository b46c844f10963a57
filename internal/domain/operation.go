package domain

import (
	"fmt"
	"strings"
)

// Defaults applied by the inbound surface when a parameter is omitted.
const (
	DefaultK          = 10
	DefaultNNeighbors = 5
)

// OperationKind is the short, stable label of an operation, used for
// metrics, audit records and routing.
type OperationKind string

const (
	OpClustering    OperationKind = "clustering"
	OpCollaborative OperationKind = "collaborative"
	OpHybrid        OperationKind = "hybrid"
	OpHealth        OperationKind = "health"
)

// Operation is one request the gateway can forward to the recommendation
// engine. The set of implementations is closed: Clustering, Collaborative,
// Hybrid and Health.
type Operation interface {
	// Kind returns the operation's short label.
	Kind() OperationKind
	// Name is the human-readable operation name used in error messages.
	Name() string
	// RequiredRoles returns the roles of which the caller must hold at least one.
	RequiredRoles() RoleSet
	// Validate checks the request invariants before any I/O.
	Validate() error

	operation()
}

// Clustering asks for tracks from playlists whose names resemble PlaylistName.
type Clustering struct {
	PlaylistName string
	K            int
	NNeighbors   int
}

func (Clustering) Kind() OperationKind    { return OpClustering }
func (Clustering) Name() string           { return "clustering recommendations" }
func (Clustering) RequiredRoles() RoleSet { return recommendRoles() }
func (Clustering) operation()             {}

func (c Clustering) Validate() error {
	if err := validatePlaylistName(c.PlaylistName); err != nil {
		return err
	}
	return validateK(c.K)
}

// Collaborative asks for tracks that co-occur with the seed QueryURIs.
type Collaborative struct {
	QueryURIs []string
	K         int
}

func (Collaborative) Kind() OperationKind    { return OpCollaborative }
func (Collaborative) Name() string           { return "collaborative recommendations" }
func (Collaborative) RequiredRoles() RoleSet { return recommendRoles() }
func (Collaborative) operation()             {}

func (c Collaborative) Validate() error {
	if err := validateQueryURIs(c.QueryURIs); err != nil {
		return err
	}
	return validateK(c.K)
}

// Hybrid combines the collaborative and clustering strategies upstream.
type Hybrid struct {
	PlaylistName string
	QueryURIs    []string
	K            int
	NNeighbors   int
}

func (Hybrid) Kind() OperationKind    { return OpHybrid }
func (Hybrid) Name() string           { return "hybrid recommendations" }
func (Hybrid) RequiredRoles() RoleSet { return recommendRoles() }
func (Hybrid) operation()             {}

func (h Hybrid) Validate() error {
	if err := validatePlaylistName(h.PlaylistName); err != nil {
		return err
	}
	if err := validateQueryURIs(h.QueryURIs); err != nil {
		return err
	}
	return validateK(h.K)
}

// Health checks the liveness of the recommendation engine.
type Health struct{}

func (Health) Kind() OperationKind    { return OpHealth }
func (Health) Name() string           { return "health check" }
func (Health) RequiredRoles() RoleSet { return adminRoles() }
func (Health) Validate() error        { return nil }
func (Health) operation()             {}

func validatePlaylistName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidRequest("playlistName must not be empty")
	}
	return nil
}

func validateQueryURIs(uris []string) error {
	if len(uris) == 0 {
		return ErrInvalidRequest("queryUris must contain at least one track URI")
	}
	for i, u := range uris {
		if u == "" {
			return ErrInvalidRequest(fmt.Sprintf("queryUris[%d] must not be empty", i))
		}
	}
	return nil
}

func validateK(k int) error {
	if k <= 0 {
		return ErrInvalidRequest(fmt.Sprintf("k must be positive, got %d", k))
	}
	return nil
}

// RecommendationResult is the ordered list of track identifiers returned by
// the engine. The gateway never reorders or dedupes it.
type RecommendationResult []string

// Health status values reported by the health operation.
const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"

	// HealthServiceName identifies the probed dependency in health responses.
	HealthServiceName = "recommendation-engine"
)

// HealthStatus is the result of the health operation.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// NewHealthStatus folds a probe result into a HealthStatus.
func NewHealthStatus(healthy bool) HealthStatus {
	status := HealthStatusUnhealthy
	if healthy {
		status = HealthStatusHealthy
	}
	return HealthStatus{Status: status, Service: HealthServiceName}
}
