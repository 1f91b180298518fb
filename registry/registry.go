// Package registry discovers CHP reasoner endpoints through etcd.
//
// Reasoner deployments register one entry per running instance under
// /{namespace}/reasoners/{reasoner-id}/{instance-id}, kept alive by an etcd
// lease. Clients look instances up by reasoner id and resolve a base URL
// to send queries to, falling back to their static configuration when no
// registry is configured.
package registry

import (
	"context"
	"time"
)

// ReasonerInfo describes a registered reasoner instance.
type ReasonerInfo struct {
	// ReasonerID is the handler the instance serves, e.g. "default" or "gene".
	ReasonerID string `json:"reasoner_id"`

	// InstanceID is unique per running instance (typically a UUID).
	InstanceID string `json:"instance_id"`

	// URL is the base URL queries are sent to.
	URL string `json:"url"`

	// TRAPIVersions lists the schema versions the instance accepts.
	TRAPIVersions []string `json:"trapi_versions,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`

	// StartedAt is the timestamp when this instance started
	StartedAt time.Time `json:"started_at"`
}

// Discoverer looks up reasoner instances.
type Discoverer interface {
	// Discover returns the live instances of one reasoner, in arbitrary
	// order. The slice is empty when none are registered.
	Discover(ctx context.Context, reasonerID string) ([]ReasonerInfo, error)
}

// Watcher streams the instances of one reasoner as they change.
type Watcher interface {
	// Watch emits the current instances of a reasoner immediately and again
	// after every change. The channel is closed when ctx is canceled or the
	// registry is closed.
	Watch(ctx context.Context, reasonerID string) (<-chan []ReasonerInfo, error)
}

// Registry is the full registration and discovery interface.
//
// Implementations must be safe for concurrent use. Entries are tied to a
// lease so that crashed instances disappear after the TTL.
type Registry interface {
	Discoverer
	Watcher

	// Register adds or refreshes an instance and keeps its lease alive
	// until Deregister or Close.
	Register(ctx context.Context, info ReasonerInfo) error

	// Deregister revokes the instance lease. Unknown instances are a no-op.
	Deregister(ctx context.Context, info ReasonerInfo) error

	// DiscoverAll returns the instances of every reasoner.
	DiscoverAll(ctx context.Context) ([]ReasonerInfo, error)

	Close() error
}

// Config holds registry connection configuration.
type Config struct {
	// Endpoints is the list of etcd endpoints
	// Format: ["host1:2379", "host2:2379", "host3:2379"]
	Endpoints []string `json:"endpoints"`

	// Namespace is the etcd key prefix of all reasoner entries.
	// Default: "chp"
	Namespace string `json:"namespace"`

	// TTL is the lease time-to-live in seconds.
	// Default: 30 seconds
	TTL int `json:"ttl"`

	// DialTimeout bounds the initial connection. Default: 5s
	DialTimeout time.Duration `json:"dial_timeout"`

	// TLS is optional; nil disables TLS.
	TLS *TLSConfig `json:"tls"`
}

// TLSConfig holds mutual TLS certificate paths for etcd.
type TLSConfig struct {
	// Enabled determines whether TLS is active
	// If false, all other fields are ignored
	Enabled bool `json:"enabled"`

	// CertFile is the path to the client certificate file (PEM format)
	CertFile string `json:"cert_file"`

	// KeyFile is the path to the client private key file (PEM format)
	KeyFile string `json:"key_file"`

	// CAFile is the path to the certificate authority file (PEM format)
	CAFile string `json:"ca_file"`
}
