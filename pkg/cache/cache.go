// Package cache stores built geometry reports and rendered artifacts.
//
// Builds are deterministic, so a report is a pure function of the
// description bytes and the build options. [Keyer] turns those into keys
// and [Cache] stores the encoded bytes:
//
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a shared cache for the HTTP server
//   - [NullCache]: disables caching
//
// Keys have the form "kind:sha256", for example
// "geometry:3f1c...". [ScopedKeyer] prefixes keys so several tenants or
// environments can share one Redis instance.
package cache

import (
	"context"
	"time"
)

// Default entry lifetimes.
const (
	TTLGeometry = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the cached data and whether the key was present.
	// A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero keeps the entry forever.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the cache's resources.
	Close() error
}

// GeometryKeyOpts are the build options that change a report.
type GeometryKeyOpts struct {
	Permissive bool     `json:"permissive"`
	Detectors  []string `json:"detectors,omitempty"`
}

// ArtifactKeyOpts are the render options that change an artifact.
type ArtifactKeyOpts struct {
	Format   string  `json:"format"`
	Kind     string  `json:"kind"`
	Detector string  `json:"detector,omitempty"`
	Labels   bool    `json:"labels,omitempty"`
	Elements bool    `json:"elements,omitempty"`
	Detailed bool    `json:"detailed,omitempty"`
	Scale    float64 `json:"scale,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	// GeometryKey keys a report by the hash of its description.
	GeometryKey(descHash string, opts GeometryKeyOpts) string
	// ArtifactKey keys a rendered artifact by the hash of its report.
	ArtifactKey(reportHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer hashes the key inputs with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// GeometryKey implements Keyer.
func (DefaultKeyer) GeometryKey(descHash string, opts GeometryKeyOpts) string {
	return hashKey("geometry", descHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(reportHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", reportHash, opts)
}
