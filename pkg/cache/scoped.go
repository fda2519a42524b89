package cache

// ScopedKeyer wraps a Keyer with a prefix, for example to keep the server's
// entries apart from those of a staging deployment on the same Redis.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "prod:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// A nil inner keyer falls back to [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// GeometryKey implements Keyer.
func (k *ScopedKeyer) GeometryKey(descHash string, opts GeometryKeyOpts) string {
	return k.prefix + k.inner.GeometryKey(descHash, opts)
}

// ArtifactKey implements Keyer.
func (k *ScopedKeyer) ArtifactKey(reportHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(reportHash, opts)
}
