package manifest

import (
	"sync/atomic"

	"github.com/BaSui01/aigate/types"
	"go.uber.org/zap"
)

// Registry provides O(1), lock-free lookup of provider and model records.
// Loads publish a new immutable snapshot atomically; a failed reload never
// replaces the last-known-good snapshot.
type Registry struct {
	snapshot atomic.Pointer[Manifest]
	logger   *zap.Logger
}

// NewRegistry creates a registry seeded with the given manifest.
func NewRegistry(m *Manifest, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{logger: logger}
	if m != nil {
		r.snapshot.Store(m)
	}
	return r
}

// Snapshot returns the current manifest. Callers must treat it as read-only.
func (r *Registry) Snapshot() *Manifest {
	return r.snapshot.Load()
}

// ResolveProvider looks up a provider definition by id.
func (r *Registry) ResolveProvider(id string) (ProviderDefinition, bool) {
	m := r.snapshot.Load()
	if m == nil {
		return ProviderDefinition{}, false
	}
	p, ok := m.Providers[id]
	return p, ok
}

// ResolveModel looks up a model definition by id.
func (r *Registry) ResolveModel(id string) (ModelDefinition, bool) {
	m := r.snapshot.Load()
	if m == nil {
		return ModelDefinition{}, false
	}
	md, ok := m.Models[id]
	return md, ok
}

// LoadBytes validates and publishes a new snapshot from raw bytes.
func (r *Registry) LoadBytes(data []byte) error {
	m, err := Load(data)
	if err != nil {
		r.logger.Warn("manifest load rejected, keeping previous snapshot", zap.Error(err))
		return err
	}
	r.snapshot.Store(m)
	r.logger.Info("manifest snapshot published",
		zap.String("version", m.Version),
		zap.Int("providers", len(m.Providers)),
		zap.Int("models", len(m.Models)),
	)
	return nil
}

// LoadPath validates and publishes a new snapshot from a file.
func (r *Registry) LoadPath(path string) error {
	m, err := LoadFile(path)
	if err != nil {
		r.logger.Warn("manifest reload rejected, keeping previous snapshot",
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	r.snapshot.Store(m)
	r.logger.Info("manifest snapshot published",
		zap.String("path", path),
		zap.String("version", m.Version),
	)
	return nil
}

// MustProvider resolves a provider or returns a ConfigurationError.
func (r *Registry) MustProvider(id string) (ProviderDefinition, error) {
	p, ok := r.ResolveProvider(id)
	if !ok {
		return ProviderDefinition{}, types.Errorf(types.ErrConfiguration, "provider %q not found in manifest", id)
	}
	return p, nil
}
