package registry

import (
	"sync/atomic"

	"github.com/hupe1980/agentgraph/logging"
)

// Source yields the registry to build from. Dispatchers read it once per
// call, so a swapped registry is observed on the very next dispatch.
type Source interface {
	Current() *Registry
}

// Static is a Source that always returns the same registry.
type Static struct{ R *Registry }

// Current implements Source.
func (s Static) Current() *Registry { return s.R }

// Store is a Source whose registry can be replaced atomically, e.g. after the
// documents on disk changed.
type Store struct {
	current atomic.Pointer[Registry]
	loader  func() (*Registry, error)
	logger  logging.Logger
}

// NewStore creates a Store holding r. loader is used by Reload and may be nil.
func NewStore(r *Registry, loader func() (*Registry, error), logger logging.Logger) *Store {
	s := &Store{loader: loader, logger: logging.OrNoOp(logger)}
	s.current.Store(r)
	return s
}

// Current implements Source.
func (s *Store) Current() *Registry { return s.current.Load() }

// Reload re-runs the loader and installs the result. On failure the current
// registry stays in place.
func (s *Store) Reload() error {
	if s.loader == nil {
		return nil
	}
	r, err := s.loader()
	if err != nil {
		s.logger.Error("registry.reload.failed", "error", err.Error())
		return err
	}
	s.current.Store(r)
	s.logger.Info("registry.reload.completed", "registry", r.String())
	return nil
}
