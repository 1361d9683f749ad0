package graphstore

import (
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/outofforest/graphstore/objectstore"
)

// Registry keeps stores opened in the process, so each directory is opened once.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	owners map[*objectstore.Store]*Store
}

// NewRegistry creates new registry.
func NewRegistry() *Registry {
	return &Registry{
		stores: map[string]*Store{},
		owners: map[*objectstore.Store]*Store{},
	}
}

// Open returns the store opened in the directory. If the directory has been opened already, the same store
// is returned and options are ignored.
func (r *Registry) Open(dir string, opts ...Option) (*Store, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, exists := r.stores[dir]; exists {
		if !s.isClosed() {
			return s, nil
		}
		delete(r.owners, s.objects)
	}

	s, err := Open(dir, opts...)
	if err != nil {
		return nil, err
	}
	r.stores[dir] = s
	r.owners[s.objects] = s
	return s, nil
}

// StoreOf returns the store the handle belongs to.
func (r *Registry) StoreOf(h *objectstore.Handle) (*Store, bool) {
	if h == nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.owners[h.Store()]
	return s, exists
}

// Close closes all the stores.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for dir, s := range r.stores {
		err = multierr.Append(err, s.Close())
		delete(r.stores, dir)
		delete(r.owners, s.objects)
	}
	return err
}
