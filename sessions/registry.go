// Package sessions provides mtpview.Session backends and decorators
package sessions

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/internal/util"
)

// Factory builds a session from its raw JSON definition, including the
// "type" field
type Factory = func(raw []byte) (mtpview.Session, error)

// Registry maps session definition types to factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register ties factory to the "type" key. The first registration of a type
// wins; later ones are ignored
func (r *Registry) Register(sessionType string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[sessionType]; ok {
		logger := util.GetLogger("Registry.Register")
		logger.Warn().Str("type", sessionType).Msg("Session type already registered")
		return
	}
	r.factories[sessionType] = factory
}

// Factory returns the factory registered for sessionType
func (r *Registry) Factory(sessionType string) (Factory, error) {
	r.mu.RLock()
	f, ok := r.factories[sessionType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no session factory for %q", sessionType)
	}
	return f, nil
}

// Types lists the registered session types
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	return types
}

// Open picks the factory by the definition's "type" field and builds the
// session. All expected types must be registered before calling Open
func (r *Registry) Open(raw []byte) (mtpview.Session, error) {
	var meta struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parse session definition: %w", err)
	}
	if meta.Type == "" {
		return nil, fmt.Errorf("session definition has no type")
	}
	f, err := r.Factory(meta.Type)
	if err != nil {
		return nil, err
	}
	return f(raw)
}

var defaultRegistry = NewRegistry()

// Register adds factory to the default registry
func Register(sessionType string, factory Factory) {
	defaultRegistry.Register(sessionType, factory)
}

// Open builds a session from raw using the default registry
func Open(raw []byte) (mtpview.Session, error) {
	return defaultRegistry.Open(raw)
}
