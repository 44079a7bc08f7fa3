package llm

import (
	"fmt"
	"sync"
)

// ProviderRegistry holds constructed providers keyed by ID.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[ProviderID]Provider
	defaultID ProviderID
}

// ProviderInfo is a read-only view of a registered provider.
type ProviderInfo struct {
	ID             ProviderID `json:"id"`
	Name           string     `json:"name"`
	SupportsTools  bool       `json:"supports_tools"`
	SupportsVision bool       `json:"supports_vision"`
	IsDefault      bool       `json:"is_default"`
}

// NewProviderRegistry creates an empty registry with Anthropic as the
// default provider ID.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[ProviderID]Provider),
		defaultID: ProviderAnthropic,
	}
}

// Register adds or replaces a provider.
func (r *ProviderRegistry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get returns the provider registered under id.
func (r *ProviderRegistry) Get(id ProviderID) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", id)
	}
	return p, nil
}

// GetDefault returns the current default provider.
func (r *ProviderRegistry) GetDefault() (Provider, error) {
	r.mu.RLock()
	id := r.defaultID
	r.mu.RUnlock()
	return r.Get(id)
}

// SetDefault switches the default provider. The provider must already
// be registered.
func (r *ProviderRegistry) SetDefault(id ProviderID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[id]; !ok {
		return fmt.Errorf("provider not found: %s", id)
	}
	r.defaultID = id
	return nil
}

// List returns the IDs of all registered providers.
func (r *ProviderRegistry) List() []ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ProviderID, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	return ids
}

// ListProviders returns provider metadata with the default flagged.
func (r *ProviderRegistry) ListProviders() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]ProviderInfo, 0, len(r.providers))
	for id, p := range r.providers {
		infos = append(infos, ProviderInfo{
			ID:             id,
			Name:           p.Name(),
			SupportsTools:  p.SupportsTools(),
			SupportsVision: p.SupportsVision(),
			IsDefault:      id == r.defaultID,
		})
	}
	return infos
}
