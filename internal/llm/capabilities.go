package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ModelCapabilities describes what a model accepts on requests.
type ModelCapabilities struct {
	Tools  bool
	Vision bool
}

// CapabilitiesCache caches per-provider model capability lookups.
type CapabilitiesCache struct {
	mu      sync.Mutex
	entries map[ProviderID]capEntry
}

type capEntry struct {
	expiry time.Time
	caps   map[string]ModelCapabilities // modelID -> capabilities
}

var modelCapCache = &CapabilitiesCache{
	entries: make(map[ProviderID]capEntry),
}

// CapabilitiesForModel returns (caps, known) for a provider/model.
// known==false means we could not determine and callers may choose to fallback.
func CapabilitiesForModel(ctx context.Context, provider Provider, modelID string, openRouterAPIKey string) (ModelCapabilities, bool) {
	// Prefer the provider's static model list.
	for _, m := range provider.Models() {
		if m.ID == modelID {
			return ModelCapabilities{Tools: m.SupportsTools, Vision: m.SupportsVision}, true
		}
	}

	// Dynamic fetch for OpenRouter to avoid stale model lists.
	if provider.ID() == ProviderOpenRouter {
		if caps, known := modelCapCache.fetchOpenRouter(ctx, openRouterAPIKey, modelID); known {
			return caps, true
		}
	}

	return ModelCapabilities{Tools: true, Vision: true}, false // default optimistic
}

// EnsureVisionAndTools rejects models that cannot drive the agent loop,
// which needs both screenshot input and tool calling. Models the catalog
// does not know pass, since provider model lists lag behind releases.
func EnsureVisionAndTools(ctx context.Context, provider Provider, modelID string, openRouterAPIKey string) error {
	caps, known := CapabilitiesForModel(ctx, provider, modelID, openRouterAPIKey)
	if !known {
		return nil
	}
	if !caps.Vision {
		return fmt.Errorf("model %s does not accept images; the agent needs a vision-capable model", modelID)
	}
	if !caps.Tools {
		return fmt.Errorf("model %s does not support tool calling", modelID)
	}
	return nil
}

func (c *CapabilitiesCache) fetchOpenRouter(ctx context.Context, apiKey, targetModel string) (ModelCapabilities, bool) {
	if apiKey == "" {
		return ModelCapabilities{}, false
	}

	c.mu.Lock()
	entry, ok := c.entries[ProviderOpenRouter]
	now := time.Now()
	if ok && now.Before(entry.expiry) {
		if v, found := entry.caps[targetModel]; found {
			c.mu.Unlock()
			return v, true
		}
	}
	c.mu.Unlock()

	// Refresh
	caps, err := pullOpenRouterModels(ctx, apiKey)
	if err != nil {
		return ModelCapabilities{}, false
	}

	c.mu.Lock()
	c.entries[ProviderOpenRouter] = capEntry{
		expiry: time.Now().Add(6 * time.Hour),
		caps:   caps,
	}
	v, found := caps[targetModel]
	c.mu.Unlock()

	if found {
		return v, true
	}
	return ModelCapabilities{}, false
}

func pullOpenRouterModels(ctx context.Context, apiKey string) (map[string]ModelCapabilities, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://openrouter.ai/api/v1/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var body struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	out := make(map[string]ModelCapabilities)
	for _, raw := range body.Data {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		id, _ := m["id"].(string)
		if id == "" {
			continue
		}
		out[id] = ModelCapabilities{
			Tools:  supportsToolsInOpenRouter(m),
			Vision: supportsVisionInOpenRouter(m),
		}
	}
	return out, nil
}

func supportsToolsInOpenRouter(m map[string]any) bool {
	// supported_parameters array check
	if arr, ok := m["supported_parameters"]; ok {
		if hasToolish(arr) {
			return true
		}
	}
	// top_provider.supported_parameters
	if tp, ok := m["top_provider"].(map[string]any); ok {
		if arr, ok := tp["supported_parameters"]; ok && hasToolish(arr) {
			return true
		}
	}
	// capabilities.tools / function_calling
	if caps, ok := m["capabilities"].(map[string]any); ok {
		for _, key := range []string{"tools", "function_calling", "functions"} {
			if b, ok := caps[key].(bool); ok && b {
				return true
			}
		}
	}
	return false
}

func supportsVisionInOpenRouter(m map[string]any) bool {
	arch, ok := m["architecture"].(map[string]any)
	if !ok {
		return false
	}
	// input_modalities array, e.g. ["text", "image"]
	if mods, ok := arch["input_modalities"].([]any); ok {
		for _, item := range mods {
			if s, ok := item.(string); ok && strings.EqualFold(s, "image") {
				return true
			}
		}
	}
	// legacy modality string, e.g. "text+image->text"
	if modality, ok := arch["modality"].(string); ok {
		parts := strings.SplitN(modality, "->", 2)
		if strings.Contains(strings.ToLower(parts[0]), "image") {
			return true
		}
	}
	return false
}

func hasToolish(v any) bool {
	arr, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.ToLower(s)
		if strings.Contains(s, "tool") || strings.Contains(s, "function") {
			return true
		}
	}
	return false
}
