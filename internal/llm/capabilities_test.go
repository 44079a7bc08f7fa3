package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalogProvider is a Provider whose model catalog the test controls.
type catalogProvider struct {
	id     ProviderID
	models []Model
}

func (c *catalogProvider) ID() ProviderID { return c.id }
func (c *catalogProvider) Name() string   { return string(c.id) }
func (c *catalogProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	return &ChatResponse{Content: "ok"}, nil
}
func (c *catalogProvider) SupportsTools() bool  { return true }
func (c *catalogProvider) SupportsVision() bool { return true }
func (c *catalogProvider) Models() []Model      { return c.models }
func (c *catalogProvider) DefaultModel() string { return c.models[0].ID }
func (c *catalogProvider) SetModel(modelID string) error {
	return ValidateModelID(modelID, c.models)
}

func TestCapabilitiesForModel(t *testing.T) {
	provider := &catalogProvider{
		id: ProviderAnthropic,
		models: []Model{
			{ID: "full", SupportsTools: true, SupportsVision: true},
			{ID: "text-only", SupportsTools: true},
		},
	}

	t.Run("reads capabilities from the catalog", func(t *testing.T) {
		caps, known := CapabilitiesForModel(context.Background(), provider, "text-only", "")
		require.True(t, known)
		assert.True(t, caps.Tools)
		assert.False(t, caps.Vision)
	})

	t.Run("unknown model is optimistic and unknown", func(t *testing.T) {
		caps, known := CapabilitiesForModel(context.Background(), provider, "brand-new", "")
		assert.False(t, known)
		assert.True(t, caps.Tools)
		assert.True(t, caps.Vision)
	})
}

func TestEnsureVisionAndTools(t *testing.T) {
	provider := &catalogProvider{
		id: ProviderAnthropic,
		models: []Model{
			{ID: "full", SupportsTools: true, SupportsVision: true},
			{ID: "no-vision", SupportsTools: true},
			{ID: "no-tools", SupportsVision: true},
		},
	}

	t.Run("accepts a model with vision and tools", func(t *testing.T) {
		err := EnsureVisionAndTools(context.Background(), provider, "full", "")
		assert.NoError(t, err)
	})

	t.Run("rejects a model without vision", func(t *testing.T) {
		err := EnsureVisionAndTools(context.Background(), provider, "no-vision", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vision")
	})

	t.Run("rejects a model without tools", func(t *testing.T) {
		err := EnsureVisionAndTools(context.Background(), provider, "no-tools", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tool calling")
	})

	t.Run("passes a model the catalog does not list", func(t *testing.T) {
		err := EnsureVisionAndTools(context.Background(), provider, "unlisted", "")
		assert.NoError(t, err)
	})
}
