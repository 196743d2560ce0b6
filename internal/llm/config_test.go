package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_GetModel(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gemini-2.5-pro", cfg.GetModel(VariantReasoning))
	assert.Equal(t, "gemini-2.5-flash", cfg.GetModel(VariantStandard))
}

func TestConfig_GetModel_FallbackToStandard(t *testing.T) {
	cfg := &Config{
		Provider: ProviderGemini,
		Models:   map[Variant]string{VariantStandard: "gemini-2.5-flash"},
	}
	assert.Equal(t, "gemini-2.5-flash", cfg.GetModel(VariantReasoning))
}

func TestConfig_GetModel_NoModels(t *testing.T) {
	cfg := &Config{Provider: ProviderGemini}
	assert.Equal(t, "", cfg.GetModel(VariantStandard))
}

func TestRequest_ModelOverride(t *testing.T) {
	cfg := DefaultConfig()

	req := Request{Variant: VariantStandard, Model: "gemini-2.0-flash"}
	assert.Equal(t, "gemini-2.0-flash", req.model(cfg))

	req = Request{Variant: VariantStandard}
	assert.Equal(t, "gemini-2.5-flash", req.model(cfg))
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := newPool(2)

	require.True(t, p.tryAcquire())
	require.True(t, p.tryAcquire())
	assert.False(t, p.tryAcquire(), "third acquisition must fail while pool is full")

	p.release()
	assert.True(t, p.tryAcquire())
}

func TestPool_AcquireRespectsContext(t *testing.T) {
	p := newPool(1)
	require.NoError(t, p.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := p.acquire(ctx)
	assert.Error(t, err, "acquire must give up when the context expires")
}

func TestPool_DefaultSize(t *testing.T) {
	p := newPool(0)
	for i := 0; i < DefaultMaxConcurrent; i++ {
		require.True(t, p.tryAcquire())
	}
	assert.False(t, p.tryAcquire())
}

func TestNewGeminiClient_RequiresAPIKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), DefaultConfig(), "")
	assert.Error(t, err)
}
