// Package llm provides the gateway to chat-completion models: provider
// configuration, a bounded in-flight request pool, and streaming and
// non-streaming invocation modes.
package llm

// Variant selects the decoding configuration for a call. The reasoning
// variant relies on the model's extended deliberation defaults; the
// standard variant pins explicit temperature and top-k controls.
type Variant string

// Supported variants
const (
	VariantReasoning Variant = "reasoning"
	VariantStandard  Variant = "standard"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Standard-variant decoding defaults
const (
	defaultTemperature float32 = 0.4
	defaultTopK        int32   = 40
)

// DefaultMaxConcurrent is the default number of simultaneous in-flight
// model calls allowed across all pipeline runs.
const DefaultMaxConcurrent = 10

// Config holds the model configuration for the gateway
type Config struct {
	Provider      Provider
	Models        map[Variant]string
	MaxConcurrent int64 // bounded pool size, 0 means DefaultMaxConcurrent
}

// DefaultConfig returns the default Gemini configuration
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[Variant]string{
			VariantReasoning: "gemini-2.5-pro",
			VariantStandard:  "gemini-2.5-flash",
		},
		MaxConcurrent: DefaultMaxConcurrent,
	}
}

// GetModel returns the model name for a variant, falling back to the
// standard model when the variant has none configured.
func (c *Config) GetModel(v Variant) string {
	if model, ok := c.Models[v]; ok {
		return model
	}
	if model, ok := c.Models[VariantStandard]; ok {
		return model
	}
	return ""
}

// Request describes a single gateway invocation.
type Request struct {
	Prompt  string
	Variant Variant
	Model   string // optional override of the variant's configured model
}

// model resolves the effective model name for the request.
func (r Request) model(cfg *Config) string {
	if r.Model != "" {
		return r.Model
	}
	return cfg.GetModel(r.Variant)
}
