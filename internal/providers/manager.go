package providers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"docchat/internal/config"
	"docchat/internal/models"
	"docchat/internal/util"
)

type NamedLLMProvider struct {
	Ref      ProviderRef
	Provider LLMProvider
}

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

// Manager owns the configured provider sets and applies failover and
// output validation on top of them. Neither path retries a provider that
// already answered; failover only moves on to the next configured backend.
type Manager struct {
	dim            int
	llmProviders   []NamedLLMProvider
	embedProviders []NamedEmbedProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	m := &Manager{dim: cfg.EmbedDim}
	for _, ref := range ParseProviderList(cfg.LLMProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		llm, ok := p.(LLMProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support text generation", ref.Raw)
		}
		m.llmProviders = append(m.llmProviders, NamedLLMProvider{Ref: ref, Provider: llm})
	}
	for _, ref := range ParseProviderList(cfg.EmbedProviders) {
		p, err := buildProvider(ref, cfg.EmbedDim)
		if err != nil {
			return nil, err
		}
		embed, ok := p.(EmbeddingProvider)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support embeddings", ref.Raw)
		}
		m.embedProviders = append(m.embedProviders, NamedEmbedProvider{Ref: ref, Provider: embed})
	}
	if len(m.embedProviders) == 0 {
		m.embedProviders = []NamedEmbedProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(cfg.EmbedDim)}}
	}
	if len(m.llmProviders) == 0 {
		m.llmProviders = []NamedLLMProvider{{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(cfg.EmbedDim)}}
	}
	return m, nil
}

func buildProvider(ref ProviderRef, dim int) (any, error) {
	switch strings.ToLower(ref.Name) {
	case "ollama":
		return NewOllamaProvider(ref.KeyAlias), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "mock":
		return NewMockProvider(dim), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", ref.Name)
	}
}

// Dimension returns the embedding dimensionality every stored and query
// vector must match.
func (m *Manager) Dimension() int {
	return m.dim
}

// EmbedTexts embeds inputs in order, walking the configured providers until
// one returns a well-formed batch. An empty input yields an empty batch.
// Wrong vector count, wrong dimensionality or non-finite values count as a
// failed provider; exhausting all of them yields ErrEmbeddingUnavailable.
func (m *Manager) EmbedTexts(ctx context.Context, operation string, inputs []string) ([][]float32, ProviderInfo, error) {
	if len(inputs) == 0 {
		return [][]float32{}, ProviderInfo{}, nil
	}
	var lastErr error
	for _, idx := range m.preferredOrder(len(m.embedProviders), func(i int) string { return m.embedProviders[i].Ref.Name }) {
		p := m.embedProviders[idx]
		vectors, info, err := p.Provider.Embed(ctx, EmbedRequest{Operation: operation, Inputs: inputs})
		if err == nil {
			err = validateVectors(vectors, len(inputs), m.dim)
			if err == nil {
				return vectors, info, nil
			}
		}
		lastErr = err
		if !Retryable(ClassifyError(err)) {
			break
		}
	}
	return nil, ProviderInfo{}, fmt.Errorf("%w: %v", util.ErrEmbeddingUnavailable, lastErr)
}

// GenerateText walks the configured LLM providers until one returns
// non-empty text. Empty output is a failure, not an answer.
func (m *Manager) GenerateText(ctx context.Context, operation string, messages []models.Message) (string, ProviderInfo, error) {
	var lastErr error
	for _, idx := range m.preferredOrder(len(m.llmProviders), func(i int) string { return m.llmProviders[i].Ref.Name }) {
		p := m.llmProviders[idx]
		resp, info, err := p.Provider.Generate(ctx, GenerateRequest{Operation: operation, Messages: messages})
		if err == nil {
			text := strings.TrimSpace(resp.Text)
			if text != "" {
				return text, info, nil
			}
			err = fmt.Errorf("provider %s returned empty output", p.Ref.Raw)
		}
		lastErr = err
		if !Retryable(ClassifyError(err)) {
			break
		}
	}
	return "", ProviderInfo{}, fmt.Errorf("%w: %v", util.ErrGenerationFailed, lastErr)
}

func (m *Manager) EmbedCount() int {
	return len(m.embedProviders)
}

func (m *Manager) LLMCount() int {
	return len(m.llmProviders)
}

// preferredOrder places real providers before the mock fallback.
func (m *Manager) preferredOrder(n int, nameAt func(i int) string) []int {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if strings.ToLower(nameAt(i)) != "mock" {
			out = append(out, i)
		}
	}
	for i := 0; i < n; i++ {
		if strings.ToLower(nameAt(i)) == "mock" {
			out = append(out, i)
		}
	}
	return out
}

func validateVectors(vectors [][]float32, want, dim int) error {
	if len(vectors) != want {
		return fmt.Errorf("embedding batch size mismatch: got %d vectors for %d inputs", len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("embedding dimension mismatch at %d: got %d, want %d", i, len(v), dim)
		}
		for _, x := range v {
			if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Errorf("embedding at %d contains non-numeric values", i)
			}
		}
	}
	return nil
}
