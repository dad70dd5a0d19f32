package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"docchat/internal/config"
	"docchat/internal/models"
	"docchat/internal/util"
)

func mockManager(t *testing.T, dim int) *Manager {
	t.Helper()
	cfg := config.Config{EmbedDim: dim, LLMProviders: "mock", EmbedProviders: "mock"}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestEmbedTextsEmptyBatch(t *testing.T) {
	m := mockManager(t, 16)
	vectors, _, err := m.EmbedTexts(context.Background(), "test", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(vectors) != 0 {
		t.Fatalf("expected empty batch, got %d vectors", len(vectors))
	}
}

func TestEmbedTextsOrderAndDimension(t *testing.T) {
	m := mockManager(t, 32)
	inputs := []string{"alpha", "beta", ""}
	vectors, info, err := m.EmbedTexts(context.Background(), "test", inputs)
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "mock" {
		t.Fatalf("unexpected provider: %q", info.Name)
	}
	if len(vectors) != len(inputs) {
		t.Fatalf("expected %d vectors, got %d", len(inputs), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 32 {
			t.Fatalf("vector %d has dimension %d", i, len(v))
		}
	}
	again, _, err := m.EmbedTexts(context.Background(), "test", []string{"alpha"})
	if err != nil {
		t.Fatal(err)
	}
	for i := range again[0] {
		if again[0][i] != vectors[0][i] {
			t.Fatal("embedding of the same text must be deterministic")
		}
	}
}

type brokenEmbedder struct{ dim int }

func (b brokenEmbedder) Embed(context.Context, EmbedRequest) ([][]float32, ProviderInfo, error) {
	return [][]float32{make([]float32, b.dim)}, ProviderInfo{Name: "broken"}, nil
}

func TestEmbedTextsRejectsWrongDimension(t *testing.T) {
	m := &Manager{
		dim:            8,
		embedProviders: []NamedEmbedProvider{{Ref: ProviderRef{Raw: "broken", Name: "broken"}, Provider: brokenEmbedder{dim: 4}}},
	}
	_, _, err := m.EmbedTexts(context.Background(), "test", []string{"x"})
	if !errors.Is(err, util.ErrEmbeddingUnavailable) {
		t.Fatalf("expected embedding unavailable, got %v", err)
	}
}

type emptyLLM struct{}

func (emptyLLM) Generate(context.Context, GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	return GenerateResponse{Text: "  "}, ProviderInfo{Name: "empty"}, nil
}

type downLLM struct{}

func (downLLM) Generate(context.Context, GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	return GenerateResponse{}, ProviderInfo{Name: "down"}, fmt.Errorf("backend temporarily unavailable")
}

func TestGenerateTextEmptyOutputFails(t *testing.T) {
	m := &Manager{
		dim:          8,
		llmProviders: []NamedLLMProvider{{Ref: ProviderRef{Raw: "empty", Name: "empty"}, Provider: emptyLLM{}}},
	}
	_, _, err := m.GenerateText(context.Background(), "test", []models.Message{{Role: models.RoleHuman, Content: "hi"}})
	if !errors.Is(err, util.ErrGenerationFailed) {
		t.Fatalf("expected generation failed, got %v", err)
	}
}

func TestGenerateTextFailsOverToNextProvider(t *testing.T) {
	m := &Manager{
		dim: 8,
		llmProviders: []NamedLLMProvider{
			{Ref: ProviderRef{Raw: "down", Name: "down"}, Provider: downLLM{}},
			{Ref: ProviderRef{Raw: "mock", Name: "mock"}, Provider: NewMockProvider(8)},
		},
	}
	text, info, err := m.GenerateText(context.Background(), "test", []models.Message{{Role: models.RoleHuman, Content: "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if info.Name != "mock" || text == "" {
		t.Fatalf("expected mock fallback answer, got provider=%q text=%q", info.Name, text)
	}
}
