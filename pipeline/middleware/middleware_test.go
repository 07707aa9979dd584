package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Valaery/worldengine/pipeline"
	"github.com/Valaery/worldengine/providers"
	"github.com/Valaery/worldengine/types"
)

// fakeProvider is a minimal providers.Provider used across this package's
// tests — the retrieved corpus's own mock provider still speaks the
// pre-Chat Predict API and does not satisfy the current Provider
// interface, so tests use this small local fake instead of importing it.
type fakeProvider struct {
	id        string
	responses []string
	calls     int
	err       error
}

func newFakeProvider(id string, responses ...string) *fakeProvider {
	return &fakeProvider{id: id, responses: responses}
}

func (p *fakeProvider) ID() string { return p.id }

func (p *fakeProvider) Chat(ctx context.Context, req providers.ChatRequest) (providers.ChatResponse, error) {
	if p.err != nil {
		return providers.ChatResponse{}, p.err
	}
	if p.calls >= len(p.responses) {
		return providers.ChatResponse{}, errors.New("fakeProvider: no more scripted responses")
	}
	resp := p.responses[p.calls]
	p.calls++
	return providers.ChatResponse{Content: resp}, nil
}

func (p *fakeProvider) ChatStream(ctx context.Context, req providers.ChatRequest) (<-chan providers.StreamChunk, error) {
	return nil, errors.New("fakeProvider: streaming not supported")
}

func (p *fakeProvider) SupportsStreaming() bool { return false }

func (p *fakeProvider) ShouldIncludeRawOutput() bool { return false }

func (p *fakeProvider) Close() error { return nil }

func (p *fakeProvider) CalculateCost(inputTokens, outputTokens, cachedTokens int) types.CostInfo {
	return types.CostInfo{}
}

func newRegistry(provs ...*fakeProvider) *providers.Registry {
	reg := providers.NewRegistry()
	for _, p := range provs {
		reg.Register(p)
	}
	return reg
}

// newTurnContext returns a minimal pipeline.Context suitable for exercising
// one middleware in isolation.
func newTurnContext() *pipeline.Context {
	return &pipeline.Context{
		Input: pipeline.Input{PlayerKey: "player", Text: "look around"},
		Turn:  1,
		Scene: 1,
	}
}

func assertNoErrorAndCalled(t *testing.T, err error, called bool) {
	t.Helper()
	require.NoError(t, err)
	assert.True(t, called, "expected next() to be called")
}
