// Package gateway is the engine's only component that talks to an LLM. It
// wraps providers.Provider with a single-call contract, role mapping for
// providers without a native system role, fallback-chain traversal on
// refusal/duplicate detection, and one-shot context-overflow recovery.
package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/Valaery/worldengine/engineerr"
	"github.com/Valaery/worldengine/events"
	"github.com/Valaery/worldengine/providers"
	"github.com/Valaery/worldengine/telemetry"
	"github.com/Valaery/worldengine/types"
)

// DefaultTimeout is the fixed per-call timeout; a call exceeding this
// returns a Timeout error with no silent retry.
const DefaultTimeout = 180 * time.Second

// DefaultTopP is passed to every provider that accepts it, a fixed
// determinism guardrail the caller cannot override.
const DefaultTopP = 0.95

// refusalPrefixes are matched case-insensitively against the start of a
// response, after trimming leading whitespace.
var refusalPrefixes = []string{
	"i cannot", "i can't", "i'm sorry, but i cannot", "as an ai",
	"i'm not able to", "i am not able to", "i won't",
}

// Request is the gateway's single-call contract.
type Request struct {
	Messages    []types.Message
	Model       string
	Fallbacks   []string
	Temperature float32
	MaxTokens   int
	SpeakerKey  string // used for duplicate detection against prior turns from this speaker
}

// DuplicateChecker reports whether content is byte-equal (after trimming)
// to a prior assistant turn from the same speaker in the current tab.
type DuplicateChecker func(speakerKey, content string) bool

// Gateway dispatches requests to a registry of providers, applying
// role-mapping, fallback, refusal/duplicate detection, and one-shot
// context-overflow recovery.
type Gateway struct {
	registry   *providers.Registry
	limiters   map[string]*rate.Limiter
	dup        DuplicateChecker
	retriedDup map[string]bool // speakerKey -> already retried once this turn
	tracer     trace.Tracer
	emitter    *events.Emitter
}

// New creates a Gateway over registry. dup may be nil if duplicate
// detection is not wired (treated as never-duplicate).
func New(registry *providers.Registry, dup DuplicateChecker) *Gateway {
	return &Gateway{
		registry:   registry,
		limiters:   make(map[string]*rate.Limiter),
		dup:        dup,
		retriedDup: make(map[string]bool),
		tracer:     telemetry.Tracer(nil),
	}
}

// SetTracerProvider overrides the OTel TracerProvider spans are recorded
// against; call this once at startup after telemetry.NewTracerProvider.
func (g *Gateway) SetTracerProvider(tp trace.TracerProvider) {
	g.tracer = telemetry.Tracer(tp)
}

// SetEmitter wires the gateway to publish InferenceError events for calls
// that exhaust their fallback chain without producing usable text.
func (g *Gateway) SetEmitter(emitter *events.Emitter) {
	g.emitter = emitter
}

// ResetTurn clears the once-per-speaker-per-turn duplicate retry budget;
// called by the pipeline at the start of each new turn.
func (g *Gateway) ResetTurn() {
	g.retriedDup = make(map[string]bool)
}

// limiterFor returns (creating if needed) a per-provider rate limiter. The
// rate is generous by default; callers that need stricter throttling
// configure it via SetLimit.
func (g *Gateway) limiterFor(providerID string) *rate.Limiter {
	l, ok := g.limiters[providerID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(5), 5)
		g.limiters[providerID] = l
	}
	return l
}

// SetLimit overrides the per-provider rate limit.
func (g *Gateway) SetLimit(providerID string, perSecond float64, burst int) {
	g.limiters[providerID] = rate.NewLimiter(rate.Limit(perSecond), burst)
}

// cannedTroubleMessage is emitted when every fallback is exhausted.
const cannedTroubleMessage = "Sorry, the character is having trouble responding right now."

// Complete runs the single-call contract: role mapping and fallback-chain
// traversal on refusal/duplicate. Any other error (Timeout, TransportError,
// Malformed, ConfigError, ContextOverflow) returns to the caller unchanged,
// per the propagation policy — it is the caller's job to retry exactly
// once through CompleteWithSummarizedHistory on ContextOverflow.
func (g *Gateway) Complete(ctx context.Context, req Request) (string, error) {
	models := append([]string{req.Model}, req.Fallbacks...)
	if len(models) > 4 {
		models = models[:4] // primary + at most 3 fallbacks, per the finite-ordered-list rule
	}

	for depth, model := range models {
		text, err := g.callOne(ctx, model, req, depth)
		if err != nil {
			g.emitInferenceError(err)
			return "", err
		}
		if g.isDuplicate(req.SpeakerKey, text) {
			if g.retriedDup[req.SpeakerKey] {
				continue // duplicate retry budget for this speaker exhausted this turn
			}
			g.retriedDup[req.SpeakerKey] = true
			continue
		}
		if g.isRefusal(text) {
			continue
		}
		return text, nil
	}
	return cannedTroubleMessage, nil
}

func (g *Gateway) callOne(ctx context.Context, model string, req Request, fallbackDepth int) (string, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.complete", trace.WithAttributes(
		attribute.String("gen_ai.request.model", model),
		attribute.Int("gateway.fallback_depth", fallbackDepth),
	))
	defer span.End()

	provider, ok := g.registry.Get(providerIDFor(model))
	if !ok {
		err := engineerr.New("gateway", "complete", engineerr.ConfigError, nil).WithDetail(model)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("gen_ai.system", provider.ID()))

	if err := g.limiterFor(provider.ID()).Wait(ctx); err != nil {
		werr := engineerr.New("gateway", "complete", engineerr.Timeout, err)
		span.SetStatus(codes.Error, werr.Error())
		return "", werr
	}

	callCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	chatReq := g.buildChatRequest(provider, req)
	g.emitter.ProviderCallStarted(provider.ID(), model, len(chatReq.Messages))

	start := time.Now()
	resp, err := provider.Chat(callCtx, chatReq)
	duration := time.Since(start)
	if err != nil {
		werr := classifyProviderError(callCtx, err)
		span.SetStatus(codes.Error, werr.Error())
		g.emitter.ProviderCallFailed(provider.ID(), model, werr, duration)
		return "", werr
	}
	span.SetAttributes(attribute.String("gateway.outcome", "ok"))
	span.SetStatus(codes.Ok, "")
	g.emitter.ProviderCallCompleted(providerCallCompletedData(provider.ID(), model, duration, resp))
	return cleanOutput(resp.Content), nil
}

// providerCallCompletedData builds the ProviderCallCompleted payload from a
// provider response; CostInfo is optional, so token/cost fields default to
// zero when a binding doesn't report usage.
func providerCallCompletedData(providerID, model string, duration time.Duration, resp providers.ChatResponse) *events.ProviderCallCompletedData {
	data := &events.ProviderCallCompletedData{
		Provider: providerID,
		Model:    model,
		Duration: duration,
	}
	if resp.CostInfo != nil {
		data.InputTokens = resp.CostInfo.InputTokens
		data.OutputTokens = resp.CostInfo.OutputTokens
		data.Cost = resp.CostInfo.TotalCost
	}
	return data
}

// emitInferenceError publishes an InferenceError event carrying the error's
// engineerr.Kind, or "unknown" for errors outside that taxonomy.
func (g *Gateway) emitInferenceError(err error) {
	if g.emitter == nil {
		return
	}
	var engErr *engineerr.Error
	if errors.As(err, &engErr) {
		g.emitter.InferenceError(string(engErr.Kind))
		return
	}
	g.emitter.InferenceError("unknown")
}

// buildChatRequest applies role mapping: if the provider cannot accept a
// system message (signalled by the provider's ID carrying "no-system",
// the convention the mock/local bindings use in tests), system messages
// are prepended as [SYSTEM]-tagged user turns instead of using ChatRequest.System.
func (g *Gateway) buildChatRequest(provider providers.Provider, req Request) providers.ChatRequest {
	system, messages := splitSystem(req.Messages)
	cr := providers.ChatRequest{
		Messages:    messages,
		Temperature: req.Temperature,
		TopP:        DefaultTopP,
		MaxTokens:   req.MaxTokens,
	}
	if supportsSystemRole(provider) {
		cr.System = system
		return cr
	}
	if system != "" {
		tagged := types.Message{Role: "user", Content: "[SYSTEM] " + system}
		cr.Messages = append([]types.Message{tagged}, cr.Messages...)
	}
	return cr
}

func splitSystem(messages []types.Message) (string, []types.Message) {
	var system strings.Builder
	var rest []types.Message
	for _, m := range messages {
		if m.Role == "system" {
			if system.Len() > 0 {
				system.WriteByte('\n')
			}
			system.WriteString(m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return system.String(), rest
}

// supportsSystemRole is true for every binding currently wired (openai,
// gemini, claude, ollama, vllm all natively accept ChatRequest.System);
// it exists so the gateway degrades correctly for a future provider that
// doesn't, per the role-mapping contract.
func supportsSystemRole(p providers.Provider) bool {
	return !strings.Contains(strings.ToLower(p.ID()), "no-system")
}

func (g *Gateway) isRefusal(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range refusalPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func (g *Gateway) isDuplicate(speakerKey, text string) bool {
	if g.dup == nil || speakerKey == "" {
		return false
	}
	return g.dup(speakerKey, strings.TrimSpace(text))
}

// cleanOutput strips a leading "SpeakerName:" prefix and any <think>...</think>
// block from narrator/NPC output, per the post-processing step.
func cleanOutput(text string) string {
	text = stripThinkBlock(text)
	text = stripSpeakerPrefix(text)
	return strings.TrimSpace(text)
}

func stripThinkBlock(text string) string {
	const open, close = "<think>", "</think>"
	for {
		start := strings.Index(text, open)
		if start < 0 {
			return text
		}
		end := strings.Index(text[start:], close)
		if end < 0 {
			return text[:start]
		}
		text = text[:start] + text[start+end+len(close):]
	}
}

func stripSpeakerPrefix(text string) string {
	idx := strings.Index(text, ":")
	if idx <= 0 || idx > 40 {
		return text
	}
	candidate := text[:idx]
	if strings.ContainsAny(candidate, "\n.!?") {
		return text
	}
	if strings.TrimSpace(candidate) == "" {
		return text
	}
	return strings.TrimSpace(text[idx+1:])
}

func providerIDFor(model string) string {
	return model
}
