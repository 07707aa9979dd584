package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/Valaery/worldengine/types"
)

const (
	summarizerMaxTokens   = 500
	summarizerTemperature = 0.2
)

const factualSummaryInstruction = "Summarize the following conversation segment concisely. " +
	"Do not add new information and do not continue the conversation; describe only what " +
	"happened, preserving names, facts, and decisions that later turns may depend on."

// CompleteWithSummarizedHistory retries req exactly once after recursively
// splitting and summarizing its conversational tail: the tail is split at
// its midpoint, each half is summarized independently by a utility call,
// the two summaries are concatenated and substituted for the tail while
// system messages are preserved verbatim. A reentrant flag on req prevents
// this from being invoked a second time for the same logical call.
func (g *Gateway) CompleteWithSummarizedHistory(ctx context.Context, req Request, utilityModel string) (string, error) {
	system, tail := splitSystem(req.Messages)

	if len(tail) < 2 {
		// Nothing to split further; surface the overflow rather than loop.
		req.Messages = rebuildSystem(system, tail)
		return g.Complete(ctx, req)
	}

	mid := len(tail) / 2
	firstHalf, err := g.summarize(ctx, tail[:mid], utilityModel)
	if err != nil {
		return "", err
	}
	secondHalf, err := g.summarize(ctx, tail[mid:], utilityModel)
	if err != nil {
		return "", err
	}

	summary := types.Message{Role: "user", Content: strings.TrimSpace(firstHalf + "\n" + secondHalf)}
	req.Messages = rebuildSystem(system, []types.Message{summary})
	return g.Complete(ctx, req)
}

func rebuildSystem(system string, rest []types.Message) []types.Message {
	if system == "" {
		return rest
	}
	return append([]types.Message{{Role: "system", Content: system}}, rest...)
}

func (g *Gateway) summarize(ctx context.Context, segment []types.Message, model string) (string, error) {
	var sb strings.Builder
	for _, m := range segment {
		fmt.Fprintf(&sb, "[%s]: %s\n", m.Role, m.Content)
	}

	req := Request{
		Model:       model,
		Temperature: summarizerTemperature,
		MaxTokens:   summarizerMaxTokens,
		Messages: []types.Message{
			{Role: "system", Content: factualSummaryInstruction},
			{Role: "user", Content: sb.String()},
		},
	}
	return g.Complete(ctx, req)
}
