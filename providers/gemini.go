package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Valaery/worldengine/logger"
	"github.com/Valaery/worldengine/types"
)

// GeminiProvider implements Provider for Google's Gemini REST API.
type GeminiProvider struct {
	BaseProvider
	Model    string
	BaseURL  string
	APIKey   string
	Defaults ProviderDefaults
}

// NewGeminiProvider creates a new Gemini provider, reading the API key from
// GEMINI_API_KEY (falling back to GOOGLE_API_KEY) when no credential is given.
func NewGeminiProvider(id, model, baseURL string, defaults ProviderDefaults, includeRawOutput bool) *GeminiProvider {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	return &GeminiProvider{
		BaseProvider: NewBaseProvider(id, includeRawOutput, &http.Client{Timeout: 60 * time.Second}),
		Model:        model,
		BaseURL:      baseURL,
		APIKey:       apiKey,
		Defaults:     defaults,
	}
}

// NewGeminiProviderWithCredential creates a Gemini provider authenticated via
// an explicit Credential rather than the environment.
func NewGeminiProviderWithCredential(id, model, baseURL string, defaults ProviderDefaults, includeRawOutput bool, cred Credential) *GeminiProvider {
	p := NewGeminiProvider(id, model, baseURL, defaults, includeRawOutput)
	p.APIKey = ExtractAPIKey(cred)
	return p
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
	SafetySettings    []geminiSafety  `json:"safetySettings,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenConfig struct {
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiSafety struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	UsageMetadata  *geminiUsage          `json:"usageMetadata,omitempty"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

func (p *GeminiProvider) buildRequest(req ChatRequest) geminiRequest {
	var contents []geminiContent
	var systemInstruction *geminiContent

	if req.System != "" {
		systemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	for _, msg := range req.Messages {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: msg.Content}}})
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.Defaults.Temperature
	}
	topP := req.TopP
	if topP == 0 {
		topP = p.Defaults.TopP
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.Defaults.MaxTokens
	}

	return geminiRequest{
		Contents:          contents,
		SystemInstruction: systemInstruction,
		GenerationConfig: geminiGenConfig{
			Temperature:     temperature,
			TopP:            topP,
			MaxOutputTokens: maxTokens,
		},
		SafetySettings: []geminiSafety{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
		},
	}
}

// Chat sends a chat request to Gemini's generateContent endpoint.
func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	start := time.Now()
	geminiReq := p.buildRequest(req)

	reqBody, err := json.Marshal(geminiReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	chatResp := ChatResponse{}
	if p.ShouldIncludeRawOutput() {
		chatResp.RawRequest = geminiReq
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.BaseURL, p.Model, p.APIKey)
	logger.APIRequest("Gemini", "POST", url, map[string]string{"Content-Type": "application/json"}, geminiReq)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		chatResp.Latency = time.Since(start)
		return chatResp, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.GetHTTPClient().Do(httpReq)
	if err != nil {
		chatResp.Latency = time.Since(start)
		return chatResp, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		chatResp.Latency = time.Since(start)
		return chatResp, fmt.Errorf("failed to read response: %w", err)
	}
	logger.APIResponse("Gemini", resp.StatusCode, string(respBody), nil)

	if resp.StatusCode != http.StatusOK {
		chatResp.Latency = time.Since(start)
		chatResp.Raw = respBody
		return chatResp, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		chatResp.Latency = time.Since(start)
		chatResp.Raw = respBody
		return chatResp, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 {
		chatResp.Latency = time.Since(start)
		chatResp.Raw = respBody
		if geminiResp.PromptFeedback != nil && geminiResp.PromptFeedback.BlockReason != "" {
			return chatResp, fmt.Errorf("prompt blocked: %s", geminiResp.PromptFeedback.BlockReason)
		}
		return chatResp, errors.New("no candidates in response")
	}

	candidate := geminiResp.Candidates[0]
	if candidate.FinishReason == "SAFETY" {
		chatResp.Latency = time.Since(start)
		chatResp.Raw = respBody
		return chatResp, fmt.Errorf("response blocked by safety filters")
	}
	if len(candidate.Content.Parts) == 0 {
		chatResp.Latency = time.Since(start)
		chatResp.Raw = respBody
		return chatResp, fmt.Errorf("no content parts in response (finish reason: %s)", candidate.FinishReason)
	}

	var tokensIn, tokensOut int
	if geminiResp.UsageMetadata != nil {
		tokensIn = geminiResp.UsageMetadata.PromptTokenCount
		tokensOut = geminiResp.UsageMetadata.CandidatesTokenCount
	}
	costBreakdown := p.CalculateCost(tokensIn, tokensOut, 0)

	chatResp.Content = candidate.Content.Parts[0].Text
	chatResp.CostInfo = &costBreakdown
	chatResp.Latency = time.Since(start)
	chatResp.Raw = respBody
	return chatResp, nil
}

// ChatStream streams a chat response from Gemini's streamGenerateContent endpoint.
// Gemini returns its stream as a single JSON array rather than SSE, so the whole
// body is read before chunks are replayed onto the channel.
func (p *GeminiProvider) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	geminiReq := p.buildRequest(req)
	reqBody, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?key=%s", p.BaseURL, p.Model, p.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.GetHTTPClient().Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	outChan := make(chan StreamChunk)
	go p.streamResponse(ctx, resp.Body, outChan)
	return outChan, nil
}

func (p *GeminiProvider) streamResponse(ctx context.Context, body io.ReadCloser, outChan chan<- StreamChunk) {
	defer close(outChan)
	defer body.Close()

	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		outChan <- StreamChunk{Error: fmt.Errorf("failed to read response body: %w", err), FinishReason: StringPtr("error")}
		return
	}

	var responses []geminiResponse
	if err := json.Unmarshal(bodyBytes, &responses); err != nil {
		outChan <- StreamChunk{Error: fmt.Errorf("failed to parse streaming response: %w", err), FinishReason: StringPtr("error")}
		return
	}

	accumulated := ""
	totalTokens := 0
	for _, chunk := range responses {
		select {
		case <-ctx.Done():
			outChan <- StreamChunk{Content: accumulated, Error: ctx.Err(), FinishReason: StringPtr("cancelled")}
			return
		default:
		}

		if len(chunk.Candidates) == 0 {
			continue
		}
		candidate := chunk.Candidates[0]
		if len(candidate.Content.Parts) == 0 {
			continue
		}

		delta := candidate.Content.Parts[0].Text
		if delta != "" {
			accumulated += delta
			totalTokens++
			outChan <- StreamChunk{Content: accumulated, Delta: delta, TokenCount: totalTokens, DeltaTokens: 1}
		}

		if candidate.FinishReason != "" {
			finishReason := candidate.FinishReason
			finalChunk := StreamChunk{Content: accumulated, TokenCount: totalTokens, FinishReason: &finishReason}
			if chunk.UsageMetadata != nil {
				costBreakdown := p.CalculateCost(chunk.UsageMetadata.PromptTokenCount, chunk.UsageMetadata.CandidatesTokenCount, 0)
				finalChunk.CostInfo = &costBreakdown
			}
			outChan <- finalChunk
			return
		}
	}

	outChan <- StreamChunk{Content: accumulated, TokenCount: totalTokens, FinishReason: StringPtr("stop")}
}

// CalculateCost calculates cost breakdown for Gemini token usage.
func (p *GeminiProvider) CalculateCost(tokensIn, tokensOut, cachedTokens int) types.CostInfo {
	var inputCostPer1K, outputCostPer1K float64
	if p.Defaults.Pricing.InputCostPer1K > 0 && p.Defaults.Pricing.OutputCostPer1K > 0 {
		inputCostPer1K = p.Defaults.Pricing.InputCostPer1K
		outputCostPer1K = p.Defaults.Pricing.OutputCostPer1K
	} else {
		switch p.Model {
		case "gemini-1.5-pro", "gemini-2.5-pro":
			inputCostPer1K, outputCostPer1K = 0.00125, 0.005
		case "gemini-1.5-flash", "gemini-2.5-flash":
			inputCostPer1K, outputCostPer1K = 0.000075, 0.0003
		default:
			inputCostPer1K, outputCostPer1K = 0.00125, 0.005
		}
	}
	cachedCostPer1K := inputCostPer1K * 0.5

	inputCost := float64(tokensIn-cachedTokens) / 1000.0 * inputCostPer1K
	cachedCost := float64(cachedTokens) / 1000.0 * cachedCostPer1K
	outputCost := float64(tokensOut) / 1000.0 * outputCostPer1K

	return types.CostInfo{
		InputTokens:   tokensIn - cachedTokens,
		OutputTokens:  tokensOut,
		CachedTokens:  cachedTokens,
		InputCostUSD:  inputCost,
		OutputCostUSD: outputCost,
		CachedCostUSD: cachedCost,
		TotalCost:     inputCost + cachedCost + outputCost,
	}
}
