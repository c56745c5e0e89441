package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/nexusrbx/nexusrbx-server/internal/pkg/luau"
)

const defaultModel = "gemini-1.5-flash"

// systemPrompt 约束模型只输出 Luau，并在块注释里内嵌 UI 清单
const systemPrompt = `You are the NexusRBX script generator. The user describes
Roblox UI or game logic in natural language; you answer with a single complete
Luau script, nothing else.

Rules:
- Output Luau only. No prose, no markdown outside one optional code fence.
- Target Roblox: use Instance.new, game:GetService, RemoteEvents as needed.
- When the script builds UI, embed a manifest describing the element tree in a
  block comment of this exact shape near the top of the script:
  --[[NEXUSRBX_UI_MANIFEST
  {"version":1,"elements":[{"type":"Frame","name":"Main","props":{},"children":[]}]}
  ]]
- Keep scripts self-contained and runnable inside a LocalScript unless the
  request clearly needs a server Script.`

// Result 一次生成的结果
type Result struct {
	Code       string
	TokensUsed int64
}

// Client Gemini 封装
type Client struct {
	client *genai.Client
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{client: client}, nil
}

// Close 释放底层连接
func (c *Client) Close() error {
	return c.client.Close()
}

// GenerateScript 根据自然语言描述生成 Luau 脚本
func (c *Client) GenerateScript(ctx context.Context, prompt, modelName string) (*Result, error) {
	if modelName == "" {
		modelName = defaultModel
	}

	model := c.client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	var tokens int64
	if resp.UsageMetadata != nil {
		tokens = int64(resp.UsageMetadata.TotalTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from model %s", modelName)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	code := luau.StripCodeFence(sb.String())
	if code == "" {
		return nil, fmt.Errorf("model %s returned no code", modelName)
	}

	return &Result{
		Code:       code,
		TokensUsed: tokens,
	}, nil
}
