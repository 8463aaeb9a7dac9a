package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var _ Generator = new(AnthropicGenerator)

// AnthropicGenerator adapts the Messages API (non-streaming, with tool use)
// to the Generator interface.
type AnthropicGenerator struct {
	client anthropic.Client
}

func NewAnthropicGenerator(apiKey string) *AnthropicGenerator {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &AnthropicGenerator{client: anthropic.NewClient(opts...)}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		tools := make([]anthropic.ToolUnionParam, len(req.Tools))
		for i, t := range req.Tools {
			var schema anthropic.ToolInputSchemaParam
			if props, ok := t.Parameters["properties"].(map[string]any); ok {
				schema.Properties = props
			}
			tools[i] = anthropic.ToolUnionParam{
				OfTool: &anthropic.ToolParam{
					Name:        t.Name,
					Description: anthropic.String(t.Description),
					InputSchema: schema,
				},
			}
		}
		params.Tools = tools
	}
	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}
	out := &Response{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.AsText().Text
		case "tool_use":
			tb := block.AsToolUse()
			args := ""
			if b, err := json.Marshal(tb.Input); err == nil {
				args = string(b)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				Id:        tb.ID,
				Name:      tb.Name,
				Arguments: args,
			})
		}
	}
	return out, nil
}
