package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// PanelCount is the number of panels in every plan.
const PanelCount = 4

const planToolName = "save_panel_plan"

// Character is someone who appears in the story.
type Character struct {
	Name   string `json:"name"`
	Traits string `json:"traits"`
}

// PanelPlan describes one panel before images are attached.
type PanelPlan struct {
	Caption     string `json:"caption"`
	ImagePrompt string `json:"image_prompt"`
}

// Plan is the structured outline of a story.
type Plan struct {
	Title      string      `json:"title"`
	Characters []Character `json:"characters"`
	Panels     []PanelPlan `json:"panels"`
}

// Planner outlines a story from its transcript.
type Planner interface {
	Plan(ctx context.Context, transcript string) (Plan, error)
}

// FallbackPlan is the fixed plan used when no planning service is configured.
func FallbackPlan() Plan {
	const (
		hero    = "Luna the Explorer"
		setting = "a sunny park"
		problem = "a lost kite"
		action  = "searching with a helpful dog"
		outcome = "finding the kite and celebrating"
	)

	return Plan{
		Title:      "A Day of Adventure",
		Characters: []Character{{Name: hero, Traits: "curious, brave, kind"}},
		Panels: []PanelPlan{
			{
				Caption:     fmt.Sprintf("%s arrives in %s.", hero, setting),
				ImagePrompt: fmt.Sprintf("%s in %s, bright colors, friendly style", hero, setting),
			},
			{
				Caption:     fmt.Sprintf("A problem appears: %s.", problem),
				ImagePrompt: fmt.Sprintf("%s noticing %s, gentle mood", hero, problem),
			},
			{
				Caption:     fmt.Sprintf("%s takes action by %s.", hero, action),
				ImagePrompt: fmt.Sprintf("%s %s, playful scene", hero, action),
			},
			{
				Caption:     fmt.Sprintf("The outcome is %s.", outcome),
				ImagePrompt: fmt.Sprintf("%s %s, joyful atmosphere", hero, outcome),
			},
		},
	}
}

// FallbackPlanner always returns FallbackPlan.
type FallbackPlanner struct{}

func (FallbackPlanner) Plan(context.Context, string) (Plan, error) {
	return FallbackPlan(), nil
}

// ClaudePlanner plans panels with Anthropic tool use.
type ClaudePlanner struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaudePlanner creates a planner for the given model. Extra options are
// applied after the API key.
func NewClaudePlanner(apiKey, model string, opts ...option.RequestOption) (*ClaudePlanner, error) {
	if apiKey == "" {
		return nil, errors.New("API key required: set ANTHROPIC_API_KEY or run storytime config set-key anthropic")
	}

	m := anthropic.Model(model)
	if model == "" {
		m = anthropic.ModelClaudeSonnet4_5_20250929
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &ClaudePlanner{
		client: anthropic.NewClient(opts...),
		model:  m,
	}, nil
}

// getPlanTool returns the tool definition for panel plan structured output.
func getPlanTool() anthropic.ToolParam {
	return anthropic.ToolParam{
		Name:        planToolName,
		Description: anthropic.String("Save the story title, characters and exactly four panels"),
		InputSchema: anthropic.ToolInputSchemaParam{
			Type: "object",
			Properties: map[string]interface{}{
				"title": map[string]interface{}{
					"type":        "string",
					"description": "A short, friendly story title",
				},
				"characters": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":   map[string]interface{}{"type": "string"},
							"traits": map[string]interface{}{"type": "string"},
						},
						"required": []string{"name", "traits"},
					},
				},
				"panels": map[string]interface{}{
					"type":     "array",
					"minItems": PanelCount,
					"maxItems": PanelCount,
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"caption": map[string]interface{}{
								"type":        "string",
								"description": "One simple sentence shown under the picture",
							},
							"image_prompt": map[string]interface{}{
								"type":        "string",
								"description": "Description of a bright, friendly illustration",
							},
						},
						"required": []string{"caption", "image_prompt"},
					},
				},
			},
			Required: []string{"title", "characters", "panels"},
		},
	}
}

// Plan asks Claude for a panel plan of transcript.
func (c *ClaudePlanner) Plan(ctx context.Context, transcript string) (Plan, error) {
	toolDef := getPlanTool()
	tool := anthropic.ToolUnionParamOfTool(toolDef.InputSchema, toolDef.Name)
	tool.OfTool.Description = toolDef.Description

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: PlannerSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(transcript)),
		},
		Tools:      []anthropic.ToolUnionParam{tool},
		ToolChoice: anthropic.ToolChoiceParamOfTool(planToolName),
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to plan panels via Anthropic API: %w", err)
	}

	if len(resp.Content) == 0 {
		return Plan{}, errors.New("empty response from Anthropic API")
	}

	plan, err := parsePlanToolUse(resp.Content)
	if err != nil {
		return Plan{}, err
	}

	if len(plan.Panels) == 0 {
		return Plan{}, errors.New("panel plan has no panels")
	}

	return plan, nil
}

// parsePlanToolUse extracts a Plan from response content blocks.
func parsePlanToolUse(content []anthropic.ContentBlockUnion) (Plan, error) {
	for _, block := range content {
		if toolUse, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			var plan Plan
			inputBytes, err := json.Marshal(toolUse.Input)
			if err != nil {
				return Plan{}, fmt.Errorf("failed to marshal tool input: %w", err)
			}
			if err := json.Unmarshal(inputBytes, &plan); err != nil {
				return Plan{}, fmt.Errorf("failed to parse tool input: %w", err)
			}

			return plan, nil
		}
	}

	return Plan{}, errors.New("no tool use found in Anthropic API response")
}
