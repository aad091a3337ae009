// internal/integrations/scoring/models.go
package scoring

import "github.com/google/generative-ai-go/genai"

// responseSchema constrains the model output. resultSchema re-checks it
// because the model is not bound to honour the response schema.
var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score":    {Type: genai.TypeInteger, Description: "Lead quality from 0 to 100"},
		"analysis": {Type: genai.TypeString},
		"recommendation": {
			Type: genai.TypeString,
			Enum: []string{"immediate_scheduling", "needs_more_review", "low_priority"},
		},
		"nextSteps": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"score", "analysis", "recommendation", "nextSteps"},
}

const resultSchema = `{
  "type": "object",
  "required": ["score", "analysis", "recommendation", "nextSteps"],
  "properties": {
    "score": {"type": "integer", "minimum": 0, "maximum": 100},
    "analysis": {"type": "string", "minLength": 1},
    "recommendation": {"enum": ["immediate_scheduling", "needs_more_review", "low_priority"]},
    "nextSteps": {"type": "array", "items": {"type": "string"}}
  }
}`
