package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/autotag/core"
)

const entityResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {
            "type": "string"
          },
          "label": {
            "type": "string"
          }
        },
        "required": ["text", "label"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const entityPromptTemplate = `Find the named entities in the given text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- "text" must be copied exactly as it appears in the input, keeping its original casing.
- "label" must be exactly one of: %s.
- List entities in the order they first appear. List a repeated entity every time it appears.
- Include only entities that are explicitly mentioned. Do not hallucinate.
- If no entities can be identified, return "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: Satya Nadella said Microsoft will open an office in Nairobi before the Olympics.
Output: {"entities":[{"text":"Satya Nadella","label":"PERSON"},{"text":"Microsoft","label":"ORG"},{"text":"Nairobi","label":"GPE"},{"text":"Olympics","label":"EVENT"}]}
`

func buildSystemPrompt() string {
	labels := make([]string, len(core.EntityTypes))
	for i, t := range core.EntityTypes {
		labels[i] = string(t)
	}
	return fmt.Sprintf(entityPromptTemplate, entityResponseSchema, strings.Join(labels, ", "))
}
