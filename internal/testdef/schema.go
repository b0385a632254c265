package testdef

// documentSchema describes an importable test definition document. It is
// checked before decoding so that authoring mistakes surface with a JSON
// pointer to the offending field instead of a zero value.
var documentSchema = map[string]any{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type":    "object",
	"properties": map[string]any{
		"tests": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items":    testSchema,
		},
	},
	"required":             []any{"tests"},
	"additionalProperties": false,
}

var testSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"id":                 map[string]any{"type": "string", "minLength": 1},
		"skill_version_id":   map[string]any{"type": "string", "minLength": 1},
		"title":              map[string]any{"type": "string"},
		"time_limit_seconds": map[string]any{"type": "integer", "minimum": 1},
		"pass_threshold":     map[string]any{"type": "integer", "minimum": 0},
		"questions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":   map[string]any{"type": "string", "minLength": 1},
					"text": map[string]any{"type": "string"},
					"answer_variants": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":         map[string]any{"type": "string", "minLength": 1},
								"text":       map[string]any{"type": "string"},
								"is_correct": map[string]any{"type": "boolean"},
							},
							"required":             []any{"id", "text"},
							"additionalProperties": false,
						},
					},
				},
				"required":             []any{"id", "text", "answer_variants"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []any{"id", "skill_version_id", "time_limit_seconds", "pass_threshold", "questions"},
	"additionalProperties": false,
}
