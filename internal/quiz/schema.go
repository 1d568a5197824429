package quiz

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// generateSchema is the shape an assessment service promises for generated
// quizzes. A payload that does not match is a load failure, never a quiz.
const generateSchema = `{
	"type": "object",
	"required": ["quizId", "questions"],
	"properties": {
		"quizId": {"type": "string", "minLength": 1},
		"topicName": {"type": "string"},
		"questions": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["type", "prompt"],
				"properties": {
					"id": {"type": "string"},
					"type": {"enum": ["mcq", "true_false", "short_answer"]},
					"prompt": {"type": "string", "minLength": 1},
					"options": {
						"type": "array",
						"items": {"type": "string"}
					}
				}
			}
		},
		"timeLimit": {"type": "integer", "minimum": 0}
	}
}`

var generateSchemaLoader = gojsonschema.NewStringLoader(generateSchema)

func validateQuizPayload(body []byte) error {
	result, err := gojsonschema.Validate(generateSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("payload does not match quiz schema: %v", result.Errors())
	}
	return nil
}
