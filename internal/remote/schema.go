package remote

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// progressSchema is the shape the backend promises for progress responses.
// Anything else is treated the same as absence: logged, never trusted.
const progressSchema = `{
	"type": "object",
	"required": ["completedTopics", "topicProgress"],
	"properties": {
		"completedTopics": {
			"type": "array",
			"items": {"type": "integer"}
		},
		"topicProgress": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"completedLessons": {"type": "integer", "minimum": 0},
					"quizPassed": {"type": "boolean"},
					"quizScore": {"type": "number"}
				}
			}
		},
		"lastTopicIndex": {"type": "integer", "minimum": 0}
	}
}`

var progressSchemaLoader = gojsonschema.NewStringLoader(progressSchema)

func validateProgressPayload(body []byte) error {
	result, err := gojsonschema.Validate(progressSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("payload does not match progress schema: %v", result.Errors())
	}
	return nil
}
