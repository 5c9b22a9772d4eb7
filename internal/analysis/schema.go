package analysis

import (
	"github.com/xeipuuv/gojsonschema"
)

const resultSchema = `{
  "type": "object",
  "required": ["strengths", "weaknesses", "missingSections", "suggestions", "overallScore", "summary"],
  "properties": {
    "strengths": {"type": "array", "items": {"type": "string"}},
    "weaknesses": {"type": "array", "items": {"type": "string"}},
    "missingSections": {"type": "array", "items": {"type": "string"}},
    "suggestions": {"type": "array", "items": {"type": "string"}},
    "overallScore": {"type": "number", "minimum": 0, "maximum": 100},
    "summary": {"type": "string"}
  }
}`

var resultSchemaLoader = gojsonschema.NewStringLoader(resultSchema)

// schemaDrift lists the ways a decoded model payload departs from the
// expected shape. Drift is reported, not rejected.
func schemaDrift(data map[string]any) []string {
	res, err := gojsonschema.Validate(resultSchemaLoader, gojsonschema.NewGoLoader(data))
	if err != nil {
		return []string{err.Error()}
	}
	if res.Valid() {
		return nil
	}
	issues := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		issues = append(issues, e.String())
	}
	return issues
}
