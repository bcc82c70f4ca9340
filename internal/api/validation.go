package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"notification-service/internal/common/errors"
)

// JSON schemas for the mutating endpoints. Placeholder values are
// intentionally untyped here; datatype checks against the template's
// declared tags happen in the dispatch pipeline.
const (
	sendSchema = `{
		"type": "object",
		"properties": {
			"apiKey": {"type": "string", "minLength": 1},
			"templateId": {"type": "integer", "minimum": 1},
			"recipient": {"type": "string"},
			"recipients": {"type": "array", "items": {"type": "string"}},
			"placeholders": {"type": "object"}
		},
		"required": ["apiKey", "templateId"],
		"additionalProperties": false
	}`

	sendBulkSchema = `{
		"type": "object",
		"properties": {
			"apiKey": {"type": "string", "minLength": 1},
			"templateId": {"type": "integer", "minimum": 1},
			"recipients": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"email": {"type": "string", "minLength": 1},
						"placeholders": {"type": "object"}
					},
					"required": ["email"],
					"additionalProperties": false
				}
			},
			"globalPlaceholders": {"type": "object"}
		},
		"required": ["apiKey", "templateId", "recipients"],
		"additionalProperties": false
	}`

	registerTenantSchema = `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1}
		},
		"required": ["name"],
		"additionalProperties": false
	}`

	createTemplateSchema = `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"subject": {"type": "string", "minLength": 1},
			"body": {"type": "string", "minLength": 1},
			"status": {"type": "string", "enum": ["DRAFT", "ACTIVE"]}
		},
		"required": ["name", "subject", "body"],
		"additionalProperties": false
	}`

	updateTemplateSchema = `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"subject": {"type": "string"},
			"body": {"type": "string"}
		},
		"additionalProperties": false
	}`

	updateStatusSchema = `{
		"type": "object",
		"properties": {
			"status": {"type": "string", "minLength": 1}
		},
		"required": ["status"],
		"additionalProperties": false
	}`

	updateTagSchema = `{
		"type": "object",
		"properties": {
			"datatype": {"type": "string", "enum": ["STRING", "NUMBER", "BOOLEAN"]}
		},
		"required": ["datatype"],
		"additionalProperties": false
	}`
)

// decodeValidated reads the request body, checks it against the given
// schema and unmarshals it into target.
func decodeValidated(r *http.Request, schema string, target interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.NewInvalidRequestError("unable to read request body")
	}
	if len(body) == 0 {
		return errors.NewInvalidRequestError("request body is required")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(body),
	)
	if err != nil {
		return errors.NewInvalidRequestError("request body is not valid JSON")
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return errors.NewInvalidRequestError(strings.Join(problems, "; "))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.NewInvalidRequestError("request body does not match the expected shape")
	}
	return nil
}
