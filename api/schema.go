package api

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Session-shaped responses are schema-checked before decoding so a malformed
// payload is rejected instead of being cached as canonical state.

const sessionSchema = `{
	"type": "object",
	"required": ["id", "state", "fiat", "qty_users"],
	"properties": {
		"id": {"type": "integer"},
		"created_at": {"type": "string"},
		"state": {"type": "string", "enum": ["Pending", "PendingUsers", "Active", "AwaitingPayment", "Completed"]},
		"fiat": {"type": "string"},
		"total_spent": {"type": "integer"},
		"qty_users": {"type": "integer", "minimum": 1},
		"is_joined": {"type": "boolean"}
	}
}`

const sessionListSchema = `{
	"type": "object",
	"required": ["sessions"],
	"properties": {
		"sessions": {
			"type": "array",
			"items": ` + sessionSchema + `
		}
	}
}`

const sessionDetailsSchema = `{
	"type": "object",
	"required": ["session", "participants", "expenses"],
	"properties": {
		"session": ` + sessionSchema + `,
		"participants": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "walletAddress", "joined"],
				"properties": {
					"id": {"type": "integer"},
					"name": {"type": "string"},
					"walletAddress": {"type": "string"},
					"joined": {"type": "boolean"},
					"total_spent": {"type": "integer"}
				}
			}
		},
		"expenses": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "session_id", "user_id", "amount"],
				"properties": {
					"id": {"type": "integer"},
					"session_id": {"type": "integer"},
					"user_id": {"type": "integer"},
					"amount": {"type": "integer"},
					"description": {"type": "string"},
					"date": {"type": "string"}
				}
			}
		}
	}
}`

// validateDocument checks a response body against a schema and flattens any
// violations into a single error.
func validateDocument(schema string, document []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
	}
	return fmt.Errorf("response does not match expected shape: %s", strings.Join(violations, "; "))
}
