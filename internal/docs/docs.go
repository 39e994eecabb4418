// Package docs registers the OpenAPI description of the HTTP API with swag.
// Regenerate with `swag init -g cmd/server/main.go -o internal/docs` after
// changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/error-events": {
            "get": {
                "description": "Returns recorded error events, newest first. Supports weak ETag via If-None-Match and may return 304.",
                "produces": ["application/json"],
                "tags": ["ErrorEvents"],
                "summary": "List error events (paginated)",
                "operationId": "listErrorEvents",
                "parameters": [
                    {"type": "string", "example": "W/\"error-events:0::1:20:12:1700000000\"", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"maximum": 599, "minimum": 400, "type": "integer", "description": "Only events with this status", "name": "status", "in": "query"},
                    {"enum": ["exception", "status", "view"], "type": "string", "description": "Only events from this source", "name": "source", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handlers.ListErrorEventsResponse"},
                        "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}
                    },
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/domain.ErrorBody"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/domain.ErrorBody"}}
                }
            }
        },
        "/error-events/{id}": {
            "get": {
                "description": "Returns one recorded error event.",
                "produces": ["application/json"],
                "tags": ["ErrorEvents"],
                "summary": "Get an error event",
                "operationId": "getErrorEvent",
                "parameters": [
                    {"type": "string", "format": "uuid", "example": "141add05-4415-4938-b5a1-17e0d3171aff", "description": "Event ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ErrorRecord"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/domain.ErrorBody"}},
                    "404": {"description": "Event not found", "schema": {"$ref": "#/definitions/domain.ErrorBody"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/domain.ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "domain.ErrorBody": {
            "type": "object",
            "properties": {
                "code": {"description": "Stable, machine-readable code", "type": "string", "example": "not_found"},
                "details": {"description": "Structured details, or a placeholder sentence when there are none", "type": "object"},
                "error": {"description": "Short error label", "type": "string", "example": "Page Not Found"},
                "message": {"description": "Human-readable message (safe to show to users)", "type": "string", "example": "Sorry, the page you are looking for does not exist."},
                "request_id": {"description": "Correlates server logs and client errors", "type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"}
            }
        },
        "domain.ErrorRecord": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "message": {"type": "string"},
                "method": {"type": "string"},
                "path": {"type": "string"},
                "request_id": {"type": "string"},
                "source": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "handlers.ListErrorEventsResponse": {
            "type": "object",
            "properties": {
                "error_events": {"type": "array", "items": {"$ref": "#/definitions/domain.ErrorRecord"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "has_next": {"type": "boolean"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "go-error-views API",
	Description:      "Configurable HTTP error views and the error event journal.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
