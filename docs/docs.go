// Package docs registers the OpenAPI description served at /api/docs.
//
// Regenerate with: swag init -g cmd/api/main.go -o docs
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
        "/api/users/sign-in": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in",
                "parameters": [
                    {"type": "string", "description": "Email or phone number", "name": "username", "in": "formData", "required": true},
                    {"type": "string", "description": "Password", "name": "password", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.tokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/users/refresh-token": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Renew access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.tokenResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "List users",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.userResponse"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "User registration details", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.userResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/users/me/info": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.UserInfo"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/users/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Get a user",
                "parameters": [{"type": "string", "description": "User id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.userResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "tags": ["users"],
                "summary": "Update a user field",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "id", "in": "path", "required": true},
                    {"description": "Field and new value", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.updateUserRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/users/{id}/roles": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["users"],
                "summary": "Assign a role",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "id", "in": "path", "required": true},
                    {"description": "Role to assign", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.assignRoleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.userRoleResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/users/{id}/roles/{role_id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Remove a role",
                "parameters": [
                    {"type": "string", "description": "User id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Role id", "name": "role_id", "in": "path", "required": true}
                ],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/api/roles": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["roles"],
                "summary": "List roles",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handler.roleResponse"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["roles"],
                "summary": "Create a role",
                "parameters": [
                    {"description": "Role name", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.createRoleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.roleResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/health": {
            "get": {"produces": ["application/json"], "tags": ["health"], "summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}
        },
        "/health/ready": {
            "get": {"produces": ["application/json"], "tags": ["health"], "summary": "Readiness probe", "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        }
    },
    "definitions": {
        "domain.UserInfo": {
            "type": "object",
            "properties": {"full_name": {"type": "string"}, "email": {"type": "string"}, "phone": {"type": "string"}}
        },
        "handler.errorResponse": {
            "type": "object",
            "properties": {"detail": {"type": "string"}}
        },
        "handler.tokenResponse": {
            "type": "object",
            "properties": {"access_token": {"type": "string"}, "token_type": {"type": "string"}}
        },
        "handler.registerRequest": {
            "type": "object",
            "required": ["first_name", "last_name", "password"],
            "properties": {
                "first_name": {"type": "string", "maxLength": 30},
                "last_name": {"type": "string", "maxLength": 30},
                "email": {"type": "string"},
                "phone_number": {"type": "string"},
                "password": {"type": "string", "minLength": 6}
            }
        },
        "handler.updateUserRequest": {
            "type": "object",
            "required": ["field"],
            "properties": {"field": {"type": "string"}, "value": {"type": "string"}}
        },
        "handler.assignRoleRequest": {
            "type": "object",
            "required": ["role_id"],
            "properties": {"role_id": {"type": "string"}}
        },
        "handler.createRoleRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {"name": {"type": "string", "maxLength": 50}}
        },
        "handler.userResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "phone_number": {"type": "string"},
                "is_email_confirmed": {"type": "boolean"},
                "is_phone_confirmed": {"type": "boolean"},
                "updated_by": {"type": "string"},
                "updated_on": {"type": "string"},
                "roles": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handler.roleResponse": {
            "type": "object",
            "properties": {"id": {"type": "string"}, "name": {"type": "string"}, "created_by": {"type": "string"}, "created_on": {"type": "string"}}
        },
        "handler.userRoleResponse": {
            "type": "object",
            "properties": {"user_id": {"type": "string"}, "role_id": {"type": "string"}, "added_by": {"type": "string"}, "added_on": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Users Service API",
	Description:      "User registration, authentication, roles and token issuance.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
