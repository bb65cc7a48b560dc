// Package docs registers the OpenAPI document served under /swagger.
// The document mirrors the godoc annotations on the handlers in users and lists.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/new-account": {
            "post": {
                "tags": ["users"], "summary": "Create an account",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "account", "required": true, "schema": {"$ref": "#/definitions/auth.RegisterInput"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/users.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        },
        "/login": {
            "get": {
                "security": [{"BasicAuth": []}],
                "tags": ["users"], "summary": "Log in", "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/users.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}},
                    "401": {"description": "Not Authorized", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        },
        "/logout": {
            "post": {"tags": ["users"], "summary": "Log out", "responses": {"204": {"description": "No Content"}}}
        },
        "/users/me": {
            "get": {
                "security": [{"XSRFToken": []}],
                "tags": ["users"], "summary": "Current user", "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.User"}},
                    "401": {"description": "Not Authorized", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"XSRFToken": []}],
                "tags": ["users"], "summary": "Delete account",
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Not Authorized", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        },
        "/lists": {
            "get": {
                "security": [{"XSRFToken": []}],
                "tags": ["lists"], "summary": "Lists of the current user", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.List"}}}}
            },
            "post": {
                "security": [{"XSRFToken": []}],
                "tags": ["lists"], "summary": "Create a list",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "list", "required": true, "schema": {"$ref": "#/definitions/lists.CreateListRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.List"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        },
        "/lists/{listId}": {
            "parameters": [{"in": "path", "name": "listId", "required": true, "type": "string", "format": "uuid"}],
            "get": {
                "security": [{"XSRFToken": []}],
                "tags": ["lists"], "summary": "Get a list", "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.List"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"XSRFToken": []}],
                "tags": ["lists"], "summary": "Update a list",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "list", "required": true, "schema": {"$ref": "#/definitions/lists.UpdateListRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.List"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"XSRFToken": []}],
                "tags": ["lists"], "summary": "Delete a list",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/lists/{listId}/items": {
            "parameters": [{"in": "path", "name": "listId", "required": true, "type": "string", "format": "uuid"}],
            "get": {
                "security": [{"XSRFToken": []}],
                "tags": ["items"], "summary": "Items of a list", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Item"}}}}
            },
            "post": {
                "security": [{"XSRFToken": []}],
                "tags": ["items"], "summary": "Add an item to a list",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "item", "required": true, "schema": {"$ref": "#/definitions/lists.CreateItemRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Item"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        },
        "/lists/{listId}/items/{itemId}": {
            "parameters": [
                {"in": "path", "name": "listId", "required": true, "type": "string", "format": "uuid"},
                {"in": "path", "name": "itemId", "required": true, "type": "string", "format": "uuid"}
            ],
            "get": {
                "security": [{"XSRFToken": []}],
                "tags": ["items"], "summary": "Get an item", "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Item"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"XSRFToken": []}],
                "tags": ["items"], "summary": "Update an item",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "item", "required": true, "schema": {"$ref": "#/definitions/lists.UpdateItemRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Item"}}}
            },
            "delete": {
                "security": [{"XSRFToken": []}],
                "tags": ["items"], "summary": "Delete an item",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/health": {
            "get": {
                "tags": ["system"], "summary": "Datastore health",
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/apperror.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "apperror.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "auth.RegisterInput": {
            "type": "object", "required": ["username", "password", "email"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}, "email": {"type": "string"}}
        },
        "users.AuthResponse": {
            "type": "object",
            "properties": {"user": {"$ref": "#/definitions/model.User"}, "token": {"type": "string"}}
        },
        "model.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "lists": {"type": "array", "items": {"type": "string", "format": "uuid"}}
            }
        },
        "model.List": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "owner": {"type": "string", "format": "uuid"},
                "items": {"type": "array", "items": {"type": "string", "format": "uuid"}}
            }
        },
        "model.Item": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "format": "uuid"},
                "name": {"type": "string"},
                "content": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "list": {"type": "string", "format": "uuid"}
            }
        },
        "lists.CreateListRequest": {
            "type": "object", "required": ["name"],
            "properties": {"name": {"type": "string"}, "description": {"type": "string"}}
        },
        "lists.UpdateListRequest": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "description": {"type": "string"}}
        },
        "lists.CreateItemRequest": {
            "type": "object", "required": ["name"],
            "properties": {"name": {"type": "string"}, "content": {"type": "string"}}
        },
        "lists.UpdateItemRequest": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "content": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BasicAuth": {"type": "basic"},
        "XSRFToken": {"type": "apiKey", "name": "X-XSRF-TOKEN", "in": "header"},
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Listkeeper API",
	Description:      "Per-user lists of items behind double-submit token authentication.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
