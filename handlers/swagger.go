package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers Swagger/OpenAPI endpoints for the academy API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>academy-api | Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// OpenAPI document for the academy API.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "academy-api", "version": "v1.0.0" },
  "components": { "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer" } } },
  "paths": {
    "/auth/signup": {
      "post": {
        "summary": "Create an account and its profile",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"firstName":{"type":"string"},"lastName":{"type":"string"},"email":{"type":"string"},"password":{"type":"string"},"phone":{"type":"string"},"country":{"type":"string"},"occupation":{"type":"string"},"course":{"type":"string"}}}}}},
        "responses": { "201": { "description": "signed in with session state" }, "400": { "description": "invalid form" }, "404": { "description": "account created, profile missing" }, "409": { "description": "email in use" } }
      }
    },
    "/auth/signin": {
      "post": { "summary": "Sign in with email and password", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "tokens and session state" }, "401": { "description": "wrong credentials" } } }
    },
    "/auth/refresh": {
      "post": { "summary": "Rotate refresh token and issue a new access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new session" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/signout": {
      "post": { "summary": "Sign out and revoke the bearer token", "security": [{"bearer": []}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "signed out" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Session state of the caller", "security": [{"bearer": []}], "responses": { "200": { "description": "signed_out, loading, ready, profile_missing or error" } } },
      "patch": { "summary": "Save profile fields and an optional avatar", "security": [{"bearer": []}], "responses": { "200": { "description": "saved profile" }, "400": { "description": "validation failed" }, "502": { "description": "avatar upload failed" } } }
    },
    "/avatars/{id}": {
      "get": { "summary": "Stored avatar image of an identity", "responses": { "200": { "description": "image bytes" }, "404": { "description": "no avatar" } } }
    },
    "/api/v1/dashboard": {
      "get": { "summary": "Profile, courses and counters", "security": [{"bearer": []}], "responses": { "200": { "description": "dashboard" }, "403": { "description": "denied, see redirect" }, "503": { "description": "profile still loading" } } }
    },
    "/api/v1/admin/courses": {
      "get": { "summary": "List courses", "security": [{"bearer": []}], "responses": { "200": { "description": "courses" } } },
      "post": { "summary": "Create a course", "security": [{"bearer": []}], "responses": { "201": { "description": "created" } } }
    },
    "/api/v1/admin/courses/{id}": {
      "delete": { "summary": "Delete a course", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" } } }
    },
    "/api/v1/admin/users": {
      "get": { "summary": "List profiles", "security": [{"bearer": []}], "responses": { "200": { "description": "profiles" } } }
    },
    "/api/v1/admin/users/{id}/role": {
      "put": { "summary": "Change a profile's role", "security": [{"bearer": []}], "responses": { "200": { "description": "updated profile" } } }
    },
    "/api/v1/admin/users/{id}/courses": {
      "post": { "summary": "Enroll a profile in a course", "security": [{"bearer": []}], "responses": { "200": { "description": "updated profile" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
