package api

import (
	"net/http"
	"strconv"
	"strings"
)

// handleOpenAPI handles GET /openapi.json (no auth).
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc(s.routes()))
}

// buildOpenAPIDoc returns an OpenAPI 3.1 document for the routed endpoints.
func buildOpenAPIDoc(routes []route) map[string]any {
	paths := map[string]any{}
	for _, rt := range routes {
		item, _ := paths[rt.path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[rt.path] = item
		}
		item[strings.ToLower(rt.method)] = operation(rt)
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "clitask",
			"version": "1.0",
		},
		"paths": paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
}

func operation(rt route) map[string]any {
	responses := map[string]any{
		strconv.Itoa(rt.status): map[string]any{"description": http.StatusText(rt.status)},
		"401":                   map[string]any{"description": "Missing or invalid token"},
		"403":                   map[string]any{"description": "Insufficient scope"},
	}
	if rt.method == http.MethodPost {
		responses["400"] = map[string]any{"description": "Bad request"}
	}
	if rt.path == "/tasks/resolve" {
		responses["204"] = map[string]any{"description": "Definition does not resolve to a task"}
	}

	return map[string]any{
		"operationId": operationID(rt),
		"summary":     rt.summary,
		"responses":   responses,
		"security":    []any{map[string]any{"BearerAuth": []string{}}},
		"x-scopes":    rt.scopes,
	}
}

// operationID turns "GET /projects/owner" into "get_projects_owner".
func operationID(rt route) string {
	parts := []string{strings.ToLower(rt.method)}
	for _, seg := range strings.Split(strings.Trim(rt.path, "/"), "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "_")
}
