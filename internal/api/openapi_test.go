package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenAPIDocCoversRoutes(t *testing.T) {
	s := newTestServer(t, testDeps{})
	doc := buildOpenAPIDoc(s.routes())

	assert.Equal(t, "3.1.0", doc["openapi"])
	paths := doc["paths"].(map[string]any)
	for _, rt := range s.routes() {
		item, ok := paths[rt.path].(map[string]any)
		if !assert.True(t, ok, rt.path) {
			continue
		}
		assert.Contains(t, item, map[string]string{http.MethodGet: "get", http.MethodPost: "post"}[rt.method])
	}

	resolve := paths["/tasks/resolve"].(map[string]any)["post"].(map[string]any)
	assert.Equal(t, "post_tasks_resolve", resolve["operationId"])
	responses := resolve["responses"].(map[string]any)
	assert.Contains(t, responses, "200")
	assert.Contains(t, responses, "204")
	assert.Contains(t, responses, "400")
}

func TestOpenAPIServedWithoutAuth(t *testing.T) {
	s := newTestServer(t, testDeps{})
	rec := doRequest(t, s, http.MethodGet, "/openapi.json", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	doc := decode[map[string]any](t, rec)
	assert.Equal(t, "clitask", doc["info"].(map[string]any)["title"])
}
