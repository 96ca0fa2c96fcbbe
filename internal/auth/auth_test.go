package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer test-key", want: "test-key"},
		{name: "padded", header: "Bearer   test-key  ", want: "test-key"},
		{name: "missing", header: "", wantErr: true},
		{name: "basic", header: "Basic abc", wantErr: true},
		{name: "blank", header: "Bearer   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, err := ExtractBearerToken(req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	tokens := []TokenConfig{
		{Token: "reader", Scopes: []string{"projects:ro", " "}},
		{Token: "runner", Scopes: []string{"tasks:rw"}},
	}

	p, ok := Authenticate("admin", "admin", tokens)
	assert.True(t, ok)
	assert.True(t, HasAnyScope(p, ScopeTasksRW))

	p, ok = Authenticate("runner", "admin", tokens)
	assert.True(t, ok)
	assert.True(t, HasAnyScope(p, ScopeTasksRO), "rw implies ro")
	assert.False(t, HasAnyScope(p, ScopeProjectsRO))

	p, ok = Authenticate("reader", "", tokens)
	assert.True(t, ok)
	assert.True(t, HasAnyScope(p, ScopeProjectsRO))
	assert.False(t, HasAnyScope(p, ScopeTasksRO, ScopeTasksRW))
	assert.Len(t, p.Scopes, 1)

	_, ok = Authenticate("nope", "admin", tokens)
	assert.False(t, ok)
	_, ok = Authenticate("", "", nil)
	assert.False(t, ok)
}

func TestHasAnyScopeEmptyRequirement(t *testing.T) {
	assert.True(t, HasAnyScope(Principal{}))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{Token: "x"})
	p, ok := PrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "x", p.Token)
}
