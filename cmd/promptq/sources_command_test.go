package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"promptq/internal/testsupport"
)

func TestSourcesListsRepositories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sources":[
			{"name":"sources/src-1","id":"src-1","githubRepo":{"owner":"acme","repo":"widgets"}},
			{"name":"sources/src-2","id":"src-2"}
		]}`))
	}))
	t.Cleanup(server.Close)

	env := setupCLITestEnv(t, testsupport.WithServiceBaseURL(server.URL))

	out, _, err := runCLI(t, env, "", "sources")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	requireContains(t, out, "src-1")
	requireContains(t, out, "acme/widgets")
	requireContains(t, out, "src-2")
}
