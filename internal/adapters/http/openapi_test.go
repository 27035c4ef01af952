package http_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/samirrijal/questgeo/api"
)

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(api.OpenAPI)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI document: %v", err)
	}
	return doc
}

func TestOpenAPIDocument(t *testing.T) {
	doc := loadOpenAPI(t)

	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI validation failed: %v", err)
	}

	expectedPaths := []string{
		"/v1/health",
		"/v1/ready",
		"/v1/geo/distance",
		"/v1/geo/within",
		"/v1/geo/bbox",
		"/v1/locations/nearby",
		"/v1/verify",
		"/v1/targets/{id}/verify",
		"/v1/spoof/assess",
		"/graphql",
	}
	for _, path := range expectedPaths {
		if item := doc.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found", path)
		}
	}

	expectedSchemas := []string{
		"APIError",
		"Location",
		"Distance",
		"RadiusCheck",
		"Bounds",
		"VerificationResult",
		"SpoofAssessment",
		"Verdict",
	}
	for _, schema := range expectedSchemas {
		if doc.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}
}

func TestOpenAPIInfo(t *testing.T) {
	doc := loadOpenAPI(t)

	if doc.Info.Title != "QuestGeo API" {
		t.Errorf("expected title 'QuestGeo API', got %q", doc.Info.Title)
	}
	if doc.Info.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %q", doc.Info.Version)
	}
	if len(doc.Servers) == 0 {
		t.Error("expected at least one server")
	}
}

func TestDocsRoutes(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(httptest.NewRequest("GET", "/docs", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("GET /docs: status %d, content type %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(readBody(t, resp.Body)), "/docs/openapi.json") {
		t.Error("reference page should load the JSON document")
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/docs/openapi.yaml", nil), -1)
	if resp.StatusCode != 200 || string(readBody(t, resp.Body)) != string(api.OpenAPI) {
		t.Errorf("GET /docs/openapi.yaml: status %d, body differs from the embedded document", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/docs/openapi.json", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("GET /docs/openapi.json: status %d", resp.StatusCode)
	}
	doc, err := openapi3.NewLoader().LoadFromData(readBody(t, resp.Body))
	if err != nil {
		t.Fatalf("served JSON does not parse as OpenAPI: %v", err)
	}
	if doc.Info.Title != "QuestGeo API" || doc.Paths.Find("/v1/verify") == nil {
		t.Errorf("served JSON lost content: title %q", doc.Info.Title)
	}
}
