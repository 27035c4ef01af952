package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/questgeo/internal/adapters/http"
	"github.com/samirrijal/questgeo/internal/core/domain"
	"github.com/samirrijal/questgeo/internal/core/usecases"
	"github.com/samirrijal/questgeo/internal/pkg/geospatial"
)

// ---- Mock repositories ----

type mockLocationRepo struct {
	findWithinFn func(ctx context.Context, b geospatial.Bounds, origin domain.GeoPoint, limit int) ([]domain.Location, error)
}

func (m *mockLocationRepo) Upsert(ctx context.Context, l *domain.Location) error { return nil }
func (m *mockLocationRepo) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	return nil, nil
}
func (m *mockLocationRepo) FindWithin(ctx context.Context, b geospatial.Bounds, origin domain.GeoPoint, limit int) ([]domain.Location, error) {
	if m.findWithinFn != nil {
		return m.findWithinFn(ctx, b, origin, limit)
	}
	return nil, nil
}

type mockTargetRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.QuestTarget, error)
}

func (m *mockTargetRepo) Upsert(ctx context.Context, t *domain.QuestTarget) error { return nil }
func (m *mockTargetRepo) GetByID(ctx context.Context, id string) (*domain.QuestTarget, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

type mockPublisher struct {
	published []domain.Verdict
}

func (m *mockPublisher) PublishVerification(ctx context.Context, v *domain.Verdict) error {
	m.published = append(m.published, *v)
	return nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

// ---- Helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler})
	handler.SetupRoutes(app, deps)
	return app
}

func newVerificationService(targets *mockTargetRepo, pub *mockPublisher) *usecases.VerificationService {
	return usecases.NewVerificationService(
		targets, nil, pub,
		usecases.NewLocationVerifier(usecases.DefaultVerificationPolicy()),
		usecases.NewSpoofDetector(usecases.DefaultSpoofPolicy()),
	)
}

func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	d := &handler.Dependencies{
		Nearby:       usecases.NewNearbyService(&mockLocationRepo{}, nil),
		Verification: newVerificationService(&mockTargetRepo{}, &mockPublisher{}),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decode(t *testing.T, body io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func postJSON(path, body string) *nethttp.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps())

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name string
		db   handler.Pinger
		want int
	}{
		{"no database", nil, 503},
		{"database down", fakePinger{err: errors.New("refused")}, 503},
		{"database up", fakePinger{}, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(makeDeps(func(d *handler.Dependencies) { d.DB = tt.db }))

			resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

// ---- Geo ----

func TestDistance_Success(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geo/distance?lat1=0&lon1=0&lat2=0&lon2=1", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got handler.DistanceResponse
	decode(t, resp.Body, &got)
	if got.DistanceMeters < 111000 || got.DistanceMeters > 111400 {
		t.Errorf("distance = %v, want ~111195", got.DistanceMeters)
	}
	if got.Formatted != "111.2km" {
		t.Errorf("formatted = %q, want 111.2km", got.Formatted)
	}
	if got.Direction != "E" {
		t.Errorf("direction = %q, want E", got.Direction)
	}
}

func TestDistance_BadInput(t *testing.T) {
	app := setupApp(makeDeps())

	for _, q := range []string{
		"lat1=0&lon1=0&lat2=0",           // missing lon2
		"lat1=abc&lon1=0&lat2=0&lon2=1",  // not a number
		"lat1=91&lon1=0&lat2=0&lon2=1",   // out of range
		"lat1=0&lon1=0&lat2=0&lon2=-181", // out of range
	} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geo/distance?"+q, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
			continue
		}
		var apiErr handler.APIError
		decode(t, resp.Body, &apiErr)
		if apiErr.Code != "bad_request" || apiErr.RequestID == "" {
			t.Errorf("%s: unexpected error envelope %+v", q, apiErr)
		}
	}
}

func TestWithin(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET",
		"/v1/geo/within?lat=0&lon=0&target_lat=0&target_lon=0.0001&radius=50", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got geospatial.RadiusCheck
	decode(t, resp.Body, &got)
	if !got.IsWithin || got.RadiusMeters != 50 {
		t.Errorf("unexpected check %+v", got)
	}
}

func TestBoundingBox(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geo/bbox?lat=43.263&lon=-2.935&radius=1000", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var b geospatial.Bounds
	decode(t, resp.Body, &b)
	if !b.Contains(43.263, -2.935) || b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		t.Errorf("unexpected box %+v", b)
	}

	for _, q := range []string{"lat=89.5&lon=0&radius=100", "lat=0&lon=0&radius=0", "lat=0&lon=0"} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/geo/bbox?"+q, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps())
	url := "/v1/geo/distance?lat1=0&lon1=0&lat2=1&lon2=1"

	resp, _ := app.Test(httptest.NewRequest("GET", url, nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", url, nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

// ---- Locations ----

func TestNearbyLocations_Success(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Nearby = usecases.NewNearbyService(&mockLocationRepo{
			findWithinFn: func(ctx context.Context, b geospatial.Bounds, origin domain.GeoPoint, limit int) ([]domain.Location, error) {
				return []domain.Location{
					{ID: "b", Name: "Abando", Location: domain.GeoPoint{Lat: 43.2635, Lon: -2.9350}},
					{ID: "a", Name: "Moyua", Location: domain.GeoPoint{Lat: 43.2630, Lon: -2.9350}},
				}, nil
			},
		}, nil)
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/locations/nearby?lat=43.263&lon=-2.935&radius=500", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var locs []domain.Location
	decode(t, resp.Body, &locs)
	if len(locs) != 2 || locs[0].ID != "a" {
		t.Fatalf("expected Moyua first, got %+v", locs)
	}
	if locs[1].Distance == nil || *locs[1].Distance <= 0 {
		t.Error("distance should be populated")
	}
}

func TestNearbyLocations_Empty(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/locations/nearby?lat=0&lon=0", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := strings.TrimSpace(string(readBody(t, resp.Body))); body != "[]" {
		t.Errorf("expected empty array, got %s", body)
	}
}

func TestNearbyLocations_BadParams(t *testing.T) {
	app := setupApp(makeDeps())

	for _, q := range []string{"lon=-2.935", "lat=43.263&lon=-2.935&radius=20000", "lat=100&lon=0"} {
		resp, _ := app.Test(httptest.NewRequest("GET", "/v1/locations/nearby?"+q, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestNearbyLocations_RepoError(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Nearby = usecases.NewNearbyService(&mockLocationRepo{
			findWithinFn: func(ctx context.Context, b geospatial.Bounds, origin domain.GeoPoint, limit int) ([]domain.Location, error) {
				return nil, errors.New("pool exhausted")
			},
		}, nil)
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/locations/nearby?lat=0&lon=0", nil), -1)
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if strings.Contains(string(readBody(t, resp.Body)), "pool exhausted") {
		t.Error("internal error details must not leak to clients")
	}
}

// ---- Verification ----

func TestVerify_AdHoc(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/v1/verify", `{
		"location": {"latitude": 10, "longitude": 10},
		"target": {"coordinates": [10, 10], "radius_meters": 50}
	}`), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var v domain.Verdict
	decode(t, resp.Body, &v)
	if !v.Accepted || !v.Result.Passed {
		t.Fatalf("expected accepted verdict, got %+v", v)
	}
	if v.Result.DistanceMeters == nil || *v.Result.DistanceMeters != 0 {
		t.Errorf("distance = %v, want 0", v.Result.DistanceMeters)
	}
}

func TestVerify_MissingLocationIsVerdict(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/v1/verify", `{"target": {"coordinates": [10, 10]}}`), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var raw map[string]json.RawMessage
	decode(t, resp.Body, &raw)
	var result map[string]any
	if err := json.Unmarshal(raw["result"], &result); err != nil {
		t.Fatal(err)
	}
	if result["message"] != usecases.MsgLocationMissing {
		t.Errorf("message = %v", result["message"])
	}
	if result["distance_meters"] != nil {
		t.Errorf("distance_meters should be null, got %v", result["distance_meters"])
	}
	if result["allowed_radius"] != 50.0 {
		t.Errorf("allowed_radius = %v, want 50", result["allowed_radius"])
	}
}

func TestVerify_BadBody(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/v1/verify", `{not json`), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestTargetVerify_NotFound(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/v1/targets/nope/verify", `{"location": {"latitude": 0, "longitude": 0}}`), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestTargetVerify_Publishes(t *testing.T) {
	pub := &mockPublisher{}
	targets := &mockTargetRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.QuestTarget, error) {
			return &domain.QuestTarget{
				ID:     id,
				Target: domain.NewTargetLocation(domain.GeoPoint{Lat: 43.263, Lon: -2.935}, 25),
			}, nil
		},
	}
	app := setupApp(makeDeps(func(d *handler.Dependencies) {
		d.Verification = newVerificationService(targets, pub)
	}))

	resp, _ := app.Test(postJSON("/v1/targets/t-9/verify", `{
		"location": {"latitude": 43.263, "longitude": -2.935},
		"device": {"is_emulator": true}
	}`), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var v domain.Verdict
	decode(t, resp.Body, &v)
	if v.Accepted {
		t.Error("emulator should be rejected")
	}
	if !v.Result.Passed {
		t.Error("location itself should pass")
	}
	if len(pub.published) != 1 || pub.published[0].TargetID != "t-9" {
		t.Errorf("expected one published verdict for t-9, got %+v", pub.published)
	}
}

func TestSpoofAssess(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/v1/spoof/assess", `{"is_mock_location": true}`), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var a domain.SpoofAssessment
	decode(t, resp.Body, &a)
	if a.Passed || a.RiskScore != 0.6 || len(a.Checks) != 2 {
		t.Errorf("unexpected assessment %+v", a)
	}
}

func TestVerifyRateLimit(t *testing.T) {
	app := setupApp(makeDeps(func(d *handler.Dependencies) { d.RateLimit = 40 }))

	for i := 0; i < 10; i++ {
		resp, _ := app.Test(postJSON("/v1/spoof/assess", `{}`), -1)
		if resp.StatusCode != 200 {
			t.Fatalf("request %d: expected 200, got %d", i+1, resp.StatusCode)
		}
	}

	resp, _ := app.Test(postJSON("/v1/verify", `{}`), -1)
	if resp.StatusCode != 429 {
		t.Fatalf("expected 429 once the verification budget is spent, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/geo/distance?lat1=0&lon1=0&lat2=0&lon2=1", nil), -1)
	if resp.StatusCode != 200 {
		t.Errorf("geo routes should keep the general budget, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func TestGraphQL_Distance(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/graphql",
		`{"query": "{ distance(lat1: 0, lon1: 0, lat2: 1, lon2: 0) { formatted direction } }"}`), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			Distance struct {
				Formatted string `json:"formatted"`
				Direction string `json:"direction"`
			} `json:"distance"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	decode(t, resp.Body, &out)
	if len(out.Errors) > 0 {
		t.Fatalf("unexpected errors %v", out.Errors)
	}
	if out.Data.Distance.Formatted != "111.2km" || out.Data.Distance.Direction != "N" {
		t.Errorf("unexpected distance %+v", out.Data.Distance)
	}
}

func TestGraphQL_VerifyLocation(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/graphql", `{"query": "{ verifyLocation(latitude: 1, longitude: 1, targetLat: 1, targetLon: 1, isMockLocation: true) { accepted result { passed allowed_radius } spoof { risk_score } } }"}`), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			VerifyLocation struct {
				Accepted bool `json:"accepted"`
				Result   struct {
					Passed        bool    `json:"passed"`
					AllowedRadius float64 `json:"allowed_radius"`
				} `json:"result"`
				Spoof struct {
					RiskScore float64 `json:"risk_score"`
				} `json:"spoof"`
			} `json:"verifyLocation"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	decode(t, resp.Body, &out)
	if len(out.Errors) > 0 {
		t.Fatalf("unexpected errors %v", out.Errors)
	}
	v := out.Data.VerifyLocation
	if v.Accepted || !v.Result.Passed || v.Result.AllowedRadius != 50 || v.Spoof.RiskScore != 0.6 {
		t.Errorf("unexpected verdict %+v", v)
	}
}

func TestGraphQL_EmptyQuery(t *testing.T) {
	app := setupApp(makeDeps())

	resp, _ := app.Test(postJSON("/graphql", `{"query": ""}`), -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
