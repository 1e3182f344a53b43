package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/edgesim/internal/behavior"
	"github.com/any-hub/edgesim/internal/edge"
	"github.com/any-hub/edgesim/internal/functions"
	_ "github.com/any-hub/edgesim/internal/functions/cachecontrol"
	_ "github.com/any-hub/edgesim/internal/functions/indexrewrite"
	"github.com/any-hub/edgesim/internal/metrics"
)

func doRequest(t *testing.T, app *fiber.App, method, target string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func TestBehaviorRoutesListRegistryInOrder(t *testing.T) {
	registry, err := behavior.Build(
		[]behavior.Binding{
			{Pattern: "*", Stage: edge.StageOriginResponse, Handler: "cache-control"},
			{Pattern: "/docs/*", Stage: edge.StageViewerRequest, Handler: "index-rewrite"},
		},
		[]behavior.OriginSpec{{Pattern: "/docs/*", Target: "https://docs.example.com"}},
		functions.Default(),
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	app := fiber.New()
	RegisterBehaviorRoutes(app, registry)

	status, body := doRequest(t, app, http.MethodGet, "/-/behaviors")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var payload struct {
		Behaviors []behaviorPayload `json:"behaviors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Behaviors) != 2 {
		t.Fatalf("expected 2 behaviors, got %d", len(payload.Behaviors))
	}
	docs, fallback := payload.Behaviors[0], payload.Behaviors[1]
	if docs.Pattern != "/docs/*" || fallback.Pattern != "*" {
		t.Fatalf("unexpected order: %s, %s", docs.Pattern, fallback.Pattern)
	}
	if docs.Handlers["viewer-request"] != "index-rewrite" {
		t.Fatalf("unexpected docs handlers: %v", docs.Handlers)
	}
	if docs.Origin.Kind != "https" || docs.Origin.Target != "https://docs.example.com" {
		t.Fatalf("unexpected docs origin: %+v", docs.Origin)
	}
	if fallback.Origin.Kind != "none" {
		t.Fatalf("expected none origin for fallback, got %+v", fallback.Origin)
	}
}

func TestFunctionRoutesReportCatalog(t *testing.T) {
	registry, err := behavior.Build(nil, nil, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	app := fiber.New()
	RegisterBehaviorRoutes(app, registry)

	status, body := doRequest(t, app, http.MethodGet, "/-/functions")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var payload struct {
		Functions []functionPayload `json:"functions"`
		Status    map[string]string `json:"status"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status["cache-control"] != "registered" {
		t.Fatalf("expected cache-control registered, got %v", payload.Status)
	}
	var found bool
	for _, fn := range payload.Functions {
		if fn.Name == "index-rewrite" {
			found = true
			if len(fn.Stages) != 2 {
				t.Fatalf("expected two stages for index-rewrite, got %v", fn.Stages)
			}
		}
	}
	if !found {
		t.Fatalf("index-rewrite missing from %s", body)
	}
}

type fakePurger struct {
	calls       int
	err         error
	invalidated []edge.Request
}

func (p *fakePurger) Purge(context.Context) error {
	p.calls++
	return p.err
}

func (p *fakePurger) Invalidate(_ context.Context, req edge.Request) error {
	p.invalidated = append(p.invalidated, req)
	return p.err
}

func TestCacheRoutePurges(t *testing.T) {
	purger := &fakePurger{}
	app := fiber.New()
	RegisterCacheRoutes(app, purger, logrus.New())

	status, body := doRequest(t, app, http.MethodDelete, "/-/cache")
	if status != http.StatusOK || !strings.Contains(string(body), `"purged":true`) {
		t.Fatalf("unexpected purge response: %d %s", status, body)
	}
	if purger.calls != 1 {
		t.Fatalf("expected one purge call, got %d", purger.calls)
	}
}

func TestCacheRouteInvalidatesSinglePath(t *testing.T) {
	purger := &fakePurger{}
	app := fiber.New()
	RegisterCacheRoutes(app, purger, logrus.New())

	req := httptest.NewRequest(http.MethodDelete, "/-/cache?path=/docs/a&query=v%3D1", nil)
	req.Host = "site.test"
	req.Header.Set("Accept", "text/html")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"invalidated":"/docs/a?v=1"`) {
		t.Fatalf("unexpected invalidate response: %d %s", resp.StatusCode, body)
	}
	if purger.calls != 0 || len(purger.invalidated) != 1 {
		t.Fatalf("expected one invalidation and no purge, got %d/%d", purger.calls, len(purger.invalidated))
	}
	got := purger.invalidated[0]
	if got.Method != http.MethodGet || got.Host() != "site.test" || got.Headers.Get("Accept") != "text/html" {
		t.Fatalf("unexpected invalidation request: %+v", got)
	}
}

func TestCacheRouteReportsFailure(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app := fiber.New()
	RegisterCacheRoutes(app, &fakePurger{err: errors.New("disk gone")}, logger)

	status, body := doRequest(t, app, http.MethodDelete, "/-/cache")
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if !strings.Contains(string(body), "cache_purge_failed") || !strings.Contains(string(body), "disk gone") {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestMetricsRouteExposesRecorder(t *testing.T) {
	recorder := metrics.New()
	recorder.RecordRun(metrics.PathCacheHit, 0)

	app := fiber.New()
	RegisterMetricsRoutes(app, recorder)

	status, body := doRequest(t, app, http.MethodGet, "/-/metrics")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `edgesim_lifecycle_runs_total{path="cache_hit"} 1`) {
		t.Fatalf("expected lifecycle counter in output:\n%s", body)
	}
}

func TestRegisterIgnoresNilDependencies(t *testing.T) {
	app := fiber.New()
	RegisterBehaviorRoutes(app, nil)
	RegisterCacheRoutes(app, nil, nil)
	RegisterMetricsRoutes(app, nil)

	status, _ := doRequest(t, app, http.MethodGet, "/-/behaviors")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 without registry, got %d", status)
	}
}
