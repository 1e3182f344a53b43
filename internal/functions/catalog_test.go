package functions

import (
	"context"
	"errors"
	"testing"

	"github.com/any-hub/edgesim/internal/edge"
)

func replaceCatalog(t *testing.T) {
	t.Helper()
	prev := globalCatalog
	globalCatalog = NewCatalog()
	t.Cleanup(func() { globalCatalog = prev })
}

func passHandler() edge.Handler {
	return edge.HandlerFunc(func(_ context.Context, ev edge.Event) (edge.Result, error) {
		return edge.Pass(ev), nil
	})
}

func TestRegisterResolveAndList(t *testing.T) {
	replaceCatalog(t)

	if err := Register(Definition{Name: "beta", Handler: passHandler()}); err != nil {
		t.Fatalf("register beta failed: %v", err)
	}
	if err := Register(Definition{Name: "Alpha", Handler: passHandler()}); err != nil {
		t.Fatalf("register alpha failed: %v", err)
	}

	if _, ok := Resolve("ALPHA"); !ok {
		t.Fatalf("resolve should be case-insensitive")
	}
	names := Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Fatalf("unexpected order: %v", names)
	}
	if Status("beta") != "registered" || Status("gamma") != "missing" {
		t.Fatalf("unexpected status values")
	}
	snap := Snapshot([]string{"beta", "gamma"})
	if snap["beta"] != "registered" || snap["gamma"] != "missing" {
		t.Fatalf("unexpected snapshot: %v", snap)
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	replaceCatalog(t)

	if err := Register(Definition{Name: "dup", Handler: passHandler()}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if err := Register(Definition{Name: "DUP", Handler: passHandler()}); !errors.Is(err, ErrDuplicateFunction) {
		t.Fatalf("expected ErrDuplicateFunction, got %v", err)
	}
}

func TestRegisterRequiresHandler(t *testing.T) {
	replaceCatalog(t)
	if err := Register(Definition{Name: "empty"}); err == nil {
		t.Fatalf("definition without handler should be rejected")
	}
}

func TestLookupChecksStage(t *testing.T) {
	catalog := NewCatalog()
	if err := catalog.Register(Definition{
		Name:    "headers",
		Stages:  []edge.Stage{edge.StageViewerResponse},
		Handler: passHandler(),
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := catalog.Lookup("headers", edge.StageViewerResponse); err != nil {
		t.Fatalf("lookup for supported stage failed: %v", err)
	}
	if _, err := catalog.Lookup("headers", edge.StageViewerRequest); err == nil {
		t.Fatalf("lookup for unsupported stage should fail")
	}
	if _, err := catalog.Lookup("missing", edge.StageViewerRequest); !errors.Is(err, ErrUnknownFunction) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
}
