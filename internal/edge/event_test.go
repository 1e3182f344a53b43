package edge

import (
	"testing"
	"time"
)

func TestEventWithMethodsReturnCopies(t *testing.T) {
	base := NewEvent("/api/*", Request{
		Method:  "GET",
		Path:    "/api/x",
		Headers: Headers{{Key: "Host", Value: "example.test"}},
	})

	withResp := base.WithResponse(NewResponse(200, []byte("ok")))
	if base.Response != nil {
		t.Fatalf("WithResponse mutated the source event")
	}

	withResp.Response.Body[0] = 'X'
	again := withResp.At(StageViewerResponse)
	again.Response.Body[1] = 'Y'
	if string(withResp.Response.Body) != "Xk" {
		t.Fatalf("At must deep copy the response, got %s", withResp.Response.Body)
	}

	withOrigin := base.WithOrigin(OriginParams{Domain: "origin.test", Port: 443, ReadTimeout: time.Second})
	withOrigin.Origin.Domain = "changed"
	if copied := withOrigin.Clone(); copied.Origin == withOrigin.Origin {
		t.Fatalf("Clone should not share origin params")
	}
	if base.Origin != nil {
		t.Fatalf("base event should not gain origin params")
	}
}

func TestParseStage(t *testing.T) {
	cases := map[string]Stage{
		"viewer-request":   StageViewerRequest,
		"originRequest":    StageOriginRequest,
		"ORIGIN_RESPONSE":  StageOriginResponse,
		" viewer-response": StageViewerResponse,
	}
	for raw, want := range cases {
		got, err := ParseStage(raw)
		if err != nil || got != want {
			t.Fatalf("ParseStage(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseStage("edge-request"); err == nil {
		t.Fatalf("unknown stage should fail")
	}
}
