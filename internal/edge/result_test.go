package edge

import (
	"context"
	"net/http"
	"testing"
)

func TestContinueCarriesRequest(t *testing.T) {
	req := Request{Method: http.MethodGet, Path: "/a"}
	res := Continue(req)
	if res.IsTerminal() {
		t.Fatalf("continue should not be terminal")
	}
	if res.Request().Path != "/a" {
		t.Fatalf("unexpected request: %+v", res.Request())
	}
	if _, ok := res.Response(); ok {
		t.Fatalf("continue should not expose a response")
	}
}

func TestTerminalCarriesResponse(t *testing.T) {
	res := Terminal(NewResponse(http.StatusTeapot, []byte("short")))
	if !res.IsTerminal() {
		t.Fatalf("expected terminal result")
	}
	resp, ok := res.Response()
	if !ok || resp.StatusCode != http.StatusTeapot || resp.StatusDescription != "I'm a teapot" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestTerminalCopiesBody(t *testing.T) {
	body := []byte("abc")
	res := Terminal(NewResponse(http.StatusOK, body))
	body[0] = 'z'
	resp, _ := res.Response()
	if string(resp.Body) != "abc" {
		t.Fatalf("terminal result shares caller buffer: %s", resp.Body)
	}
}

func TestHandlerFuncAdapter(t *testing.T) {
	var h Handler = HandlerFunc(func(_ context.Context, ev Event) (Result, error) {
		return Continue(ev.Request.WithPath("/rewritten")), nil
	})
	res, err := h.Invoke(context.Background(), NewEvent("*", Request{Path: "/"}))
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if res.Request().Path != "/rewritten" {
		t.Fatalf("unexpected path %s", res.Request().Path)
	}
}

func TestDecodedBody(t *testing.T) {
	resp := Response{Body: []byte("aGVsbG8="), BodyEncoding: BodyEncodingBase64}
	body, err := resp.DecodedBody()
	if err != nil || string(body) != "hello" {
		t.Fatalf("unexpected decode result %q err=%v", body, err)
	}

	resp.Body = []byte("!!")
	if _, err := resp.DecodedBody(); err == nil {
		t.Fatalf("invalid base64 should fail")
	}
}

func TestZeroResultIsUnset(t *testing.T) {
	var res Result
	if res.IsSet() {
		t.Fatalf("zero result should be unset")
	}
	if res.IsTerminal() {
		t.Fatalf("zero result should not be terminal")
	}
	if !Pass(NewEvent("*", Request{Path: "/x"})).IsSet() || !Terminal(Response{}).IsSet() {
		t.Fatalf("constructed results should be set")
	}
}
