package origin

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/any-hub/edgesim/internal/edge"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   string
	close  bool
}

func newRecordingServer(t *testing.T, status int, payload string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = append(seen, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   string(body),
			close:  r.Close,
		})
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestHTTPFetchTargetsOwnHost(t *testing.T) {
	srv, seen := newRecordingServer(t, http.StatusOK, "hello")
	o, err := New(srv.URL+"/base", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ev := edge.NewEvent("*", edge.Request{
		Method: http.MethodPost,
		Path:   "/items",
		Query:  "a=1",
		Body:   []byte("payload"),
		Headers: edge.Headers{
			{Key: "Host", Value: "viewer.test"},
			{Key: "X-Custom", Value: "1"},
			{Key: "Connection", Value: "keep-alive"},
			{Key: "Proxy-Authorization", Value: "secret"},
		},
	})
	resp, err := o.Fetch(context.Background(), ev)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != "hello" {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Body)
	}
	if resp.Headers.Get("X-Upstream") != "yes" {
		t.Fatalf("upstream headers not propagated: %+v", resp.Headers)
	}

	if len(*seen) != 1 {
		t.Fatalf("expected one upstream request, got %d", len(*seen))
	}
	got := (*seen)[0]
	if got.method != http.MethodPost || got.path != "/base/items" || got.query != "a=1" || got.body != "payload" {
		t.Fatalf("unexpected upstream request: %+v", got)
	}
	if got.header.Get("X-Custom") != "1" {
		t.Fatalf("custom header not forwarded")
	}
	if got.header.Get("Proxy-Authorization") != "" {
		t.Fatalf("hop-by-hop header forwarded")
	}
	if !got.close {
		t.Fatalf("expected connection close on upstream request")
	}
}

func TestHTTPFetchUsesCustomOriginParams(t *testing.T) {
	primary, primarySeen := newRecordingServer(t, http.StatusOK, "primary")
	custom, customSeen := newRecordingServer(t, http.StatusOK, "custom")

	customURL, _ := url.Parse(custom.URL)
	host, portRaw, _ := net.SplitHostPort(customURL.Host)
	port, _ := strconv.Atoi(portRaw)

	o, err := New(primary.URL, &CustomConfig{Protocol: "http", Domain: host, Port: port})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	req := edge.Request{Method: http.MethodGet, Path: "/x"}
	ev := edge.NewEvent("*", req).At(edge.StageOriginRequest).WithOrigin(*o.ConnectionParams(req))
	resp, err := o.Fetch(context.Background(), ev)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(resp.Body) != "custom" {
		t.Fatalf("expected custom origin body, got %s", resp.Body)
	}
	if len(*primarySeen) != 0 || len(*customSeen) != 1 {
		t.Fatalf("expected only custom origin hit, primary=%d custom=%d", len(*primarySeen), len(*customSeen))
	}
}

func TestHTTPFetchTreatsErrorStatusAsSuccess(t *testing.T) {
	srv, _ := newRecordingServer(t, http.StatusServiceUnavailable, "down")
	o, err := New(srv.URL, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	resp, err := o.Fetch(context.Background(), edge.NewEvent("*", edge.Request{Path: "/"}))
	if err != nil {
		t.Fatalf("5xx should not be an error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable || resp.StatusDescription != "Service Unavailable" {
		t.Fatalf("unexpected response: %d %q", resp.StatusCode, resp.StatusDescription)
	}
}

func TestHTTPFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	o, err := New(target, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_, err = o.Fetch(context.Background(), edge.NewEvent("*", edge.Request{Path: "/"}))
	var upstreamErr *edge.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if errors.Is(err, edge.ErrNotFound) {
		t.Fatalf("transport failure must not be classified as NotFound")
	}
}
