// Package lifecycle runs one request through the edge lifecycle:
//
//	VIEWER_REQUEST → CACHE_CHECK → ORIGIN_REQUEST → ORIGIN_FETCH →
//	ORIGIN_RESPONSE → VIEWER_RESPONSE → DONE
//
// Each state is visited at most once per request. A terminal result from the
// viewer-request handler or a cache hit jumps to VIEWER_RESPONSE; a terminal
// result from the origin-request handler ends the run immediately unless the
// engine is configured to still apply viewer-response.
package lifecycle
