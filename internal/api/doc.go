// Package api exposes the pipeline over HTTP using gin.
//
// Routes live under /api/v1 and map one to one onto pipeline commands:
// split, transcribe, save, status, clip download, playlist expansion, and the
// channel registry. GET /health is served
// outside the versioned prefix and never requires authentication.
//
// Errors are returned as {"error": {"kind", "message", "request_id"}} with
// the status code chosen from the error's services marker. Every response
// carries an X-Request-ID header; the same id is attached to the request
// context so pipeline log lines share the correlation id.
package api
