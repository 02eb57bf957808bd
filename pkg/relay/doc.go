// Package relay implements the chat relay endpoint used by the embeddable website widget.
//
// A Handler accepts a single JSON payload {businessId, message, sessionId}, checks the
// business identifier against an injected BusinessChecker, forwards the whole payload to
// a configured webhook backend and returns the backend's JSON response. Every response,
// success or failure, carries permissive CORS headers so the widget can be embedded on
// any origin.
//
// Recommended setup:
//   - Build a Config (webhook URL, timeout) once at process start.
//   - Build a BusinessChecker (see package allowlist) once at process start.
//   - Create the handler with NewHandler and mount it wherever the widget posts to.
package relay
