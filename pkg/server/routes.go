package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-go-golems/chatbot-relay/pkg/relay"
	"github.com/go-go-golems/chatbot-relay/pkg/widget"
)

const HealthPath = "/healthz"

// NewMux mounts the relay at "/" so it answers on any path, like a worker route.
// Health and widget routes are more specific and win over the catch-all. CORS headers are
// set before routing so responses the mux produces itself (path-cleaning redirects) carry them.
func NewMux(relayHandler http.Handler, serveWidget bool) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if serveWidget {
		mux.Handle("GET "+widget.Path, widget.Handler())
	}
	mux.Handle("/", relayHandler)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		relay.SetCORSHeaders(w.Header())
		mux.ServeHTTP(w, r)
	})
}
