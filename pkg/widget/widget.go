// Package widget serves the embeddable chat widget script.
package widget

import (
	"embed"
	"net/http"
)

// Path is where the widget script is mounted.
const Path = "/chatbot-widget/chatbot-widget.js"

//go:embed static/chatbot-widget.js
var staticFS embed.FS

func Script() []byte {
	b, err := staticFS.ReadFile("static/chatbot-widget.js")
	if err != nil {
		// embedded at build time
		panic(err)
	}
	return b
}

// Handler serves the widget script with caching disabled so embedding sites pick up
// new releases immediately.
func Handler() http.Handler {
	script := Script()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write(script)
	})
}
