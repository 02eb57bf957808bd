package relay

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

const (
	headerAllowOrigin  = "Access-Control-Allow-Origin"
	headerAllowHeaders = "Access-Control-Allow-Headers"
	headerAllowMethods = "Access-Control-Allow-Methods"

	allowedOrigin  = "*"
	allowedHeaders = "Content-Type"
	allowedMethods = "POST, OPTIONS"
)

// SetCORSHeaders applies the relay's permissive cross-origin headers.
func SetCORSHeaders(h http.Header) {
	h.Set(headerAllowOrigin, allowedOrigin)
	h.Set(headerAllowHeaders, allowedHeaders)
	h.Set(headerAllowMethods, allowedMethods)
}

// writeBody sends a length-delimited response and flushes it, so the client has the
// complete reply before the handler returns.
func writeBody(w http.ResponseWriter, status int, contentType string, body []byte, logger zerolog.Logger) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Warn().Err(err).Int("status", status).Msg("relay response write failed")
		return
	}
	flush(w)
}

func flush(w http.ResponseWriter) {
	_ = http.NewResponseController(w).Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any, logger zerolog.Logger) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Error().Err(err).Int("status", status).Msg("relay response encode failed")
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(ErrorBody{Error: "Internal Server Error"})
	}
	writeBody(w, status, "application/json", buf.Bytes(), logger)
}

func writeError(w http.ResponseWriter, re *Error, logger zerolog.Logger) {
	switch re.Kind {
	case KindMalformedInput:
		writeBody(w, re.Status, "text/plain; charset=utf-8", []byte(re.ClientMsg), logger)
	case KindUpstream:
		details := ""
		if re.Err != nil {
			details = re.Err.Error()
		}
		writeJSON(w, re.Status, ErrorBody{Error: re.ClientMsg, Details: details}, logger)
	default:
		writeJSON(w, re.Status, ErrorBody{Error: re.ClientMsg}, logger)
	}
}
