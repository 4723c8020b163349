package mcp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/upstratum/gitshelf/pkg/utils/logging"
	"github.com/upstratum/gitshelf/pkg/utils/safe"
)

// Handler returns the HTTP surface: the MCP streamable endpoint at /mcp and
// a health endpoint.
func (x *Server) Handler() http.Handler {
	streamable := mcpserver.NewStreamableHTTPServer(x.mcp,
		mcpserver.WithEndpointPath("/mcp"),
	)

	r := chi.NewRouter()
	r.Use(loggingMiddleware)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		safe.Write(req.Context(), w, []byte("OK"))
	})
	r.Handle("/mcp", streamable)

	return r
}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush must be forwarded: the streamable MCP endpoint keeps a
// notification stream open and flushes each event.
func (w *statusResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.From(r.Context()).With("request_id", uuid.New().String())

		sw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r.WithContext(logging.With(r.Context(), logger)))

		logger.Info("Access Log",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
		)
	})
}
