// Package web serves the chat web interface.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gupshup-ai/gupshup/internal/agent"
)

//go:embed static/*
var staticFiles embed.FS

// RegisterRoutes adds the chat UI and transcript routes to a mux.
func RegisterRoutes(mux *http.ServeMux, companion *agent.Companion, logger *slog.Logger) {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	fileServer := http.FileServer(http.FS(subFS))

	// FileServer redirects explicit index.html paths, so the root page
	// is served from the embedded bytes directly.
	index, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		panic(err)
	}
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(index)
	})
	mux.Handle("GET /static/", http.StripPrefix("/static/", fileServer))

	t := &transcriptHandler{companion: companion, logger: logger}
	mux.HandleFunc("GET /transcript", t.serve)
}
