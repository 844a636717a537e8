package web

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/gupshup-ai/gupshup/internal/agent"
)

var markdown = goldmark.New(
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

var transcriptTmpl = template.Must(template.New("transcript").Parse(transcriptHTML))

const transcriptHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Gupshup Transcript</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
.turn { margin: 1rem 0; padding: 0.75rem 1rem; border-radius: 8px; }
.turn.user { background: #eef3fb; }
.turn.assistant { background: #f4f4f4; }
.turn.system { background: #fff7e6; font-style: italic; }
.role { font-weight: bold; font-size: 0.85rem; text-transform: capitalize; color: #555; }
.ts { float: right; font-size: 0.75rem; color: #999; }
</style>
</head>
<body>
<h1>Conversation transcript</h1>
<p>{{.Summary}}</p>
{{range .Turns}}
<div class="turn {{.Role}}">
<span class="ts">{{.Timestamp}}</span>
<div class="role">{{.Role}}</div>
<div>{{.Body}}</div>
</div>
{{end}}
</body>
</html>
`

type transcriptTurn struct {
	Role      string
	Timestamp string
	Body      template.HTML
}

type transcriptPage struct {
	Summary string
	Turns   []transcriptTurn
}

type transcriptHandler struct {
	companion *agent.Companion
	logger    *slog.Logger
}

func (h *transcriptHandler) serve(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversation_id")

	turns := h.companion.History(conversationID)
	page := transcriptPage{
		Summary: h.companion.Summarize(conversationID),
		Turns:   make([]transcriptTurn, 0, len(turns)),
	}
	for _, turn := range turns {
		page.Turns = append(page.Turns, transcriptTurn{
			Role:      turn.Role,
			Timestamp: turn.Timestamp.Format(time.RFC3339),
			Body:      renderTurn(turn.Role, turn.Content),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := transcriptTmpl.Execute(w, page); err != nil {
		h.logger.Error("failed to render transcript", "error", err)
	}
}

// renderTurn converts assistant markdown to HTML. User and system turns are
// escaped verbatim so pasted markup never reaches the page.
func renderTurn(role, content string) template.HTML {
	if role != "assistant" {
		return template.HTML(template.HTMLEscapeString(content))
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}
