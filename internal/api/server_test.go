package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/gupshup-ai/gupshup/internal/agent"
	"github.com/gupshup-ai/gupshup/internal/connstate"
	"github.com/gupshup-ai/gupshup/internal/llm"
	"github.com/gupshup-ai/gupshup/internal/persona"
)

type fakeClient struct {
	reply   string
	err     error
	pingErr error
}

func (f *fakeClient) Generate(_ context.Context, _ []llm.Message) (*llm.Completion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Content: f.reply}, nil
}

func (f *fakeClient) Ping(_ context.Context) error { return f.pingErr }

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	client := &fakeClient{reply: "the moon orbits the earth"}
	companion := agent.NewCompanion(agent.Config{
		Registry: persona.DefaultRegistry(),
		Client:   client,
		Monitor: connstate.NewMonitor(connstate.Config{
			Probe: client.Ping,
		}),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	srv := NewServer("", 0, companion, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return srv.routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v", body["status"])
	}
	backend, ok := body["backend"].(map[string]any)
	if !ok || backend["state"] == "" {
		t.Errorf("backend status missing: %v", body["backend"])
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodGet, "/version", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["version"] == "" {
		t.Error("version field empty")
	}
}

func TestChat(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodPost, "/v1/chat", map[string]string{
		"message": "tell me about the moon",
		"tone":    "professional",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %v", rec.Code, body)
	}
	resp, _ := body["response"].(string)
	if !strings.HasPrefix(resp, "Certainly. ") {
		t.Errorf("response not styled: %q", resp)
	}
	if body["demo"] != false {
		t.Errorf("demo = %v, want false", body["demo"])
	}
	if body["conversation_id"] == "" {
		t.Error("conversation_id not assigned")
	}
}

func TestChatRequiresMessage(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	rec, _ := doJSON(t, h, http.MethodPost, "/v1/chat", map[string]string{"tone": "friendly"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChatUnknownTone(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodPost, "/v1/chat", map[string]string{
		"message": "hi",
		"tone":    "sarcastic",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "sarcastic") {
		t.Errorf("error message missing tone name: %v", body["error"])
	}
}

func TestTones(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodGet, "/v1/tones", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	tones, ok := body["tones"].([]any)
	if !ok || len(tones) != 5 {
		t.Errorf("tones = %v, want 5 entries", body["tones"])
	}
	if len(tones) > 0 && tones[0] != "friendly" {
		t.Errorf("first tone = %v, want friendly", tones[0])
	}
}

func TestChatThenSummaryAndHistory(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	_, chat := doJSON(t, h, http.MethodPost, "/v1/chat", map[string]string{
		"message": "my telescope shows jupiter tonight",
	})
	convID, _ := chat["conversation_id"].(string)
	if convID == "" {
		t.Fatal("no conversation_id returned")
	}

	_, hist := doJSON(t, h, http.MethodGet, "/v1/history?conversation_id="+convID, nil)
	turns, ok := hist["turns"].([]any)
	if !ok || len(turns) != 2 {
		t.Fatalf("history turns = %v, want 2", hist["turns"])
	}

	_, sum := doJSON(t, h, http.MethodGet, "/v1/summary?conversation_id="+convID, nil)
	if s, _ := sum["summary"].(string); !strings.Contains(s, "2 turns") {
		t.Errorf("summary = %v", sum["summary"])
	}
}

func TestReset(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	_, chat := doJSON(t, h, http.MethodPost, "/v1/chat", map[string]string{"message": "hello there"})
	convID, _ := chat["conversation_id"].(string)

	rec, _ := doJSON(t, h, http.MethodPost, "/v1/reset", map[string]string{"conversation_id": convID})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, want 200", rec.Code)
	}

	_, hist := doJSON(t, h, http.MethodGet, "/v1/history?conversation_id="+convID, nil)
	if turns, _ := hist["turns"].([]any); len(turns) != 0 {
		t.Errorf("history after reset = %v, want empty", hist["turns"])
	}
}

func TestSampleSeedsConversation(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	rec, body := doJSON(t, h, http.MethodPost, "/v1/sample", map[string]string{"conversation_id": "demo"})
	if rec.Code != http.StatusOK {
		t.Fatalf("sample status = %d, want 200: %v", rec.Code, body)
	}

	_, hist := doJSON(t, h, http.MethodGet, "/v1/history?conversation_id=demo", nil)
	turns, _ := hist["turns"].([]any)
	if len(turns) == 0 {
		t.Error("sample seeding left history empty")
	}
}

func TestUsageDisabled(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	rec, _ := doJSON(t, h, http.MethodGet, "/v1/usage", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when usage recording disabled", rec.Code)
	}
}

func TestWebSocketChat(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	ts := httptest.NewServer(h)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"message": "hi", "tone": "casual"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var reply struct {
		Response string `json:"response"`
		Demo     bool   `json:"demo"`
		Error    string `json:"error"`
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Error != "" {
		t.Fatalf("unexpected error reply: %s", reply.Error)
	}
	if !strings.HasPrefix(reply.Response, "Sure thing! ") {
		t.Errorf("reply not styled: %q", reply.Response)
	}
}

func TestWebSocketRejectsEmptyMessage(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	ts := httptest.NewServer(h)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"message": ""}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var reply struct {
		Error string `json:"error"`
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Error == "" {
		t.Error("expected error reply for empty message")
	}
}
