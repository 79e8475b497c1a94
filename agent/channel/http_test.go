package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	agentsx "github.com/tanakach/callcenter/agent/agents"
	connectorx "github.com/tanakach/callcenter/agent/connector"
	contractx "github.com/tanakach/callcenter/agent/contract"
	routerx "github.com/tanakach/callcenter/agent/router"
	statex "github.com/tanakach/callcenter/agent/state"
)

type admitGuardrail struct{}

func (admitGuardrail) Evaluate(ctx context.Context, text string, recentTranscript []string) contractx.GuardrailVerdict {
	return contractx.Admissible()
}

type stubEscalation struct{}

func (stubEscalation) Send(ctx context.Context, event contractx.EscalationEvent) (string, error) {
	return "REF-1", nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	rt, err := routerx.New(
		statex.NewMemoryStore(),
		admitGuardrail{},
		agentsx.NewRuleRegistry(connectorx.DefaultCatalog()),
		connectorx.NewKnowledgeBase(nil),
		stubEscalation{},
		routerx.Config{ToolTimeout: time.Second},
	)
	if err != nil {
		t.Fatalf("router.New() error = %v", err)
	}

	server := httptest.NewServer(NewHandler(rt).Routes())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestCreateSessionReturnsID(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	resp, body := postJSON(t, server.URL+"/api/sessions/", "{}")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if id, _ := body["session_id"].(string); id == "" {
		t.Fatalf("missing session_id in %v", body)
	}
}

func TestTurnEndpoint(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	resp, body := postJSON(t, server.URL+"/api/sessions/session-1/turns",
		`{"text":"my B27 Max is broken"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if owner, _ := body["session_owner"].(string); owner != "trouble" {
		t.Fatalf("session_owner = %q, want trouble", owner)
	}
	if text, _ := body["display_text"].(string); text == "" {
		t.Fatal("display_text is empty")
	}
}

func TestTurnEndpointRejectsEmptyText(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	resp, body := postJSON(t, server.URL+"/api/sessions/session-1/turns", `{"text":"  "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if msg, _ := body["error"].(string); msg == "" {
		t.Fatal("missing error message")
	}
}

func TestTurnEndpointRejectsBadBody(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	resp, _ := postJSON(t, server.URL+"/api/sessions/session-1/turns", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCloseEndpoint(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	postJSON(t, server.URL+"/api/sessions/session-2/turns", `{"text":"hello"}`)

	resp, body := postJSON(t, server.URL+"/api/sessions/session-2/close", "{}")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if closed, _ := body["closed"].(bool); !closed {
		t.Fatalf("closed = %v, want true", body["closed"])
	}

	// Turns after close get the fixed closed reply.
	resp, body = postJSON(t, server.URL+"/api/sessions/session-2/turns", `{"text":"hello again"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if closed, _ := body["closed"].(bool); !closed {
		t.Fatal("turn response must report the session closed")
	}
}

func TestCloseEndpointUnknownSession(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	resp, _ := postJSON(t, server.URL+"/api/sessions/never-seen/close", "{}")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTranscriptEndpoint(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	postJSON(t, server.URL+"/api/sessions/session-3/turns", `{"text":"tell me about the A68 Air battery"}`)

	resp, err := http.Get(server.URL + "/api/sessions/session-3/transcript")
	if err != nil {
		t.Fatalf("GET transcript error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode transcript: %v", err)
	}
	if len(body.Transcript) != 1 {
		t.Fatalf("transcript length = %d, want 1", len(body.Transcript))
	}
	if body.Context.ProductRef != "A68 Air" {
		t.Fatalf("context product = %q, want A68 Air", body.Context.ProductRef)
	}
	if len(body.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1 knowledge lookup", len(body.ToolCalls))
	}
}

func TestTranscriptEndpointUnknownSession(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/api/sessions/never-seen/transcript")
	if err != nil {
		t.Fatalf("GET transcript error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
