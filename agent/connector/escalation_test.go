package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

func TestNotifierSend(t *testing.T) {
	t.Parallel()

	var gotReq notifyRequest
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"reference_id":"ORD-42"}`)
	}))
	t.Cleanup(server.Close)

	notifier := MustNewNotifier(NotifierConfig{
		URL:     server.URL,
		Token:   "token",
		Channel: "order-management",
	})

	ref, err := notifier.Send(context.Background(), contractx.EscalationEvent{
		SessionID: "session-1",
		TurnSeq:   4,
		Kind:      contractx.EscalationOrder,
		Payload:   "Ordered the B27 Max.",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ref != "ORD-42" {
		t.Fatalf("reference = %q, want ORD-42", ref)
	}

	if gotAuth != "Bearer token" {
		t.Fatalf("Authorization = %q, want Bearer token", gotAuth)
	}
	if gotReq.Channel != "order-management" {
		t.Fatalf("channel = %q, want order-management", gotReq.Channel)
	}
	if gotReq.DedupeKey != "session-1:4:order" {
		t.Fatalf("dedupe key = %q, want session-1:4:order", gotReq.DedupeKey)
	}
}

func TestNotifierSendGeneratesReferenceWhenMissing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	notifier := MustNewNotifier(NotifierConfig{URL: server.URL, Token: "token"})

	ref, err := notifier.Send(context.Background(), contractx.EscalationEvent{
		SessionID: "session-1",
		TurnSeq:   1,
		Kind:      contractx.EscalationClaim,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if ref == "" {
		t.Fatal("expected a generated reference id")
	}
}

func TestNotifierSendSurfacesSinkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"channel archived"}`)
	}))
	t.Cleanup(server.Close)

	notifier := MustNewNotifier(NotifierConfig{URL: server.URL, Token: "token"})

	if _, err := notifier.Send(context.Background(), contractx.EscalationEvent{
		SessionID: "session-1",
		Kind:      contractx.EscalationOrder,
	}); err == nil {
		t.Fatal("sink error must propagate")
	}
}

func TestNotifierSendSurfacesHTTPStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	notifier := MustNewNotifier(NotifierConfig{URL: server.URL, Token: "token"})

	if _, err := notifier.Send(context.Background(), contractx.EscalationEvent{
		SessionID: "session-1",
		Kind:      contractx.EscalationOrder,
	}); err == nil {
		t.Fatal("HTTP error status must propagate")
	}
}

func TestNotifierSendRequiresSessionID(t *testing.T) {
	t.Parallel()

	notifier := MustNewNotifier(NotifierConfig{URL: "http://localhost:1", Token: "token"})
	if _, err := notifier.Send(context.Background(), contractx.EscalationEvent{}); err == nil {
		t.Fatal("missing session id must error before any request")
	}
}

func TestNewNotifierValidatesURL(t *testing.T) {
	t.Parallel()

	if _, err := NewNotifier(NotifierConfig{URL: "", Token: "token"}); err == nil {
		t.Fatal("empty url must be rejected")
	}
	if _, err := NewNotifier(NotifierConfig{URL: "::not-a-url", Token: "token"}); err == nil {
		t.Fatal("malformed url must be rejected")
	}
}
