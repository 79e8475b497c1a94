package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

func TestRedisStoreKey(t *testing.T) {
	t.Parallel()

	store := &RedisStore{keyPrefix: defaultRedisKeyPrefix}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "cc:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "cc:session:abc")
	}

	if _, err := store.redisKey("   "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSession", err)
	}
}

func TestRedisStoreCommitSetsKeyWithTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisStore(
		RedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithTTL(time.Hour),
	)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	session := NewSession("session-1", contractx.ChannelText, time.Now().UTC())
	if err := store.Commit(context.Background(), session); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if gotAuth != "Bearer token" {
		t.Fatalf("Authorization = %q, want Bearer token", gotAuth)
	}
	if len(gotCommand) != 5 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" || gotCommand[1] != "cc:session:session-1" {
		t.Fatalf("command = %#v, want SET cc:session:session-1", gotCommand[:2])
	}
	if gotCommand[3] != "EX" {
		t.Fatalf("command[3] = %v, want EX", gotCommand[3])
	}
}

func TestRedisStoreGetRoundTrip(t *testing.T) {
	t.Parallel()

	seed := NewSession("session-2", contractx.ChannelVoice, time.Now().UTC())
	seed.Context.ProductRef = "A68 Air"
	payload, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded seed: %v", err)
	}

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisStore(
		RedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	session, err := store.Get(context.Background(), "session-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if session.SessionID != "session-2" {
		t.Fatalf("SessionID = %q, want session-2", session.SessionID)
	}
	if session.Context.ProductRef != "A68 Air" {
		t.Fatalf("ProductRef = %q, want A68 Air", session.Context.ProductRef)
	}

	if len(gotCommand) < 2 || gotCommand[0] != "GET" || gotCommand[1] != "cc:session:session-2" {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
}

func TestRedisStoreGetMissingIsNotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisStore(
		RedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisStoreErrorResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"WRONGPASS invalid token"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisStore(
		RedisConfig{URL: server.URL, Token: "bad"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	if _, err := store.Get(context.Background(), "session-1"); err == nil {
		t.Fatal("Get() must surface the REST error")
	}
}

func TestTTLSecondsRoundsUp(t *testing.T) {
	t.Parallel()

	if got := ttlSeconds(1500 * time.Millisecond); got != 2 {
		t.Fatalf("ttlSeconds(1.5s) = %d, want 2", got)
	}
	if got := ttlSeconds(time.Minute); got != 60 {
		t.Fatalf("ttlSeconds(1m) = %d, want 60", got)
	}
	if got := ttlSeconds(0); got != 1 {
		t.Fatalf("ttlSeconds(0) = %d, want 1", got)
	}
}
