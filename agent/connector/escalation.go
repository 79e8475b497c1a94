package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/tanakach/callcenter/agent/contract"
)

// NotifierConfig points at the outbound notification sink (order management /
// claims channel webhook).
type NotifierConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Channel string        `envconfig:"CHANNEL" split_words:"true" default:"order-management"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Notifier posts order/claim events to the external notification sink over
// HTTP. Fire-and-acknowledge: it reports success or failure and carries no
// business logic.
type Notifier struct {
	baseURL    string
	token      string
	channel    string
	httpClient *http.Client
}

var _ contractx.Escalation = (*Notifier)(nil)

func NewNotifier(cfg NotifierConfig) (*Notifier, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("notifier url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Notifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(cfg.Token),
		channel: strings.TrimSpace(cfg.Channel),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNewNotifier(cfg NotifierConfig) *Notifier {
	n, err := NewNotifier(cfg)
	if err != nil {
		panic(err)
	}
	return n
}

type notifyRequest struct {
	Channel   string `json:"channel"`
	SessionID string `json:"session_id"`
	TurnSeq   int    `json:"turn_seq"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	DedupeKey string `json:"dedupe_key"`
}

type notifyResponse struct {
	ReferenceID string `json:"reference_id"`
	Error       string `json:"error"`
}

// Send posts one escalation event. The dedupe key mirrors the router's
// at-most-once law so an idempotent sink can enforce it end to end.
func (n *Notifier) Send(ctx context.Context, event contractx.EscalationEvent) (string, error) {
	if strings.TrimSpace(event.SessionID) == "" {
		return "", fmt.Errorf("escalation event needs a session id")
	}

	body, err := json.Marshal(notifyRequest{
		Channel:   n.channel,
		SessionID: event.SessionID,
		TurnSeq:   event.TurnSeq,
		Kind:      string(event.Kind),
		Text:      event.Payload,
		DedupeKey: fmt.Sprintf("%s:%d:%s", event.SessionID, event.TurnSeq, event.Kind),
	})
	if err != nil {
		return "", fmt.Errorf("marshal escalation event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build escalation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send escalation event: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read escalation response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("escalation sink status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed notifyResponse
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return "", fmt.Errorf("decode escalation response: %w", err)
		}
	}
	if parsed.Error != "" {
		return "", errors.New(parsed.Error)
	}

	referenceID := strings.TrimSpace(parsed.ReferenceID)
	if referenceID == "" {
		referenceID = uuid.NewString()
	}
	return referenceID, nil
}
