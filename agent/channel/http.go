package channel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanakach/callcenter/agent/contract"
	turnnode "github.com/tanakach/callcenter/agent/nodes"
	routerx "github.com/tanakach/callcenter/agent/router"
	statex "github.com/tanakach/callcenter/agent/state"
)

// Handler is the text-channel adapter: it maps HTTP requests onto router
// turns and renders the outbound message back as JSON. A voice channel would
// sit in front of the same router with the same contract.
type Handler struct {
	router *routerx.Router
}

func NewHandler(router *routerx.Router) *Handler {
	return &Handler{router: router}
}

// Routes builds the chi router for the adapter.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.handleCreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/turns", h.handleTurn)
			r.Post("/close", h.handleClose)
			r.Get("/transcript", h.handleTranscript)
		})
	})
	return r
}

type turnRequest struct {
	Seq     int    `json:"seq,omitempty"`
	Text    string `json:"text"`
	Channel string `json:"channel,omitempty"`
}

type turnResponse struct {
	SessionID   string `json:"session_id"`
	DisplayText string `json:"display_text"`
	Owner       string `json:"session_owner"`
	Closed      bool   `json:"closed"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusCreated, map[string]string{"session_id": uuid.NewString()})
}

func (h *Handler) handleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload turnRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	turn := contractx.Turn{
		Seq:       payload.Seq,
		Text:      payload.Text,
		Channel:   contractx.ChannelKind(payload.Channel),
		Timestamp: time.Now().UTC(),
	}

	out, err := h.router.Handle(r.Context(), sessionID, turn)
	if err != nil {
		switch {
		case errors.Is(err, turnnode.ErrInvalidSession), errors.Is(err, turnnode.ErrInvalidMessage):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.Canceled):
			respondError(w, http.StatusConflict, "turn cancelled")
		default:
			log.Error().Err(err).Str("session_id", sessionID).Msg("turn processing failed")
			respondError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, http.StatusOK, turnResponse{
		SessionID:   out.SessionID,
		DisplayText: out.DisplayText,
		Owner:       string(out.Owner),
		Closed:      out.Closed,
	})
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.router.Close(r.Context(), sessionID); err != nil {
		if errors.Is(err, statex.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("session close failed")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "closed": true})
}

type transcriptResponse struct {
	SessionID  string                     `json:"session_id"`
	Owner      string                     `json:"session_owner"`
	Closed     bool                       `json:"closed"`
	Context    contractx.CustomerContext  `json:"context"`
	Transcript []contractx.Turn           `json:"transcript"`
	ToolCalls  []contractx.ToolCallRecord `json:"tool_calls"`
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := h.router.Transcript(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, statex.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("transcript fetch failed")
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, http.StatusOK, transcriptResponse{
		SessionID:  session.SessionID,
		Owner:      string(session.Owner),
		Closed:     session.Closed,
		Context:    session.Context,
		Transcript: session.Transcript,
		ToolCalls:  session.ToolCalls,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
