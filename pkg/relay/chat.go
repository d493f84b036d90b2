package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

type chatRequest struct {
	Messages json.RawMessage `json:"messages"`
}

type upstreamChatRequest struct {
	Model    string          `json:"model"`
	Messages json.RawMessage `json:"messages"`
}

// NewChatHandler forwards a message list to the chat completions API and
// relays the upstream body and status unchanged.
func NewChatHandler(cfg Config, client *http.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !cfg.hasCredential() {
			writeJSONError(w, http.StatusInternalServerError, "API key is not configured on the server")
			return
		}

		var in chatRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(in.Messages) == 0 {
			in.Messages = json.RawMessage("null")
		}
		payload, err := json.Marshal(upstreamChatRequest{Model: cfg.ChatModel, Messages: in.Messages})
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid messages")
			return
		}

		upReq, err := http.NewRequestWithContext(req.Context(), http.MethodPost, cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			log.Error().Err(err).Msg("chat relay: build upstream request")
			writeJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		upReq.Header.Set("Content-Type", "application/json")
		upReq.Header.Set("Authorization", "Bearer "+cfg.APIKey)

		resp, err := client.Do(upReq)
		if err != nil {
			log.Error().Err(err).Msg("chat relay: upstream request failed")
			writeJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Error().Err(err).Msg("chat relay: read upstream body")
			writeJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			log.Warn().Int("status", resp.StatusCode).Msg("chat relay: upstream returned error")
		}

		ct := resp.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/json"
		}
		w.Header().Set("Content-Type", ct)
		w.WriteHeader(resp.StatusCode)
		// #nosec G705 -- upstream body is relayed with the upstream content type.
		if _, err := w.Write(body); err != nil {
			log.Warn().Err(err).Msg("chat relay: write response")
		}
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
