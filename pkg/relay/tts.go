package relay

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

type ttsRequest struct {
	Text         string `json:"text"`
	Voice        string `json:"voice"`
	Format       string `json:"format"`
	Instructions string `json:"instructions"`
}

func (r *ttsRequest) applyDefaults() {
	if strings.TrimSpace(r.Voice) == "" {
		r.Voice = "echo"
	}
	if strings.TrimSpace(r.Format) == "" {
		r.Format = "mp3"
	}
}

func audioContentType(format string) string {
	if format == "wav" {
		return "audio/wav"
	}
	return "audio/mpeg"
}

// errorBodyRecorder keeps the raw body of a non-2xx upstream response so it can
// be relayed verbatim after go-openai has parsed it.
type errorBodyRecorder struct {
	next openai.HTTPDoer
	body []byte
}

func (r *errorBodyRecorder) Do(req *http.Request) (*http.Response, error) {
	resp, err := r.next.Do(req)
	if err != nil || (resp.StatusCode >= 200 && resp.StatusCode <= 299) {
		return resp, err
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, errors.Wrap(err, "read upstream error body")
	}
	r.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

// upstreamErrorText returns the upstream error body, falling back to what
// go-openai kept of it.
func upstreamErrorText(err error, recorded []byte) string {
	if len(recorded) > 0 {
		return string(recorded)
	}
	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) && len(reqErr.Body) > 0 {
		return string(reqErr.Body)
	}
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// NewTTSHandler synthesizes speech through the speech API and returns the raw
// audio bytes.
func NewTTSHandler(cfg Config, client *http.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !cfg.hasCredential() {
			writeJSONError(w, http.StatusInternalServerError, "API key missing")
			return
		}

		var in ttsRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil && err != io.EOF {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		in.applyDefaults()

		oc := openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = cfg.BaseURL
		rec := &errorBodyRecorder{next: client}
		oc.HTTPClient = rec
		speech, err := openai.NewClientWithConfig(oc).CreateSpeech(req.Context(), openai.CreateSpeechRequest{
			Model:          openai.SpeechModel(cfg.TTSModel),
			Input:          in.Text,
			Voice:          openai.SpeechVoice(in.Voice),
			ResponseFormat: openai.SpeechResponseFormat(in.Format),
		})
		if err != nil {
			log.Warn().Err(err).Str("voice", in.Voice).Str("format", in.Format).Msg("tts relay: upstream failed")
			writeJSONError(w, http.StatusInternalServerError, upstreamErrorText(err, rec.body))
			return
		}
		defer func() { _ = speech.Close() }()

		audio, err := io.ReadAll(speech)
		if err != nil {
			log.Error().Err(err).Msg("tts relay: read upstream audio")
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", audioContentType(in.Format))
		if _, err := w.Write(audio); err != nil {
			log.Warn().Err(err).Msg("tts relay: write response")
		}
	}
}
