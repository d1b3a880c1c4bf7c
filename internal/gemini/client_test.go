// AngelaMos | 2026
// client_test.go

package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/carterperez-dev/voice-tutor/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.GeminiConfig{
		APIKey:        "test-key",
		BaseURL:       srv.URL + "/v1beta/",
		AnalysisModel: "analysis-model",
		TTSModel:      "tts-model",
		Voice:         "Aoede",
		SystemPrompt:  "You are a tutor.",
		Temperature:   0.5,
	}, srv.Client())
}

func candidateText(text string) string {
	body, _ := json.Marshal(map[string]any{ //nolint:errcheck
		"candidates": []any{map[string]any{
			"content": map[string]any{
				"parts": []any{map[string]any{"text": text}},
			},
		}},
	})
	return string(body)
}

func TestAnalyzeSendsAudioAndParsesReply(t *testing.T) {
	audio := []byte("OggS-voice-note")

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/analysis-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		assert.Equal(t, "You are a tutor.", gjson.GetBytes(body, "system_instruction.parts.0.text").Str)
		assert.Equal(t, "audio/ogg", gjson.GetBytes(body, "contents.0.parts.0.inline_data.mime_type").Str)
		assert.Equal(t,
			base64.StdEncoding.EncodeToString(audio),
			gjson.GetBytes(body, "contents.0.parts.0.inline_data.data").Str,
		)
		assert.Equal(t, "application/json", gjson.GetBytes(body, "generationConfig.response_mime_type").Str)
		assert.InDelta(t, 0.5, gjson.GetBytes(body, "generationConfig.temperature").Float(), 1e-9)

		_, _ = io.WriteString(w, candidateText( //nolint:errcheck
			`{"text_analysis":"Good job, watch the gender.","dialogue_to_speak":"¿Y qué hiciste ayer?"}`))
	})

	got, err := c.Analyze(context.Background(), audio)
	require.NoError(t, err)
	assert.Equal(t, "Good job, watch the gender.", got.Feedback)
	assert.Equal(t, "¿Y qué hiciste ayer?", got.Reply)
}

func TestAnalyzeNon2xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded"}}`) //nolint:errcheck
	})

	_, err := c.Analyze(context.Background(), []byte("x"))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Contains(t, apiErr.Body, "overloaded")
}

func TestAnalyzeMalformed(t *testing.T) {
	tests := map[string]string{
		"not json":         `<html>`,
		"no candidates":    `{"candidates":[]}`,
		"text is not json": candidateText("plain words"),
		"missing dialogue": candidateText(`{"text_analysis":"ok"}`),
		"nested analysis":  candidateText(`{"text_analysis":{"a":1},"dialogue_to_speak":"hola"}`),
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body) //nolint:errcheck
			})

			_, err := c.Analyze(context.Background(), []byte("x"))
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestSynthesizeDecodesPCM(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xff, 0x7f}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/tts-model:generateContent"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "Hola", gjson.GetBytes(body, "contents.0.parts.0.text").Str)
		assert.Equal(t, "AUDIO", gjson.GetBytes(body, "generationConfig.responseModalities.0").Str)
		assert.Equal(t, "Aoede",
			gjson.GetBytes(body, "generationConfig.speechConfig.voiceConfig.prebuiltVoiceConfig.voiceName").Str)
		assert.False(t, gjson.GetBytes(body, "system_instruction").Exists())

		resp, _ := json.Marshal(map[string]any{ //nolint:errcheck
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{
						"inlineData": map[string]any{
							"mimeType": "audio/L16;codec=pcm;rate=24000",
							"data":     base64.StdEncoding.EncodeToString(pcm),
						},
					}},
				},
			}},
		})
		_, _ = w.Write(resp) //nolint:errcheck
	})

	got, err := c.Synthesize(context.Background(), "Hola")
	require.NoError(t, err)
	assert.Equal(t, pcm, got)
}

func TestSynthesizeMissingAudio(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, candidateText("no audio here")) //nolint:errcheck
	})

	_, err := c.Synthesize(context.Background(), "Hola")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClient(config.GeminiConfig{
		BaseURL:       srv.URL,
		APIKey:        "AIzaSuperSecretKey",
		AnalysisModel: "m",
	}, nil)

	_, err := c.Analyze(context.Background(), []byte("x"))
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.NotContains(t, err.Error(), "AIzaSuperSecretKey")
	assert.NotContains(t, err.Error(), srv.URL)
}
