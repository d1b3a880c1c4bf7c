// AngelaMos | 2026
// client.go

package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/carterperez-dev/voice-tutor/internal/config"
	"github.com/carterperez-dev/voice-tutor/internal/core"
)

const (
	requestTimeout = 30 * time.Second
	maxBodyBytes   = 32 << 20
	audioMimeType  = "audio/ogg"
	userTurnText   = "Here is my audio recording."
	apiKeyHeader   = "x-goog-api-key"
)

var ErrMalformedResponse = errors.New("malformed gemini response")

type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini %s failed: status %d", e.Op, e.Status)
}

type Analysis struct {
	Feedback string
	Reply    string
}

type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	cfg     config.GeminiConfig
}

func NewClient(cfg config.GeminiConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		cfg:     cfg,
	}
}

// Analyze sends the Ogg voice note and returns the feedback text and the
// conversational reply to be spoken back.
func (c *Client) Analyze(ctx context.Context, audio []byte) (Analysis, error) {
	req := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{
					MimeType: audioMimeType,
					Data:     base64.StdEncoding.EncodeToString(audio),
				}},
				{Text: userTurnText},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			Temperature:      &c.cfg.Temperature,
		},
	}
	if c.cfg.SystemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: c.cfg.SystemPrompt}}}
	}

	body, err := c.generate(ctx, "analysis", c.cfg.AnalysisModel, req)
	if err != nil {
		return Analysis{}, err
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text")
	if !text.Exists() || text.Type != gjson.String {
		return Analysis{}, fmt.Errorf("analysis: no text part: %w", ErrMalformedResponse)
	}
	if !gjson.Valid(text.Str) {
		return Analysis{}, fmt.Errorf("analysis: text part is not json: %w", ErrMalformedResponse)
	}

	fields := gjson.GetMany(text.Str, "text_analysis", "dialogue_to_speak")
	if fields[0].Type != gjson.String || fields[1].Type != gjson.String {
		return Analysis{}, fmt.Errorf("analysis: missing fields: %w", ErrMalformedResponse)
	}

	return Analysis{
		Feedback: fields[0].Str,
		Reply:    fields[1].Str,
	}, nil
}

// Synthesize returns raw PCM (s16le, mono) for text.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: text}},
		}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{
					PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: c.cfg.Voice},
				},
			},
		},
	}

	body, err := c.generate(ctx, "synthesis", c.cfg.TTSModel, req)
	if err != nil {
		return nil, err
	}

	data := gjson.GetBytes(body, "candidates.0.content.parts.0.inlineData.data")
	if data.Type != gjson.String || data.Str == "" {
		return nil, fmt.Errorf("synthesis: no audio data: %w", ErrMalformedResponse)
	}

	pcm, err := base64.StdEncoding.DecodeString(data.Str)
	if err != nil {
		return nil, fmt.Errorf("synthesis: decode audio: %w: %w", ErrMalformedResponse, err)
	}
	return pcm, nil
}

func (c *Client) generate(
	ctx context.Context,
	op string,
	model string,
	payload generateRequest,
) ([]byte, error) {
	ctx, span := core.StartSpan(ctx, "gemini."+op)
	defer span.End()

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		err = core.RedactURL(err)
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("gemini %s: %w", op, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Op: op, Status: resp.StatusCode, Body: string(body)}
		core.SetSpanError(ctx, apiErr)
		return nil, apiErr
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformedResponse)
	}
	return body, nil
}
