// Package transcribe turns voice notes into text through a
// Whisper-compatible transcription endpoint.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/opnlabs/donorbot/domain"
)

// Client calls the audio transcription API.
type Client struct {
	http  *resty.Client
	model string
}

// NewClient creates a transcription client.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetAuthToken(apiKey),
		model: model,
	}
}

type transcription struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio bytes and returns the recognized text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if filename == "" {
		filename = "audio.ogg"
	}

	var out transcription
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(audio)).
		SetFormData(map[string]string{"model": c.model}).
		SetResult(&out).
		Post("/audio/transcriptions")
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	if resp.IsError() {
		return "", &domain.ProviderError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}

	return out.Text, nil
}
