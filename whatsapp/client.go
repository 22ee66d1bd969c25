// Package whatsapp talks to the WhatsApp Business Cloud API.
package whatsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/opnlabs/donorbot/domain"
)

// Client sends messages and fetches media through the Graph API.
type Client struct {
	http          *resty.Client
	phoneNumberID string
}

// NewClient creates a Graph API client for one business phone number.
func NewClient(baseURL, phoneNumberID, accessToken string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetAuthToken(accessToken),
		phoneNumberID: phoneNumberID,
	}
}

type textBody struct {
	Body string `json:"body"`
}

type outboundMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Text             textBody `json:"text"`
}

// SendText delivers a plain text message to a user.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(outboundMessage{
			MessagingProduct: "whatsapp",
			To:               to,
			Text:             textBody{Body: text},
		}).
		Post(fmt.Sprintf("/%s/messages", c.phoneNumberID))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	if resp.IsError() {
		return &domain.ProviderError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}

type mediaLookup struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// FetchMedia resolves a media id to its download URL and returns the raw
// bytes plus the reported mime type.
func (c *Client) FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	var lookup mediaLookup
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&lookup).
		Get("/" + mediaID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up media %s: %w", mediaID, err)
	}
	if resp.IsError() || lookup.URL == "" {
		return nil, "", &domain.ProviderError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}

	// The download URL is absolute and short-lived; it still needs the
	// same bearer token.
	dl, err := c.http.R().
		SetContext(ctx).
		Get(lookup.URL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download media %s: %w", mediaID, err)
	}
	if dl.IsError() {
		return nil, "", &domain.ProviderError{Status: dl.StatusCode(), Body: string(dl.Body())}
	}

	return dl.Body(), lookup.MimeType, nil
}
