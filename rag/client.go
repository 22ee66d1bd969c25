// Package rag answers questions about the organization through an
// external retrieval service.
package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/opnlabs/donorbot/domain"
)

// Client queries the knowledge base service.
type Client struct {
	http *resty.Client
}

// NewClient creates a knowledge base client for the given endpoint.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// Ask sends a free-form question and returns the retrieved answer. Any
// transport or upstream failure is reported as an invalid query so the
// assistant can ask the user to rephrase.
func (c *Client) Ask(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", domain.ErrInvalidQuery
	}

	var out answerResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"query": query}).
		SetResult(&out).
		Post("/answer")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
	}
	if resp.IsError() || out.Answer == "" {
		return "", domain.ErrInvalidQuery
	}

	return out.Answer, nil
}
