// Package stability talks to the Stability AI REST API.
package stability

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dghubble/sling"

	"github.com/mikequentel/ukiyobot/internal/model"
)

const (
	DefaultBaseURL = "https://api.stability.ai"
	Engine         = "stable-diffusion-v1-6"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Name != "" || e.Message != "" {
		return fmt.Sprintf("stability: HTTP %d: %s: %s", e.StatusCode, e.Name, e.Message)
	}
	return fmt.Sprintf("stability: HTTP %d", e.StatusCode)
}

type Client struct {
	base *sling.Sling
}

// NewClient returns a client for baseURL authenticated with apiKey. A nil
// httpClient means http.DefaultClient.
func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := sling.New().
		Client(httpClient).
		Base(strings.TrimRight(baseURL, "/")+"/").
		Set("Authorization", "Bearer "+apiKey).
		Set("Accept", "application/json")
	return &Client{base: base}
}

// NewRequest fills in the fixed generation parameters for prompt.
func NewRequest(prompt string) model.TextToImageRequest {
	return model.TextToImageRequest{
		CfgScale: 7,
		Height:   512,
		Width:    512,
		Sampler:  "K_DPM_2_ANCESTRAL",
		Samples:  1,
		Steps:    10,
		TextPrompts: []model.TextPrompt{
			{Text: prompt, Weight: 1},
		},
	}
}

// TextToImage runs one generation and returns the first artifact decoded
// from base64.
func (c *Client) TextToImage(ctx context.Context, body model.TextToImageRequest) ([]byte, error) {
	req, err := c.base.New().
		Post("v1/generation/" + Engine + "/text-to-image").
		BodyJSON(body).
		Request()
	if err != nil {
		return nil, fmt.Errorf("stability: build request: %w", err)
	}

	var out model.TextToImageResp
	var apiErr model.StabilityError
	resp, err := c.base.Do(req.WithContext(ctx), &out, &apiErr)
	if resp != nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, &APIError{StatusCode: resp.StatusCode, Name: apiErr.Name, Message: apiErr.Message}
	}
	if err != nil {
		return nil, fmt.Errorf("stability: text-to-image: %w", err)
	}

	if len(out.Artifacts) == 0 {
		return nil, errors.New("stability: response has no artifacts")
	}
	art := out.Artifacts[0]
	if art.FinishReason == "ERROR" {
		return nil, errors.New("stability: generation finished with ERROR")
	}
	if art.Base64 == "" {
		return nil, fmt.Errorf("stability: empty artifact (finishReason %s)", art.FinishReason)
	}

	img, err := base64.StdEncoding.DecodeString(art.Base64)
	if err != nil {
		return nil, fmt.Errorf("stability: decode artifact: %w", err)
	}
	return img, nil
}
