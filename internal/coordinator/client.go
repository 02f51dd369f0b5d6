package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GenerateRequest is the wire payload accepted by the generate endpoint.
type GenerateRequest struct {
	Prompt         string         `json:"prompt"`
	RefinedPrompt  string         `json:"refinedPrompt,omitempty"`
	NegativePrompt string         `json:"negativePrompt,omitempty"`
	Mode           string         `json:"mode,omitempty"`
	Model          string         `json:"model,omitempty"`
	AspectRatio    string         `json:"aspectRatio,omitempty"`
	Options        map[string]any `json:"options,omitempty"`
}

// GenerateResponse mirrors the endpoint's uniform envelope.
type GenerateResponse struct {
	OK          bool   `json:"ok"`
	Base64Image string `json:"base64Image,omitempty"`
	Model       string `json:"model,omitempty"`
	ID          string `json:"id,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
	Reason      string `json:"reason,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// Client drives POST /generate through a Coordinator so callers get
// last-started-wins semantics: starting a new generation aborts the previous
// one and a stale response can never clobber a newer result.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	coord      *Coordinator
}

func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		coord:      New(),
	}
}

// Coordinator exposes the underlying state machine for observation.
func (c *Client) Coordinator() *Coordinator { return c.coord }

// Generate submits a generation request guarded by the coordinator and
// returns the guard immediately; the outcome lands in the coordinator state.
func (c *Client) Generate(ctx context.Context, payload GenerateRequest) *Request {
	guard := c.coord.Start(ctx)

	go func() {
		resp, err := c.post(guard.Context(), payload)
		switch {
		case errors.Is(err, context.Canceled):
			guard.OnCancel()
		case err != nil:
			guard.OnError(err.Error())
		case !resp.OK:
			guard.OnError(resp.Reason)
		default:
			guard.OnSuccess(resp.ID)
		}
	}()

	return guard
}

func (c *Client) post(ctx context.Context, payload GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("call generate: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("not signed in")
	case http.StatusForbidden:
		return nil, fmt.Errorf("generation not allowed for this account")
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
