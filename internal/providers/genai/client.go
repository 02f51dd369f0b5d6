// Package genai dispatches generation requests to the Gemini-shaped model
// API: it picks the endpoint shape for the requested model, attaches resolved
// reference images, and normalizes the heterogeneous response envelopes into
// a single image result.
package genai

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

	"github.com/rs/zerolog"

	"studio/internal/infra"
	"studio/internal/reference"
)

// Options controls how the model client is configured.
type Options struct {
	APIKey             string
	BaseURL            string
	FallbackImageModel string
	HTTPClient         *http.Client
	Timeout            time.Duration
	Logger             *infra.Logger
}

// Client is a facade over the generative model API. It holds no per-request
// state; one instance serves all dispatches.
type Client struct {
	apiKey        string
	baseURL       string
	fallbackModel string
	httpClient    *http.Client
	timeout       time.Duration
	logger        *infra.Logger
}

// DefaultFallbackImageModel handles reference-conditioned calls that the
// imagen family cannot accept, and the one-shot retry after a 404.
const DefaultFallbackImageModel = "gemini-2.0-flash-preview-image-generation"

// DefaultTimeout bounds every model call.
const DefaultTimeout = 60 * time.Second

// NewClient constructs a model client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one is created.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	fallback := strings.TrimSpace(opts.FallbackImageModel)
	if fallback == "" {
		fallback = DefaultFallbackImageModel
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:        strings.TrimSpace(opts.APIKey),
		baseURL:       baseURL,
		fallbackModel: fallback,
		httpClient:    httpClient,
		timeout:       timeout,
		logger:        logger,
	}, nil
}

// FallbackImageModel returns the configured fallback image model id.
func (c *Client) FallbackImageModel() string {
	return c.fallbackModel
}

// HasCredentials reports whether an upstream API key is configured.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// IsImageClass reports whether the model belongs to the pure image-synthesis
// family. Image-class models use the predict endpoint and cannot take
// reference-conditioned edits.
func IsImageClass(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "imagen-")
}

// Result is the success envelope of a dispatch: one encoded image plus the
// model id actually used.
type Result struct {
	Base64Image string
	MIME        string
	Model       string
}

// APIError is the typed failure of a model call.
type APIError struct {
	Status int
	Reason string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("model api error (status %d): %s", e.Status, e.Reason)
	}
	return e.Reason
}

// ErrTimeout is surfaced when the model call exceeds the dispatch timeout.
// It is deliberately distinct from generic network failure so the user sees
// a readable reason.
var ErrTimeout = errors.New("the model took too long to respond; please try again")

// Dispatch resolves the endpoint shape for the model, issues the call under
// the dispatch timeout, and extracts the generated image. Reference images
// must already be resolved by the caller.
func (c *Client) Dispatch(ctx context.Context, model string, payload Payload) (*Result, error) {
	if !c.HasCredentials() {
		return nil, &APIError{Reason: "image service is not configured"}
	}

	model = strings.TrimSpace(model)
	hasRefs := len(payload.References) > 0

	// Image-class models cannot accept reference-conditioned edits; swap in
	// the fallback image model for this call.
	if hasRefs && IsImageClass(model) {
		c.logger.Debug().
			Str("requested_model", model).
			Str("substitute", c.fallbackModel).
			Msg("genai: substituting fallback model for reference-conditioned call")
		model = c.fallbackModel
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		resp *modelResponse
		err  error
	)
	if !hasRefs && IsImageClass(model) {
		resp, err = c.predict(ctx, model, payload)
	} else {
		resp, err = c.generateContent(ctx, model, payload)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}

	image, mime, ok := resp.extractImage()
	if !ok {
		return nil, &APIError{Reason: "the model returned no image"}
	}

	c.logger.Debug().
		Str("model", model).
		Str("mime", mime).
		Msg("genai: dispatch succeeded")

	return &Result{Base64Image: image, MIME: mime, Model: model}, nil
}

// predict calls the pure image-synthesis endpoint. Used only for image-class
// models with no reference attached.
func (c *Client) predict(ctx context.Context, model string, payload Payload) (*modelResponse, error) {
	body := predictRequest{
		Instances: []predictInstance{{Prompt: BuildPrompt(payload)}},
		Parameters: &predictParameters{
			SampleCount: 1,
			AspectRatio: strings.TrimSpace(payload.AspectRatio),
		},
	}
	return c.invoke(ctx, fmt.Sprintf("/models/%s:predict", url.PathEscape(model)), body)
}

// generateContent calls the generic content endpoint with the reference
// images attached as inline parts alongside the text prompt.
func (c *Client) generateContent(ctx context.Context, model string, payload Payload) (*modelResponse, error) {
	parts := []contentPart{{Text: BuildPrompt(payload)}}
	for _, ref := range payload.References {
		parts = append(parts, contentPart{
			InlineData: &inlineData{
				MimeType: ref.MIME,
				Data:     base64.StdEncoding.EncodeToString(ref.Bytes),
			},
		})
	}

	body := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}
	return c.invoke(ctx, fmt.Sprintf("/models/%s:generateContent", url.PathEscape(model)), body)
}

func (c *Client) invoke(ctx context.Context, path string, payload any) (*modelResponse, error) {
	endpoint := c.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("invoke model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp)
	}

	var out modelResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	return &out, nil
}

// decodeAPIError turns a non-success response into an APIError, preferring
// the structured upstream message, then a model-not-found message on 404,
// then a generic one.
func decodeAPIError(resp *http.Response) *APIError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error.Message != "" {
		return &APIError{Status: resp.StatusCode, Reason: envelope.Error.Message}
	}
	if resp.StatusCode == http.StatusNotFound {
		return &APIError{Status: resp.StatusCode, Reason: "the requested model was not found"}
	}
	return &APIError{Status: resp.StatusCode, Reason: fmt.Sprintf("the image service returned an error (status %d)", resp.StatusCode)}
}

// Payload carries everything the prompt builder and endpoint shapers need.
type Payload struct {
	Prompt         string
	RefinedPrompt  string
	NegativePrompt string
	Mode           string
	AspectRatio    string
	Camera         CameraGuidance
	References     []reference.Resolved
	GalleryCount   int
}

// CameraGuidance mirrors the structured camera fields of a request.
type CameraGuidance struct {
	Angle            string
	Aperture         string
	SubjectDirection string
	CameraDirection  string
	Zoom             string
}
